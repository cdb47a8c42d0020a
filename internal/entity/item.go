package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/dwesselviax/EstateLogger/constants"
)

// Item represents one physical object cataloged within an estate.
type Item struct {
	ID              uuid.UUID            `json:"id"`
	EstateID        uuid.UUID            `json:"estate_id"`
	SessionID       *uuid.UUID           `json:"session_id"`
	Name            string               `json:"name"`
	Description     *string              `json:"description"`
	Category        constants.Category   `json:"category"`
	Condition       constants.Condition  `json:"condition"`
	Location        *string              `json:"location"`
	VoiceTranscript *string              `json:"voice_transcript,omitempty"`
	Status          constants.ItemStatus `json:"status"`
	SortOrder       *int                 `json:"sort_order"`
	CreatedAt       time.Time            `json:"created_at"`
}

// ItemWithEnrichment is the canonical joined shape: zero or one enrichment per item.
type ItemWithEnrichment struct {
	Item
	Enrichment *Enrichment  `json:"enrichment"`
	Images     []*ItemImage `json:"images,omitempty"`
}

// ItemImage is one photo attached to an item.
type ItemImage struct {
	ID        uuid.UUID           `json:"id"`
	ItemID    uuid.UUID           `json:"item_id"`
	URL       string              `json:"url"`
	Type      constants.ImageType `json:"type"`
	IsPrimary bool                `json:"is_primary"`
	CreatedAt time.Time           `json:"created_at"`
}
