package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/dwesselviax/EstateLogger/constants"
)

// Enrichment is the AI-derived market intelligence attached to an item.
type Enrichment struct {
	ID                  uuid.UUID            `json:"id"`
	ItemID              uuid.UUID            `json:"item_id"`
	ProductMatch        *string              `json:"product_match"`
	Manufacturer        *string              `json:"manufacturer"`
	EstimatedValueLow   *float64             `json:"estimated_value_low"`
	EstimatedValueHigh  *float64             `json:"estimated_value_high"`
	RecommendedStartBid *float64             `json:"recommended_start_bid"`
	EnhancedDescription *string              `json:"enhanced_description"`
	NotableDetails      *string              `json:"notable_details"`
	Confidence          constants.Confidence `json:"confidence"`
	EnrichedAt          time.Time            `json:"enriched_at"`
}
