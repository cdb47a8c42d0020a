package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/dwesselviax/EstateLogger/constants"
)

// Estate represents one property/auction engagement for data transfer between layers.
type Estate struct {
	ID              uuid.UUID               `json:"id"`
	Name            string                  `json:"name"`
	Address         string                  `json:"address"`
	AuctionDate     *time.Time              `json:"auction_date,omitempty"`
	Status          constants.EstateStatus  `json:"status"`
	PropertyType    *constants.PropertyType `json:"property_type,omitempty"`
	ExecutorName    *string                 `json:"executor_name,omitempty"`
	ExecutorContact *string                 `json:"executor_contact,omitempty"`
	Notes           *string                 `json:"notes,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// EstateSummary is an estate with its catalog progress counts.
type EstateSummary struct {
	Estate
	ItemCount      int `json:"item_count"`
	ConfirmedCount int `json:"confirmed_count"`
	EnrichedCount  int `json:"enriched_count"`
}
