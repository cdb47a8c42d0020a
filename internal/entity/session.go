package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/dwesselviax/EstateLogger/constants"
)

// Session is one continuous voice-capture run.
type Session struct {
	ID             uuid.UUID               `json:"id"`
	EstateID       uuid.UUID               `json:"estate_id"`
	Status         constants.SessionStatus `json:"status"`
	FullTranscript string                  `json:"full_transcript"`
	ItemCount      int                     `json:"item_count"`
	StartedAt      time.Time               `json:"started_at"`
	EndedAt        *time.Time              `json:"ended_at,omitempty"`
}
