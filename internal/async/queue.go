package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dwesselviax/EstateLogger/internal/enrichment"
)

var ErrQueueClosed = errors.New("enrichment queue is shutting down")

// Job is one background enrichment batch over an estate.
type Job struct {
	EstateID    uuid.UUID
	Force       bool // enqueue even if a batch for the estate is already pending
	SubmittedAt time.Time
	TraceID     string

	seq uint64
}

type State string

const (
	StateQueued  State = "queued"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Progress is the pollable status of the latest batch for an estate.
type Progress struct {
	EstateID   uuid.UUID          `json:"estate_id"`
	State      State              `json:"state"`
	Done       int                `json:"done"`
	Total      int                `json:"total"`
	Result     *enrichment.Result `json:"result,omitempty"`
	Error      string             `json:"error,omitempty"`
	QueuedAt   time.Time          `json:"queued_at"`
	StartedAt  *time.Time         `json:"started_at,omitempty"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`

	seq uint64
}

// Pending reports whether the batch has not finished yet.
func (p Progress) Pending() bool {
	return p.State == StateQueued || p.State == StateRunning
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) (Progress, error)
	Progress(estateID uuid.UUID) (Progress, bool)
	Shutdown(ctx context.Context)
}
