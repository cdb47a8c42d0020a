package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/dwesselviax/EstateLogger/constants"
	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/entity"
	"github.com/dwesselviax/EstateLogger/internal/repository"
)

// ItemEnricher is the per-item step the orchestrator drives.
type ItemEnricher interface {
	EnrichItem(ctx context.Context, itemID uuid.UUID) (*entity.Enrichment, error)
}

// ProgressFunc receives (completed, total) after every item, failed or not.
type ProgressFunc func(done, total int)

// Result summarizes one batch run.
type Result struct {
	Total         int         `json:"total"`
	Succeeded     int         `json:"succeeded"`
	Failed        int         `json:"failed"`
	FailedItemIDs []uuid.UUID `json:"failed_item_ids"`
}

// Orchestrator runs the enrichment service over an estate's eligible items.
type Orchestrator struct {
	enricher ItemEnricher
	estates  repository.EstateRepository
	items    repository.ItemRepository
	logger   *slog.Logger
}

func NewOrchestrator(enricher ItemEnricher, estates repository.EstateRepository, items repository.ItemRepository, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		enricher: enricher,
		estates:  estates,
		items:    items,
		logger:   logger,
	}
}

// Eligible keeps confirmed items, plus items past captured that have no
// enrichment yet.
func Eligible(items []*entity.ItemWithEnrichment) []*entity.ItemWithEnrichment {
	return lo.Filter(items, func(it *entity.ItemWithEnrichment, _ int) bool {
		return it.Status == constants.ItemConfirmed ||
			(it.Enrichment == nil && it.Status != constants.ItemCaptured)
	})
}

// EligibleItems loads the estate's items and applies Eligible.
func (o *Orchestrator) EligibleItems(ctx context.Context, estateID uuid.UUID) ([]*entity.ItemWithEnrichment, error) {
	if _, err := o.estates.GetByID(ctx, estateID); err != nil {
		return nil, err
	}
	all, err := o.items.ListByEstate(ctx, estateID, repository.ItemFilter{})
	if err != nil {
		return nil, err
	}
	return Eligible(all), nil
}

// EnrichEstate enriches every eligible item of the estate.
func (o *Orchestrator) EnrichEstate(ctx context.Context, estateID uuid.UUID, progress ProgressFunc) (*Result, error) {
	eligible, err := o.EligibleItems(ctx, estateID)
	if err != nil {
		return nil, err
	}
	return o.Run(ctx, estateID, eligible, progress)
}

// Run enriches items strictly one after another. A failing item is logged and
// skipped. Once the sequence ends the estate is marked enriching, whatever its
// previous status. An empty input returns common.ErrNoWork.
func (o *Orchestrator) Run(ctx context.Context, estateID uuid.UUID, items []*entity.ItemWithEnrichment, progress ProgressFunc) (*Result, error) {
	logger := common.LoggerFrom(ctx, o.logger).With("estate_id", estateID)
	if len(items) == 0 {
		return nil, fmt.Errorf("estate %s: %w", estateID, common.ErrNoWork)
	}
	if progress == nil {
		progress = func(int, int) {}
	}

	start := time.Now()
	res := &Result{Total: len(items), FailedItemIDs: []uuid.UUID{}}
	logger.Info("enrich.orchestrator.start", "total", res.Total)

	for i, it := range items {
		if _, err := o.enricher.EnrichItem(ctx, it.ID); err != nil {
			res.Failed++
			res.FailedItemIDs = append(res.FailedItemIDs, it.ID)
			logger.Warn("enrich.orchestrator.item_failed", "item_id", it.ID, "item", it.Name, "error", err)
		} else {
			res.Succeeded++
		}
		progress(i+1, res.Total)
	}

	// the status write happens even if the caller gave up mid-run
	if err := o.estates.UpdateStatus(context.WithoutCancel(ctx), estateID, constants.EstateEnriching); err != nil {
		logger.Error("enrich.orchestrator.estate_status_failed", "error", err)
		return res, err
	}

	logger.Info("enrich.orchestrator.done",
		"total", res.Total,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
