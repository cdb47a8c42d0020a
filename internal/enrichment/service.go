package enrichment

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dwesselviax/EstateLogger/constants"
	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/entity"
	"github.com/dwesselviax/EstateLogger/internal/gate"
	"github.com/dwesselviax/EstateLogger/internal/llm"
	"github.com/dwesselviax/EstateLogger/internal/repository"
	"github.com/dwesselviax/EstateLogger/internal/utils"
)

// Service enriches one item at a time and persists the result.
type Service struct {
	enricher    llm.ItemEnricher
	items       repository.ItemRepository
	enrichments repository.EnrichmentRepository
	locks       *keyedMutex
	logger      *slog.Logger
}

func NewService(enricher llm.ItemEnricher, items repository.ItemRepository, enrichments repository.EnrichmentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		enricher:    enricher,
		items:       items,
		enrichments: enrichments,
		locks:       newKeyedMutex(),
		logger:      logger,
	}
}

// EnrichItem asks the model about the item and replaces its enrichment record.
// Calls for the same item are serialized within this process.
func (s *Service) EnrichItem(ctx context.Context, itemID uuid.UUID) (*entity.Enrichment, error) {
	unlock := s.locks.Lock(itemID)
	defer unlock()

	logger := common.LoggerFrom(ctx, s.logger).With("item_id", itemID)
	start := time.Now()

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	out, _, err := s.enricher.EnrichItem(ctx, llm.ItemContext{
		Name:        item.Name,
		Description: utils.StrOrEmpty(item.Description),
		Category:    string(item.Category),
		Condition:   string(item.Condition),
		Location:    utils.StrOrEmpty(item.Location),
	})
	if err != nil {
		logger.Error("enrich.model_failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	record := ToEnrichment(itemID, out)
	saved, err := s.enrichments.Save(ctx, record, gate.EnrichSources)
	if err != nil {
		return nil, err
	}

	logger.Info("enrich.ok",
		"status", gate.MarkEnriched(item.Status),
		"confidence", saved.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return saved, nil
}

// ToEnrichment applies the storage defaults to a model response: absent or
// zero numbers and blank text become null, confidence falls back to medium.
func ToEnrichment(itemID uuid.UUID, in llm.ItemEnrichment) *entity.Enrichment {
	blank := func(p *string) *string { return utils.NilIfBlank(utils.StrOrEmpty(p)) }
	return &entity.Enrichment{
		ItemID:              itemID,
		ProductMatch:        blank(in.ProductMatch),
		Manufacturer:        blank(in.Manufacturer),
		EstimatedValueLow:   utils.PositiveOrNil(in.EstimatedValueLow),
		EstimatedValueHigh:  utils.PositiveOrNil(in.EstimatedValueHigh),
		RecommendedStartBid: utils.PositiveOrNil(in.RecommendedStartBid),
		EnhancedDescription: blank(in.EnhancedDescription),
		NotableDetails:      blank(in.NotableDetails),
		Confidence:          constants.NormalizeConfidence(in.Confidence),
		EnrichedAt:          time.Now(),
	}
}

// keyedMutex hands out one mutex per item id and forgets it once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*refMutex)}
}

func (k *keyedMutex) Lock(id uuid.UUID) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &refMutex{}
		k.locks[id] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
