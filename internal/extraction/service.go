package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/dwesselviax/EstateLogger/constants"
	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/entity"
	"github.com/dwesselviax/EstateLogger/internal/llm"
	"github.com/dwesselviax/EstateLogger/internal/repository"
	"github.com/dwesselviax/EstateLogger/internal/utils"
)

// Service turns transcript chunks into captured items.
type Service struct {
	extractor llm.ItemExtractor
	estates   repository.EstateRepository
	sessions  repository.SessionRepository
	items     repository.ItemRepository
	logger    *slog.Logger
}

func NewService(
	extractor llm.ItemExtractor,
	estates repository.EstateRepository,
	sessions repository.SessionRepository,
	items repository.ItemRepository,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		extractor: extractor,
		estates:   estates,
		sessions:  sessions,
		items:     items,
		logger:    logger,
	}
}

// Request is one extraction call.
type Request struct {
	Transcript string
	EstateID   uuid.UUID
	SessionID  *uuid.UUID
}

// Extract asks the model for the items described in req.Transcript and stores
// them as captured. A blank transcript is an empty success and never reaches
// the model. The insert is all-or-nothing.
func (s *Service) Extract(ctx context.Context, req Request) ([]*entity.Item, error) {
	if strings.TrimSpace(req.Transcript) == "" {
		return []*entity.Item{}, nil
	}
	logger := common.LoggerFrom(ctx, s.logger).With("estate_id", req.EstateID)
	start := time.Now()

	if _, err := s.estates.GetByID(ctx, req.EstateID); err != nil {
		return nil, err
	}
	if req.SessionID != nil {
		sess, err := s.sessions.GetByID(ctx, *req.SessionID)
		if err != nil {
			return nil, err
		}
		if sess.EstateID != req.EstateID {
			return nil, common.NewAppError("INVALID_INPUT",
				fmt.Sprintf("session %s does not belong to estate %s", sess.ID, req.EstateID), common.ErrInvalidInput)
		}
	}

	extracted, _, err := s.extractor.ExtractItems(ctx, req.Transcript)
	if err != nil {
		logger.Error("extraction.model_failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	if len(extracted) == 0 {
		logger.Info("extraction.no_items", "text_len", len(req.Transcript))
		return []*entity.Item{}, nil
	}

	rows := ToNewItems(extracted, req.Transcript, logger)
	items, err := s.items.CreateBatch(ctx, req.EstateID, req.SessionID, rows)
	if err != nil {
		return nil, err
	}

	logger.Info("extraction.ok",
		"items", len(items),
		"categories", lo.Uniq(lo.Map(items, func(it *entity.Item, _ int) constants.Category { return it.Category })),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return items, nil
}

// ToNewItems applies the lenient normalization every extracted object goes
// through before it is stored: category through the synonym table with a
// Miscellaneous fallback, condition lower-cased with an unknown fallback,
// blank description and location as null.
func ToNewItems(extracted []llm.ExtractedItem, transcript string, logger *slog.Logger) []repository.NewItem {
	if logger == nil {
		logger = slog.Default()
	}
	excerpt := utils.Prefix(transcript, constants.ExcerptLimit)
	return lo.Map(extracted, func(e llm.ExtractedItem, _ int) repository.NewItem {
		category, ok := constants.Canonicalize(e.Category)
		if !ok && strings.TrimSpace(e.Category) != "" {
			logger.Warn("extraction.category_fallback", "item", e.Name, "category", e.Category)
		}
		condition, ok := constants.NormalizeCondition(e.Condition)
		if !ok && strings.TrimSpace(e.Condition) != "" {
			logger.Warn("extraction.condition_fallback", "item", e.Name, "condition", e.Condition)
		}
		return repository.NewItem{
			Name:            strings.TrimSpace(e.Name),
			Description:     utils.NilIfBlank(utils.StrOrEmpty(e.Description)),
			Category:        category,
			Condition:       condition,
			Location:        utils.NilIfBlank(utils.StrOrEmpty(e.Location)),
			VoiceTranscript: &excerpt,
		}
	})
}
