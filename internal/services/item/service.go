package item

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/dwesselviax/EstateLogger/constants"
	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/entity"
	"github.com/dwesselviax/EstateLogger/internal/repository"
)

// Service handles operator edits to the catalog: manual items, field edits,
// enrichment overrides and images.
type Service struct {
	items       repository.ItemRepository
	enrichments repository.EnrichmentRepository
	images      repository.ImageRepository
	logger      *slog.Logger
}

func NewService(items repository.ItemRepository, enrichments repository.EnrichmentRepository, images repository.ImageRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		items:       items,
		enrichments: enrichments,
		images:      images,
		logger:      logger,
	}
}

// ItemFields is the operator-editable part of an item. Nil fields are left
// alone on update.
type ItemFields struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Condition   *string `json:"condition"`
	Location    *string `json:"location"`
	SortOrder   *int    `json:"sort_order"`
}

func validateFields(f ItemFields, requireName bool) error {
	v := common.NewValidator()
	if requireName {
		v.Field("name", f.Name, common.Required)
	} else if f.Name != nil {
		v.Field("name", *f.Name, common.Required)
	}
	v.Field("name", f.Name, common.MaxLength(300))
	if f.Condition != nil {
		v.Field("condition", strings.ToLower(strings.TrimSpace(*f.Condition)), common.OneOf(constants.ConditionsAsStringSlice()...))
	}
	return v.Error()
}

func (f ItemFields) category() *constants.Category {
	if f.Category == nil {
		return nil
	}
	c, _ := constants.Canonicalize(*f.Category)
	return &c
}

func (f ItemFields) condition() *constants.Condition {
	if f.Condition == nil {
		return nil
	}
	c, _ := constants.NormalizeCondition(*f.Condition)
	return &c
}

// CreateManualItem stores an operator-entered item as captured, with no session.
func (s *Service) CreateManualItem(ctx context.Context, estateID uuid.UUID, f ItemFields) (*entity.Item, error) {
	if err := validateFields(f, true); err != nil {
		return nil, err
	}
	row := repository.NewItem{
		Name:        strings.TrimSpace(*f.Name),
		Description: f.Description,
		Category:    constants.Miscellaneous,
		Condition:   constants.ConditionUnknown,
		Location:    f.Location,
		SortOrder:   f.SortOrder,
	}
	if c := f.category(); c != nil {
		row.Category = *c
	}
	if c := f.condition(); c != nil {
		row.Condition = *c
	}
	created, err := s.items.CreateBatch(ctx, estateID, nil, []repository.NewItem{row})
	if err != nil {
		return nil, err
	}
	s.logger.Info("manual item created", "estate_id", estateID, "item_id", created[0].ID)
	return created[0], nil
}

// UpdateItem applies an inline field edit. Status is never changed here.
func (s *Service) UpdateItem(ctx context.Context, id uuid.UUID, f ItemFields) (*entity.Item, error) {
	if err := validateFields(f, false); err != nil {
		return nil, err
	}
	return s.items.Update(ctx, id, repository.ItemPatch{
		Name:        f.Name,
		Description: f.Description,
		Category:    f.category(),
		Condition:   f.condition(),
		Location:    f.Location,
		SortOrder:   f.SortOrder,
	})
}

func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (*entity.ItemWithEnrichment, error) {
	return s.items.GetWithEnrichment(ctx, id)
}

// ListQuery holds the raw listing filters as they arrive from a transport.
type ListQuery struct {
	Statuses []string
	Category string
	Search   string
}

func (s *Service) ListItems(ctx context.Context, estateID uuid.UUID, q ListQuery) ([]*entity.ItemWithEnrichment, error) {
	var filter repository.ItemFilter
	for _, raw := range lo.Compact(q.Statuses) {
		st, err := constants.ParseItemStatus(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
		}
		filter.Statuses = append(filter.Statuses, st)
	}
	if c := strings.TrimSpace(q.Category); c != "" {
		if !constants.IsCategory(c) {
			return nil, fmt.Errorf("%w: unknown category %q", common.ErrInvalidInput, c)
		}
		cat := constants.Category(c)
		filter.Category = &cat
	}
	filter.Search = q.Search
	return s.items.ListByEstate(ctx, estateID, filter)
}

// EnrichmentFields is a manual override of enrichment values. Values are
// stored as given, without the model contract's validation.
type EnrichmentFields struct {
	ProductMatch        *string  `json:"product_match"`
	Manufacturer        *string  `json:"manufacturer"`
	EstimatedValueLow   *float64 `json:"estimated_value_low"`
	EstimatedValueHigh  *float64 `json:"estimated_value_high"`
	RecommendedStartBid *float64 `json:"recommended_start_bid"`
	EnhancedDescription *string  `json:"enhanced_description"`
	NotableDetails      *string  `json:"notable_details"`
	Confidence          *string  `json:"confidence"`
}

func (s *Service) UpdateEnrichment(ctx context.Context, itemID uuid.UUID, f EnrichmentFields) (*entity.Enrichment, error) {
	patch := repository.EnrichmentPatch{
		ProductMatch:        f.ProductMatch,
		Manufacturer:        f.Manufacturer,
		EstimatedValueLow:   f.EstimatedValueLow,
		EstimatedValueHigh:  f.EstimatedValueHigh,
		RecommendedStartBid: f.RecommendedStartBid,
		EnhancedDescription: f.EnhancedDescription,
		NotableDetails:      f.NotableDetails,
	}
	if f.Confidence != nil {
		c := constants.NormalizeConfidence(*f.Confidence)
		patch.Confidence = &c
	}
	rec, err := s.enrichments.Patch(ctx, itemID, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Info("enrichment edited", "item_id", itemID)
	return rec, nil
}

// AddImage attaches an image URL. The first image of an item becomes primary.
func (s *Service) AddImage(ctx context.Context, itemID uuid.UUID, url, typ string) (*entity.ItemImage, error) {
	v := common.NewValidator()
	v.Field("url", url, common.Required)
	v.Field("type", typ, common.OneOf(string(constants.ImageActual), string(constants.ImageReference)))
	if err := v.Error(); err != nil {
		return nil, err
	}
	if !constants.IsImageURL(url) {
		return nil, fmt.Errorf("%w: url: must be an http(s) link to an image", common.ErrValidation)
	}
	return s.images.Add(ctx, itemID, strings.TrimSpace(url), constants.ImageType(typ))
}
