package gate

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/dwesselviax/EstateLogger/constants"
	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/entity"
	"github.com/dwesselviax/EstateLogger/internal/repository"
)

// Auction is the public view of a published estate.
type Auction struct {
	Estate     *entity.Estate               `json:"estate"`
	Items      []*entity.ItemWithEnrichment `json:"items"`
	Categories []constants.Category         `json:"categories"`
}

// Service applies the transitions above to stored items and estates.
type Service struct {
	estates repository.EstateRepository
	items   repository.ItemRepository
	logger  *slog.Logger
}

func NewService(estates repository.EstateRepository, items repository.ItemRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{estates: estates, items: items, logger: logger}
}

// ConfirmItems confirms the given items. Items that cannot be confirmed are
// skipped; the count of rows now confirmed is returned.
func (s *Service) ConfirmItems(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.items.TransitionStatus(ctx, lo.Uniq(ids), ConfirmSources, constants.ItemConfirmed)
	if err != nil {
		return 0, err
	}
	common.LoggerFrom(ctx, s.logger).Info("gate.confirm", "requested", len(ids), "confirmed", n)
	return n, nil
}

// ConfirmAllCaptured confirms every captured item of the estate.
func (s *Service) ConfirmAllCaptured(ctx context.Context, estateID uuid.UUID) (int64, error) {
	if _, err := s.estates.GetByID(ctx, estateID); err != nil {
		return 0, err
	}
	n, err := s.items.TransitionEstate(ctx, estateID, []constants.ItemStatus{constants.ItemCaptured}, constants.ItemConfirmed)
	if err != nil {
		return 0, err
	}
	common.LoggerFrom(ctx, s.logger).Info("gate.confirm_all", "estate_id", estateID, "confirmed", n)
	return n, nil
}

func (s *Service) PublishItem(ctx context.Context, id uuid.UUID) (*entity.Item, error) {
	item, err := s.items.GetWithEnrichment(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := Publish(item.Status); err != nil {
		return nil, err
	}
	if item.Enrichment == nil {
		common.LoggerFrom(ctx, s.logger).Warn("gate.publish_unenriched", "item_id", id, "item", item.Name)
	}
	return s.move(ctx, id, PublishSources, constants.ItemPublished)
}

func (s *Service) UnpublishItem(ctx context.Context, id uuid.UUID) (*entity.Item, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := Unpublish(item.Status); err != nil {
		return nil, err
	}
	return s.move(ctx, id, UnpublishSources, constants.ItemEnriched)
}

func (s *Service) move(ctx context.Context, id uuid.UUID, from []constants.ItemStatus, to constants.ItemStatus) (*entity.Item, error) {
	n, err := s.items.TransitionStatus(ctx, []uuid.UUID{id}, from, to)
	if err != nil {
		return nil, err
	}
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// status changed under us between the read and the write
		_, err := transition(string(to), item.Status, from, to)
		return nil, err
	}
	common.LoggerFrom(ctx, s.logger).Info("gate.item_status", "item_id", id, "status", to)
	return item, nil
}

// DeleteItems removes the items with their enrichment and images. One
// published item rejects the whole call.
func (s *Service) DeleteItems(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.items.Delete(ctx, ids)
	if err != nil {
		return 0, err
	}
	common.LoggerFrom(ctx, s.logger).Info("gate.delete", "requested", len(ids), "deleted", n)
	return n, nil
}

// PublishEstate publishes the estate and every confirmed or enriched item in
// it. Captured items stay captured.
func (s *Service) PublishEstate(ctx context.Context, estateID uuid.UUID) (int64, error) {
	n, err := s.estates.PromoteItems(ctx, estateID, PublishSources, constants.ItemPublished, constants.EstatePublished)
	if err != nil {
		return 0, err
	}
	common.LoggerFrom(ctx, s.logger).Info("gate.publish_estate", "estate_id", estateID, "published", n)
	return n, nil
}

func (s *Service) SetEstateStatus(ctx context.Context, estateID uuid.UUID, status constants.EstateStatus) (*entity.Estate, error) {
	if err := s.estates.UpdateStatus(ctx, estateID, status); err != nil {
		return nil, err
	}
	return s.estates.GetByID(ctx, estateID)
}

// Auction returns the public listing. Unpublished estates are reported as not
// found.
func (s *Service) Auction(ctx context.Context, estateID uuid.UUID) (*Auction, error) {
	estate, err := s.estates.GetByID(ctx, estateID)
	if err != nil {
		return nil, err
	}
	if estate.Status != constants.EstatePublished {
		return nil, common.NotFound("auction", estateID)
	}
	items, err := s.items.ListByEstate(ctx, estateID, repository.ItemFilter{
		Statuses: []constants.ItemStatus{constants.ItemEnriched, constants.ItemPublished},
	})
	if err != nil {
		return nil, err
	}
	SortForListing(items)
	return &Auction{
		Estate: estate,
		Items:  items,
		Categories: lo.Uniq(lo.Map(items, func(it *entity.ItemWithEnrichment, _ int) constants.Category {
			return it.Category
		})),
	}, nil
}

// SortForListing orders by sort_order with unset values last, then category.
func SortForListing(items []*entity.ItemWithEnrichment) {
	slices.SortStableFunc(items, func(a, b *entity.ItemWithEnrichment) int {
		switch {
		case a.SortOrder == nil && b.SortOrder != nil:
			return 1
		case a.SortOrder != nil && b.SortOrder == nil:
			return -1
		case a.SortOrder != nil && b.SortOrder != nil && *a.SortOrder != *b.SortOrder:
			return cmp.Compare(*a.SortOrder, *b.SortOrder)
		}
		return cmp.Compare(a.Category, b.Category)
	})
}
