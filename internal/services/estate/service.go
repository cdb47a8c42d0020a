package estate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dwesselviax/EstateLogger/constants"
	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/entity"
	"github.com/dwesselviax/EstateLogger/internal/repository"
	"github.com/dwesselviax/EstateLogger/internal/utils"
)

// Service handles estate and capture-session business logic.
type Service struct {
	estates  repository.EstateRepository
	sessions repository.SessionRepository
	items    repository.ItemRepository
	logger   *slog.Logger
}

// NewService creates a new estate service.
func NewService(estates repository.EstateRepository, sessions repository.SessionRepository, items repository.ItemRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		estates:  estates,
		sessions: sessions,
		items:    items,
		logger:   logger,
	}
}

// CreateEstateRequest represents estate creation parameters.
type CreateEstateRequest struct {
	Name            string `json:"name"`
	Address         string `json:"address"`
	AuctionDate     string `json:"auction_date"` // YYYY-MM-DD, optional
	PropertyType    string `json:"property_type"`
	ExecutorName    string `json:"executor_name"`
	ExecutorContact string `json:"executor_contact"`
	Notes           string `json:"notes"`
}

var propertyTypes = []string{
	string(constants.PropertyResidential),
	string(constants.PropertyCommercial),
	string(constants.PropertyStorage),
	string(constants.PropertyOther),
}

// CreateEstate creates a new draft estate.
func (s *Service) CreateEstate(ctx context.Context, req CreateEstateRequest) (*entity.Estate, error) {
	validator := common.NewValidator()
	validator.Field("name", req.Name, common.Required, common.MaxLength(200))
	validator.Field("address", req.Address, common.Required, common.MaxLength(500))
	validator.Field("property_type", strings.ToLower(strings.TrimSpace(req.PropertyType)), common.OneOf(propertyTypes...))
	if err := validator.Error(); err != nil {
		return nil, err
	}

	e := &entity.Estate{
		Name:            strings.TrimSpace(req.Name),
		Address:         strings.TrimSpace(req.Address),
		ExecutorName:    utils.NilIfBlank(req.ExecutorName),
		ExecutorContact: utils.NilIfBlank(req.ExecutorContact),
		Notes:           utils.NilIfBlank(req.Notes),
	}
	if d := strings.TrimSpace(req.AuctionDate); d != "" {
		t, err := utils.ParseYMD(d)
		if err != nil {
			return nil, fmt.Errorf("%w: auction_date: must be YYYY-MM-DD", common.ErrValidation)
		}
		e.AuctionDate = &t
	}
	if strings.TrimSpace(req.PropertyType) != "" {
		pt, _ := constants.ParsePropertyType(req.PropertyType)
		e.PropertyType = &pt
	}

	created, err := s.estates.Create(ctx, e)
	if err != nil {
		return nil, err
	}
	s.logger.Info("estate created", "estate_id", created.ID, "name", created.Name)
	return created, nil
}

// ListEstates returns all estates with their catalog counts.
func (s *Service) ListEstates(ctx context.Context) ([]*entity.EstateSummary, error) {
	list, err := s.estates.List(ctx)
	if err != nil {
		// DB error already logged in repository layer
		return nil, err
	}
	s.logger.Debug("estates listed", "count", len(list))
	return list, nil
}

func (s *Service) GetEstate(ctx context.Context, id uuid.UUID) (*entity.Estate, error) {
	return s.estates.GetByID(ctx, id)
}

// DeleteEstate removes the estate with its sessions, items, enrichments and
// images. Estates with published items are kept.
func (s *Service) DeleteEstate(ctx context.Context, id uuid.UUID) error {
	if err := s.estates.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("estate deleted", "estate_id", id)
	return nil
}

// StartSession opens an active capture session and moves the estate to logging.
func (s *Service) StartSession(ctx context.Context, estateID uuid.UUID) (*entity.Session, error) {
	sess, err := s.sessions.Start(ctx, estateID)
	if err != nil {
		return nil, err
	}
	if err := s.estates.UpdateStatus(ctx, estateID, constants.EstateLogging); err != nil {
		return nil, err
	}
	return sess, nil
}

// CompleteSession records the final transcript and the number of items the
// session produced.
func (s *Service) CompleteSession(ctx context.Context, sessionID uuid.UUID, transcript string) (*entity.Session, error) {
	n, err := s.items.CountBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Complete(ctx, sessionID, strings.TrimSpace(transcript), n, time.Now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("session completed", "session_id", sessionID, "estate_id", sess.EstateID, "item_count", n)
	return sess, nil
}
