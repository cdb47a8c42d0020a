package repository

import (
	"context"
	stdsql "database/sql"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/dwesselviax/EstateLogger/constants"
	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/entity"
	"github.com/dwesselviax/EstateLogger/internal/utils"
)

var sessionColumns = []string{"id", "estate_id", "status", "full_transcript", "item_count", "started_at", "ended_at"}

type SessionRepository interface {
	Start(ctx context.Context, estateID uuid.UUID) (*entity.Session, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Session, error)
	UpdateTranscript(ctx context.Context, id uuid.UUID, transcript string) error
	Complete(ctx context.Context, id uuid.UUID, transcript string, itemCount int, endedAt time.Time) (*entity.Session, error)
}

type sessionRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewSessionRepository(db *DB, logger *slog.Logger) SessionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &sessionRepository{db: db, logger: logger}
}

func (r *sessionRepository) Start(ctx context.Context, estateID uuid.UUID) (*entity.Session, error) {
	if _, err := getEstate(ctx, r.db, r.db.drv, estateID); err != nil {
		return nil, err
	}
	s := &entity.Session{
		ID:        uuid.New(),
		EstateID:  estateID,
		Status:    constants.SessionActive,
		StartedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	q := r.db.builder().Insert(tableSessions).
		Columns(sessionColumns...).
		Values(s.ID.String(), estateID.String(), string(s.Status), "", 0, utils.UnixMillis(s.StartedAt), nil)
	if _, err := execQuery(ctx, r.db.drv, q); err != nil {
		r.logger.Error("failed to start session", "estate_id", estateID, "error", err)
		return nil, common.StoreError("insert session", err)
	}
	r.logger.Info("session started", "session_id", s.ID, "estate_id", estateID)
	return s, nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	b := r.db.builder()
	q := b.Select(sessionColumns...).
		From(b.Table(tableSessions)).
		Where(entsql.EQ("id", id.String()))

	var found *entity.Session
	err := queryRows(ctx, r.db.drv, q, func(rows *entsql.Rows) error {
		var (
			s       entity.Session
			status  string
			started int64
			ended   stdsql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.EstateID, &status, &s.FullTranscript, &s.ItemCount, &started, &ended); err != nil {
			return err
		}
		s.Status = constants.SessionStatus(status)
		s.StartedAt = utils.TimeFromUnixMillis(started)
		s.EndedAt = utils.TimePtrFromUnixMillis(int64Ptr(ended))
		found = &s
		return nil
	})
	if err != nil {
		return nil, common.StoreError("select session", err)
	}
	if found == nil {
		return nil, common.NotFound("session", id)
	}
	return found, nil
}

func (r *sessionRepository) UpdateTranscript(ctx context.Context, id uuid.UUID, transcript string) error {
	q := r.db.builder().Update(tableSessions).
		Set("full_transcript", transcript).
		Where(entsql.EQ("id", id.String()))
	n, err := execQuery(ctx, r.db.drv, q)
	if err != nil {
		return common.StoreError("update session transcript", err)
	}
	if n == 0 {
		return common.NotFound("session", id)
	}
	return nil
}

func (r *sessionRepository) Complete(ctx context.Context, id uuid.UUID, transcript string, itemCount int, endedAt time.Time) (*entity.Session, error) {
	q := r.db.builder().Update(tableSessions).
		Set("status", string(constants.SessionCompleted)).
		Set("full_transcript", transcript).
		Set("item_count", itemCount).
		Set("ended_at", utils.UnixMillis(endedAt)).
		Where(entsql.EQ("id", id.String()))
	n, err := execQuery(ctx, r.db.drv, q)
	if err != nil {
		r.logger.Error("failed to complete session", "session_id", id, "error", err)
		return nil, common.StoreError("complete session", err)
	}
	if n == 0 {
		return nil, common.NotFound("session", id)
	}
	r.logger.Info("session completed", "session_id", id, "item_count", itemCount)
	return r.GetByID(ctx, id)
}
