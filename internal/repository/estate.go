package repository

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/dwesselviax/EstateLogger/constants"
	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/entity"
	"github.com/dwesselviax/EstateLogger/internal/utils"
)

var estateColumns = []string{
	"id", "name", "address", "auction_date", "status", "property_type",
	"executor_name", "executor_contact", "notes", "created_at", "updated_at",
}

type EstateRepository interface {
	Create(ctx context.Context, e *entity.Estate) (*entity.Estate, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Estate, error)
	List(ctx context.Context) ([]*entity.EstateSummary, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status constants.EstateStatus) error
	// Delete removes the estate and everything under it. It fails with
	// common.ErrPublishedItem when any of its items is published.
	Delete(ctx context.Context, id uuid.UUID) error
	// PromoteItems moves every item of the estate whose status is in from to
	// the to status and sets the estate status, in one transaction.
	PromoteItems(ctx context.Context, id uuid.UUID, from []constants.ItemStatus, to constants.ItemStatus, estateStatus constants.EstateStatus) (int64, error)
}

type estateRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewEstateRepository(db *DB, logger *slog.Logger) EstateRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &estateRepository{
		db:     db,
		logger: logger,
	}
}

func (r *estateRepository) Create(ctx context.Context, e *entity.Estate) (*entity.Estate, error) {
	out := *e
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	if out.Status == "" {
		out.Status = constants.EstateDraft
	}
	if _, err := constants.ParseEstateStatus(string(out.Status)); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	out.CreatedAt, out.UpdatedAt = now, now

	var auction any
	if out.AuctionDate != nil {
		auction = utils.UnixMillis(*out.AuctionDate)
	}
	var ptype any
	if out.PropertyType != nil {
		ptype = string(*out.PropertyType)
	}

	q := r.db.builder().Insert(tableEstates).
		Columns(estateColumns...).
		Values(out.ID.String(), out.Name, out.Address, auction, string(out.Status), ptype,
			nullString(out.ExecutorName), nullString(out.ExecutorContact), nullString(out.Notes),
			utils.UnixMillis(now), utils.UnixMillis(now))
	if _, err := execQuery(ctx, r.db.drv, q); err != nil {
		r.logger.Error("failed to create estate", "name", out.Name, "error", err)
		return nil, common.StoreError("insert estate", err)
	}
	r.logger.Info("estate created", "estate_id", out.ID, "name", out.Name)
	return &out, nil
}

func (r *estateRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Estate, error) {
	return getEstate(ctx, r.db, r.db.drv, id)
}

func getEstate(ctx context.Context, d *DB, eq dialect.ExecQuerier, id uuid.UUID) (*entity.Estate, error) {
	b := d.builder()
	q := b.Select(estateColumns...).
		From(b.Table(tableEstates)).
		Where(entsql.EQ("id", id.String()))

	var found *entity.Estate
	err := queryRows(ctx, eq, q, func(rows *entsql.Rows) error {
		e, err := scanEstate(rows)
		if err != nil {
			return err
		}
		found = e
		return nil
	})
	if err != nil {
		return nil, common.StoreError("select estate", err)
	}
	if found == nil {
		return nil, common.NotFound("estate", id)
	}
	return found, nil
}

func (r *estateRepository) List(ctx context.Context) ([]*entity.EstateSummary, error) {
	b := r.db.builder()
	q := b.Select(estateColumns...).
		From(b.Table(tableEstates)).
		OrderBy(entsql.Desc("created_at"))

	var estates []*entity.EstateSummary
	err := queryRows(ctx, r.db.drv, q, func(rows *entsql.Rows) error {
		e, err := scanEstate(rows)
		if err != nil {
			return err
		}
		estates = append(estates, &entity.EstateSummary{Estate: *e})
		return nil
	})
	if err != nil {
		r.logger.Error("failed to list estates", "error", err)
		return nil, common.StoreError("list estates", err)
	}
	if len(estates) == 0 {
		return estates, nil
	}

	counts := b.Select("estate_id", "status", entsql.Count("*")).
		From(b.Table(tableItems)).
		GroupBy("estate_id", "status")
	byID := lo.KeyBy(estates, func(e *entity.EstateSummary) string { return e.ID.String() })
	err = queryRows(ctx, r.db.drv, counts, func(rows *entsql.Rows) error {
		var (
			estateID, status string
			n                int
		)
		if err := rows.Scan(&estateID, &status, &n); err != nil {
			return err
		}
		e, ok := byID[estateID]
		if !ok {
			return nil
		}
		e.ItemCount += n
		st := constants.ItemStatus(status)
		if st != constants.ItemCaptured {
			e.ConfirmedCount += n
		}
		if st.PubliclyVisible() {
			e.EnrichedCount += n
		}
		return nil
	})
	if err != nil {
		return nil, common.StoreError("count estate items", err)
	}
	return estates, nil
}

func (r *estateRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.EstateStatus) error {
	if _, err := constants.ParseEstateStatus(string(status)); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	n, err := updateEstateStatus(ctx, r.db, r.db.drv, id, status)
	if err != nil {
		r.logger.Error("failed to update estate status", "estate_id", id, "status", status, "error", err)
		return common.StoreError("update estate status", err)
	}
	if n == 0 {
		return common.NotFound("estate", id)
	}
	r.logger.Debug("estate status updated", "estate_id", id, "status", status)
	return nil
}

func updateEstateStatus(ctx context.Context, d *DB, eq dialect.ExecQuerier, id uuid.UUID, status constants.EstateStatus) (int64, error) {
	q := d.builder().Update(tableEstates).
		Set("status", string(status)).
		Set("updated_at", utils.UnixMillis(time.Now())).
		Where(entsql.EQ("id", id.String()))
	return execQuery(ctx, eq, q)
}

func (r *estateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.withTx(ctx, func(tx dialect.ExecQuerier) error {
		if _, err := getEstate(ctx, r.db, tx, id); err != nil {
			return err
		}
		items, err := itemStatusesByEstate(ctx, r.db, tx, id)
		if err != nil {
			return common.StoreError("select estate items", err)
		}
		if lo.ContainsBy(lo.Values(items), func(s constants.ItemStatus) bool { return s == constants.ItemPublished }) {
			return fmt.Errorf("delete estate %s: %w", id, common.ErrPublishedItem)
		}
		if err := deleteItemRows(ctx, r.db, tx, lo.Keys(items)); err != nil {
			return err
		}
		b := r.db.builder()
		if _, err := execQuery(ctx, tx, b.Delete(tableSessions).Where(entsql.EQ("estate_id", id.String()))); err != nil {
			return common.StoreError("delete sessions", err)
		}
		if _, err := execQuery(ctx, tx, b.Delete(tableEstates).Where(entsql.EQ("id", id.String()))); err != nil {
			return common.StoreError("delete estate", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Warn("estate delete failed", "estate_id", id, "error", err)
		return err
	}
	r.logger.Info("estate deleted", "estate_id", id)
	return nil
}

func (r *estateRepository) PromoteItems(ctx context.Context, id uuid.UUID, from []constants.ItemStatus, to constants.ItemStatus, estateStatus constants.EstateStatus) (int64, error) {
	if _, err := constants.ParseItemStatus(string(to)); err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	if _, err := constants.ParseEstateStatus(string(estateStatus)); err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}

	var promoted int64
	err := r.db.withTx(ctx, func(tx dialect.ExecQuerier) error {
		if _, err := getEstate(ctx, r.db, tx, id); err != nil {
			return err
		}
		if len(from) > 0 {
			q := r.db.builder().Update(tableItems).
				Set("status", string(to)).
				Where(entsql.And(
					entsql.EQ("estate_id", id.String()),
					entsql.In("status", statusArgs(from)...),
				))
			n, err := execQuery(ctx, tx, q)
			if err != nil {
				return common.StoreError("promote items", err)
			}
			promoted = n
		}
		if _, err := updateEstateStatus(ctx, r.db, tx, id, estateStatus); err != nil {
			return common.StoreError("update estate status", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	r.logger.Info("estate items promoted", "estate_id", id, "to", to, "count", promoted, "estate_status", estateStatus)
	return promoted, nil
}

func statusArgs(statuses []constants.ItemStatus) []any {
	return lo.Map(statuses, func(s constants.ItemStatus, _ int) any { return string(s) })
}

func scanEstate(rows *entsql.Rows) (*entity.Estate, error) {
	var (
		e                                 entity.Estate
		status                            string
		auction                           stdsql.NullInt64
		ptype, execName, execContact, nts stdsql.NullString
		created, updated                  int64
	)
	if err := rows.Scan(&e.ID, &e.Name, &e.Address, &auction, &status, &ptype,
		&execName, &execContact, &nts, &created, &updated); err != nil {
		return nil, err
	}
	e.Status = constants.EstateStatus(status)
	e.AuctionDate = utils.TimePtrFromUnixMillis(int64Ptr(auction))
	if ptype.Valid {
		pt := constants.PropertyType(ptype.String)
		e.PropertyType = &pt
	}
	e.ExecutorName = strPtr(execName)
	e.ExecutorContact = strPtr(execContact)
	e.Notes = strPtr(nts)
	e.CreatedAt = utils.TimeFromUnixMillis(created)
	e.UpdatedAt = utils.TimeFromUnixMillis(updated)
	return &e, nil
}
