package repository

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"log/slog"
	"strings"
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

var itemColumns = []string{
	"id", "estate_id", "session_id", "name", "description", "category", "condition",
	"location", "voice_transcript", "status", "sort_order", "created_at",
}

// NewItem carries the fields of an item about to be inserted as captured.
type NewItem struct {
	Name            string
	Description     *string
	Category        constants.Category
	Condition       constants.Condition
	Location        *string
	VoiceTranscript *string
	SortOrder       *int
}

// ItemFilter narrows ListByEstate. Zero values match everything.
type ItemFilter struct {
	Statuses []constants.ItemStatus
	Category *constants.Category
	Search   string
}

// ItemPatch updates the fields that are non-nil. Blank strings clear the
// nullable text fields.
type ItemPatch struct {
	Name        *string
	Description *string
	Category    *constants.Category
	Condition   *constants.Condition
	Location    *string
	SortOrder   *int
}

func (p ItemPatch) empty() bool {
	return p.Name == nil && p.Description == nil && p.Category == nil &&
		p.Condition == nil && p.Location == nil && p.SortOrder == nil
}

type ItemRepository interface {
	// CreateBatch inserts all items in one statement: either every item is
	// stored or none is.
	CreateBatch(ctx context.Context, estateID uuid.UUID, sessionID *uuid.UUID, items []NewItem) ([]*entity.Item, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Item, error)
	GetWithEnrichment(ctx context.Context, id uuid.UUID) (*entity.ItemWithEnrichment, error)
	ListByEstate(ctx context.Context, estateID uuid.UUID, filter ItemFilter) ([]*entity.ItemWithEnrichment, error)
	CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error)
	Update(ctx context.Context, id uuid.UUID, patch ItemPatch) (*entity.Item, error)
	// TransitionStatus sets status to for the given ids whose current status is in from.
	TransitionStatus(ctx context.Context, ids []uuid.UUID, from []constants.ItemStatus, to constants.ItemStatus) (int64, error)
	// TransitionEstate is TransitionStatus over every item of an estate.
	TransitionEstate(ctx context.Context, estateID uuid.UUID, from []constants.ItemStatus, to constants.ItemStatus) (int64, error)
	// Delete removes items with their enrichment and images. It fails with
	// common.ErrPublishedItem, deleting nothing, if any of them is published.
	Delete(ctx context.Context, ids []uuid.UUID) (int64, error)
}

type itemRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewItemRepository(db *DB, logger *slog.Logger) ItemRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &itemRepository{db: db, logger: logger}
}

func (r *itemRepository) CreateBatch(ctx context.Context, estateID uuid.UUID, sessionID *uuid.UUID, items []NewItem) ([]*entity.Item, error) {
	if len(items) == 0 {
		return []*entity.Item{}, nil
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	out := make([]*entity.Item, 0, len(items))
	q := r.db.builder().Insert(tableItems).Columns(itemColumns...)
	for _, in := range items {
		it := &entity.Item{
			ID:              uuid.New(),
			EstateID:        estateID,
			SessionID:       sessionID,
			Name:            in.Name,
			Description:     in.Description,
			Category:        in.Category,
			Condition:       in.Condition,
			Location:        in.Location,
			VoiceTranscript: in.VoiceTranscript,
			Status:          constants.ItemCaptured,
			SortOrder:       in.SortOrder,
			CreatedAt:       now,
		}
		if it.Condition == "" {
			it.Condition = constants.ConditionUnknown
		}
		q.Values(it.ID.String(), estateID.String(), nullUUID(sessionID), it.Name,
			nullString(it.Description), string(it.Category), string(it.Condition),
			nullString(it.Location), nullString(it.VoiceTranscript), string(it.Status),
			nullInt(it.SortOrder), utils.UnixMillis(now))
		out = append(out, it)
	}

	err := r.db.withTx(ctx, func(tx dialect.ExecQuerier) error {
		if _, err := getEstate(ctx, r.db, tx, estateID); err != nil {
			return err
		}
		if _, err := execQuery(ctx, tx, q); err != nil {
			return common.StoreError("insert items", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to insert items", "estate_id", estateID, "count", len(items), "error", err)
		return nil, err
	}
	r.logger.Info("items inserted", "estate_id", estateID, "count", len(out))
	return out, nil
}

func (r *itemRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Item, error) {
	items, err := selectItems(ctx, r.db, r.db.drv, entsql.EQ("id", id.String()))
	if err != nil {
		return nil, common.StoreError("select item", err)
	}
	if len(items) == 0 {
		return nil, common.NotFound("item", id)
	}
	return items[0], nil
}

func (r *itemRepository) GetWithEnrichment(ctx context.Context, id uuid.UUID) (*entity.ItemWithEnrichment, error) {
	it, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	joined, err := r.attach(ctx, []*entity.Item{it})
	if err != nil {
		return nil, err
	}
	return joined[0], nil
}

func (r *itemRepository) ListByEstate(ctx context.Context, estateID uuid.UUID, filter ItemFilter) ([]*entity.ItemWithEnrichment, error) {
	preds := []*entsql.Predicate{entsql.EQ("estate_id", estateID.String())}
	if len(filter.Statuses) > 0 {
		preds = append(preds, entsql.In("status", statusArgs(filter.Statuses)...))
	}
	if filter.Category != nil {
		preds = append(preds, entsql.EQ("category", string(*filter.Category)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		preds = append(preds, entsql.Or(
			entsql.ContainsFold("name", s),
			entsql.ContainsFold("description", s),
			entsql.ContainsFold("category", s),
			entsql.ContainsFold("location", s),
		))
	}

	items, err := selectItems(ctx, r.db, r.db.drv, entsql.And(preds...))
	if err != nil {
		r.logger.Error("failed to list items", "estate_id", estateID, "error", err)
		return nil, common.StoreError("list items", err)
	}
	return r.attach(ctx, items)
}

// attach loads enrichment and images for items, normalizing to zero or one
// enrichment per item.
func (r *itemRepository) attach(ctx context.Context, items []*entity.Item) ([]*entity.ItemWithEnrichment, error) {
	ids := lo.Map(items, func(it *entity.Item, _ int) uuid.UUID { return it.ID })
	enrichments, err := enrichmentsByItems(ctx, r.db, r.db.drv, ids)
	if err != nil {
		return nil, common.StoreError("select enrichments", err)
	}
	images, err := imagesByItems(ctx, r.db, r.db.drv, ids)
	if err != nil {
		return nil, common.StoreError("select images", err)
	}
	return lo.Map(items, func(it *entity.Item, _ int) *entity.ItemWithEnrichment {
		return &entity.ItemWithEnrichment{
			Item:       *it,
			Enrichment: enrichments[it.ID],
			Images:     images[it.ID],
		}
	}), nil
}

func (r *itemRepository) CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	b := r.db.builder()
	q := b.Select(entsql.Count("*")).
		From(b.Table(tableItems)).
		Where(entsql.EQ("session_id", sessionID.String()))
	var n int
	err := queryRows(ctx, r.db.drv, q, func(rows *entsql.Rows) error {
		return rows.Scan(&n)
	})
	if err != nil {
		return 0, common.StoreError("count session items", err)
	}
	return n, nil
}

func (r *itemRepository) Update(ctx context.Context, id uuid.UUID, patch ItemPatch) (*entity.Item, error) {
	if patch.empty() {
		return r.GetByID(ctx, id)
	}
	u := r.db.builder().Update(tableItems).Where(entsql.EQ("id", id.String()))
	if patch.Name != nil {
		u.Set("name", strings.TrimSpace(*patch.Name))
	}
	if patch.Description != nil {
		u.Set("description", nullString(utils.NilIfBlank(*patch.Description)))
	}
	if patch.Category != nil {
		u.Set("category", string(*patch.Category))
	}
	if patch.Condition != nil {
		u.Set("condition", string(*patch.Condition))
	}
	if patch.Location != nil {
		u.Set("location", nullString(utils.NilIfBlank(*patch.Location)))
	}
	if patch.SortOrder != nil {
		u.Set("sort_order", int64(*patch.SortOrder))
	}
	n, err := execQuery(ctx, r.db.drv, u)
	if err != nil {
		r.logger.Error("failed to update item", "item_id", id, "error", err)
		return nil, common.StoreError("update item", err)
	}
	if n == 0 {
		return nil, common.NotFound("item", id)
	}
	return r.GetByID(ctx, id)
}

func (r *itemRepository) TransitionStatus(ctx context.Context, ids []uuid.UUID, from []constants.ItemStatus, to constants.ItemStatus) (int64, error) {
	if len(ids) == 0 || len(from) == 0 {
		return 0, nil
	}
	return r.transition(ctx, entsql.In("id", idStrings(ids)...), from, to)
}

func (r *itemRepository) TransitionEstate(ctx context.Context, estateID uuid.UUID, from []constants.ItemStatus, to constants.ItemStatus) (int64, error) {
	if len(from) == 0 {
		return 0, nil
	}
	return r.transition(ctx, entsql.EQ("estate_id", estateID.String()), from, to)
}

func (r *itemRepository) transition(ctx context.Context, scope *entsql.Predicate, from []constants.ItemStatus, to constants.ItemStatus) (int64, error) {
	if _, err := constants.ParseItemStatus(string(to)); err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	q := r.db.builder().Update(tableItems).
		Set("status", string(to)).
		Where(entsql.And(scope, entsql.In("status", statusArgs(from)...)))
	n, err := execQuery(ctx, r.db.drv, q)
	if err != nil {
		r.logger.Error("failed to transition items", "to", to, "error", err)
		return 0, common.StoreError("update item status", err)
	}
	r.logger.Debug("items transitioned", "to", to, "count", n)
	return n, nil
}

func (r *itemRepository) Delete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	ids = lo.Uniq(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int64
	err := r.db.withTx(ctx, func(tx dialect.ExecQuerier) error {
		items, err := selectItems(ctx, r.db, tx, entsql.In("id", idStrings(ids)...))
		if err != nil {
			return common.StoreError("select items", err)
		}
		published := lo.Filter(items, func(it *entity.Item, _ int) bool { return it.Status == constants.ItemPublished })
		if len(published) > 0 {
			return fmt.Errorf("delete item %s: %w", published[0].ID, common.ErrPublishedItem)
		}
		found := lo.Map(items, func(it *entity.Item, _ int) uuid.UUID { return it.ID })
		if err := deleteItemRows(ctx, r.db, tx, found); err != nil {
			return err
		}
		deleted = int64(len(found))
		return nil
	})
	if err != nil {
		r.logger.Warn("item delete failed", "count", len(ids), "error", err)
		return 0, err
	}
	r.logger.Info("items deleted", "requested", len(ids), "deleted", deleted)
	return deleted, nil
}

// deleteItemRows removes enrichments, then images, then the items themselves.
func deleteItemRows(ctx context.Context, d *DB, tx dialect.ExecQuerier, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	args := idStrings(ids)
	b := d.builder()
	if _, err := execQuery(ctx, tx, b.Delete(tableEnrichments).Where(entsql.In("item_id", args...))); err != nil {
		return common.StoreError("delete enrichments", err)
	}
	if _, err := execQuery(ctx, tx, b.Delete(tableImages).Where(entsql.In("item_id", args...))); err != nil {
		return common.StoreError("delete images", err)
	}
	if _, err := execQuery(ctx, tx, b.Delete(tableItems).Where(entsql.In("id", args...))); err != nil {
		return common.StoreError("delete items", err)
	}
	return nil
}

func itemStatusesByEstate(ctx context.Context, d *DB, eq dialect.ExecQuerier, estateID uuid.UUID) (map[uuid.UUID]constants.ItemStatus, error) {
	b := d.builder()
	q := b.Select("id", "status").
		From(b.Table(tableItems)).
		Where(entsql.EQ("estate_id", estateID.String()))
	out := make(map[uuid.UUID]constants.ItemStatus)
	err := queryRows(ctx, eq, q, func(rows *entsql.Rows) error {
		var (
			id     uuid.UUID
			status string
		)
		if err := rows.Scan(&id, &status); err != nil {
			return err
		}
		out[id] = constants.ItemStatus(status)
		return nil
	})
	return out, err
}

func selectItems(ctx context.Context, d *DB, eq dialect.ExecQuerier, where *entsql.Predicate) ([]*entity.Item, error) {
	b := d.builder()
	q := b.Select(itemColumns...).
		From(b.Table(tableItems)).
		Where(where).
		OrderBy("created_at", "name")

	var items []*entity.Item
	err := queryRows(ctx, eq, q, func(rows *entsql.Rows) error {
		it, err := scanItem(rows)
		if err != nil {
			return err
		}
		items = append(items, it)
		return nil
	})
	return items, err
}

func scanItem(rows *entsql.Rows) (*entity.Item, error) {
	var (
		it                             entity.Item
		session, desc, loc, transcript stdsql.NullString
		category, condition, status    string
		sortOrder                      stdsql.NullInt64
		created                        int64
	)
	if err := rows.Scan(&it.ID, &it.EstateID, &session, &it.Name, &desc, &category, &condition,
		&loc, &transcript, &status, &sortOrder, &created); err != nil {
		return nil, err
	}
	sid, err := uuidPtr(session)
	if err != nil {
		return nil, err
	}
	it.SessionID = sid
	it.Description = strPtr(desc)
	it.Category = constants.Category(category)
	it.Condition = constants.Condition(condition)
	it.Location = strPtr(loc)
	it.VoiceTranscript = strPtr(transcript)
	it.Status = constants.ItemStatus(status)
	it.SortOrder = intPtr(sortOrder)
	it.CreatedAt = utils.TimeFromUnixMillis(created)
	return &it, nil
}
