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

	"github.com/dwesselviax/EstateLogger/constants"
	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/entity"
	"github.com/dwesselviax/EstateLogger/internal/utils"
)

var enrichmentColumns = []string{
	"id", "item_id", "product_match", "manufacturer", "estimated_value_low", "estimated_value_high",
	"recommended_start_bid", "enhanced_description", "notable_details", "confidence", "enriched_at",
}

// EnrichmentPatch is a manual edit of an existing record. Nil fields are kept.
type EnrichmentPatch struct {
	ProductMatch        *string
	Manufacturer        *string
	EstimatedValueLow   *float64
	EstimatedValueHigh  *float64
	RecommendedStartBid *float64
	EnhancedDescription *string
	NotableDetails      *string
	Confidence          *constants.Confidence
}

type EnrichmentRepository interface {
	// Save replaces the item's enrichment record wholesale and, in the same
	// transaction, moves the item to enriched when its status is in promoteFrom.
	Save(ctx context.Context, e *entity.Enrichment, promoteFrom []constants.ItemStatus) (*entity.Enrichment, error)
	GetByItemID(ctx context.Context, itemID uuid.UUID) (*entity.Enrichment, error)
	Patch(ctx context.Context, itemID uuid.UUID, patch EnrichmentPatch) (*entity.Enrichment, error)
}

type enrichmentRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewEnrichmentRepository(db *DB, logger *slog.Logger) EnrichmentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &enrichmentRepository{db: db, logger: logger}
}

func (r *enrichmentRepository) Save(ctx context.Context, e *entity.Enrichment, promoteFrom []constants.ItemStatus) (*entity.Enrichment, error) {
	enrichedAt := e.EnrichedAt
	if enrichedAt.IsZero() {
		enrichedAt = time.Now()
	}
	confidence := e.Confidence
	if confidence == "" {
		confidence = constants.ConfidenceMedium
	}

	q := r.db.builder().Insert(tableEnrichments).
		Columns(enrichmentColumns...).
		Values(uuid.NewString(), e.ItemID.String(),
			nullString(e.ProductMatch), nullString(e.Manufacturer),
			nullFloat(e.EstimatedValueLow), nullFloat(e.EstimatedValueHigh), nullFloat(e.RecommendedStartBid),
			nullString(e.EnhancedDescription), nullString(e.NotableDetails),
			string(confidence), utils.UnixMillis(enrichedAt)).
		OnConflict(
			entsql.ConflictColumns("item_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				for _, c := range enrichmentColumns[2:] {
					u.SetExcluded(c)
				}
			}),
		)

	var saved *entity.Enrichment
	err := r.db.withTx(ctx, func(tx dialect.ExecQuerier) error {
		items, err := selectItems(ctx, r.db, tx, entsql.EQ("id", e.ItemID.String()))
		if err != nil {
			return common.StoreError("select item", err)
		}
		if len(items) == 0 {
			return common.NotFound("item", e.ItemID)
		}
		if _, err := execQuery(ctx, tx, q); err != nil {
			return common.StoreError("upsert enrichment", err)
		}
		if len(promoteFrom) > 0 {
			u := r.db.builder().Update(tableItems).
				Set("status", string(constants.ItemEnriched)).
				Where(entsql.And(
					entsql.EQ("id", e.ItemID.String()),
					entsql.In("status", statusArgs(promoteFrom)...),
				))
			if _, err := execQuery(ctx, tx, u); err != nil {
				return common.StoreError("mark item enriched", err)
			}
		}
		got, err := enrichmentsByItems(ctx, r.db, tx, []uuid.UUID{e.ItemID})
		if err != nil {
			return common.StoreError("select enrichment", err)
		}
		saved = got[e.ItemID]
		return nil
	})
	if err != nil {
		r.logger.Error("failed to save enrichment", "item_id", e.ItemID, "error", err)
		return nil, err
	}
	if saved == nil {
		return nil, common.StoreError("select enrichment", fmt.Errorf("record for item %s missing after upsert", e.ItemID))
	}
	r.logger.Debug("enrichment saved", "item_id", e.ItemID, "enrichment_id", saved.ID)
	return saved, nil
}

func (r *enrichmentRepository) GetByItemID(ctx context.Context, itemID uuid.UUID) (*entity.Enrichment, error) {
	got, err := enrichmentsByItems(ctx, r.db, r.db.drv, []uuid.UUID{itemID})
	if err != nil {
		return nil, common.StoreError("select enrichment", err)
	}
	e, ok := got[itemID]
	if !ok {
		return nil, common.NotFound("enrichment for item", itemID)
	}
	return e, nil
}

func (r *enrichmentRepository) Patch(ctx context.Context, itemID uuid.UUID, patch EnrichmentPatch) (*entity.Enrichment, error) {
	u := r.db.builder().Update(tableEnrichments).Where(entsql.EQ("item_id", itemID.String()))
	set := 0
	str := func(col string, v *string) {
		if v != nil {
			u.Set(col, nullString(utils.NilIfBlank(*v)))
			set++
		}
	}
	num := func(col string, v *float64) {
		if v != nil {
			u.Set(col, *v)
			set++
		}
	}
	str("product_match", patch.ProductMatch)
	str("manufacturer", patch.Manufacturer)
	num("estimated_value_low", patch.EstimatedValueLow)
	num("estimated_value_high", patch.EstimatedValueHigh)
	num("recommended_start_bid", patch.RecommendedStartBid)
	str("enhanced_description", patch.EnhancedDescription)
	str("notable_details", patch.NotableDetails)
	if patch.Confidence != nil {
		u.Set("confidence", string(*patch.Confidence))
		set++
	}
	if set == 0 {
		return r.GetByItemID(ctx, itemID)
	}

	n, err := execQuery(ctx, r.db.drv, u)
	if err != nil {
		r.logger.Error("failed to patch enrichment", "item_id", itemID, "error", err)
		return nil, common.StoreError("patch enrichment", err)
	}
	if n == 0 {
		return nil, common.NotFound("enrichment for item", itemID)
	}
	return r.GetByItemID(ctx, itemID)
}

func enrichmentsByItems(ctx context.Context, d *DB, eq dialect.ExecQuerier, ids []uuid.UUID) (map[uuid.UUID]*entity.Enrichment, error) {
	out := make(map[uuid.UUID]*entity.Enrichment, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	b := d.builder()
	q := b.Select(enrichmentColumns...).
		From(b.Table(tableEnrichments)).
		Where(entsql.In("item_id", idStrings(ids)...))
	err := queryRows(ctx, eq, q, func(rows *entsql.Rows) error {
		var (
			e                          entity.Enrichment
			product, maker, enh, notes stdsql.NullString
			low, high, bid             stdsql.NullFloat64
			confidence                 string
			enrichedAt                 int64
		)
		if err := rows.Scan(&e.ID, &e.ItemID, &product, &maker, &low, &high, &bid,
			&enh, &notes, &confidence, &enrichedAt); err != nil {
			return err
		}
		e.ProductMatch = strPtr(product)
		e.Manufacturer = strPtr(maker)
		e.EstimatedValueLow = floatPtr(low)
		e.EstimatedValueHigh = floatPtr(high)
		e.RecommendedStartBid = floatPtr(bid)
		e.EnhancedDescription = strPtr(enh)
		e.NotableDetails = strPtr(notes)
		e.Confidence = constants.Confidence(confidence)
		e.EnrichedAt = utils.TimeFromUnixMillis(enrichedAt)
		out[e.ItemID] = &e
		return nil
	})
	return out, err
}
