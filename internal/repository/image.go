package repository

import (
	"context"
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

var imageColumns = []string{"id", "item_id", "url", "type", "is_primary", "created_at"}

type ImageRepository interface {
	// Add attaches an image; the first image of an item becomes primary.
	Add(ctx context.Context, itemID uuid.UUID, url string, typ constants.ImageType) (*entity.ItemImage, error)
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]*entity.ItemImage, error)
}

type imageRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewImageRepository(db *DB, logger *slog.Logger) ImageRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &imageRepository{db: db, logger: logger}
}

func (r *imageRepository) Add(ctx context.Context, itemID uuid.UUID, url string, typ constants.ImageType) (*entity.ItemImage, error) {
	if typ == "" {
		typ = constants.ImageActual
	}
	img := &entity.ItemImage{
		ID:        uuid.New(),
		ItemID:    itemID,
		URL:       url,
		Type:      typ,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	err := r.db.withTx(ctx, func(tx dialect.ExecQuerier) error {
		items, err := selectItems(ctx, r.db, tx, entsql.EQ("id", itemID.String()))
		if err != nil {
			return common.StoreError("select item", err)
		}
		if len(items) == 0 {
			return common.NotFound("item", itemID)
		}
		existing, err := imagesByItems(ctx, r.db, tx, []uuid.UUID{itemID})
		if err != nil {
			return common.StoreError("select images", err)
		}
		img.IsPrimary = len(existing[itemID]) == 0
		q := r.db.builder().Insert(tableImages).
			Columns(imageColumns...).
			Values(img.ID.String(), itemID.String(), img.URL, string(img.Type), img.IsPrimary, utils.UnixMillis(img.CreatedAt))
		if _, err := execQuery(ctx, tx, q); err != nil {
			return common.StoreError("insert image", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to add image", "item_id", itemID, "error", err)
		return nil, err
	}
	r.logger.Info("image added", "item_id", itemID, "image_id", img.ID, "primary", img.IsPrimary)
	return img, nil
}

func (r *imageRepository) ListByItem(ctx context.Context, itemID uuid.UUID) ([]*entity.ItemImage, error) {
	got, err := imagesByItems(ctx, r.db, r.db.drv, []uuid.UUID{itemID})
	if err != nil {
		return nil, common.StoreError("select images", err)
	}
	return got[itemID], nil
}

func imagesByItems(ctx context.Context, d *DB, eq dialect.ExecQuerier, ids []uuid.UUID) (map[uuid.UUID][]*entity.ItemImage, error) {
	out := make(map[uuid.UUID][]*entity.ItemImage, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	b := d.builder()
	q := b.Select(imageColumns...).
		From(b.Table(tableImages)).
		Where(entsql.In("item_id", idStrings(ids)...)).
		OrderBy("created_at")
	err := queryRows(ctx, eq, q, func(rows *entsql.Rows) error {
		var (
			img     entity.ItemImage
			typ     string
			created int64
		)
		if err := rows.Scan(&img.ID, &img.ItemID, &img.URL, &typ, &img.IsPrimary, &created); err != nil {
			return err
		}
		img.Type = constants.ImageType(typ)
		img.CreatedAt = utils.TimeFromUnixMillis(created)
		out[img.ItemID] = append(out[img.ItemID], &img)
		return nil
	})
	return out, err
}
