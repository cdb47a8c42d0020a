package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dwesselviax/EstateLogger/constants"
	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/entity"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "catalog.db") + "?_pragma=foreign_keys(1)"
	db, err := Open(context.Background(), Config{Driver: "sqlite", DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { Close(db, nil) })
	require.NoError(t, Migrate(context.Background(), db, nil))
	require.NoError(t, HealthCheck(context.Background(), db, time.Second, nil))
	return db
}

func seedEstate(t *testing.T, db *DB) *entity.Estate {
	t.Helper()
	e, err := NewEstateRepository(db, nil).Create(context.Background(), &entity.Estate{Name: "Hale Residence", Address: "12 Elm St"})
	require.NoError(t, err)
	return e
}

func str(s string) *string { return &s }

func TestEstateCreateGetAndSummary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	estates := NewEstateRepository(db, nil)
	items := NewItemRepository(db, nil)

	e := seedEstate(t, db)
	require.Equal(t, constants.EstateDraft, e.Status)

	got, err := estates.GetByID(ctx, e.ID)
	require.NoError(t, err)
	require.Equal(t, "Hale Residence", got.Name)
	require.Nil(t, got.AuctionDate)

	created, err := items.CreateBatch(ctx, e.ID, nil, []NewItem{
		{Name: "Bookcase", Category: constants.Furniture, Condition: constants.ConditionGood},
		{Name: "Lamp", Category: constants.Furniture, Condition: constants.ConditionFair},
		{Name: "Ring", Category: constants.JewelryWatches},
	})
	require.NoError(t, err)
	require.Len(t, created, 3)
	require.Equal(t, constants.ConditionUnknown, created[2].Condition)

	_, err = items.TransitionStatus(ctx, []uuid.UUID{created[0].ID}, []constants.ItemStatus{constants.ItemCaptured}, constants.ItemConfirmed)
	require.NoError(t, err)
	_, err = items.TransitionStatus(ctx, []uuid.UUID{created[1].ID}, []constants.ItemStatus{constants.ItemCaptured}, constants.ItemEnriched)
	require.NoError(t, err)

	list, err := estates.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 3, list[0].ItemCount)
	require.Equal(t, 2, list[0].ConfirmedCount)
	require.Equal(t, 1, list[0].EnrichedCount)

	_, err = estates.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, common.ErrNotFound)
	require.ErrorIs(t, estates.UpdateStatus(ctx, e.ID, "bogus"), common.ErrInvalidInput)
	require.NoError(t, estates.UpdateStatus(ctx, e.ID, constants.EstateReview))
}

func TestCreateBatchUnknownEstateStoresNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	_, err := NewItemRepository(db, nil).CreateBatch(ctx, uuid.New(), nil, []NewItem{{Name: "Chair", Category: constants.Furniture}})
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestListByEstateFilters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	items := NewItemRepository(db, nil)
	e := seedEstate(t, db)

	created, err := items.CreateBatch(ctx, e.ID, nil, []NewItem{
		{Name: "Mahogany bookcase", Category: constants.Furniture, Location: str("Living Room")},
		{Name: "Brass floor lamp", Category: constants.ArtDecor, Location: str("Living Room")},
		{Name: "Cast iron skillet", Category: constants.Kitchenware, Location: str("Kitchen")},
	})
	require.NoError(t, err)

	all, err := items.ListByEstate(ctx, e.ID, ItemFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Nil(t, all[0].Enrichment)

	living, err := items.ListByEstate(ctx, e.ID, ItemFilter{Search: "living room"})
	require.NoError(t, err)
	require.Len(t, living, 2)

	cat := constants.Kitchenware
	kitchen, err := items.ListByEstate(ctx, e.ID, ItemFilter{Category: &cat})
	require.NoError(t, err)
	require.Len(t, kitchen, 1)
	require.Equal(t, created[2].ID, kitchen[0].ID)

	confirmed, err := items.ListByEstate(ctx, e.ID, ItemFilter{Statuses: []constants.ItemStatus{constants.ItemConfirmed}})
	require.NoError(t, err)
	require.Empty(t, confirmed)
}

func TestEnrichmentSaveIsUpsert(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	items := NewItemRepository(db, nil)
	enrichments := NewEnrichmentRepository(db, nil)
	e := seedEstate(t, db)

	created, err := items.CreateBatch(ctx, e.ID, nil, []NewItem{{Name: "Bookcase", Category: constants.Furniture}})
	require.NoError(t, err)
	id := created[0].ID
	promote := []constants.ItemStatus{constants.ItemCaptured, constants.ItemConfirmed, constants.ItemEnriched}

	low := 100.0
	first, err := enrichments.Save(ctx, &entity.Enrichment{ItemID: id, EstimatedValueLow: &low, Confidence: constants.ConfidenceHigh}, promote)
	require.NoError(t, err)
	second, err := enrichments.Save(ctx, &entity.Enrichment{ItemID: id, ProductMatch: str("Ethan Allen bookcase")}, promote)
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Nil(t, second.EstimatedValueLow)
	require.Equal(t, constants.ConfidenceMedium, second.Confidence)

	joined, err := items.GetWithEnrichment(ctx, id)
	require.NoError(t, err)
	require.Equal(t, constants.ItemEnriched, joined.Status)
	require.NotNil(t, joined.Enrichment)
	require.Equal(t, "Ethan Allen bookcase", *joined.Enrichment.ProductMatch)

	patched, err := enrichments.Patch(ctx, id, EnrichmentPatch{Manufacturer: str("Ethan Allen")})
	require.NoError(t, err)
	require.Equal(t, "Ethan Allen", *patched.Manufacturer)
	require.Equal(t, "Ethan Allen bookcase", *patched.ProductMatch)

	_, err = enrichments.Save(ctx, &entity.Enrichment{ItemID: uuid.New()}, promote)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestEnrichmentSaveKeepsPublishedStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	items := NewItemRepository(db, nil)
	e := seedEstate(t, db)

	created, err := items.CreateBatch(ctx, e.ID, nil, []NewItem{{Name: "Clock", Category: constants.CollectiblesAntiques}})
	require.NoError(t, err)
	id := created[0].ID
	_, err = items.TransitionStatus(ctx, []uuid.UUID{id}, []constants.ItemStatus{constants.ItemCaptured}, constants.ItemPublished)
	require.NoError(t, err)

	_, err = NewEnrichmentRepository(db, nil).Save(ctx, &entity.Enrichment{ItemID: id},
		[]constants.ItemStatus{constants.ItemCaptured, constants.ItemConfirmed, constants.ItemEnriched})
	require.NoError(t, err)

	got, err := items.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, constants.ItemPublished, got.Status)
}

func TestDeleteRejectsPublishedAndCascades(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	items := NewItemRepository(db, nil)
	images := NewImageRepository(db, nil)
	e := seedEstate(t, db)

	created, err := items.CreateBatch(ctx, e.ID, nil, []NewItem{
		{Name: "Desk", Category: constants.Furniture},
		{Name: "Painting", Category: constants.ArtDecor},
	})
	require.NoError(t, err)
	desk, painting := created[0].ID, created[1].ID

	_, err = NewEnrichmentRepository(db, nil).Save(ctx, &entity.Enrichment{ItemID: desk}, []constants.ItemStatus{constants.ItemCaptured})
	require.NoError(t, err)
	first, err := images.Add(ctx, desk, "https://img.example.com/desk.jpg", "")
	require.NoError(t, err)
	require.True(t, first.IsPrimary)
	second, err := images.Add(ctx, desk, "https://img.example.com/desk2.jpg", constants.ImageReference)
	require.NoError(t, err)
	require.False(t, second.IsPrimary)

	_, err = items.TransitionStatus(ctx, []uuid.UUID{painting}, []constants.ItemStatus{constants.ItemCaptured}, constants.ItemPublished)
	require.NoError(t, err)

	_, err = items.Delete(ctx, []uuid.UUID{desk, painting})
	require.ErrorIs(t, err, common.ErrPublishedItem)
	_, err = items.GetByID(ctx, desk)
	require.NoError(t, err)

	n, err := items.Delete(ctx, []uuid.UUID{desk})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = items.GetByID(ctx, desk)
	require.ErrorIs(t, err, common.ErrNotFound)
	imgs, err := images.ListByItem(ctx, desk)
	require.NoError(t, err)
	require.Empty(t, imgs)
	_, err = NewEnrichmentRepository(db, nil).GetByItemID(ctx, desk)
	require.ErrorIs(t, err, common.ErrNotFound)

	require.ErrorIs(t, NewEstateRepository(db, nil).Delete(ctx, e.ID), common.ErrPublishedItem)
}

func TestEstateDeleteCascades(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	estates := NewEstateRepository(db, nil)
	e := seedEstate(t, db)

	s, err := NewSessionRepository(db, nil).Start(ctx, e.ID)
	require.NoError(t, err)
	_, err = NewItemRepository(db, nil).CreateBatch(ctx, e.ID, &s.ID, []NewItem{{Name: "Rug", Category: constants.ArtDecor}})
	require.NoError(t, err)

	require.NoError(t, estates.Delete(ctx, e.ID))
	_, err = estates.GetByID(ctx, e.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
	_, err = NewSessionRepository(db, nil).GetByID(ctx, s.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestPromoteItemsOnlyMovesGivenStatuses(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	items := NewItemRepository(db, nil)
	e := seedEstate(t, db)

	created, err := items.CreateBatch(ctx, e.ID, nil, []NewItem{
		{Name: "A", Category: constants.Miscellaneous},
		{Name: "B", Category: constants.Miscellaneous},
		{Name: "C", Category: constants.Miscellaneous},
	})
	require.NoError(t, err)
	_, err = items.TransitionStatus(ctx, []uuid.UUID{created[1].ID}, []constants.ItemStatus{constants.ItemCaptured}, constants.ItemConfirmed)
	require.NoError(t, err)
	_, err = items.TransitionStatus(ctx, []uuid.UUID{created[2].ID}, []constants.ItemStatus{constants.ItemCaptured}, constants.ItemEnriched)
	require.NoError(t, err)

	n, err := NewEstateRepository(db, nil).PromoteItems(ctx, e.ID,
		[]constants.ItemStatus{constants.ItemConfirmed, constants.ItemEnriched}, constants.ItemPublished, constants.EstatePublished)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	a, err := items.GetByID(ctx, created[0].ID)
	require.NoError(t, err)
	require.Equal(t, constants.ItemCaptured, a.Status)

	got, err := NewEstateRepository(db, nil).GetByID(ctx, e.ID)
	require.NoError(t, err)
	require.Equal(t, constants.EstatePublished, got.Status)
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	sessions := NewSessionRepository(db, nil)
	items := NewItemRepository(db, nil)
	e := seedEstate(t, db)

	s, err := sessions.Start(ctx, e.ID)
	require.NoError(t, err)
	require.Equal(t, constants.SessionActive, s.Status)

	require.NoError(t, sessions.UpdateTranscript(ctx, s.ID, "a bookcase"))
	_, err = items.CreateBatch(ctx, e.ID, &s.ID, []NewItem{{Name: "Bookcase", Category: constants.Furniture}})
	require.NoError(t, err)
	n, err := items.CountBySession(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	done, err := sessions.Complete(ctx, s.ID, "a bookcase and a lamp", n, time.Now())
	require.NoError(t, err)
	require.Equal(t, constants.SessionCompleted, done.Status)
	require.Equal(t, "a bookcase and a lamp", done.FullTranscript)
	require.Equal(t, 1, done.ItemCount)
	require.NotNil(t, done.EndedAt)

	_, err = sessions.Start(ctx, uuid.New())
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestTableCounts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	e := seedEstate(t, db)
	_, err := NewItemRepository(db, nil).CreateBatch(ctx, e.ID, nil, []NewItem{
		{Name: "Bookcase", Category: constants.Furniture},
		{Name: "Lamp", Category: constants.ArtDecor},
	})
	require.NoError(t, err)

	counts, err := TableCounts(ctx, db)
	require.NoError(t, err)
	require.Len(t, counts, len(Tables))
	require.Equal(t, 1, counts["estates"])
	require.Equal(t, 2, counts["items"])
	require.Zero(t, counts["enrichment_records"])
}
