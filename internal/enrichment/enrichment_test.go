package enrichment

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dwesselviax/EstateLogger/constants"
	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/entity"
	"github.com/dwesselviax/EstateLogger/internal/llm"
	"github.com/dwesselviax/EstateLogger/internal/repository"
	"github.com/dwesselviax/EstateLogger/internal/repository/repotest"
)

type fakeEnricher struct {
	mu      sync.Mutex
	out     llm.ItemEnrichment
	failFor map[string]bool
	seen    []string
	calls   atomic.Int32
}

func (f *fakeEnricher) EnrichItem(_ context.Context, item llm.ItemContext) (llm.ItemEnrichment, []byte, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.seen = append(f.seen, item.Name)
	f.mu.Unlock()
	if f.failFor[item.Name] {
		return llm.ItemEnrichment{}, nil, common.UpstreamError("AI service failed", errors.New("503"))
	}
	return f.out, nil, nil
}

func str(s string) *string   { return &s }
func num(f float64) *float64 { return &f }

type fixture struct {
	repos  *repository.Repositories
	fake   *fakeEnricher
	svc    *Service
	orch   *Orchestrator
	estate *entity.Estate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	_, repos := repotest.New(t)
	fake := &fakeEnricher{failFor: map[string]bool{}}
	svc := NewService(fake, repos.Items, repos.Enrichments, nil)
	return &fixture{
		repos:  repos,
		fake:   fake,
		svc:    svc,
		orch:   NewOrchestrator(svc, repos.Estates, repos.Items, nil),
		estate: repotest.Estate(t, repos, "Hale"),
	}
}

func (f *fixture) items(t *testing.T, names ...string) []*entity.Item {
	t.Helper()
	rows := make([]repository.NewItem, len(names))
	for i, n := range names {
		rows[i] = repository.NewItem{Name: n, Category: constants.Furniture, Condition: constants.ConditionGood}
	}
	out, err := f.repos.Items.CreateBatch(context.Background(), f.estate.ID, nil, rows)
	require.NoError(t, err)
	return out
}

func (f *fixture) confirm(t *testing.T, items ...*entity.Item) {
	t.Helper()
	ids := make([]uuid.UUID, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	_, err := f.repos.Items.TransitionStatus(context.Background(), ids, []constants.ItemStatus{constants.ItemCaptured}, constants.ItemConfirmed)
	require.NoError(t, err)
}

func TestEnrichItemDefaultsAndPromotion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.fake.out = llm.ItemEnrichment{
		ProductMatch:        str("Victorian mahogany bookcase"),
		EstimatedValueLow:   num(0),
		EstimatedValueHigh:  nil,
		EnhancedDescription: str("   "),
		Confidence:          "",
	}
	item := f.items(t, "Bookcase")[0]
	f.confirm(t, item)

	rec, err := f.svc.EnrichItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, constants.ConfidenceMedium, rec.Confidence)
	require.Nil(t, rec.EstimatedValueLow)
	require.Nil(t, rec.EstimatedValueHigh)
	require.Nil(t, rec.RecommendedStartBid)
	require.Nil(t, rec.EnhancedDescription)
	require.Equal(t, "Victorian mahogany bookcase", *rec.ProductMatch)

	got, err := f.repos.Items.GetByID(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, constants.ItemEnriched, got.Status)
}

func TestEnrichItemReplacesRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	item := f.items(t, "Lamp")[0]

	f.fake.out = llm.ItemEnrichment{EstimatedValueLow: num(20), EstimatedValueHigh: num(40), Confidence: "LOW"}
	first, err := f.svc.EnrichItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, constants.ConfidenceLow, first.Confidence)

	// A direct enrich skips the confirm step.
	got, err := f.repos.Items.GetByID(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, constants.ItemEnriched, got.Status)

	f.fake.out = llm.ItemEnrichment{EstimatedValueLow: num(60), Confidence: "high"}
	second, err := f.svc.EnrichItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 60.0, *second.EstimatedValueLow)
	require.Nil(t, second.EstimatedValueHigh)
}

func TestEnrichItemFailureLeavesItemUntouched(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	item := f.items(t, "Clock")[0]
	f.confirm(t, item)
	f.fake.failFor["Clock"] = true

	_, err := f.svc.EnrichItem(ctx, item.ID)
	require.ErrorIs(t, err, common.ErrUpstream)

	got, err := f.repos.Items.GetWithEnrichment(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, constants.ItemConfirmed, got.Status)
	require.Nil(t, got.Enrichment)

	_, err = f.svc.EnrichItem(ctx, uuid.New())
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestEnrichItemConcurrentCallsKeepOneRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.fake.out = llm.ItemEnrichment{Confidence: "high"}
	item := f.items(t, "Desk")[0]

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.EnrichItem(ctx, item.ID)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	rec, err := f.repos.Enrichments.GetByItemID(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, constants.ConfidenceHigh, rec.Confidence)
	require.Empty(t, f.svc.locks.locks)
}

func TestEligibleSelection(t *testing.T) {
	t.Parallel()

	mk := func(s constants.ItemStatus, enriched bool) *entity.ItemWithEnrichment {
		it := &entity.ItemWithEnrichment{Item: entity.Item{ID: uuid.New(), Status: s}}
		if enriched {
			it.Enrichment = &entity.Enrichment{}
		}
		return it
	}
	in := []*entity.ItemWithEnrichment{
		mk(constants.ItemCaptured, false),
		mk(constants.ItemConfirmed, false),
		mk(constants.ItemConfirmed, true),
		mk(constants.ItemEnriched, true),
		mk(constants.ItemEnriched, false),
		mk(constants.ItemPublished, true),
	}
	out := Eligible(in)
	require.Equal(t, []*entity.ItemWithEnrichment{in[1], in[2], in[4]}, out)
}

func TestEnrichEstateCountsFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.fake.out = llm.ItemEnrichment{Confidence: "high", EstimatedValueLow: num(10)}

	items := f.items(t, "Bookcase", "Lamp", "Rug", "Clock", "Vase")
	f.confirm(t, items[:4]...)
	f.fake.failFor["Lamp"] = true
	f.fake.failFor["Clock"] = true

	var ticks [][2]int
	res, err := f.orch.EnrichEstate(ctx, f.estate.ID, func(done, total int) {
		ticks = append(ticks, [2]int{done, total})
	})
	require.NoError(t, err)
	require.Equal(t, 4, res.Total)
	require.Equal(t, 2, res.Succeeded)
	require.Equal(t, 2, res.Failed)
	require.ElementsMatch(t, []uuid.UUID{items[1].ID, items[3].ID}, res.FailedItemIDs)
	require.Equal(t, [][2]int{{1, 4}, {2, 4}, {3, 4}, {4, 4}}, ticks)
	require.NotContains(t, f.fake.seen, "Vase")

	estate, err := f.repos.Estates.GetByID(ctx, f.estate.ID)
	require.NoError(t, err)
	require.Equal(t, constants.EstateEnriching, estate.Status)

	all, err := f.repos.Items.ListByEstate(ctx, f.estate.ID, repository.ItemFilter{})
	require.NoError(t, err)
	statuses := map[string]constants.ItemStatus{}
	for _, it := range all {
		statuses[it.Name] = it.Status
	}
	require.Equal(t, constants.ItemEnriched, statuses["Bookcase"])
	require.Equal(t, constants.ItemConfirmed, statuses["Lamp"])
	require.Equal(t, constants.ItemCaptured, statuses["Vase"])
}

func TestEnrichEstateNoWork(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.items(t, "Vase")

	_, err := f.orch.EnrichEstate(ctx, f.estate.ID, nil)
	require.ErrorIs(t, err, common.ErrNoWork)
	require.Zero(t, f.fake.calls.Load())

	estate, err := f.repos.Estates.GetByID(ctx, f.estate.ID)
	require.NoError(t, err)
	require.Equal(t, constants.EstateDraft, estate.Status)

	_, err = f.orch.EnrichEstate(ctx, uuid.New(), nil)
	require.ErrorIs(t, err, common.ErrNotFound)
}
