package extraction

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dwesselviax/EstateLogger/constants"
	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/llm"
	"github.com/dwesselviax/EstateLogger/internal/repository"
	"github.com/dwesselviax/EstateLogger/internal/repository/repotest"
)

type fakeExtractor struct {
	items []llm.ExtractedItem
	err   error
	calls atomic.Int32
}

func (f *fakeExtractor) ExtractItems(_ context.Context, _ string) ([]llm.ExtractedItem, []byte, error) {
	f.calls.Add(1)
	return f.items, nil, f.err
}

func str(s string) *string { return &s }

func newService(t *testing.T, fx *fakeExtractor) (*Service, *repository.Repositories) {
	t.Helper()
	_, repos := repotest.New(t)
	return NewService(fx, repos.Estates, repos.Sessions, repos.Items, nil), repos
}

func TestExtractBookcaseScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx := &fakeExtractor{items: []llm.ExtractedItem{{
		Name:        "Mahogany Bookcase",
		Description: str("Six feet tall mahogany bookcase in good condition"),
		Category:    "Furniture",
		Condition:   "good",
		Location:    str("Living Room"),
	}}}
	svc, repos := newService(t, fx)
	estate := repotest.Estate(t, repos, "Hale")

	transcript := "In the living room there's a mahogany bookcase, about six feet tall, good shape."
	items, err := svc.Extract(ctx, Request{Transcript: transcript, EstateID: estate.ID})
	require.NoError(t, err)
	require.Len(t, items, 1)

	it := items[0]
	require.Equal(t, constants.Furniture, it.Category)
	require.Equal(t, constants.ConditionGood, it.Condition)
	require.Equal(t, "Living Room", *it.Location)
	require.Equal(t, constants.ItemCaptured, it.Status)
	require.Equal(t, transcript, *it.VoiceTranscript)

	stored, err := repos.Items.ListByEstate(ctx, estate.ID, repository.ItemFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

func TestExtractBlankTranscriptSkipsModel(t *testing.T) {
	t.Parallel()
	fx := &fakeExtractor{}
	svc, _ := newService(t, fx)

	items, err := svc.Extract(context.Background(), Request{Transcript: "   \n", EstateID: uuid.New()})
	require.NoError(t, err)
	require.Empty(t, items)
	require.Zero(t, fx.calls.Load())
}

func TestExtractNormalizesLabels(t *testing.T) {
	t.Parallel()
	fx := &fakeExtractor{items: []llm.ExtractedItem{
		{Name: "Silver ring", Category: "jewelry", Condition: "EXCELLENT"},
		{Name: "Mystery box", Category: "Widgets", Condition: "like new", Description: str("  ")},
	}}
	svc, repos := newService(t, fx)
	estate := repotest.Estate(t, repos, "Hale")

	items, err := svc.Extract(context.Background(), Request{Transcript: "a silver ring and a mystery box", EstateID: estate.ID})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, constants.JewelryWatches, items[0].Category)
	require.Equal(t, constants.ConditionExcellent, items[0].Condition)
	require.Equal(t, constants.Miscellaneous, items[1].Category)
	require.Equal(t, constants.ConditionUnknown, items[1].Condition)
	require.Nil(t, items[1].Description)

	for _, it := range items {
		require.True(t, constants.IsCategory(string(it.Category)))
	}
}

func TestExtractExcerptIsCapped(t *testing.T) {
	t.Parallel()

	rows := ToNewItems([]llm.ExtractedItem{{Name: "Chair"}}, strings.Repeat("x", 2500), nil)
	require.Len(t, rows, 1)
	require.Len(t, *rows[0].VoiceTranscript, constants.ExcerptLimit)
}

func TestExtractErrorsInsertNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx := &fakeExtractor{err: common.MalformedError("failed to parse extraction", errors.New("bad json"))}
	svc, repos := newService(t, fx)
	estate := repotest.Estate(t, repos, "Hale")

	_, err := svc.Extract(ctx, Request{Transcript: "a lamp", EstateID: estate.ID})
	require.ErrorIs(t, err, common.ErrMalformedResponse)

	stored, err := repos.Items.ListByEstate(ctx, estate.ID, repository.ItemFilter{})
	require.NoError(t, err)
	require.Empty(t, stored)

	missing := uuid.New()
	_, err = svc.Extract(ctx, Request{Transcript: "a lamp", EstateID: estate.ID, SessionID: &missing})
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = svc.Extract(ctx, Request{Transcript: "a lamp", EstateID: uuid.New()})
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestExtractRejectsSessionFromAnotherEstate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fx := &fakeExtractor{items: []llm.ExtractedItem{{Name: "Oak Desk", Category: "Furniture"}}}
	svc, repos := newService(t, fx)
	hale := repotest.Estate(t, repos, "Hale")
	other := repotest.Estate(t, repos, "Whitaker")
	sess, err := repos.Sessions.Start(ctx, other.ID)
	require.NoError(t, err)

	_, err = svc.Extract(ctx, Request{Transcript: "an oak desk", EstateID: hale.ID, SessionID: &sess.ID})
	require.ErrorIs(t, err, common.ErrInvalidInput)
	require.Zero(t, fx.calls.Load())

	stored, err := repos.Items.ListByEstate(ctx, hale.ID, repository.ItemFilter{})
	require.NoError(t, err)
	require.Empty(t, stored)

	items, err := svc.Extract(ctx, Request{Transcript: "an oak desk", EstateID: other.ID, SessionID: &sess.ID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, &sess.ID, items[0].SessionID)
}
