package estate

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dwesselviax/EstateLogger/constants"
	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/repository"
	"github.com/dwesselviax/EstateLogger/internal/repository/repotest"
)

func newService(t *testing.T) (*Service, *repository.Repositories) {
	t.Helper()
	_, repos := repotest.New(t)
	return NewService(repos.Estates, repos.Sessions, repos.Items, nil), repos
}

func TestCreateEstateValidates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.CreateEstate(ctx, CreateEstateRequest{Name: " ", Address: "1 Elm"})
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.CreateEstate(ctx, CreateEstateRequest{Name: "Hale", Address: "1 Elm", PropertyType: "castle"})
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.CreateEstate(ctx, CreateEstateRequest{Name: "Hale", Address: "1 Elm", AuctionDate: "next week"})
	require.ErrorIs(t, err, common.ErrValidation)

	e, err := svc.CreateEstate(ctx, CreateEstateRequest{
		Name:         "  Hale Residence ",
		Address:      "12 Elm St",
		AuctionDate:  "2026-11-14",
		PropertyType: "Residential",
		Notes:        "  ",
	})
	require.NoError(t, err)
	require.Equal(t, "Hale Residence", e.Name)
	require.Equal(t, constants.EstateDraft, e.Status)
	require.Equal(t, constants.PropertyResidential, *e.PropertyType)
	require.Equal(t, "2026-11-14", e.AuctionDate.Format("2006-01-02"))
	require.Nil(t, e.Notes)

	list, err := svc.ListEstates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Zero(t, list[0].ItemCount)
}

func TestSessionLifecycleMovesEstateToLogging(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repos := newService(t)
	estate := repotest.Estate(t, repos, "Hale")

	sess, err := svc.StartSession(ctx, estate.ID)
	require.NoError(t, err)
	require.Equal(t, constants.SessionActive, sess.Status)

	got, err := svc.GetEstate(ctx, estate.ID)
	require.NoError(t, err)
	require.Equal(t, constants.EstateLogging, got.Status)

	_, err = repos.Items.CreateBatch(ctx, estate.ID, &sess.ID, []repository.NewItem{{Name: "Lamp"}, {Name: "Rug"}})
	require.NoError(t, err)

	done, err := svc.CompleteSession(ctx, sess.ID, " a lamp and a rug ")
	require.NoError(t, err)
	require.Equal(t, constants.SessionCompleted, done.Status)
	require.Equal(t, 2, done.ItemCount)
	require.Equal(t, "a lamp and a rug", done.FullTranscript)
	require.NotNil(t, done.EndedAt)

	_, err = svc.StartSession(ctx, uuid.New())
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteEstate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repos := newService(t)
	estate := repotest.Estate(t, repos, "Hale")

	require.NoError(t, svc.DeleteEstate(ctx, estate.ID))
	_, err := svc.GetEstate(ctx, estate.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
}
