// Package repotest opens a migrated SQLite database for tests in other packages.
package repotest

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dwesselviax/EstateLogger/internal/entity"
	"github.com/dwesselviax/EstateLogger/internal/repository"
)

// New returns repositories over a fresh database under t.TempDir().
func New(t testing.TB) (*repository.DB, *repository.Repositories) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := repository.Open(context.Background(), repository.Config{Driver: "sqlite", DSN: dsn}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db, logger) })
	require.NoError(t, repository.Migrate(context.Background(), db, logger))
	return db, repository.NewRepositories(db, logger)
}

// Estate creates a draft estate.
func Estate(t testing.TB, repos *repository.Repositories, name string) *entity.Estate {
	t.Helper()
	e, err := repos.Estates.Create(context.Background(), &entity.Estate{Name: name, Address: "1 Test Lane"})
	require.NoError(t, err)
	return e
}
