package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/dwesselviax/EstateLogger/internal/common"
	repo "github.com/dwesselviax/EstateLogger/internal/repository"
)

// ConnectDB opens the configured store and, when migrate is set, creates any
// missing tables.
func ConnectDB(ctx context.Context, cfg common.DatabaseConfig, migrate bool, logger *slog.Logger) (*repo.DB, error) {
	logger.Info("connecting to database", "driver", cfg.Driver)
	db, err := repo.Open(ctx, repo.ConfigFrom(cfg), logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	if migrate {
		if err := repo.Migrate(ctx, db, logger); err != nil {
			repo.Close(db, logger)
			return nil, err
		}
	}

	logger.Info("successfully connected to database", "dialect", db.Dialect())
	return db, nil
}

// PingDB pings the database to ensure it's responsive
func PingDB(ctx context.Context, db *repo.DB, logger *slog.Logger, timeout time.Duration) error {
	logger.Debug("pinging database")
	if err := repo.HealthCheck(ctx, db, timeout, logger); err != nil {
		logger.Error("database ping failed", "error", err)
		return err
	}
	logger.Debug("database ping successful")
	return nil
}

// CloseDB closes the database connections gracefully
func CloseDB(db *repo.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	logger.Info("closing database connections")
	repo.Close(db, logger)
}
