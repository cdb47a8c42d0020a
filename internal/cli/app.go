package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/enrichment"
	"github.com/dwesselviax/EstateLogger/internal/export"
	"github.com/dwesselviax/EstateLogger/internal/extraction"
	"github.com/dwesselviax/EstateLogger/internal/gate"
	"github.com/dwesselviax/EstateLogger/internal/llm/openai"
	repo "github.com/dwesselviax/EstateLogger/internal/repository"
	"github.com/dwesselviax/EstateLogger/internal/server"
	"github.com/dwesselviax/EstateLogger/internal/services/estate"
	"github.com/dwesselviax/EstateLogger/internal/services/item"
)

// app is the store plus every domain service, built once per command.
type app struct {
	cfg    *common.Config
	logger *slog.Logger
	db     *repo.DB
	repos  *repo.Repositories

	extraction   *extraction.Service
	enrichment   *enrichment.Service
	orchestrator *enrichment.Orchestrator
	gate         *gate.Service
	estates      *estate.Service
	items        *item.Service
	export       *export.Service
}

// openApp connects to the store, creating missing tables, and wires the
// services. Commands that call the model must have an API key configured.
func openApp(ctx context.Context, needLLM bool) (*app, error) {
	if needLLM {
		if err := cfg.ValidateLLM(); err != nil {
			return nil, err
		}
	}
	db, err := server.ConnectDB(ctx, cfg.Database, true, logger)
	if err != nil {
		return nil, err
	}
	if err := server.PingDB(ctx, db, logger, 5*time.Second); err != nil {
		server.CloseDB(db, logger)
		return nil, err
	}

	repos := repo.NewRepositories(db, logger)
	model := openai.NewClient(openai.ConfigFrom(cfg.LLM), logger)
	enrich := enrichment.NewService(model, repos.Items, repos.Enrichments, logger)
	return &app{
		cfg:          cfg,
		logger:       logger,
		db:           db,
		repos:        repos,
		extraction:   extraction.NewService(model, repos.Estates, repos.Sessions, repos.Items, logger),
		enrichment:   enrich,
		orchestrator: enrichment.NewOrchestrator(enrich, repos.Estates, repos.Items, logger),
		gate:         gate.NewService(repos.Estates, repos.Items, logger),
		estates:      estate.NewService(repos.Estates, repos.Sessions, repos.Items, logger),
		items:        item.NewService(repos.Items, repos.Enrichments, repos.Images, logger),
		export:       export.NewService(repos.Estates, repos.Items, logger),
	}, nil
}

func (a *app) Close() {
	server.CloseDB(a.db, a.logger)
}
