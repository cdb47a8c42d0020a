// Package server exposes the catalog over HTTP (echo) and gRPC.
package server

import (
	"github.com/dwesselviax/EstateLogger/internal/async"
	"github.com/dwesselviax/EstateLogger/internal/enrichment"
	"github.com/dwesselviax/EstateLogger/internal/export"
	"github.com/dwesselviax/EstateLogger/internal/extraction"
	"github.com/dwesselviax/EstateLogger/internal/gate"
	"github.com/dwesselviax/EstateLogger/internal/services/estate"
	"github.com/dwesselviax/EstateLogger/internal/services/item"
)

// Services is everything the transports call into.
type Services struct {
	Extraction   *extraction.Service
	Enrichment   *enrichment.Service
	Orchestrator *enrichment.Orchestrator
	Queue        async.Queue
	Gate         *gate.Service
	Estates      *estate.Service
	Items        *item.Service
	Export       *export.Service
}
