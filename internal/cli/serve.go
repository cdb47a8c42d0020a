package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dwesselviax/EstateLogger/internal/async"
	"github.com/dwesselviax/EstateLogger/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the gRPC CatalogService",
	Long: `Serve the catalog over HTTP (HTTP_ADDR) and gRPC (GRPC_ADDR). Either
address may be empty to disable that listener. Estate enrichment requested
over HTTP runs on a background worker queue.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateServer(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	queue := async.NewEnrichmentQueue(a.orchestrator, logger, async.OptionsFrom(cfg.Enrichment)...)
	svc := server.Services{
		Extraction:   a.extraction,
		Enrichment:   a.enrichment,
		Orchestrator: a.orchestrator,
		Queue:        queue,
		Gate:         a.gate,
		Estates:      a.estates,
		Items:        a.items,
		Export:       a.export,
	}

	errc := make(chan error, 2)

	e := server.NewHTTP(svc, logger)
	if addr := cfg.Server.HTTPAddr; addr != "" {
		go func() {
			logger.Info("http listening", "addr", addr)
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()
	}

	grpcServer, health := server.NewGRPCServer(svc, logger)
	if addr := cfg.Server.GRPCAddr; addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("failed to listen on address", "addr", addr, "error", err)
			return err
		}
		go func() {
			logger.Info("grpc listening", "addr", addr)
			if err := grpcServer.Serve(lis); err != nil {
				errc <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errc:
		logger.Error("listener failed", "error", err)
	}

	health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if serr := e.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("http shutdown", "error", serr)
	}
	grpcServer.GracefulStop()
	queue.Shutdown(shutdownCtx)
	return err
}
