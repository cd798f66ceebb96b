// Command sweeper runs a parameter sweep against a remote cold-atom
// quantum-simulator backend and serves the resulting expectation-value
// curves.
//
// The sweeper:
//  1. Authenticates against the provider and fetches the backend config
//  2. Builds one fixed-shape circuit per sweep point (rabi or gauge
//     sequence), submits it, and blocks until the shots return
//  3. Extracts per-wire spin expectation values from the shot memory
//  4. Stores the growing run record after every point
//  5. Serves the record via HTTP at /run/current and optionally renders
//     the final figure to a file
//
// Usage:
//
//	sweeper \
//	  -provider-url=https://qlued.example.org/api/v2 \
//	  -username=alice \
//	  -backend=multiqudit \
//	  -sequence=gauge \
//	  -sweep-start=0 -sweep-stop=1.5 -sweep-points=30 \
//	  -shots=500 \
//	  -plot-file=gauge.png
//
// Environment variables:
//
//	PROVIDER_URL      - Provider API root (required)
//	COLDATOM_USERNAME - Account username (required)
//	COLDATOM_TOKEN    - Account token (required)
//	BACKEND           - Backend name (default: multiqudit)
//	SEQUENCE          - Sweep sequence: rabi or gauge (default: rabi)
//	SHOTS             - Shots per point (default: 500)
//	SWEEP_START       - First sweep value (default: 0)
//	SWEEP_STOP        - Last sweep value (default: pi)
//	SWEEP_POINTS      - Number of points (default: 25)
//	POLL_INTERVAL     - Job status poll interval (default: 2s)
//	JOB_TIMEOUT       - Per-job wait timeout (default: 5m)
//	LOG_LEVEL         - Logging level: debug, info, warn, error (default: info)
//	LOG_FORMAT        - Logging format: text, json (default: text)
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/synqs/coldatom/cmd/sweeper/config"
	"github.com/synqs/coldatom/cmd/sweeper/metrics"
	"github.com/synqs/coldatom/cmd/sweeper/router"
	"github.com/synqs/coldatom/pkg/httpx"
	"github.com/synqs/coldatom/pkg/plot"
	"github.com/synqs/coldatom/pkg/provider"
	"github.com/synqs/coldatom/pkg/storage"
	"github.com/synqs/coldatom/pkg/sweep"
	"github.com/synqs/coldatom/pkg/tls"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	cfg := config.ParseFlags()

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting coldatom sweeper",
		"version", version,
		"run", cfg.Run,
		"backend", cfg.Backend,
		"sequence", cfg.Sequence,
	)

	httpClient, err := httpx.NewClient(cfg.TLS, cfg.RequestTimeout)
	if err != nil {
		logger.Error("failed to create HTTP client", "error", err)
		os.Exit(1)
	}

	client, err := provider.NewClient(cfg.ProviderURL, cfg.Username, cfg.Token,
		provider.WithHTTPClient(httpClient),
		provider.WithLogger(logger),
	)
	if err != nil {
		logger.Error("failed to create provider client", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := client.Backend(ctx, cfg.Backend)
	if err != nil {
		logger.Error("failed to reach backend", "backend", cfg.Backend, "error", err)
		os.Exit(1)
	}
	logger.Info("backend ready",
		"backend", backend.Name(),
		"simulator", backend.Config().Simulator,
		"num_wires", backend.Config().NumWires,
	)

	sequence, err := sweep.NewSequence(cfg.Sequence, sweep.Params{
		Atoms:  cfg.Atoms,
		AtomsB: cfg.AtomsB,
		Lambda: cfg.Lambda,
		Chi:    cfg.Chi,
	})
	if err != nil {
		logger.Error("failed to create sequence", "error", err)
		os.Exit(1)
	}

	store := newStore(cfg, logger)
	if closer, ok := store.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Error("failed to close store", "error", err)
			}
		}()
	}

	points := sweep.Linspace(cfg.SweepStart, cfg.SweepStop, cfg.SweepPoints)

	s := NewSweeper(
		cfg.Run,
		backend,
		sequence,
		points,
		cfg.Shots,
		cfg.PollInterval,
		cfg.JobTimeout,
		store,
		logger,
		metrics.New(cfg.Run),
	)

	// A record is stale once it is older than two full job waits.
	staleAfter := 2 * cfg.JobTimeout
	mux := router.SetupRoutes(store, staleAfter, logger)
	httpServer := httpx.NewServer(cfg.Listen, mux, logger)

	serverErr := make(chan error, 1)
	go func() {
		if cfg.TLS.Enabled {
			tlsConfig, err := tls.NewServerTLSConfig(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.CAFile)
			if err != nil {
				serverErr <- err
				return
			}
			httpServer.SetTLSConfig(tlsConfig)
			serverErr <- httpServer.StartTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
			return
		}
		serverErr <- httpServer.Start()
	}()

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)

		record, err := s.Run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("sweep failed", "run", cfg.Run, "completed", record.Completed, "error", err)
			return
		}

		if cfg.PlotFile != "" {
			if err := plot.RenderRun(record, cfg.PlotFile, plot.Options{}); err != nil {
				logger.Error("failed to render figure", "path", cfg.PlotFile, "error", err)
			} else {
				logger.Info("figure written", "path", cfg.PlotFile)
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
	}

	logger.Info("shutting down")
	cancel()
	<-sweepDone

	if err := httpServer.Stop(10 * time.Second); err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

// newLogger builds the slog logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

// newStore builds the run record store from config.
func newStore(cfg *config.Config, logger *slog.Logger) storage.Store {
	if cfg.Storage == "redis" {
		store, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
		if err != nil {
			logger.Error("failed to connect to redis, falling back to memory store", "error", err)
			return storage.NewMemoryStore()
		}
		logger.Info("using redis store", "addr", cfg.RedisAddr)
		return store
	}
	return storage.NewMemoryStore()
}
