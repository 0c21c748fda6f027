// Package main is the entry point for the appcanvas editor server.
// It wires all dependencies together and starts the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/soneri/appcanvas/internal/cache"
	"github.com/soneri/appcanvas/internal/catalog"
	"github.com/soneri/appcanvas/internal/config"
	"github.com/soneri/appcanvas/internal/document"
	"github.com/soneri/appcanvas/internal/observability"
	"github.com/soneri/appcanvas/internal/publish"
	"github.com/soneri/appcanvas/internal/remote"
	"github.com/soneri/appcanvas/internal/transport"
	"github.com/soneri/appcanvas/model"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Step 1: Parse CLI flags.
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	// Step 2: Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	// Step 3: Initialize telemetry (logger, tracer, metrics).
	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "appcanvas", version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return 1
	}

	metrics := observability.InitMetrics(prometheus.DefaultRegisterer)

	// Step 4: Load the widget type catalog.
	loader := catalog.NewLoader()
	types, err := loader.LoadAll(cfg.Catalog.Directories)
	if err != nil {
		logger.Error("widget catalog loading failed", zap.Error(err))
		return 1
	}
	registry := catalog.NewRegistry(types)
	metrics.SetWidgetTypesLoaded(float64(registry.Len()))
	metrics.RecordCatalogReload("ok")

	// Step 5: Create the document store for the editing session.
	store := document.NewStore(registry)

	// Step 6: Build the upstream client. The session credential comes from
	// the environment so it never lands in a config file.
	session := model.Session{Token: os.Getenv(cfg.Upstream.SessionEnv)}
	if session.Token == "" {
		logger.Warn("upstream session credential not set",
			zap.String("env", cfg.Upstream.SessionEnv))
	}
	upstream := remote.NewClient(cfg.Upstream, session)
	upstream.WithObserver(metrics.RecordUpstreamRequest)
	upstream.OnUnauthorized(func() {
		logger.Warn("upstream session rejected, operator must re-authenticate")
	})

	// Step 7: Build the snapshot store.
	snapshots, snapshotChecker, snapshotCloser, err := buildSnapshotStore(cfg.Cache, logger)
	if err != nil {
		logger.Error("snapshot store initialization failed", zap.Error(err))
		return 1
	}

	// Step 8: Build the publish journal.
	journal, journalChecker, journalCloser, err := buildJournal(ctx, cfg.Journal, logger)
	if err != nil {
		logger.Error("publish journal initialization failed", zap.Error(err))
		return 1
	}

	// Step 9: Build the publish synchronizer and cached read sources.
	synchronizer := publish.NewSynchronizer(upstream, journal).WithMetrics(metrics)
	documents := transport.NewCachedDocumentSource(upstream, snapshots, cfg.Cache.MaxAge)
	distros := transport.NewCachedDistroSource(upstream, snapshots, cfg.Cache.MaxAge)

	// Step 10: Build the HTTP router.
	jwks := transport.NewJWKSClient(cfg.Identity.JWKSURL, cfg.Identity.JWKSCacheTTL)

	router := transport.NewRouter(transport.Dependencies{
		Config:       cfg,
		Authenticate: transport.JWTAuthenticator(cfg.Identity, jwks),
		Store:        store,
		Catalog:      registry,
		Documents:    documents,
		Distros:      distros,
		Publisher:    synchronizer,
		Journal:      journal,
		Metrics:      metrics,
		Ready: observability.ReadinessChecks{
			CatalogLoaded: func() bool { return registry.Len() > 0 },
			SnapshotStore: snapshotChecker,
			Journal:       journalChecker,
		},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Step 11: Start the HTTP server.
	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
		zap.Int("widget_types", registry.Len()),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	// Graceful shutdown sequence.
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Stop accepting new connections and drain in-flight requests.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Close stores.
	if snapshotCloser != nil {
		snapshotCloser()
	}
	if journalCloser != nil {
		journalCloser()
	}

	// Flush telemetry.
	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}

// buildSnapshotStore creates the snapshot store based on config. Returns the
// store, an optional readiness checker, and an optional closer.
func buildSnapshotStore(cfg config.CacheConfig, logger *zap.Logger) (cache.SnapshotStore, observability.HealthChecker, func(), error) {
	switch cfg.Store.Driver {
	case "memory", "":
		logger.Info("using in-memory snapshot store")
		return cache.NewMemorySnapshotStore(), nil, nil, nil
	case "redis":
		addr := os.Getenv(cfg.Store.AddrEnv)
		if addr == "" {
			return nil, nil, nil, fmt.Errorf("snapshot store: %s environment variable not set", cfg.Store.AddrEnv)
		}
		client := redis.NewClient(&redis.Options{Addr: addr, DB: cfg.Store.DB})

		// Retain snapshots well past max-age; freshness is the
		// revalidator's call, the TTL only ages out abandoned variants.
		retention := 24 * time.Hour
		store := cache.NewRedisSnapshotStore(client, retention)
		checker := observability.HealthCheckerFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		return store, checker, func() { client.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported snapshot store driver: %q", cfg.Store.Driver)
	}
}

// buildJournal creates the publish journal based on config. Returns the
// journal, an optional readiness checker, and an optional closer.
func buildJournal(ctx context.Context, cfg config.JournalConfig, logger *zap.Logger) (publish.Journal, observability.HealthChecker, func(), error) {
	switch cfg.Driver {
	case "memory", "":
		logger.Info("using in-memory publish journal")
		return publish.NewMemoryJournal(), nil, nil, nil
	case "postgres":
		dsn := os.Getenv(cfg.DSNEnv)
		if dsn == "" {
			return nil, nil, nil, fmt.Errorf("publish journal: %s environment variable not set", cfg.DSNEnv)
		}

		poolCfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("publish journal: parse DSN: %w", err)
		}
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("publish journal: connect: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("publish journal: ping: %w", err)
		}

		journal := publish.NewPgJournal(pool)
		if err := journal.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		checker := observability.HealthCheckerFunc(func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
		return journal, checker, pool.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported publish journal driver: %q", cfg.Driver)
	}
}
