package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appStock "github.com/voltshop/stocksync/internal/application/stock"
	"github.com/voltshop/stocksync/internal/config"
	domainStock "github.com/voltshop/stocksync/internal/domain/stock"
	"github.com/voltshop/stocksync/internal/infrastructure/catalog"
	httptransport "github.com/voltshop/stocksync/internal/infrastructure/http"
	"github.com/voltshop/stocksync/internal/infrastructure/id"
	"github.com/voltshop/stocksync/internal/infrastructure/memory"
	"github.com/voltshop/stocksync/internal/infrastructure/notify"
	"github.com/voltshop/stocksync/internal/infrastructure/observability/oteltrace"
	"github.com/voltshop/stocksync/internal/infrastructure/observability/prometrics"
	"github.com/voltshop/stocksync/internal/infrastructure/observability/telemetry"
	"github.com/voltshop/stocksync/internal/infrastructure/observability/zaplogger"
	"github.com/voltshop/stocksync/internal/infrastructure/snapshot"
	"github.com/voltshop/stocksync/internal/observability"
	"github.com/voltshop/stocksync/internal/pkg/logging"
)

func main() {
	cfg := config.Load()

	baseLogger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	logger := zaplogger.Wrap(baseLogger)

	registry := prometrics.New("", "stocksync")
	tel := telemetry.New(
		oteltrace.New(cfg.ServiceName),
		logger,
		map[observability.MetricKey]observability.Counter{
			observability.MSyncRequests: registry.Counter(
				string(observability.MSyncRequests),
				"Total number of stock reconciliation attempts.",
				"use_case", "outcome",
			),
			observability.MReservations: registry.Counter(
				string(observability.MReservations),
				"Total number of optimistic line-item reservations.",
				"use_case",
			),
			observability.MNotifications: registry.Counter(
				string(observability.MNotifications),
				"Total number of admin-pushed stock notifications.",
				"source",
			),
			observability.MCacheEvictions: registry.Counter(
				string(observability.MCacheEvictions),
				"Total number of stale cache entries evicted.",
			),
			observability.MHTTPRequests: registry.Counter(
				string(observability.MHTTPRequests),
				"Total number of HTTP requests.",
				"method", "route", "status",
			),
		},
		map[observability.MetricKey]observability.Histogram{
			observability.MSyncDuration: registry.Histogram(
				string(observability.MSyncDuration),
				"Duration of stock reconciliation in seconds.",
				prometheus.DefBuckets,
				"use_case",
			),
			observability.MHTTPRequestDuration: registry.Histogram(
				string(observability.MHTTPRequestDuration),
				"Duration of HTTP request handling in seconds.",
				prometheus.DefBuckets,
				"method", "route",
			),
		},
	)

	kv := newSnapshotStore(cfg, logger)
	cache := memory.NewStockCache(kv, logger)
	bus := notify.NewBus(logger)
	fetcher := catalog.NewClient(cfg.CatalogBaseURL, cfg.CatalogTimeout)
	reconciler := appStock.NewReconciler(cache, bus, fetcher, cfg.PollInterval, tel)
	accountant := appStock.NewAccountant(cache, bus, reconciler, cfg.ReconcileDelay, tel)
	service := appStock.NewService(cache, bus, reconciler, accountant, cfg.FreshnessMaxAge, cfg.CleanupInterval, tel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service.Init(ctx)
	defer service.Close()

	handler := httptransport.NewHandler(service, id.NewUUIDGenerator())
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", httptransport.Observe(tel)(handler.Router()))

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("http_server_start",
			observability.F("addr", server.Addr),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error",
				observability.F("error", err.Error()),
			)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error",
			observability.F("error", err.Error()),
		)
	} else {
		logger.Info("http_server_stopped")
	}
}

func newSnapshotStore(cfg config.Config, logger observability.Logger) domainStock.KVStore {
	if cfg.RedisAddr != "" {
		store, err := snapshot.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err == nil {
			logger.Info("snapshot_store_redis", observability.F("addr", cfg.RedisAddr))
			return store
		}
		logger.Warn("snapshot_store_redis_unavailable",
			observability.F("error", err.Error()),
		)
	}

	store, err := snapshot.NewFileStore(cfg.SnapshotDir)
	if err != nil {
		// Persistence is best-effort; run memory-only rather than fail.
		logger.Warn("snapshot_store_disabled",
			observability.F("error", err.Error()),
		)
		return nil
	}
	logger.Info("snapshot_store_file", observability.F("dir", cfg.SnapshotDir))
	return store
}
