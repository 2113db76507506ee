package stock

import (
	"context"
	"fmt"
	"time"

	domain "github.com/voltshop/stocksync/internal/domain/stock"
	"github.com/voltshop/stocksync/internal/observability"
	"github.com/voltshop/stocksync/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	useCaseSync         = "stock.sync"
	syncSpanName        = "UC.SyncStock"
	defaultPollInterval = 60 * time.Second
)

// Reconciler pulls ground truth from the remote catalog and feeds it back
// into the cache and the notification bus. A failed sync leaves the cache
// untouched; each tick of the periodic variant is independent, with no
// retry or backoff.
type Reconciler struct {
	cache    Cache
	bus      Notifier
	fetcher  domain.ProductFetcher
	interval time.Duration

	log          observability.Logger
	tracer       observability.Tracer
	syncCounter  observability.Counter
	syncDuration observability.Histogram
}

func NewReconciler(cache Cache, bus Notifier, fetcher domain.ProductFetcher, interval time.Duration, tel observability.Observability) *Reconciler {
	if tel == nil {
		tel = observability.Nop()
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Reconciler{
		cache:        cache,
		bus:          bus,
		fetcher:      fetcher,
		interval:     interval,
		log:          tel.Logger().With(observability.F("component", "reconciler")),
		tracer:       tel.Tracer(),
		syncCounter:  tel.Metrics().Counter(observability.MSyncRequests),
		syncDuration: tel.Metrics().Histogram(observability.MSyncDuration),
	}
}

// SyncOne fetches the product, overwrites the cached quantity, and notifies
// subscribers. Subscribers are notified even when the fetched value equals
// the cached one: a confirmed value refreshes the entry's age, and
// suppressing equal values would drop the post-order correction whenever
// the optimistic math happened to be right.
func (r *Reconciler) SyncOne(ctx context.Context, productID string) (_ int, err error) {
	logger := logctx.FromOr(ctx, r.log).With(
		observability.F("use_case", useCaseSync),
		observability.F("product_id", productID),
	)

	ctx, span := r.tracer.Start(ctx, syncSpanName,
		attribute.String("use_case", useCaseSync),
		attribute.String("product.id", productID),
	)
	start := time.Now()
	outcome := "success"

	defer func() {
		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "SYNC_FAILED")
			} else {
				span.SetStatus(codes.Ok, "OK")
			}
			span.End()
		}
		if r.syncCounter != nil {
			r.syncCounter.Add(1,
				observability.L("use_case", useCaseSync),
				observability.L("outcome", outcome),
			)
		}
		if r.syncDuration != nil {
			r.syncDuration.Observe(time.Since(start).Seconds(),
				observability.L("use_case", useCaseSync),
			)
		}
	}()

	product, err := r.fetcher.FetchProduct(ctx, productID)
	if err != nil {
		outcome = "error"
		logger.Warn("stock_sync_failed", observability.F("error", err.Error()))
		return 0, fmt.Errorf("reconcile %s: %w", productID, err)
	}

	quantity := product.Stock
	if quantity < 0 {
		quantity = 0
	}
	r.cache.Set(productID, quantity)
	r.bus.Publish(productID, quantity)

	logger.Debug("stock_synced", observability.F("quantity", quantity))
	return quantity, nil
}

// SyncAll runs SyncOne for every product currently known to the cache and
// returns how many succeeded. Failures are per-product and non-fatal.
func (r *Reconciler) SyncAll(ctx context.Context) int {
	synced := 0
	for _, e := range r.cache.Entries() {
		if _, err := r.SyncOne(ctx, e.ProductID); err == nil {
			synced++
		}
	}
	return synced
}

// Watch syncs productID immediately, then on a fixed interval until the
// returned stop function is called or ctx is cancelled. Views open one
// watch on entry and must stop it on teardown.
func (r *Reconciler) Watch(ctx context.Context, productID string) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		_, _ = r.SyncOne(ctx, productID)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = r.SyncOne(ctx, productID)
			}
		}
	}()

	return cancel
}
