package stock

import (
	"context"
	"sync"
	"time"

	domain "github.com/voltshop/stocksync/internal/domain/stock"
	"github.com/voltshop/stocksync/internal/observability"
	"github.com/voltshop/stocksync/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	useCaseReserve        = "stock.reserve"
	reserveSpanName       = "UC.ReserveStock"
	defaultReconcileDelay = 500 * time.Millisecond
	deferredSyncTimeout   = 10 * time.Second
)

// Accountant applies optimistic stock decrements when an order is placed,
// before server confirmation, and schedules a deferred reconciliation per
// product to correct any drift against server truth.
type Accountant struct {
	cache  Cache
	bus    Notifier
	syncer Syncer
	delay  time.Duration

	log        observability.Logger
	tracer     observability.Tracer
	resCounter observability.Counter

	mu     sync.Mutex
	timers map[*pending]*time.Timer
	closed bool
}

// pending identifies one scheduled deferred sync for cancellation. It is
// non-empty so every allocation has a distinct address.
type pending struct{ productID string }

func NewAccountant(cache Cache, bus Notifier, syncer Syncer, delay time.Duration, tel observability.Observability) *Accountant {
	if tel == nil {
		tel = observability.Nop()
	}
	if delay <= 0 {
		delay = defaultReconcileDelay
	}
	return &Accountant{
		cache:      cache,
		bus:        bus,
		syncer:     syncer,
		delay:      delay,
		log:        tel.Logger().With(observability.F("component", "accountant")),
		tracer:     tel.Tracer(),
		resCounter: tel.Metrics().Counter(observability.MReservations),
		timers:     make(map[*pending]*time.Timer),
	}
}

// Reserve decrements the believed stock for each line item, clamping at
// zero, and publishes the new quantity so every mounted view updates
// immediately. When no cache entry exists the item's fallback quantity
// seeds the believed value. The returned adjustments carry the new
// quantities back to the caller; caller-held product records are never
// mutated here. A deferred sync per distinct product pulls the
// authoritative post-order quantity once the order has likely landed
// server-side.
func (a *Accountant) Reserve(ctx context.Context, items []domain.LineItem) []domain.Adjustment {
	logger := logctx.FromOr(ctx, a.log).With(
		observability.F("use_case", useCaseReserve),
		observability.F("line_items", len(items)),
	)

	ctx, span := a.tracer.Start(ctx, reserveSpanName,
		attribute.String("use_case", useCaseReserve),
		attribute.Int("order.line_items", len(items)),
	)
	defer func() {
		if span != nil {
			span.SetStatus(codes.Ok, "OK")
			span.End()
		}
	}()

	adjustments := make([]domain.Adjustment, 0, len(items))
	distinct := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for _, item := range items {
		entry, ok := a.cache.Entry(item.ProductID)
		if !ok {
			entry = domain.Entry{
				ProductID: item.ProductID,
				Quantity:  item.FallbackQuantity,
			}
		}
		entry.Decrement(item.Quantity)

		a.cache.Set(item.ProductID, entry.Quantity)
		a.bus.Publish(item.ProductID, entry.Quantity)
		adjustments = append(adjustments, domain.Adjustment{
			ProductID: item.ProductID,
			Quantity:  entry.Quantity,
		})

		if _, dup := seen[item.ProductID]; !dup {
			seen[item.ProductID] = struct{}{}
			distinct = append(distinct, item.ProductID)
		}
	}

	if a.resCounter != nil {
		a.resCounter.Add(float64(len(items)),
			observability.L("use_case", useCaseReserve),
		)
	}
	logger.Info("stock_reserved",
		observability.F("products", len(distinct)),
	)

	a.scheduleSync(distinct)
	return adjustments
}

// Close cancels any deferred reconciliations still pending. Further
// reservations apply their decrements but schedule nothing.
func (a *Accountant) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.closed = true
	for _, t := range a.timers {
		t.Stop()
	}
	a.timers = make(map[*pending]*time.Timer)
}

func (a *Accountant) scheduleSync(productIDs []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	for _, productID := range productIDs {
		productID := productID // per-iteration copy: compiled with go < 1.22 loop semantics
		key := &pending{productID: productID}
		a.timers[key] = time.AfterFunc(a.delay, func() {
			a.forget(key)

			ctx, cancel := context.WithTimeout(context.Background(), deferredSyncTimeout)
			defer cancel()
			if _, err := a.syncer.SyncOne(ctx, productID); err != nil {
				a.log.Debug("deferred_sync_failed",
					observability.F("product_id", productID),
					observability.F("error", err.Error()),
				)
			}
		})
	}
}

func (a *Accountant) forget(key *pending) {
	a.mu.Lock()
	delete(a.timers, key)
	a.mu.Unlock()
}
