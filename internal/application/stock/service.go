// Package stock coordinates the session-local stock view: the cache, the
// notification bus, authoritative reconciliation against the catalog, and
// optimistic reservation accounting at order time.
package stock

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/voltshop/stocksync/internal/domain/stock"
	"github.com/voltshop/stocksync/internal/observability"
	"github.com/voltshop/stocksync/internal/observability/logctx"
)

const (
	defaultFreshnessMaxAge = time.Hour
	defaultCleanupInterval = 10 * time.Minute
)

// Service is the public surface of the stock-synchronization core. One
// instance is shared per session; every view works against the same cache
// and bus, which is what keeps cross-component state consistent.
type Service struct {
	cache      Cache
	bus        Notifier
	reconciler *Reconciler
	accountant *Accountant

	freshness       time.Duration
	cleanupInterval time.Duration

	log           observability.Logger
	evictCounter  observability.Counter
	notifyCounter observability.Counter

	initOnce      sync.Once
	closeOnce     sync.Once
	cancelCleanup context.CancelFunc
}

func NewService(cache Cache, bus Notifier, reconciler *Reconciler, accountant *Accountant, freshness, cleanupInterval time.Duration, tel observability.Observability) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	if freshness <= 0 {
		freshness = defaultFreshnessMaxAge
	}
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}
	return &Service{
		cache:           cache,
		bus:             bus,
		reconciler:      reconciler,
		accountant:      accountant,
		freshness:       freshness,
		cleanupInterval: cleanupInterval,
		log:             tel.Logger().With(observability.F("component", "stock_service")),
		evictCounter:    tel.Metrics().Counter(observability.MCacheEvictions),
		notifyCounter:   tel.Metrics().Counter(observability.MNotifications),
	}
}

// Init restores the persisted snapshot and starts the periodic stale-entry
// cleanup. Safe to call once per instance; the cleanup loop stops when ctx
// is cancelled or Close is called.
func (s *Service) Init(ctx context.Context) {
	s.initOnce.Do(func() {
		s.cache.Restore(s.freshness)

		cctx, cancel := context.WithCancel(ctx)
		s.cancelCleanup = cancel
		go s.cleanupLoop(cctx)

		s.log.Info("stock_service_started",
			observability.F("restored_entries", len(s.cache.Entries())),
			observability.F("freshness_max_age", s.freshness.String()),
		)
	})
}

// Close stops the cleanup loop and cancels pending deferred reconciliations.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		if s.cancelCleanup != nil {
			s.cancelCleanup()
		}
		if s.accountant != nil {
			s.accountant.Close()
		}
		s.log.Info("stock_service_stopped")
	})
}

// GetCachedStock returns the cached quantity without any side effects.
func (s *Service) GetCachedStock(productID string) (int, bool) {
	return s.cache.Get(productID)
}

// GetStock returns the cached quantity, unless forceRefresh is set or no
// entry exists, in which case it syncs against the catalog first. When a
// forced refresh fails but a cached value exists, the last known value is
// returned: callers need a number to render, and "could not confirm" must
// never read as "zero".
func (s *Service) GetStock(ctx context.Context, productID string, forceRefresh bool) (int, error) {
	if !forceRefresh {
		if quantity, ok := s.cache.Get(productID); ok {
			return quantity, nil
		}
	}

	quantity, err := s.reconciler.SyncOne(ctx, productID)
	if err != nil {
		if cached, ok := s.cache.Get(productID); ok {
			return cached, nil
		}
		return 0, fmt.Errorf("get stock %s: %w", productID, domain.ErrUnavailable)
	}
	return quantity, nil
}

// Subscribe registers a stock-change listener. The returned function
// removes it and is safe to call more than once.
func (s *Service) Subscribe(fn domain.Listener) func() {
	return s.bus.Subscribe(fn)
}

// UpdateStockAndNotify pushes an authoritative quantity into the cache and
// notifies subscribers immediately. Admin flows use this after editing
// stock directly, so customer-facing views in the same session stay
// consistent without a reload.
func (s *Service) UpdateStockAndNotify(productID string, quantity int) {
	if quantity < 0 {
		quantity = 0
	}
	s.cache.Set(productID, quantity)
	s.bus.Publish(productID, quantity)
	if s.notifyCounter != nil {
		s.notifyCounter.Add(1, observability.L("source", "admin"))
	}
}

// DecrementStockAfterOrder applies the optimistic post-order decrements and
// returns the adjusted quantities for the caller to propagate.
func (s *Service) DecrementStockAfterOrder(ctx context.Context, items []domain.LineItem) []domain.Adjustment {
	return s.accountant.Reserve(ctx, items)
}

// SyncWithServer forces one authoritative sync for productID.
func (s *Service) SyncWithServer(ctx context.Context, productID string) (int, error) {
	return s.reconciler.SyncOne(ctx, productID)
}

// RefreshAllProducts reconciles every known product against the catalog and
// returns how many synced successfully.
func (s *Service) RefreshAllProducts(ctx context.Context) int {
	return s.reconciler.SyncAll(ctx)
}

// Watch starts periodic reconciliation for productID, for product detail
// views. The returned stop function must be called on view teardown.
func (s *Service) Watch(ctx context.Context, productID string) (stop func()) {
	return s.reconciler.Watch(ctx, productID)
}

// ValidateQuantity checks a requested cart total against a freshly forced
// fetch. The same policy applies to adding an item and changing a quantity.
// The check is advisory: when stock cannot be confirmed at all it passes,
// because the server independently validates availability at order time.
func (s *Service) ValidateQuantity(ctx context.Context, productID string, requested int) error {
	if requested <= 0 {
		return domain.ErrInvalidQuantity
	}

	available, err := s.GetStock(ctx, productID, true)
	if err != nil {
		logctx.FromOr(ctx, s.log).Debug("validate_skipped_unconfirmed",
			observability.F("product_id", productID),
		)
		return nil
	}
	if requested > available {
		return fmt.Errorf("requested %d of %s, believed stock %d: %w",
			requested, productID, available, domain.ErrInsufficientStock)
	}
	return nil
}

// ClearCache drops every entry and the persisted snapshot.
func (s *Service) ClearCache() {
	s.cache.Clear()
	s.log.Info("stock_cache_cleared")
}

// DebugState is a point-in-time dump of the core's state, for
// troubleshooting only.
type DebugState struct {
	Entries     []domain.Entry `json:"entries"`
	Subscribers int            `json:"subscribers"`
}

func (s *Service) Debug() DebugState {
	return DebugState{
		Entries:     s.cache.Entries(),
		Subscribers: s.bus.Len(),
	}
}

func (s *Service) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := s.cache.EvictStale(s.freshness); evicted > 0 {
				if s.evictCounter != nil {
					s.evictCounter.Add(float64(evicted))
				}
				s.log.Debug("stale_entries_evicted",
					observability.F("count", evicted),
				)
			}
		}
	}
}
