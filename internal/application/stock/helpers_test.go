package stock

import (
	"context"
	"sync"
	"time"

	domain "github.com/voltshop/stocksync/internal/domain/stock"
	"github.com/voltshop/stocksync/internal/infrastructure/memory"
	"github.com/voltshop/stocksync/internal/infrastructure/notify"
)

// fakeFetcher serves canned stock values and counts calls.
type fakeFetcher struct {
	mu    sync.Mutex
	stock map[string]int
	err   error
	calls int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{stock: make(map[string]int)}
}

func (f *fakeFetcher) FetchProduct(_ context.Context, productID string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	qty, ok := f.stock[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.Product{ID: productID, Stock: qty}, nil
}

func (f *fakeFetcher) set(productID string, quantity int) {
	f.mu.Lock()
	f.stock[productID] = quantity
	f.mu.Unlock()
}

func (f *fakeFetcher) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fixture struct {
	cache      *memory.StockCache
	bus        *notify.Bus
	fetcher    *fakeFetcher
	reconciler *Reconciler
	accountant *Accountant
	service    *Service
}

func newFixture(pollInterval, reconcileDelay time.Duration) *fixture {
	cache := memory.NewStockCache(nil, nil)
	bus := notify.NewBus(nil)
	fetcher := newFakeFetcher()
	reconciler := NewReconciler(cache, bus, fetcher, pollInterval, nil)
	accountant := NewAccountant(cache, bus, reconciler, reconcileDelay, nil)
	service := NewService(cache, bus, reconciler, accountant, time.Hour, time.Minute, nil)
	return &fixture{
		cache:      cache,
		bus:        bus,
		fetcher:    fetcher,
		reconciler: reconciler,
		accountant: accountant,
		service:    service,
	}
}
