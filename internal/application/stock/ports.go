package stock

import (
	"context"
	"time"

	domain "github.com/voltshop/stocksync/internal/domain/stock"
)

// Cache is the session-local stock store the application layer works
// against. Set writes without notifying; pairing a write with a publish is
// an explicit caller decision.
type Cache interface {
	Get(productID string) (int, bool)
	Entry(productID string) (domain.Entry, bool)
	Set(productID string, quantity int)
	Restore(maxAge time.Duration)
	EvictStale(maxAge time.Duration) int
	Clear()
	Entries() []domain.Entry
}

// Notifier fans stock changes out to registered listeners.
type Notifier interface {
	Subscribe(fn domain.Listener) func()
	Publish(productID string, quantity int)
	Len() int
}

// Syncer pulls one product's authoritative quantity into the cache.
type Syncer interface {
	SyncOne(ctx context.Context, productID string) (int, error)
}
