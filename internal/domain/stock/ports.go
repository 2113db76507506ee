package stock

import (
	"context"
)

// Product is the subset of a catalog record this module cares about.
type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

// ProductFetcher reads ground truth from the remote product catalog.
// A returned error means "could not confirm", never "stock is zero".
type ProductFetcher interface {
	FetchProduct(ctx context.Context, productID string) (*Product, error)
}

// KVStore is the durable storage the cache snapshot is persisted to.
// Persistence is best-effort: callers swallow write failures and degrade
// to memory-only caching.
type KVStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// Listener receives stock-change notifications.
type Listener func(productID string, quantity int)
