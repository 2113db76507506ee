package memory

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/voltshop/stocksync/internal/domain/stock"
	"github.com/voltshop/stocksync/internal/observability"
)

// SnapshotKey is the fixed durable-storage key the cache snapshot lives under.
const SnapshotKey = "stocksync.cache"

type persistedEntry struct {
	Quantity   int   `json:"quantity"`
	ObservedAt int64 `json:"observed_at"` // unix millis
}

// StockCache holds the session-local view of per-product stock. Writes are
// mirrored to a durable KV store so the view survives a restart; storage
// failures degrade the cache to memory-only.
type StockCache struct {
	mu      sync.RWMutex
	entries map[string]*stock.Entry
	kv      stock.KVStore
	log     observability.Logger
}

func NewStockCache(kv stock.KVStore, logger observability.Logger) *StockCache {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &StockCache{
		entries: make(map[string]*stock.Entry),
		kv:      kv,
		log:     logger.With(observability.F("component", "stock_cache")),
	}
}

// Get returns the cached quantity regardless of age. Staleness is the
// caller's concern.
func (c *StockCache) Get(productID string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[productID]
	if !ok {
		return 0, false
	}
	return e.Quantity, true
}

// Entry returns a copy of the full cached entry.
func (c *StockCache) Entry(productID string) (stock.Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[productID]
	if !ok {
		return stock.Entry{}, false
	}
	return *e, true
}

// Set overwrites the entry for productID with the current time and persists
// the snapshot, clamping negative quantities to zero. It does not notify
// subscribers; callers that want the write to ripple to the UI pair it with
// a publish.
func (c *StockCache) Set(productID string, quantity int) {
	if quantity < 0 {
		quantity = 0
	}
	entry, err := stock.NewEntry(productID, quantity)
	if err != nil {
		c.log.Warn("entry_rejected",
			observability.F("product_id", productID),
			observability.F("error", err.Error()),
		)
		return
	}

	c.mu.Lock()
	c.entries[productID] = entry
	c.persistLocked()
	c.mu.Unlock()
}

// Restore repopulates the cache from the persisted snapshot, discarding
// entries older than maxAge. Missing or malformed storage content is
// silently ignored.
func (c *StockCache) Restore(maxAge time.Duration) {
	if c.kv == nil {
		return
	}
	raw, ok := c.kv.Get(SnapshotKey)
	if !ok {
		return
	}

	var snap map[string]persistedEntry
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		c.log.Warn("snapshot_malformed", observability.F("error", err.Error()))
		return
	}

	now := time.Now().UTC()
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, pe := range snap {
		observed := time.UnixMilli(pe.ObservedAt).UTC()
		if now.Sub(observed) > maxAge {
			continue
		}
		if pe.Quantity < 0 {
			continue
		}
		c.entries[id] = &stock.Entry{
			ProductID:  id,
			Quantity:   pe.Quantity,
			ObservedAt: observed,
		}
	}
}

// EvictStale removes every entry older than maxAge from memory and from the
// next persisted snapshot. It returns the number of evicted entries.
func (c *StockCache) EvictStale(maxAge time.Duration) int {
	now := time.Now().UTC()

	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for id, e := range c.entries {
		if e.StaleAt(now, maxAge) {
			delete(c.entries, id)
			evicted++
		}
	}
	if evicted > 0 {
		c.persistLocked()
	}
	return evicted
}

// Clear drops all entries and deletes the persisted snapshot. Used when an
// admin wants a hard refresh from the server rather than any cached value.
func (c *StockCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*stock.Entry)
	if c.kv == nil {
		return
	}
	if err := c.kv.Remove(SnapshotKey); err != nil {
		c.log.Warn("snapshot_remove_failed", observability.F("error", err.Error()))
	}
}

// Entries returns a copy of all cached entries.
func (c *StockCache) Entries() []stock.Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]stock.Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	return out
}

func (c *StockCache) persistLocked() {
	if c.kv == nil {
		return
	}

	snap := make(map[string]persistedEntry, len(c.entries))
	for id, e := range c.entries {
		snap[id] = persistedEntry{
			Quantity:   e.Quantity,
			ObservedAt: e.ObservedAt.UnixMilli(),
		}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		c.log.Warn("snapshot_marshal_failed", observability.F("error", err.Error()))
		return
	}
	if err := c.kv.Set(SnapshotKey, string(data)); err != nil {
		c.log.Warn("snapshot_persist_failed", observability.F("error", err.Error()))
	}
}
