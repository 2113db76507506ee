// Package notify fans stock-change notifications out to registered
// listeners within one session.
package notify

import (
	"runtime/debug"
	"sync"
	"unsafe"

	"github.com/voltshop/stocksync/internal/domain/stock"
	"github.com/voltshop/stocksync/internal/observability"
)

// Bus delivers stock changes to subscribers synchronously. Registration has
// set semantics: subscribing the same function value twice keeps a single
// registration, and unsubscribing is idempotent. A panicking subscriber
// never prevents the remaining subscribers from being notified.
type Bus struct {
	mu   sync.Mutex
	subs map[uintptr]stock.Listener
	log  observability.Logger
}

func NewBus(logger observability.Logger) *Bus {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Bus{
		subs: make(map[uintptr]stock.Listener),
		log:  logger.With(observability.F("component", "notify_bus")),
	}
}

// listenerKey returns the identity of a func value: the address of the
// funcval it points at. reflect's Value.Pointer would return the code
// pointer, which is shared by every closure built from the same literal;
// the funcval address distinguishes them while staying stable for a given
// value. The subs map keeps the funcval reachable, so a key cannot be
// recycled while its registration is live.
func listenerKey(fn stock.Listener) uintptr {
	return *(*uintptr)(unsafe.Pointer(&fn))
}

// Subscribe registers fn and returns a function that removes it. Function
// values are keyed by identity, so re-subscribing the same value is a no-op
// beyond the first call, while distinct closures built from the same
// function literal register independently.
func (b *Bus) Subscribe(fn stock.Listener) func() {
	if fn == nil {
		return func() {}
	}
	key := listenerKey(fn)

	b.mu.Lock()
	b.subs[key] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, key)
		b.mu.Unlock()
	}
}

// Publish invokes every currently-registered subscriber with the product and
// its new quantity. Iteration runs over a snapshot of the subscriber set, so
// subscribers may unsubscribe themselves or others mid-publish.
func (b *Bus) Publish(productID string, quantity int) {
	b.mu.Lock()
	listeners := make([]stock.Listener, 0, len(b.subs))
	for _, fn := range b.subs {
		listeners = append(listeners, fn)
	}
	b.mu.Unlock()

	for _, fn := range listeners {
		b.invoke(fn, productID, quantity)
	}
}

// Len reports the current number of subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Bus) invoke(fn stock.Listener, productID string, quantity int) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("subscriber_panic",
				observability.F("product_id", productID),
				observability.F("panic", r),
				observability.F("stack", string(debug.Stack())),
			)
		}
	}()
	fn(productID, quantity)
}
