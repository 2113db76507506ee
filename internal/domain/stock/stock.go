package stock

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("stock: product not found")
	ErrInvalidQuantity   = errors.New("stock: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("stock: insufficient stock")
	ErrUnavailable       = errors.New("stock: stock could not be confirmed")
)

// Entry is the last known inventory count for one product as observed by
// this session. ObservedAt records when the value was learned, from either
// an authoritative fetch or a local optimistic decrement.
type Entry struct {
	ProductID  string    `json:"product_id"`
	Quantity   int       `json:"quantity"`
	ObservedAt time.Time `json:"observed_at"`
}

func NewEntry(productID string, quantity int) (*Entry, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	return &Entry{
		ProductID:  productID,
		Quantity:   quantity,
		ObservedAt: time.Now().UTC(),
	}, nil
}

// Decrement reduces the believed quantity, clamping at zero. Over-ordering
// is not an error here: the server is the inventory authority and validates
// availability independently; the clamp only keeps the displayed count sane.
func (e *Entry) Decrement(quantity int) {
	if quantity >= e.Quantity {
		e.Quantity = 0
	} else {
		e.Quantity -= quantity
	}
	e.touch()
}

// StaleAt reports whether the entry is older than maxAge at the given time.
func (e *Entry) StaleAt(now time.Time, maxAge time.Duration) bool {
	return now.Sub(e.ObservedAt) > maxAge
}

func (e *Entry) touch() {
	e.ObservedAt = time.Now().UTC()
}

// LineItem is one product line of an order being placed. FallbackQuantity is
// the stock carried on the product record the caller already has on screen,
// used to seed the cache when no entry exists yet for the product.
type LineItem struct {
	ProductID        string
	Quantity         int
	FallbackQuantity int
}

// Adjustment is the post-reservation believed stock for one product.
// Reservations return adjustments instead of mutating caller-held product
// records, so propagation stays in the caller's hands.
type Adjustment struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}
