package stock

import (
	"errors"
	"testing"
	"time"
)

func TestNewEntryRejectsNegativeQuantity(t *testing.T) {
	if _, err := NewEntry("p1", -1); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestDecrementClampsAtZero(t *testing.T) {
	e, err := NewEntry("p1", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e.Decrement(5)
	if e.Quantity != 0 {
		t.Fatalf("expected 0, got %d", e.Quantity)
	}
	e.Decrement(1)
	if e.Quantity != 0 {
		t.Fatalf("expected 0 after further decrement, got %d", e.Quantity)
	}
}

func TestDecrementUpdatesObservedAt(t *testing.T) {
	e, _ := NewEntry("p1", 10)
	before := e.ObservedAt
	time.Sleep(time.Millisecond)
	e.Decrement(3)
	if e.Quantity != 7 {
		t.Fatalf("expected 7, got %d", e.Quantity)
	}
	if !e.ObservedAt.After(before) {
		t.Fatalf("expected ObservedAt to advance")
	}
}

func TestStaleAt(t *testing.T) {
	e, _ := NewEntry("p1", 1)
	now := e.ObservedAt
	if e.StaleAt(now.Add(30*time.Minute), time.Hour) {
		t.Fatalf("entry within threshold reported stale")
	}
	if !e.StaleAt(now.Add(2*time.Hour), time.Hour) {
		t.Fatalf("entry beyond threshold not reported stale")
	}
}
