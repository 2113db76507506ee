package stock

import (
	"context"
	"testing"
	"time"

	domain "github.com/voltshop/stocksync/internal/domain/stock"
)

func TestReserveSeedsFromFallback(t *testing.T) {
	f := newFixture(0, time.Hour) // deferred sync far away
	defer f.accountant.Close()

	var notifications []domain.Adjustment
	unsub := f.bus.Subscribe(func(productID string, quantity int) {
		notifications = append(notifications, domain.Adjustment{ProductID: productID, Quantity: quantity})
	})
	defer unsub()

	adjustments := f.accountant.Reserve(context.Background(), []domain.LineItem{
		{ProductID: "P1", Quantity: 3, FallbackQuantity: 10},
	})

	if len(adjustments) != 1 || adjustments[0].Quantity != 7 {
		t.Fatalf("unexpected adjustments: %+v", adjustments)
	}
	if cached, ok := f.cache.Get("P1"); !ok || cached != 7 {
		t.Fatalf("expected cached 7, got %d ok=%v", cached, ok)
	}
	if len(notifications) != 1 || notifications[0].ProductID != "P1" || notifications[0].Quantity != 7 {
		t.Fatalf("expected exactly one (P1, 7) notification, got %+v", notifications)
	}
}

func TestReservePrefersCacheOverFallback(t *testing.T) {
	f := newFixture(0, time.Hour)
	defer f.accountant.Close()
	f.cache.Set("P1", 5)

	adjustments := f.accountant.Reserve(context.Background(), []domain.LineItem{
		{ProductID: "P1", Quantity: 2, FallbackQuantity: 100},
	})
	if adjustments[0].Quantity != 3 {
		t.Fatalf("expected 3 from cached 5, got %d", adjustments[0].Quantity)
	}
}

func TestReserveClampsAtZero(t *testing.T) {
	f := newFixture(0, time.Hour)
	defer f.accountant.Close()
	f.cache.Set("P2", 2)

	adjustments := f.accountant.Reserve(context.Background(), []domain.LineItem{
		{ProductID: "P2", Quantity: 5},
	})
	if adjustments[0].Quantity != 0 {
		t.Fatalf("expected clamp to 0, got %d", adjustments[0].Quantity)
	}
	if cached, _ := f.cache.Get("P2"); cached != 0 {
		t.Fatalf("expected cached 0, got %d", cached)
	}
}

func TestReserveRepeatedClampNeverGoesNegative(t *testing.T) {
	f := newFixture(0, time.Hour)
	defer f.accountant.Close()
	f.cache.Set("P1", 3)

	for i := 0; i < 5; i++ {
		f.accountant.Reserve(context.Background(), []domain.LineItem{
			{ProductID: "P1", Quantity: 7},
		})
		if cached, _ := f.cache.Get("P1"); cached < 0 {
			t.Fatalf("quantity went negative: %d", cached)
		}
	}
	if cached, _ := f.cache.Get("P1"); cached != 0 {
		t.Fatalf("expected 0, got %d", cached)
	}
}

func TestReserveAppliesLineItemsInOrder(t *testing.T) {
	f := newFixture(0, time.Hour)
	defer f.accountant.Close()
	f.cache.Set("P1", 10)

	adjustments := f.accountant.Reserve(context.Background(), []domain.LineItem{
		{ProductID: "P1", Quantity: 4},
		{ProductID: "P1", Quantity: 4},
	})
	if adjustments[0].Quantity != 6 || adjustments[1].Quantity != 2 {
		t.Fatalf("expected cascading 6 then 2, got %+v", adjustments)
	}
}

func TestReserveSchedulesDeferredSyncPerDistinctProduct(t *testing.T) {
	f := newFixture(0, 10*time.Millisecond)
	defer f.accountant.Close()
	f.fetcher.set("P1", 50)
	f.fetcher.set("P2", 60)

	f.accountant.Reserve(context.Background(), []domain.LineItem{
		{ProductID: "P1", Quantity: 1, FallbackQuantity: 5},
		{ProductID: "P1", Quantity: 1, FallbackQuantity: 5},
		{ProductID: "P2", Quantity: 1, FallbackQuantity: 5},
	})

	// Wait for the reconciled values to land, not just the fetch count, so
	// the deferred cache writes are fully observed.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		p1, _ := f.cache.Get("P1")
		p2, _ := f.cache.Get("P2")
		if p1 == 50 && p2 == 60 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if cached, _ := f.cache.Get("P1"); cached != 50 {
		t.Fatalf("expected reconciled 50, got %d", cached)
	}
	if got := f.fetcher.callCount(); got != 2 {
		t.Fatalf("expected 2 deferred syncs (distinct products), got %d", got)
	}
}

func TestCloseCancelsPendingSyncs(t *testing.T) {
	f := newFixture(0, 20*time.Millisecond)
	f.fetcher.set("P1", 50)

	f.accountant.Reserve(context.Background(), []domain.LineItem{
		{ProductID: "P1", Quantity: 1, FallbackQuantity: 5},
	})
	f.accountant.Close()

	time.Sleep(60 * time.Millisecond)
	if got := f.fetcher.callCount(); got != 0 {
		t.Fatalf("expected no syncs after close, got %d", got)
	}
	if cached, _ := f.cache.Get("P1"); cached != 4 {
		t.Fatalf("expected optimistic 4 to remain, got %d", cached)
	}
}
