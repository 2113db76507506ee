package stock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSyncOneOverwritesCacheAndNotifies(t *testing.T) {
	f := newFixture(0, 0)
	f.fetcher.set("p1", 8)
	f.cache.Set("p1", 3)

	notified := 0
	unsub := f.bus.Subscribe(func(productID string, quantity int) {
		notified++
		if productID != "p1" || quantity != 8 {
			t.Errorf("unexpected notification (%s, %d)", productID, quantity)
		}
	})
	defer unsub()

	got, err := f.reconciler.SyncOne(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 8 {
		t.Fatalf("expected 8, got %d", got)
	}
	if cached, _ := f.cache.Get("p1"); cached != 8 {
		t.Fatalf("expected cache overwritten to 8, got %d", cached)
	}
	if notified != 1 {
		t.Fatalf("expected 1 notification, got %d", notified)
	}
}

func TestSyncOneNotifiesEvenWhenValueUnchanged(t *testing.T) {
	f := newFixture(0, 0)
	f.fetcher.set("p1", 5)
	f.cache.Set("p1", 5)

	notified := 0
	unsub := f.bus.Subscribe(func(string, int) { notified++ })
	defer unsub()

	if _, err := f.reconciler.SyncOne(context.Background(), "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notified != 1 {
		t.Fatalf("expected notification for unchanged value, got %d", notified)
	}
}

func TestSyncOneFailurePreservesLastKnown(t *testing.T) {
	f := newFixture(0, 0)
	f.cache.Set("p3", 4)
	f.fetcher.fail(errors.New("network down"))

	notified := 0
	unsub := f.bus.Subscribe(func(string, int) { notified++ })
	defer unsub()

	_, err := f.reconciler.SyncOne(context.Background(), "p3")
	if err == nil {
		t.Fatalf("expected error")
	}
	if cached, ok := f.cache.Get("p3"); !ok || cached != 4 {
		t.Fatalf("expected last known 4 preserved, got %d ok=%v", cached, ok)
	}
	if notified != 0 {
		t.Fatalf("expected no notification on failure, got %d", notified)
	}
}

func TestSyncOneClampsNegativeServerValue(t *testing.T) {
	f := newFixture(0, 0)
	f.fetcher.set("p1", -2)

	got, err := f.reconciler.SyncOne(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected clamp to 0, got %d", got)
	}
}

func TestSyncAllCountsSuccesses(t *testing.T) {
	f := newFixture(0, 0)
	f.cache.Set("p1", 1)
	f.cache.Set("p2", 1)
	f.fetcher.set("p1", 10)
	// p2 is unknown to the catalog and fails.

	if synced := f.reconciler.SyncAll(context.Background()); synced != 1 {
		t.Fatalf("expected 1 synced, got %d", synced)
	}
	if cached, _ := f.cache.Get("p1"); cached != 10 {
		t.Fatalf("expected p1 refreshed to 10, got %d", cached)
	}
	if cached, _ := f.cache.Get("p2"); cached != 1 {
		t.Fatalf("expected p2 untouched, got %d", cached)
	}
}

func TestWatchSyncsImmediatelyAndStops(t *testing.T) {
	f := newFixture(10*time.Millisecond, 0)
	f.fetcher.set("p1", 6)

	stop := f.reconciler.Watch(context.Background(), "p1")

	deadline := time.Now().Add(time.Second)
	for f.fetcher.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if f.fetcher.callCount() == 0 {
		t.Fatalf("expected immediate sync on watch start")
	}

	stop()
	time.Sleep(30 * time.Millisecond)
	settled := f.fetcher.callCount()
	time.Sleep(50 * time.Millisecond)
	if f.fetcher.callCount() != settled {
		t.Fatalf("expected no syncs after stop, got %d then %d", settled, f.fetcher.callCount())
	}
}
