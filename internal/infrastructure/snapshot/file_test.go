package snapshot

import (
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := s.Get("missing"); ok {
		t.Fatalf("expected missing key")
	}
	if err := s.Set("k", `{"a":1}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok := s.Get("k")
	if !ok || got != `{"a":1}` {
		t.Fatalf("unexpected value: %q ok=%v", got, ok)
	}
}

func TestFileStoreOverwrite(t *testing.T) {
	s, _ := NewFileStore(t.TempDir())
	_ = s.Set("k", "one")
	_ = s.Set("k", "two")
	got, _ := s.Get("k")
	if got != "two" {
		t.Fatalf("expected two, got %q", got)
	}
}

func TestFileStoreRemove(t *testing.T) {
	s, _ := NewFileStore(t.TempDir())
	_ = s.Set("k", "v")
	if err := s.Remove("k"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := s.Get("k"); ok {
		t.Fatalf("expected key gone")
	}
	if err := s.Remove("k"); err != nil {
		t.Fatalf("remove of missing key should be a no-op, got %v", err)
	}
}
