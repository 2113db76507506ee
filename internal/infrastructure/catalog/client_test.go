package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/voltshop/stocksync/internal/domain/stock"
)

func TestFetchProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/p1" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"p1","name":"Headphones","stock":12}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	p, err := c.FetchProduct(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != "p1" || p.Stock != 12 {
		t.Fatalf("unexpected product: %+v", p)
	}
}

func TestFetchProductNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.FetchProduct(context.Background(), "missing")
	if !errors.Is(err, stock.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchProductServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.FetchProduct(context.Background(), "p1"); err == nil {
		t.Fatalf("expected error on 500")
	}
}

func TestFetchProductNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused

	c := NewClient(srv.URL, time.Second)
	if _, err := c.FetchProduct(context.Background(), "p1"); err == nil {
		t.Fatalf("expected error on refused connection")
	}
}
