// Package catalog implements the remote product-fetch capability against
// the storefront's catalog service.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/voltshop/stocksync/internal/domain/stock"
)

// Client fetches product records over HTTP. Any failure, including a 404,
// surfaces as an error: callers must treat it as "could not confirm stock",
// never as "stock is zero".
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) FetchProduct(ctx context.Context, productID string) (*stock.Product, error) {
	url := fmt.Sprintf("%s/products/%s", c.baseURL, productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch product %s: %w", productID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("catalog: product %s: %w", productID, stock.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("catalog: product %s: unexpected status %d", productID, resp.StatusCode)
	}

	var p stock.Product
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("catalog: decode product %s: %w", productID, err)
	}
	if p.ID == "" {
		p.ID = productID
	}
	return &p, nil
}
