package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// LocationOption is one approved taxonomy entry, ready for a picker.
type LocationOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// locationCache holds the process-wide location options. The slot stays nil
// until the first successful fetch; pending marks an in-flight request so
// concurrent callers coalesce onto a single fetch instead of double-fetching.
type locationCache struct {
	mu      sync.Mutex
	options []LocationOption
	pending chan struct{}
}

// locationsResponse is the external taxonomy payload.
type locationsResponse struct {
	Result []struct {
		Name           string `json:"name"`
		Title          string `json:"title"`
		ApprovalStatus string `json:"approval_status"`
	} `json:"result"`
}

// LocationOptions returns the approved location taxonomy, fetched at most
// once per process. A failed fetch leaves the cache empty so a later call
// retries.
func (c *Client) LocationOptions(ctx context.Context) ([]LocationOption, error) {
	cache := &c.locations

	cache.mu.Lock()
	for {
		if cache.options != nil {
			options := cache.options
			cache.mu.Unlock()
			return options, nil
		}
		if cache.pending == nil {
			break
		}
		// Another caller is already fetching; wait for it to settle.
		pending := cache.pending
		cache.mu.Unlock()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-pending:
		}
		cache.mu.Lock()
	}
	pending := make(chan struct{})
	cache.pending = pending
	cache.mu.Unlock()

	options, err := c.fetchLocationOptions(ctx)

	cache.mu.Lock()
	if err == nil {
		cache.options = options
	}
	cache.pending = nil
	close(pending)
	cache.mu.Unlock()

	return options, err
}

// fetchLocationOptions fetches the taxonomy and keeps only approved entries.
// The endpoint is public; no bearer token is attached.
func (c *Client) fetchLocationOptions(ctx context.Context) ([]LocationOption, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.locationsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build taxonomy request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: c.locationsURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: data}
	}

	var body locationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode taxonomy response: %w", err)
	}

	options := make([]LocationOption, 0, len(body.Result))
	for _, entry := range body.Result {
		if entry.ApprovalStatus != "approved" {
			continue
		}
		options = append(options, LocationOption{Value: entry.Name, Label: entry.Title})
	}
	return options, nil
}
