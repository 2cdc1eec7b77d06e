// Package api is the typed client for the remote export service.
//
// Every call resolves the bearer token at request time, so externally
// refreshed credentials are picked up without restarting. Errors follow a
// small taxonomy: TransportError (no response), HTTPError (failure status),
// ValidationError (structured 4xx on create/update), ErrRegionNotFound.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/osm-exports/exportctl/internal/auth"
	"github.com/osm-exports/exportctl/internal/logging"
	"github.com/osm-exports/exportctl/internal/models"
)

const (
	// DefaultPageSize matches the listing page size used by the service UI.
	DefaultPageSize = 5

	// DefaultLocationsURL is the external taxonomy endpoint for location
	// options.
	DefaultLocationsURL = "https://data.humdata.org/api/3/action/group_list?all_fields=true"

	regionsPath = "/api/hdx_export_regions"
	runsPath    = "/api/runs"

	contentType = "application/json; version=1.0"
)

// Client issues authenticated requests against the export service.
type Client struct {
	baseURL      string
	locationsURL string
	pageSize     int
	httpClient   *http.Client
	tokens       auth.TokenProvider
	logger       zerolog.Logger

	locations locationCache
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPageSize overrides the listing page size.
func WithPageSize(size int) Option {
	return func(c *Client) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// WithLocationsURL overrides the taxonomy endpoint.
func WithLocationsURL(u string) Option {
	return func(c *Client) { c.locationsURL = u }
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, tokens auth.TokenProvider, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		locationsURL: DefaultLocationsURL,
		pageSize:     DefaultPageSize,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		tokens:       tokens,
		logger:       logging.Component("export-api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Offset computes the listing offset for a 1-based page. Never negative.
func Offset(page, pageSize int) int {
	offset := (page - 1) * pageSize
	if offset < 0 {
		return 0
	}
	return offset
}

// RegionPage is one page of listed regions.
type RegionPage struct {
	Count   int                    `json:"count"`
	Results []*models.ExportRegion `json:"results"`
}

// ListRegions fetches one page of regions matching the filters.
func (c *Client) ListRegions(ctx context.Context, filters map[string]string, page int) (*RegionPage, error) {
	query := url.Values{}
	for key, value := range filters {
		query.Set(key, value)
	}
	query.Set("limit", fmt.Sprintf("%d", c.pageSize))
	query.Set("offset", fmt.Sprintf("%d", Offset(page, c.pageSize)))

	var out RegionPage
	if err := c.do(ctx, http.MethodGet, regionsPath, query, nil, &out); err != nil {
		return nil, err
	}
	for _, region := range out.Results {
		region.Normalize()
	}
	return &out, nil
}

// GetRegion fetches a single region by id.
func (c *Client) GetRegion(ctx context.Context, id int64) (*models.ExportRegion, error) {
	var out models.ExportRegion
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/%d", regionsPath, id), nil, nil, &out)
	if err != nil {
		if StatusCode(err) == http.StatusNotFound {
			return nil, ErrRegionNotFound
		}
		return nil, err
	}
	out.Normalize()
	return &out, nil
}

// CreateRegion submits a new region. A structured 4xx body is surfaced as a
// ValidationError.
func (c *Client) CreateRegion(ctx context.Context, payload *models.RegionPayload) (*models.ExportRegion, error) {
	var out models.ExportRegion
	if err := c.do(ctx, http.MethodPost, regionsPath, nil, payload, &out); err != nil {
		return nil, upgradeValidation(err)
	}
	out.Normalize()
	return &out, nil
}

// UpdateRegion updates an existing region. Same error shape as CreateRegion.
func (c *Client) UpdateRegion(ctx context.Context, id int64, payload *models.RegionPayload) (*models.ExportRegion, error) {
	var out models.ExportRegion
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("%s/%d", regionsPath, id), nil, payload, &out)
	if err != nil {
		return nil, upgradeValidation(err)
	}
	out.Normalize()
	return &out, nil
}

// DeleteRegion removes a region. Navigation away is the caller's concern.
func (c *Client) DeleteRegion(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", regionsPath, id), nil, nil, nil)
}

// TriggerRun fires a run for the job. Success returns no run details; the
// caller re-fetches the region and run list to observe the new run.
func (c *Client) TriggerRun(ctx context.Context, jobUID string) error {
	query := url.Values{"job_uid": {jobUID}}
	return c.do(ctx, http.MethodPost, runsPath, query, nil, nil)
}

// ListRuns fetches the run history for a job, most recent first.
func (c *Client) ListRuns(ctx context.Context, jobUID string) ([]*models.Run, error) {
	query := url.Values{"job_uid": {jobUID}}
	var out []*models.Run
	if err := c.do(ctx, http.MethodGet, runsPath, query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// upgradeValidation converts a structured 4xx HTTPError into a
// ValidationError. Other errors pass through unchanged.
func upgradeValidation(err error) error {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}
	if httpErr.StatusCode < 400 || httpErr.StatusCode >= 500 {
		return err
	}
	if ve := validationFromBody(httpErr.Body); ve != nil {
		return ve
	}
	return err
}

// do issues one authenticated request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("resolve bearer token: %w", err)
	}

	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{URL: requestURL, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("export service request")

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return &HTTPError{StatusCode: resp.StatusCode, Body: data}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
