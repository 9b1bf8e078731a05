// Package airtable provides a client for the Airtable records API scoped
// to a single leads table.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the Airtable operations used by the lead source and the
// merge committer.
type Client interface {
	// ListRecords pages through the table and returns every record, up to limit.
	ListRecords(ctx context.Context, limit int) ([]Record, error)
	// GetRecord fetches a single record by id.
	GetRecord(ctx context.Context, id string) (*Record, error)
	// UpdateRecord patches a record's fields.
	UpdateRecord(ctx context.Context, id string, fields map[string]any) error
	// DeleteRecord removes a record.
	DeleteRecord(ctx context.Context, id string) error
}

// Record is an Airtable record: opaque id plus the nested fields map.
type Record struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime"`
	Fields      map[string]any `json:"fields"`
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

// Option configures the Airtable client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithRateLimit sets a per-second request budget. Airtable enforces 5 rps
// per base; exceeding it costs a 30s lockout, so the default stays under.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.hc = hc
	}
}

type httpClient struct {
	baseURL string
	apiKey  string
	baseID  string
	tableID string
	hc      *http.Client
	limiter *rate.Limiter
}

// New creates an Airtable client for one base and table.
func New(apiKey, baseID, tableID string, opts ...Option) Client {
	c := &httpClient{
		baseURL: "https://api.airtable.com/v0",
		apiKey:  apiKey,
		baseID:  baseID,
		tableID: tableID,
		hc:      &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(4, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) tableURL() string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.baseID, c.tableID)
}

func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *httpClient) do(ctx context.Context, method, u string, body any, out any) error {
	if err := c.wait(ctx); err != nil {
		return eris.Wrap(err, "airtable: rate limit")
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return eris.Wrap(err, "airtable: marshal request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return eris.Wrap(err, "airtable: build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return eris.Wrapf(err, "airtable: %s %s", method, u)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return eris.Errorf("airtable: %s returned %d: %s", method, resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return eris.Wrap(err, "airtable: decode response")
	}
	return nil
}

func (c *httpClient) ListRecords(ctx context.Context, limit int) ([]Record, error) {
	var records []Record
	offset := ""

	for {
		params := url.Values{}
		params.Set("pageSize", "100")
		if offset != "" {
			params.Set("offset", offset)
		}

		var page listResponse
		if err := c.do(ctx, http.MethodGet, c.tableURL()+"?"+params.Encode(), nil, &page); err != nil {
			return nil, err
		}
		records = append(records, page.Records...)

		if limit > 0 && len(records) >= limit {
			return records[:limit], nil
		}
		if page.Offset == "" {
			return records, nil
		}
		offset = page.Offset
	}
}

func (c *httpClient) GetRecord(ctx context.Context, id string) (*Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodGet, c.tableURL()+"/"+id, nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *httpClient) UpdateRecord(ctx context.Context, id string, fields map[string]any) error {
	payload := map[string]any{"fields": fields}
	return c.do(ctx, http.MethodPatch, c.tableURL()+"/"+id, payload, nil)
}

func (c *httpClient) DeleteRecord(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.tableURL()+"/"+id, nil, nil)
}
