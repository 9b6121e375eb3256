// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/waterpoint/waterpoint/utils/httputils"
)

// Source supplies the current candidate set.
type Source interface {
	FetchLocations(ctx context.Context) ([]*Location, error)
}

// Sink accepts new locations.
type Sink interface {
	SubmitLocation(ctx context.Context, loc *Location) (*Location, error)
}

// ClientOptions configures the location API client.
type ClientOptions struct {
	// BaseURL is the root of the API, e.g. http://localhost:5000.
	BaseURL string

	// Timeout bounds each exchange. Zero means no timeout.
	Timeout time.Duration

	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string

	// Trace receives a dump of every exchange when non nil
	Trace io.Writer

	// Transport overrides the HTTP transport, mostly for tests
	Transport http.RoundTripper
}

// Client talks to the location API. It issues one request at a time per call
// and never retries.
type Client struct {
	base   *url.URL
	client *http.Client
}

// NewClient creates a client for the API rooted at opts.BaseURL.
func NewClient(opts ClientOptions) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL %q: %w", opts.BaseURL, err)
	}

	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q must be http or https", opts.BaseURL)
	}

	return &Client{
		base: base,
		client: httputils.NewClient(httputils.ClientOptions{
			Timeout:   opts.Timeout,
			UserAgent: opts.UserAgent,
			Trace:     opts.Trace,
			Transport: opts.Transport,
		}),
	}, nil
}

func (c *Client) endpoint() string {
	return c.base.JoinPath("api", "locations").String()
}

// FetchLocations downloads the whole catalog.
func (c *Client) FetchLocations(ctx context.Context) ([]*Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var locs []*Location
	if err := c.do(req, http.StatusOK, &locs); err != nil {
		return nil, fmt.Errorf("fetching locations: %w", err)
	}

	out := locs[:0]
	for _, loc := range locs {
		if loc != nil {
			out = append(out, loc)
		}
	}

	return out, nil
}

// SubmitLocation posts loc and returns the version the API stored.
func (c *Client) SubmitLocation(ctx context.Context, loc *Location) (*Location, error) {
	body, err := json.Marshal(loc)
	if err != nil {
		return nil, fmt.Errorf("encoding location: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	// Backends that answer with an empty body accepted loc as sent.
	stored := *loc
	if err := c.do(req, 0, &stored); err != nil {
		return nil, fmt.Errorf("submitting location: %w", err)
	}

	return &stored, nil
}

// do runs req and decodes a JSON answer into out. A zero want accepts any 2xx
// status. A 2xx answer with an empty body leaves out untouched.
func (c *Client) do(req *http.Request, want int, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return &APIError{Type: ErrorTypeNetworkError, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Type: ErrorTypeNetworkError, StatusCode: resp.StatusCode, Message: "reading response", Err: err}
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if want != 0 {
		ok = resp.StatusCode == want
	}

	if !ok {
		return ClassifyHTTPStatus(resp.StatusCode, string(data))
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
