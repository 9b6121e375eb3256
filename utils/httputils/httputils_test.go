// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package httputils

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRoundTripper captures the last request and answers with a canned response.
type recordingRoundTripper struct {
	lastRequest *http.Request
	body        string
	err         error
}

func (d *recordingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	d.lastRequest = req
	if d.err != nil {
		return nil, d.err
	}

	return &http.Response{
		Status:     "200 OK",
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(d.body)),
		Request:    req,
	}, nil
}

func TestTraceRoundTripper(t *testing.T) {
	var trace bytes.Buffer

	rt := &TraceRoundTripper{
		Transport: &recordingRoundTripper{body: `[{"name":"Fountain"}]`},
		Writer:    &trace,
		DumpBody:  true,
	}

	req, err := http.NewRequest(http.MethodGet, "http://example.com/api/locations", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)

	// The body must still be readable after the dump.
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"Fountain"}]`, string(body))

	got := trace.String()
	assert.Contains(t, got, "> GET /api/locations")
	assert.Contains(t, got, "< RESPONSE: [")
	assert.Contains(t, got, "Fountain")
	assert.Contains(t, got, "Authorization: <redacted>")
	assert.NotContains(t, got, "secret")
}

func TestTraceRoundTripperWithoutWriter(t *testing.T) {
	inner := &recordingRoundTripper{}
	rt := &TraceRoundTripper{Transport: inner}

	req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	require.NoError(t, err)

	_, err = rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Same(t, req, inner.lastRequest)
}

func TestTraceRoundTripperTransportError(t *testing.T) {
	var trace bytes.Buffer

	boom := errors.New("connection refused")
	rt := &TraceRoundTripper{Transport: &recordingRoundTripper{err: boom}, Writer: &trace}

	req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	require.NoError(t, err)

	_, err = rt.RoundTrip(req)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, trace.String(), "< ERROR:")
}

func TestHeaderRoundTripper(t *testing.T) {
	inner := &recordingRoundTripper{}
	rt := &HeaderRoundTripper{
		Transport: inner,
		Headers:   map[string]string{"X-Test-Header": "TestValue", "Accept": "application/json"},
	}

	req, err := http.NewRequest(http.MethodPost, "http://example.org", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/plain")

	_, err = rt.RoundTrip(req)
	require.NoError(t, err)

	require.NotNil(t, inner.lastRequest)
	assert.Equal(t, "TestValue", inner.lastRequest.Header.Get("X-Test-Header"))
	assert.Equal(t, "text/plain", inner.lastRequest.Header.Get("Accept"), "request headers win")
	assert.Empty(t, req.Header.Get("X-Test-Header"), "the caller's request is not mutated")
}

func TestNewClient(t *testing.T) {
	inner := &recordingRoundTripper{}
	client := NewClient(ClientOptions{Timeout: time.Second, UserAgent: "waterpoint/test", Transport: inner})

	assert.Equal(t, time.Second, client.Timeout)

	resp, err := client.Get("http://example.org/health")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "waterpoint/test", inner.lastRequest.Header.Get("User-Agent"))
	assert.Equal(t, "application/json", inner.lastRequest.Header.Get("Accept"))
}
