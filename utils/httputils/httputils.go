// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

// Package httputils provides round trippers shared by the HTTP clients.
package httputils

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"
)

// TraceRoundTripper writes a dump of every exchange to Writer. A nil Writer
// disables tracing.
type TraceRoundTripper struct {
	Transport http.RoundTripper
	Writer    io.Writer
	DumpBody  bool
}

// abbreviate prefixes the dump lines and trims the long ones.
func abbreviate(lines []string, prefix rune) []string {
	const maxLines, maxChars = 256, 512

	if len(lines) > maxLines {
		lines = append(lines[:maxLines], "…")
	}

	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(line), "authorization:") {
			line = "Authorization: <redacted>"
		}

		if len(line) > maxChars {
			line = line[:maxChars] + "…"
		}

		lines[i] = fmt.Sprintf("%c %s", prefix, line)
	}

	return lines
}

func (t *TraceRoundTripper) write(lines []string) error {
	_, err := fmt.Fprint(t.Writer, strings.Join(append(lines, ""), "\n"))

	return err
}

// RoundTrip implements the http.RoundTripper interface.
func (t *TraceRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Writer == nil {
		return t.transport().RoundTrip(req)
	}

	dump, err := httputil.DumpRequestOut(req, t.DumpBody)
	if err != nil {
		return nil, fmt.Errorf("tracing HTTP request: %w", err)
	}

	if err := t.write(abbreviate(strings.Split(string(dump), "\n"), '>')); err != nil {
		return nil, fmt.Errorf("tracing HTTP request: %w", err)
	}

	start := time.Now()

	resp, err := t.transport().RoundTrip(req)
	if err != nil {
		fmt.Fprintf(t.Writer, "< ERROR: [%v] %v\n", time.Since(start), err)

		return nil, err
	}

	dump, err = httputil.DumpResponse(resp, t.DumpBody)
	if err != nil {
		return nil, fmt.Errorf("tracing HTTP response: %w", err)
	}

	lines := append([]string{fmt.Sprintf("RESPONSE: [%v]", time.Since(start))}, strings.Split(string(dump), "\n")...)
	if err := t.write(abbreviate(lines, '<')); err != nil {
		return nil, fmt.Errorf("tracing HTTP response: %w", err)
	}

	return resp, nil
}

func (t *TraceRoundTripper) transport() http.RoundTripper {
	if t.Transport == nil {
		return http.DefaultTransport
	}

	return t.Transport
}

// HeaderRoundTripper sets default headers on every request. Headers already
// present on the request win.
type HeaderRoundTripper struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

// RoundTrip implements the http.RoundTripper interface.
func (t *HeaderRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}

	transport := t.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return transport.RoundTrip(req)
}

// ClientOptions configures NewClient.
type ClientOptions struct {
	// Timeout bounds a whole exchange. Zero means no timeout.
	Timeout time.Duration
	// UserAgent is sent unless the request sets its own.
	UserAgent string
	// Trace receives request and response dumps when non nil.
	Trace io.Writer
	// TraceBody includes bodies in the dumps.
	TraceBody bool
	// Transport is the innermost transport, http.DefaultTransport when nil.
	Transport http.RoundTripper
}

// NewClient builds an http.Client with the header and trace round trippers
// chained in front of the transport.
func NewClient(opts ClientOptions) *http.Client {
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "waterpoint/unknown"
	}

	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &HeaderRoundTripper{
			Headers: map[string]string{
				"User-Agent": userAgent,
				"Accept":     "application/json",
			},
			Transport: &TraceRoundTripper{
				Transport: opts.Transport,
				Writer:    opts.Trace,
				DumpBody:  opts.TraceBody,
			},
		},
	}
}
