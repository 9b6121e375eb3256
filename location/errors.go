// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotFound is returned when a location does not exist.
	ErrNotFound = errors.New("location not found")
	// ErrInvalid is wrapped by every validation failure.
	ErrInvalid = errors.New("invalid location")
)

// ErrorType classifies failures of the location API.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeRateLimit
	ErrorTypeNotFound
	ErrorTypeInvalidRequest
	ErrorTypeNetworkError
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeInvalidRequest:
		return "invalid_request"
	case ErrorTypeNetworkError:
		return "network"
	default:
		return "unknown"
	}
}

// APIError is a failed exchange with the location API.
type APIError struct {
	Type       ErrorType
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsRateLimitError reports whether err was caused by the API throttling us.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Type == ErrorTypeRateLimit
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

// IsNotFoundError reports whether err means the resource does not exist.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrNotFound) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Type == ErrorTypeNotFound
	}

	return false
}

// IsNetworkError reports whether err is a transport failure or an unavailable
// upstream.
func IsNetworkError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Type == ErrorTypeNetworkError
	}

	return false
}

// ClassifyHTTPStatus turns a non-2xx status code and the response body into an
// APIError.
func ClassifyHTTPStatus(statusCode int, body string) *APIError {
	body = strings.TrimSpace(body)
	if len(body) > 200 {
		body = body[:200]
	}

	e := &APIError{StatusCode: statusCode}

	switch {
	case statusCode == http.StatusTooManyRequests:
		e.Type = ErrorTypeRateLimit
		e.Message = "rate limit reached"
	case statusCode == http.StatusNotFound:
		e.Type = ErrorTypeNotFound
		e.Message = "not found"
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		e.Type = ErrorTypeInvalidRequest
		e.Message = "invalid request"
	case statusCode >= 500:
		e.Type = ErrorTypeNetworkError
		e.Message = fmt.Sprintf("service unavailable (status %d)", statusCode)
	default:
		e.Type = ErrorTypeUnknown
		e.Message = fmt.Sprintf("HTTP error %d", statusCode)
	}

	if body != "" {
		e.Message += ": " + body
	}

	return e
}
