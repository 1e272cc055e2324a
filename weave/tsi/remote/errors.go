/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/wandb/weave-sub006/weave/tsi"
)

// Error is a non-2xx response from the trace server.
type Error struct {
	StatusCode int
	Message    string
	retryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("trace server: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// Unwrap maps 404 responses onto tsi.ErrNotFound.
func (e *Error) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return tsi.ErrNotFound
	}
	return nil
}

// RetryAfter implements retry.Delayer.
func (e *Error) RetryAfter() time.Duration {
	return e.retryAfter
}

// errorEnvelope is the server's error body.
type errorEnvelope struct {
	Detail any `json:"detail"`
}

func parseErrorResponse(resp *http.Response, body []byte) *Error {
	apiErr := &Error{StatusCode: resp.StatusCode, Message: string(body)}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Detail != nil {
		if s, ok := envelope.Detail.(string); ok {
			apiErr.Message = s
		} else if b, err := json.Marshal(envelope.Detail); err == nil {
			apiErr.Message = string(b)
		}
	}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		apiErr.retryAfter = time.Duration(secs) * time.Second
	}
	return apiErr
}

// isRetryable reports whether a failed request may succeed if sent again:
// throttling, server errors and transport failures other than cancellation.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	var transportErr *transportError
	return errors.As(err, &transportErr)
}

// transportError marks failures to get any response at all.
type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }
