// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("connection reset")
	te := New(CodeInternal, "search request failed", cause)

	if te.Code != CodeInternal {
		t.Errorf("expected CodeInternal, got %v", te.Code)
	}
	if te.Message != "search request failed" {
		t.Errorf("unexpected message %q", te.Message)
	}
	if !errors.Is(te, cause) {
		t.Errorf("expected errors.Is to work with wrapped error")
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "with cause",
			err:      New(CodeCancelled, "search cancelled", errors.New("context canceled")),
			expected: "[cancelled] search cancelled: context canceled",
		},
		{
			name:     "without cause",
			err:      New(CodeMissingAPIKey, "BRAVE_API_KEY not set", nil),
			expected: "[missing_api_key] BRAVE_API_KEY not set",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{CodeMissingAPIKey, 401},
		{CodeInvalidInput, 400},
		{CodeNotFound, 404},
		{CodeConflict, 409},
		{CodeCancelled, 499},
		{CodeAPIError, 502},
		{CodeInternal, 500},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := New(tt.code, "x", nil).StatusCode; got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
	if got := New(CodeAPIError, "x", nil).WithStatus(429).StatusCode; got != 429 {
		t.Errorf("expected WithStatus override, got %d", got)
	}
}

func TestCodeOfWrapped(t *testing.T) {
	base := New(CodeAPIError, "upstream failure", nil)
	wrapped := fmt.Errorf("search: %w", base)

	if got := CodeOf(wrapped); got != CodeAPIError {
		t.Fatalf("expected api_error, got %s", got)
	}
	if !Is(wrapped, CodeAPIError) {
		t.Fatalf("expected Is to match wrapped code")
	}
	if got := CodeOf(errors.New("plain")); got != CodeInternal {
		t.Fatalf("expected plain errors to map to internal, got %s", got)
	}
	if got := CodeOf(nil); got != "" {
		t.Fatalf("expected empty code for nil, got %s", got)
	}
}

func TestMarshalJSON(t *testing.T) {
	te := New(CodeAPIError, "Brave Search API error", errors.New("boom")).
		WithStatus(503).
		WithContext("body", "unavailable")

	raw, err := json.Marshal(te)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["code"] != "api_error" {
		t.Errorf("unexpected code %v", decoded["code"])
	}
	if decoded["status_code"] != float64(503) {
		t.Errorf("unexpected status %v", decoded["status_code"])
	}
	if decoded["error"] != "boom" {
		t.Errorf("unexpected cause %v", decoded["error"])
	}
}
