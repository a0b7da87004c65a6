// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package errors provides typed errors for the extensions. Codes double as the
// machine-readable tags returned in tool outcome details.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies extension errors for outcomes, metrics and recovery.
type ErrorCode string

const (
	// CodeMissingAPIKey indicates the provider credential is not configured.
	CodeMissingAPIKey ErrorCode = "missing_api_key"

	// CodeAPIError indicates the provider answered with a non-success status.
	CodeAPIError ErrorCode = "api_error"

	// CodeCancelled indicates the caller cancelled the operation.
	CodeCancelled ErrorCode = "cancelled"

	// CodeFileUnreadable indicates a candidate file exists but cannot be read.
	CodeFileUnreadable ErrorCode = "file_unreadable"

	// CodeInvalidInput indicates tool parameters could not be decoded.
	CodeInvalidInput ErrorCode = "invalid_input"

	// CodeNotFound indicates a tool or command is not registered.
	CodeNotFound ErrorCode = "not_found"

	// CodeConflict indicates a duplicate registration.
	CodeConflict ErrorCode = "conflict"

	// CodeInternal indicates any other failure.
	CodeInternal ErrorCode = "internal_error"
)

// Error is a typed error with context for logging and outcomes.
// It can be unwrapped with errors.As().
type Error struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]any
	Recoverable bool
	StatusCode  int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *Error) MarshalJSON() ([]byte, error) {
	cause := ""
	if e.Err != nil {
		cause = e.Err.Error()
	}
	return json.Marshal(&struct {
		Code        string         `json:"code"`
		Message     string         `json:"message"`
		Err         string         `json:"error,omitempty"`
		Context     map[string]any `json:"context,omitempty"`
		Recoverable bool           `json:"recoverable"`
		StatusCode  int            `json:"status_code"`
	}{
		Code:        string(e.Code),
		Message:     e.Message,
		Err:         cause,
		Context:     e.Context,
		Recoverable: e.Recoverable,
		StatusCode:  e.StatusCode,
	})
}

// New creates a new Error with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *Error {
	return &Error{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]any),
		StatusCode: codeToStatusCode(code),
	}
}

// WithContext adds a key-value pair to the error context.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be retried.
func (e *Error) WithRecoverable(recoverable bool) *Error {
	e.Recoverable = recoverable
	return e
}

// WithStatus overrides the status code, used for upstream HTTP failures.
func (e *Error) WithStatus(status int) *Error {
	e.StatusCode = status
	return e
}

// As returns err as *Error if anything in its chain is one.
func As(err error) (*Error, bool) {
	var te *Error
	if stderrors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// CodeOf returns the code of the first *Error in the chain, or CodeInternal.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if te, ok := As(err); ok {
		return te.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	te, ok := As(err)
	return ok && te.Code == code
}

func codeToStatusCode(code ErrorCode) int {
	switch code {
	case CodeMissingAPIKey:
		return http.StatusUnauthorized
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeCancelled:
		return 499
	case CodeAPIError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
