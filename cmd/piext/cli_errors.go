// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/jllopis/pi-extensions/pkg/errors"
)

// CLIError wraps a typed error with a hint for the user.
type CLIError struct {
	Err  *errors.Error
	Hint string
}

// NewCLIError creates a new CLI error.
func NewCLIError(te *errors.Error, hint string) *CLIError {
	return &CLIError{Err: te, Hint: hint}
}

// Error returns the formatted error message with hints.
func (e *CLIError) Error() string {
	if e.Err == nil {
		return "unknown error"
	}
	msg := e.Err.Error()
	if e.Hint != "" {
		msg += "\n  Hint: " + e.Hint
	}
	return msg
}

// Unwrap exposes the typed error to errors.As.
func (e *CLIError) Unwrap() error {
	if e.Err == nil {
		return nil
	}
	return e.Err
}

// NewInvalidArgumentError creates an invalid argument error with CLI hints.
func NewInvalidArgumentError(arg, reason string) *CLIError {
	te := errors.New(errors.CodeInvalidInput, "invalid argument: "+reason, nil).
		WithContext("argument", arg)
	return NewCLIError(te, "run 'piext help' for usage information")
}

// NewConfigError creates a configuration error with CLI hints.
func NewConfigError(err error, configPath string) *CLIError {
	te := errors.New(errors.CodeInvalidInput, "configuration error", err).
		WithContext("config_path", configPath)
	hint := "check your configuration values and PIEXT_* environment"
	if configPath != "" {
		hint = fmt.Sprintf("check %s for syntax errors", configPath)
	}
	return NewCLIError(te, hint)
}

// NewNotFoundError creates a not found error with CLI hints.
func NewNotFoundError(resource, name string) *CLIError {
	te := errors.New(errors.CodeNotFound, fmt.Sprintf("%s '%s' not found", resource, name), nil).
		WithContext("resource", resource).
		WithContext("name", name)
	return NewCLIError(te, fmt.Sprintf("check that the %s is enabled in extensions.enabled", resource))
}

// WrapConnectionError wraps an MCP connection failure with CLI hints.
func WrapConnectionError(err error, addr string) *CLIError {
	te := errors.New(errors.CodeInternal, "connection failed", err).
		WithContext("address", addr).
		WithRecoverable(true)
	return NewCLIError(te, fmt.Sprintf("check that 'piext mcp serve --http' is running at %s", addr))
}

// printError writes err to w, as a JSON object when asJSON is set.
func printError(w io.Writer, err error, asJSON bool) {
	code := errors.CodeOf(err)
	message := err.Error()
	var hint string
	var ce *CLIError
	if stderrors.As(err, &ce) {
		hint = ce.Hint
	}
	if te, ok := errors.As(err); ok {
		message = te.Message
		if te.Err != nil {
			message += ": " + te.Err.Error()
		}
	}

	if asJSON {
		payload := map[string]any{"code": code, "message": message}
		if hint != "" {
			payload["hint"] = hint
		}
		data, _ := json.Marshal(map[string]any{"error": payload})
		fmt.Fprintln(w, string(data))
		return
	}

	fmt.Fprintf(w, "Error [%s]: %s\n", code, message)
	if hint != "" {
		fmt.Fprintf(w, "  Hint: %s\n", hint)
	}
}
