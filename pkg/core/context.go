// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package core provides session context and health primitives shared by the
// extension host and the extensions it loads.
package core

import (
	"context"

	"github.com/google/uuid"
)

type sessionIDKey struct{}
type toolCallIDKey struct{}

// WithSessionID attaches a session id to the context.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionID returns the session id if present.
func SessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey{}).(string)
	return id, ok && id != ""
}

// EnsureSessionID ensures a session id exists in the context.
func EnsureSessionID(ctx context.Context) (context.Context, string) {
	if id, ok := SessionID(ctx); ok {
		return ctx, id
	}
	id := NewSessionID()
	return WithSessionID(ctx, id), id
}

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return "session-" + uuid.NewString()
}

// WithToolCallID attaches a tool call id to the context.
func WithToolCallID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, toolCallIDKey{}, id)
}

// ToolCallID returns the tool call id if present.
func ToolCallID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(toolCallIDKey{}).(string)
	return id, ok && id != ""
}

// NewToolCallID returns a fresh tool call identifier.
func NewToolCallID() string {
	return "call-" + uuid.NewString()
}
