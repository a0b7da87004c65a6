// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package testing

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jllopis/pi-extensions/pkg/extension"
	"github.com/jllopis/pi-extensions/pkg/llm"
)

// ToolCall is a captured StubTool invocation.
type ToolCall struct {
	CallID    string
	Params    json.RawMessage
	SessionID string
}

// StubTool is a scripted tool for host and transport tests. Queued outcomes
// are returned in order; once exhausted the default outcome is returned.
type StubTool struct {
	mu          sync.Mutex
	name        string
	label       string
	description string
	schema      any
	outcomes    []extension.Outcome
	fallback    extension.Outcome
	calls       []ToolCall
	onExecute   func(ctx context.Context, params json.RawMessage) extension.Outcome
}

// NewStubTool creates a stub tool answering "ok" by default.
func NewStubTool(name string) *StubTool {
	return &StubTool{
		name:        name,
		label:       name,
		description: "stub tool " + name,
		fallback:    extension.TextOutcome("ok", nil),
	}
}

// WithSchema sets the parameters schema.
func (s *StubTool) WithSchema(schema any) *StubTool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schema = schema
	return s
}

// AddOutcome queues an outcome.
func (s *StubTool) AddOutcome(outcome extension.Outcome) *StubTool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, outcome)
	return s
}

// WithDefaultOutcome sets the outcome returned when the queue is empty.
func (s *StubTool) WithDefaultOutcome(outcome extension.Outcome) *StubTool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = outcome
	return s
}

// OnExecute replaces scripted outcomes with a custom function.
func (s *StubTool) OnExecute(fn func(ctx context.Context, params json.RawMessage) extension.Outcome) *StubTool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExecute = fn
	return s
}

func (s *StubTool) Name() string  { return s.name }
func (s *StubTool) Label() string { return s.label }

func (s *StubTool) Definition() llm.Tool {
	return llm.NewFunctionTool(s.name, s.description, s.schema)
}

// Execute records the call and returns the next scripted outcome.
func (s *StubTool) Execute(ctx context.Context, callID string, params json.RawMessage, ec *extension.Context) extension.Outcome {
	s.mu.Lock()
	call := ToolCall{CallID: callID, Params: append(json.RawMessage(nil), params...)}
	if ec != nil {
		call.SessionID = ec.SessionID
	}
	s.calls = append(s.calls, call)
	fn := s.onExecute
	var out extension.Outcome
	if len(s.outcomes) > 0 {
		out = s.outcomes[0]
		s.outcomes = s.outcomes[1:]
	} else {
		out = s.fallback
	}
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, params)
	}
	return out
}

// Calls returns the captured invocations.
func (s *StubTool) Calls() []ToolCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ToolCall(nil), s.calls...)
}

// CallCount returns the number of invocations.
func (s *StubTool) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
