// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package extension defines the API extensions register against and an
// in-process Host that implements it.
//
// An extension contributes tools, commands and lifecycle hooks:
//
//	host := extension.NewHost()
//	if err := host.Load(websearch.NewExtension(cfg)); err != nil {
//		return err
//	}
//	outcome, err := host.ExecuteTool(ctx, "brave_search", params, ec)
package extension

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jllopis/pi-extensions/pkg/errors"
	"github.com/jllopis/pi-extensions/pkg/llm"
)

// API is the registration surface handed to extensions.
type API interface {
	RegisterTool(tool Tool) error
	RegisterCommand(name string, cmd Command) error
	OnSessionStart(fn SessionStartHandler)
	OnBeforeAgentStart(fn BeforeAgentStartHandler)
}

// Extension is a plugin module loaded by the host.
type Extension interface {
	Name() string
	Register(api API) error
}

// Tool is a callable capability exposed to the agent.
type Tool interface {
	Name() string
	Label() string
	Definition() llm.Tool
	// Execute never fails outward: every failure is described by the Outcome.
	Execute(ctx context.Context, callID string, params json.RawMessage, ec *Context) Outcome
}

// Content is one block of tool output.
type Content struct {
	Type string `json:"type" yaml:"type"`
	Text string `json:"text" yaml:"text"`
}

// Outcome is the result of a tool execution.
type Outcome struct {
	Content []Content `json:"content" yaml:"content"`
	Details any       `json:"details,omitempty" yaml:"details,omitempty"`
	// Code is empty on success and carries the failure classification otherwise.
	Code errors.ErrorCode `json:"-" yaml:"-"`
}

// TextOutcome builds a successful single-text outcome.
func TextOutcome(text string, details any) Outcome {
	return Outcome{
		Content: []Content{{Type: "text", Text: text}},
		Details: details,
	}
}

// FailureOutcome builds a failed single-text outcome.
func FailureOutcome(code errors.ErrorCode, text string, details any) Outcome {
	out := TextOutcome(text, details)
	out.Code = code
	return out
}

// Text concatenates the text blocks of the outcome.
func (o Outcome) Text() string {
	parts := make([]string, 0, len(o.Content))
	for _, c := range o.Content {
		if c.Type == "text" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Failed reports whether the outcome describes a failure.
func (o Outcome) Failed() bool {
	return o.Code != ""
}

// CommandHandler runs a user command with the raw argument string.
type CommandHandler func(ctx context.Context, args string, ec *Context) error

// Command is a user-invocable command.
type Command struct {
	Description string
	Handler     CommandHandler
}

// CommandInfo describes a registered command.
type CommandInfo struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// SessionStartHandler runs once when a session begins.
type SessionStartHandler func(ctx context.Context, ec *Context) error

// BeforeAgentStartEvent is delivered before each agent turn.
type BeforeAgentStartEvent struct {
	Prompt       string
	SystemPrompt string
}

// BeforeAgentStartResult replaces the system prompt when returned non-nil.
type BeforeAgentStartResult struct {
	SystemPrompt string
}

// BeforeAgentStartHandler may rewrite the system prompt for the coming turn.
// Returning a nil result leaves the prompt unchanged.
type BeforeAgentStartHandler func(ctx context.Context, ev BeforeAgentStartEvent, ec *Context) (*BeforeAgentStartResult, error)
