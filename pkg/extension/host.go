// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package extension

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jllopis/pi-extensions/pkg/audit"
	"github.com/jllopis/pi-extensions/pkg/core"
	"github.com/jllopis/pi-extensions/pkg/errors"
	"github.com/jllopis/pi-extensions/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	hookSessionStart     = "session_start"
	hookBeforeAgentStart = "before_agent_start"
)

// Host is an in-process implementation of API. It owns the tool and command
// registries and dispatches lifecycle events to registered handlers.
type Host struct {
	mu               sync.RWMutex
	tools            map[string]Tool
	toolOrder        []string
	commands         map[string]Command
	commandOrder     []string
	sessionStart     []SessionStartHandler
	beforeAgentStart []BeforeAgentStartHandler
	extensions       []string

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *telemetry.Metrics
	audit   audit.Store
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithLogger sets the host logger.
func WithLogger(logger *slog.Logger) HostOption {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithTracer sets the tracer used for invocation spans.
func WithTracer(tracer trace.Tracer) HostOption {
	return func(h *Host) {
		if tracer != nil {
			h.tracer = tracer
		}
	}
}

// WithMetrics sets the metric instruments.
func WithMetrics(m *telemetry.Metrics) HostOption {
	return func(h *Host) {
		h.metrics = m
	}
}

// WithAuditStore records every tool, command and hook invocation to store.
func WithAuditStore(store audit.Store) HostOption {
	return func(h *Host) {
		h.audit = store
	}
}

// NewHost creates an empty host.
func NewHost(opts ...HostOption) *Host {
	h := &Host{
		tools:    make(map[string]Tool),
		commands: make(map[string]Command),
		logger:   slog.Default(),
		tracer:   otel.Tracer("pi-extensions/host"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterTool adds a tool. Names must be unique.
func (h *Host) RegisterTool(tool Tool) error {
	if tool == nil || strings.TrimSpace(tool.Name()) == "" {
		return errors.New(errors.CodeInvalidInput, "tool name is required", nil)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	name := tool.Name()
	if _, exists := h.tools[name]; exists {
		return errors.New(errors.CodeConflict, fmt.Sprintf("tool %q already registered", name), nil)
	}
	h.tools[name] = tool
	h.toolOrder = append(h.toolOrder, name)
	return nil
}

// RegisterCommand adds a command. Names must be unique.
func (h *Host) RegisterCommand(name string, cmd Command) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New(errors.CodeInvalidInput, "command name is required", nil)
	}
	if cmd.Handler == nil {
		return errors.New(errors.CodeInvalidInput, fmt.Sprintf("command %q has no handler", name), nil)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.commands[name]; exists {
		return errors.New(errors.CodeConflict, fmt.Sprintf("command %q already registered", name), nil)
	}
	h.commands[name] = cmd
	h.commandOrder = append(h.commandOrder, name)
	return nil
}

// OnSessionStart subscribes fn to session start.
func (h *Host) OnSessionStart(fn SessionStartHandler) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessionStart = append(h.sessionStart, fn)
}

// OnBeforeAgentStart subscribes fn to the pre-turn hook.
func (h *Host) OnBeforeAgentStart(fn BeforeAgentStartHandler) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.beforeAgentStart = append(h.beforeAgentStart, fn)
}

// Load registers each extension in order. Loading stops at the first failure.
func (h *Host) Load(exts ...Extension) error {
	for _, ext := range exts {
		if ext == nil {
			continue
		}
		if err := ext.Register(h); err != nil {
			h.logger.Error("extension.load.error",
				slog.String("extension", ext.Name()),
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("load extension %s: %w", ext.Name(), err)
		}
		h.mu.Lock()
		h.extensions = append(h.extensions, ext.Name())
		h.mu.Unlock()
		h.logger.Info("extension.load.complete", slog.String("extension", ext.Name()))
	}
	return nil
}

// Extensions returns the names of loaded extensions.
func (h *Host) Extensions() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.extensions...)
}

// Tools returns registered tools in registration order.
func (h *Host) Tools() []Tool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Tool, 0, len(h.toolOrder))
	for _, name := range h.toolOrder {
		out = append(out, h.tools[name])
	}
	return out
}

// Tool looks up a tool by name.
func (h *Host) Tool(name string) (Tool, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	tool, ok := h.tools[name]
	return tool, ok
}

// Commands returns registered commands in registration order.
func (h *Host) Commands() []CommandInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]CommandInfo, 0, len(h.commandOrder))
	for _, name := range h.commandOrder {
		out = append(out, CommandInfo{Name: name, Description: h.commands[name].Description})
	}
	return out
}

// StartSession runs every session start handler. A session id is assigned
// to ec when it has none. Handler failures do not stop later handlers.
func (h *Host) StartSession(ctx context.Context, ec *Context) error {
	ec = ensureContext(ec)
	ctx = core.WithSessionID(ctx, ec.SessionID)

	h.mu.RLock()
	handlers := append([]SessionStartHandler(nil), h.sessionStart...)
	h.mu.RUnlock()

	ctx, span := h.tracer.Start(ctx, "Host.SessionStart", trace.WithAttributes(
		attribute.String(telemetry.AttrHook, hookSessionStart),
		attribute.String(telemetry.AttrSessionID, ec.SessionID),
	))
	defer span.End()

	started := time.Now()
	h.logger.InfoContext(ctx, "host.session.start",
		slog.String("session_id", ec.SessionID),
		slog.Int("handlers", len(handlers)),
	)

	var errs []error
	for _, fn := range handlers {
		if err := fn(ctx, ec); err != nil {
			errs = append(errs, err)
			h.logger.ErrorContext(ctx, "host.session.handler_error",
				slog.String("session_id", ec.SessionID),
				slog.String("error", err.Error()),
			)
		}
	}
	err := stderrors.Join(errs...)
	h.finishSpan(span, err)
	h.record(ctx, audit.Record{
		SessionID: ec.SessionID,
		Kind:      audit.KindHook,
		Name:      hookSessionStart,
		Outcome:   outcomeOf(err),
		Duration:  time.Since(started),
		StartedAt: started,
	})
	return err
}

// BeforeAgentStart runs the pre-turn handlers in registration order. Each
// handler sees the system prompt produced by the previous one; the final
// prompt is returned.
func (h *Host) BeforeAgentStart(ctx context.Context, ev BeforeAgentStartEvent, ec *Context) (string, error) {
	ec = ensureContext(ec)
	ctx = core.WithSessionID(ctx, ec.SessionID)

	h.mu.RLock()
	handlers := append([]BeforeAgentStartHandler(nil), h.beforeAgentStart...)
	h.mu.RUnlock()

	ctx, span := h.tracer.Start(ctx, "Host.BeforeAgentStart", trace.WithAttributes(
		attribute.String(telemetry.AttrHook, hookBeforeAgentStart),
		attribute.String(telemetry.AttrSessionID, ec.SessionID),
	))
	defer span.End()

	started := time.Now()
	prompt := ev.SystemPrompt
	var errs []error
	for _, fn := range handlers {
		res, err := fn(ctx, BeforeAgentStartEvent{Prompt: ev.Prompt, SystemPrompt: prompt}, ec)
		if err != nil {
			errs = append(errs, err)
			h.logger.ErrorContext(ctx, "host.before_agent_start.handler_error",
				slog.String("session_id", ec.SessionID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if res != nil {
			prompt = res.SystemPrompt
		}
	}
	err := stderrors.Join(errs...)
	h.finishSpan(span, err)
	h.logger.DebugContext(ctx, "host.before_agent_start.complete",
		slog.String("session_id", ec.SessionID),
		slog.Int("prompt_len", len(prompt)),
	)
	h.record(ctx, audit.Record{
		SessionID: ec.SessionID,
		Kind:      audit.KindHook,
		Name:      hookBeforeAgentStart,
		Outcome:   outcomeOf(err),
		Duration:  time.Since(started),
		StartedAt: started,
	})
	return prompt, err
}

// ExecuteTool runs the named tool. The error is non-nil only when the tool is
// unknown; tool failures are reported through the Outcome.
func (h *Host) ExecuteTool(ctx context.Context, name string, params json.RawMessage, ec *Context) (Outcome, error) {
	tool, ok := h.Tool(name)
	if !ok {
		return Outcome{}, errors.New(errors.CodeNotFound, fmt.Sprintf("tool %q not registered", name), nil)
	}
	ec = ensureContext(ec)
	callID := core.NewToolCallID()
	ctx = core.WithSessionID(ctx, ec.SessionID)
	ctx = core.WithToolCallID(ctx, callID)

	ctx, span := h.tracer.Start(ctx, "Host.ExecuteTool", trace.WithAttributes(
		telemetry.ToolAttributes(ec.SessionID, name, callID)...,
	))
	defer span.End()

	log := h.logger.With(
		slog.String("tool", name),
		slog.String("call_id", callID),
		slog.String("session_id", ec.SessionID),
	)
	log.InfoContext(ctx, "host.tool.start")

	started := time.Now()
	outcome := tool.Execute(ctx, callID, params, ec)
	elapsed := time.Since(started)

	label := outcomeLabel(outcome)
	span.SetAttributes(attribute.String(telemetry.AttrOutcome, label))
	if outcome.Failed() {
		span.SetStatus(codes.Error, label)
		log.WarnContext(ctx, "host.tool.failed",
			slog.String("outcome", label),
			slog.Duration("elapsed", elapsed),
		)
	} else {
		span.SetStatus(codes.Ok, "")
		log.InfoContext(ctx, "host.tool.complete", slog.Duration("elapsed", elapsed))
	}
	h.metrics.RecordToolCall(ctx, name, label, elapsed)
	h.record(ctx, audit.Record{
		ID:        callID,
		SessionID: ec.SessionID,
		Kind:      audit.KindTool,
		Name:      name,
		Outcome:   label,
		Duration:  elapsed,
		StartedAt: started,
		Input:     params,
		Details:   outcome.Details,
	})
	return outcome, nil
}

// RunCommand runs the named command with the raw argument string.
func (h *Host) RunCommand(ctx context.Context, name, args string, ec *Context) error {
	h.mu.RLock()
	cmd, ok := h.commands[name]
	h.mu.RUnlock()
	if !ok {
		return errors.New(errors.CodeNotFound, fmt.Sprintf("command %q not registered", name), nil)
	}
	ec = ensureContext(ec)
	ctx = core.WithSessionID(ctx, ec.SessionID)

	ctx, span := h.tracer.Start(ctx, "Host.RunCommand", trace.WithAttributes(
		attribute.String(telemetry.AttrCommand, name),
		attribute.String(telemetry.AttrSessionID, ec.SessionID),
	))
	defer span.End()

	started := time.Now()
	err := cmd.Handler(ctx, args, ec)
	h.finishSpan(span, err)

	label := outcomeOf(err)
	if err != nil {
		h.logger.ErrorContext(ctx, "host.command.error",
			slog.String("command", name),
			slog.String("error", err.Error()),
		)
	} else {
		h.logger.InfoContext(ctx, "host.command.complete", slog.String("command", name))
	}
	h.metrics.RecordCommand(ctx, name, label)
	h.record(ctx, audit.Record{
		SessionID: ec.SessionID,
		Kind:      audit.KindCommand,
		Name:      name,
		Outcome:   label,
		Duration:  time.Since(started),
		StartedAt: started,
	})
	return err
}

func (h *Host) finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

func (h *Host) record(ctx context.Context, rec audit.Record) {
	if h.audit == nil {
		return
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	// Audit must not observe the caller's cancellation.
	if err := h.audit.Record(context.WithoutCancel(ctx), rec); err != nil {
		h.logger.WarnContext(ctx, "host.audit.error",
			slog.String("kind", string(rec.Kind)),
			slog.String("name", rec.Name),
			slog.String("error", err.Error()),
		)
	}
}

func ensureContext(ec *Context) *Context {
	if ec == nil {
		ec = &Context{}
	}
	if ec.SessionID == "" {
		ec.SessionID = core.NewSessionID()
	}
	return ec
}

func outcomeLabel(o Outcome) string {
	if o.Code == "" {
		return telemetry.OutcomeOK
	}
	return string(o.Code)
}

func outcomeOf(err error) string {
	if err == nil {
		return telemetry.OutcomeOK
	}
	return string(errors.CodeOf(err))
}
