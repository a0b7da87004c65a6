// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package soul

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jllopis/pi-extensions/pkg/extension"
)

const (
	ExtensionName      = "soul"
	CommandName        = "soul"
	commandDescription = "Show current SOUL.md location and content"
)

// Mode selects when the document is resolved.
type Mode string

const (
	// ModeEveryTurn re-resolves before every agent turn so edits apply immediately.
	ModeEveryTurn Mode = "every_turn"
	// ModeSessionStart resolves once per session.
	ModeSessionStart Mode = "session_start"
)

// Extension injects the resolved document into every system prompt.
type Extension struct {
	resolver  *Resolver
	locations Locations
	mode      Mode
	logger    *slog.Logger

	mu      sync.Mutex
	current *Document
}

// Option configures the extension.
type Option func(*Extension)

// WithMode sets the resolution mode.
func WithMode(mode Mode) Option {
	return func(e *Extension) {
		if mode != "" {
			e.mode = mode
		}
	}
}

// WithResolver replaces the resolver.
func WithResolver(r *Resolver) Option {
	return func(e *Extension) {
		if r != nil {
			e.resolver = r
		}
	}
}

// WithLogger sets the extension logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtension creates the extension. The project directory of loc is
// replaced by the session working directory when one is provided.
func NewExtension(loc Locations, opts ...Option) *Extension {
	e := &Extension{
		locations: loc,
		mode:      ModeEveryTurn,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.resolver == nil {
		e.resolver = NewResolver(WithResolverLogger(e.logger))
	}
	return e
}

// Name implements extension.Extension.
func (e *Extension) Name() string { return ExtensionName }

// Mode returns the resolution mode.
func (e *Extension) Mode() Mode { return e.mode }

// Register implements extension.Extension.
func (e *Extension) Register(api extension.API) error {
	api.OnSessionStart(e.onSessionStart)
	api.OnBeforeAgentStart(e.onBeforeAgentStart)
	return api.RegisterCommand(CommandName, extension.Command{
		Description: commandDescription,
		Handler:     e.runCommand,
	})
}

// Current returns the last resolved document.
func (e *Extension) Current() *Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Resolve resolves against the locations for ec without touching the current document.
func (e *Extension) Resolve(ctx context.Context, ec *extension.Context) (*Document, bool) {
	return e.resolver.Resolve(ctx, e.locationsFor(ec))
}

func (e *Extension) locationsFor(ec *extension.Context) Locations {
	loc := e.locations
	if ec != nil && ec.Cwd != "" {
		loc.ProjectDir = ec.Cwd
	}
	return loc
}

func (e *Extension) refresh(ctx context.Context, ec *extension.Context) *Document {
	doc, _ := e.Resolve(ctx, ec)
	e.mu.Lock()
	e.current = doc
	e.mu.Unlock()
	ec.SetStatus(StatusKey, StatusLabel(doc))
	return doc
}

func (e *Extension) onSessionStart(ctx context.Context, ec *extension.Context) error {
	doc := e.refresh(ctx, ec)
	if doc != nil {
		e.logger.InfoContext(ctx, "soul.session.loaded",
			slog.String("path", doc.Path),
			slog.String("mode", string(e.mode)),
		)
	} else {
		e.logger.InfoContext(ctx, "soul.session.none", slog.String("mode", string(e.mode)))
	}
	return nil
}

func (e *Extension) onBeforeAgentStart(ctx context.Context, ev extension.BeforeAgentStartEvent, ec *extension.Context) (*extension.BeforeAgentStartResult, error) {
	var doc *Document
	if e.mode == ModeEveryTurn {
		doc = e.refresh(ctx, ec)
	} else {
		doc = e.Current()
	}
	if doc == nil {
		return nil, nil
	}
	return &extension.BeforeAgentStartResult{SystemPrompt: Inject(doc, ev.SystemPrompt)}, nil
}

func (e *Extension) runCommand(ctx context.Context, _ string, ec *extension.Context) error {
	doc, ok := e.Resolve(ctx, ec)
	if !ok {
		ec.Notify("No SOUL.md found", extension.LevelWarning)
		return nil
	}
	ec.Notify("Soul: "+doc.Path, extension.LevelInfo)
	return nil
}
