// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package soul

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jllopis/pi-extensions/pkg/extension"
)

// Static reads one fixed path at registration and prepends it, or the
// default text when the file is absent or unreadable, to every prompt.
type Static struct {
	path        string
	defaultText string
	resolver    *Resolver
	logger      *slog.Logger
	doc         *Document
}

// NewStatic creates a fixed-path identity extension.
func NewStatic(path, defaultText string, opts ...ResolverOption) *Static {
	r := NewResolver(opts...)
	return &Static{
		path:        path,
		defaultText: strings.TrimSpace(defaultText),
		resolver:    r,
		logger:      r.logger,
	}
}

// Name implements extension.Extension.
func (s *Static) Name() string { return ExtensionName }

// Document returns the document loaded at registration.
func (s *Static) Document() *Document { return s.doc }

// Register loads the document once and subscribes the injector.
func (s *Static) Register(api extension.API) error {
	s.doc = s.load()
	api.OnSessionStart(func(_ context.Context, ec *extension.Context) error {
		ec.SetStatus(StatusKey, StatusLabel(s.doc))
		return nil
	})
	api.OnBeforeAgentStart(func(_ context.Context, ev extension.BeforeAgentStartEvent, _ *extension.Context) (*extension.BeforeAgentStartResult, error) {
		if s.doc == nil {
			return nil, nil
		}
		return &extension.BeforeAgentStartResult{SystemPrompt: Inject(s.doc, ev.SystemPrompt)}, nil
	})
	return api.RegisterCommand(CommandName, extension.Command{
		Description: commandDescription,
		Handler: func(_ context.Context, _ string, ec *extension.Context) error {
			switch {
			case s.doc == nil:
				ec.Notify("No SOUL.md found", extension.LevelWarning)
			case s.doc.Source == SourceDefault:
				ec.Notify("Soul: built-in default", extension.LevelInfo)
			default:
				ec.Notify("Soul: "+s.doc.Path, extension.LevelInfo)
			}
			return nil
		},
	})
}

func (s *Static) load() *Document {
	if s.path != "" {
		doc, err := s.resolver.read(Candidate{Path: s.path, Source: SourceStatic})
		if err != nil {
			s.logger.Warn("soul.static.unreadable",
				slog.String("path", s.path),
				slog.String("error", err.Error()),
			)
		}
		if doc != nil {
			return doc
		}
	}
	if s.defaultText == "" {
		return nil
	}
	return &Document{Content: s.defaultText, Source: SourceDefault}
}
