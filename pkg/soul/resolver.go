// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package soul resolves the SOUL.md identity document and prepends it to the
// agent system prompt.
package soul

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jllopis/pi-extensions/pkg/errors"
	"github.com/jllopis/pi-extensions/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	FileName  = "SOUL.md"
	StatusKey = "soul"

	separator = "\n\n---\n\n"
)

// Source names where a document was found.
type Source string

const (
	SourceProjectConfig Source = "project_config" // <project>/.pi/SOUL.md
	SourceProject       Source = "project"        // <project>/SOUL.md
	SourceGlobal        Source = "global"         // <home>/.pi/agent/SOUL.md
	SourceBundled       Source = "bundled"        // <extension>/../../SOUL.md
	SourceStatic        Source = "static"
	SourceDefault       Source = "default"
)

// Document is a resolved identity document. Content is trimmed.
type Document struct {
	Path    string `json:"path" yaml:"path"`
	Content string `json:"content" yaml:"content"`
	Source  Source `json:"source" yaml:"source"`
}

// Candidate is one place a document may live.
type Candidate struct {
	Path   string
	Source Source
}

// Locations anchors the search list.
type Locations struct {
	ProjectDir   string
	HomeDir      string
	ExtensionDir string
}

// Candidates returns the prioritized search list. Locations whose anchor
// directory is unknown are omitted.
func (l Locations) Candidates() []Candidate {
	var out []Candidate
	if l.ProjectDir != "" {
		out = append(out,
			Candidate{Path: filepath.Join(l.ProjectDir, ".pi", FileName), Source: SourceProjectConfig},
			Candidate{Path: filepath.Join(l.ProjectDir, FileName), Source: SourceProject},
		)
	}
	if l.HomeDir != "" {
		out = append(out, Candidate{Path: filepath.Join(l.HomeDir, ".pi", "agent", FileName), Source: SourceGlobal})
	}
	return out
}

// Fallback returns the bundled document location.
func (l Locations) Fallback() (Candidate, bool) {
	if l.ExtensionDir == "" {
		return Candidate{}, false
	}
	return Candidate{Path: filepath.Join(l.ExtensionDir, "..", "..", FileName), Source: SourceBundled}, true
}

// FileSystem is the read-only file access the resolver needs.
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
}

// OSFileSystem reads from the local disk.
type OSFileSystem struct{}

func (OSFileSystem) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }
func (OSFileSystem) ReadFile(name string) ([]byte, error)  { return os.ReadFile(name) }

// Resolver finds the first readable document in a Locations list.
type Resolver struct {
	fs      FileSystem
	logger  *slog.Logger
	metrics *telemetry.Metrics
	tracer  trace.Tracer
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithFileSystem replaces the file system.
func WithFileSystem(fsys FileSystem) ResolverOption {
	return func(r *Resolver) {
		if fsys != nil {
			r.fs = fsys
		}
	}
}

// WithResolverLogger sets the resolver logger.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithResolverMetrics records every resolution.
func WithResolverMetrics(m *telemetry.Metrics) ResolverOption {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// NewResolver creates a resolver over the OS file system.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		fs:     OSFileSystem{},
		logger: slog.Default(),
		tracer: otel.Tracer("pi-extensions/soul"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve walks the candidates in order, then the bundled fallback. The first
// readable file wins. Unreadable files are skipped. No document is not an error.
func (r *Resolver) Resolve(ctx context.Context, loc Locations) (*Document, bool) {
	_, span := r.tracer.Start(ctx, "soul.Resolve")
	defer span.End()

	candidates := loc.Candidates()
	if fb, ok := loc.Fallback(); ok {
		candidates = append(candidates, fb)
	}
	for _, c := range candidates {
		doc, err := r.read(c)
		if err != nil {
			r.logger.DebugContext(ctx, "soul.resolve.skip",
				slog.String("path", c.Path),
				slog.String("error", err.Error()),
			)
			continue
		}
		if doc == nil {
			continue
		}
		span.SetAttributes(telemetry.SoulAttributes(true, doc.Path, string(doc.Source))...)
		r.metrics.RecordSoulResolution(ctx, true, string(doc.Source))
		r.logger.DebugContext(ctx, "soul.resolve.found",
			slog.String("path", doc.Path),
			slog.String("source", string(doc.Source)),
		)
		return doc, true
	}
	span.SetAttributes(telemetry.SoulAttributes(false, "", "")...)
	r.metrics.RecordSoulResolution(ctx, false, "")
	r.logger.DebugContext(ctx, "soul.resolve.none")
	return nil, false
}

// read returns (nil, nil) when the candidate does not exist.
func (r *Resolver) read(c Candidate) (*Document, error) {
	info, err := r.fs.Stat(c.Path)
	if err != nil || info.IsDir() {
		return nil, nil
	}
	raw, err := r.fs.ReadFile(c.Path)
	if err != nil {
		return nil, errors.New(errors.CodeFileUnreadable, "read "+c.Path, err)
	}
	return &Document{
		Path:    c.Path,
		Content: strings.TrimSpace(string(raw)),
		Source:  c.Source,
	}, nil
}

// Inject prepends the document to systemPrompt. A nil document leaves the
// prompt unchanged.
func Inject(doc *Document, systemPrompt string) string {
	if doc == nil {
		return systemPrompt
	}
	return doc.Content + separator + systemPrompt
}

// StatusLabel is the status-bar text for doc.
func StatusLabel(doc *Document) string {
	if doc == nil {
		return "☯ no soul"
	}
	if doc.Path == "" {
		return "☯ default"
	}
	return "☯ " + filepath.Base(doc.Path)
}
