// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jllopis/pi-extensions/pkg/audit"
	"github.com/jllopis/pi-extensions/pkg/config"
	"github.com/jllopis/pi-extensions/pkg/core"
	"github.com/jllopis/pi-extensions/pkg/extension"
	"github.com/jllopis/pi-extensions/pkg/soul"
	"github.com/jllopis/pi-extensions/pkg/telemetry"
	"github.com/jllopis/pi-extensions/pkg/websearch"
)

const serviceName = "piext"

// app holds everything a command needs once configuration is loaded.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *telemetry.Metrics
	host    *extension.Host
	health  *core.HealthRegistry
	audit   audit.Store
	ui      *extension.ConsoleUI

	search *websearch.Extension

	closers []func(context.Context) error
}

// newApp wires telemetry, the audit store and the enabled extensions.
// Diagnostics go to errOut so command output stays parseable.
func newApp(cfg *config.Config, errOut io.Writer) (*app, error) {
	a := &app{
		cfg:    cfg,
		health: core.NewHealthRegistry(),
		ui:     extension.NewConsoleUI(extension.WithUIOutput(errOut)),
	}
	a.logger = telemetry.ConfigureSlog(errOut, cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.Init(serviceName, version, telemetry.Config{
		Exporter:           cfg.Telemetry.Exporter,
		OTLPEndpoint:       cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:       cfg.Telemetry.OTLPInsecure,
		OTLPTimeoutSeconds: cfg.Telemetry.OTLPTimeoutSeconds,
		Output:             errOut,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	if a.metrics, err = telemetry.NewMetrics(); err != nil {
		a.close(context.Background())
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	if err := a.openAudit(); err != nil {
		a.close(context.Background())
		return nil, err
	}

	opts := []extension.HostOption{
		extension.WithLogger(telemetry.Component(a.logger, "host")),
		extension.WithMetrics(a.metrics),
	}
	if a.audit != nil {
		opts = append(opts, extension.WithAuditStore(a.audit))
	}
	a.host = extension.NewHost(opts...)

	if err := a.host.Load(a.extensions()...); err != nil {
		a.close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *app) openAudit() error {
	if !a.cfg.Audit.Enabled {
		return nil
	}
	switch a.cfg.Audit.Driver {
	case "sqlite":
		store, err := audit.OpenSQLite(a.cfg.Audit.DSN)
		if err != nil {
			return fmt.Errorf("open audit store: %w", err)
		}
		a.audit = store
		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
	default:
		a.audit = audit.NewMemoryStore()
	}
	a.health.Register("audit", core.HealthCheckerFunc(func(ctx context.Context) core.HealthResult {
		if _, err := a.audit.List(ctx, audit.Filter{Limit: 1}); err != nil {
			return core.HealthResult{Status: core.HealthUnhealthy, Message: err.Error()}
		}
		return core.HealthResult{Status: core.HealthHealthy, Message: a.cfg.Audit.Driver}
	}))
	return nil
}

func (a *app) extensions() []extension.Extension {
	var exts []extension.Extension
	if a.cfg.ExtensionEnabled(websearch.ExtensionName) {
		a.search = websearch.NewExtension(websearch.NewClient(
			websearch.ConfigFromSettings(a.cfg.Search),
			websearch.WithClientLogger(telemetry.Component(a.logger, websearch.ExtensionName)),
		))
		a.health.Register(websearch.ExtensionName, a.search.HealthChecker())
		exts = append(exts, a.search)
	}
	if a.cfg.ExtensionEnabled(soul.ExtensionName) {
		exts = append(exts, a.soulExtension())
	}
	return exts
}

func (a *app) soulExtension() extension.Extension {
	ropts := []soul.ResolverOption{
		soul.WithResolverLogger(telemetry.Component(a.logger, soul.ExtensionName)),
		soul.WithResolverMetrics(a.metrics),
	}
	sc := a.cfg.Soul
	if sc.Mode == config.SoulModeStatic {
		return soul.NewStatic(sc.StaticPath, sc.DefaultText, ropts...)
	}
	mode := soul.ModeEveryTurn
	if sc.Mode == config.SoulModeSessionStart {
		mode = soul.ModeSessionStart
	}
	return soul.NewExtension(soul.Locations{
		ProjectDir:   sc.ProjectDir,
		HomeDir:      sc.HomeDir,
		ExtensionDir: sc.ExtensionDir,
	},
		soul.WithMode(mode),
		soul.WithResolver(soul.NewResolver(ropts...)),
		soul.WithLogger(telemetry.Component(a.logger, soul.ExtensionName)),
	)
}

// extensionContext returns a fresh context rooted at the configured project.
func (a *app) extensionContext() *extension.Context {
	cwd := a.cfg.Soul.ProjectDir
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	return &extension.Context{
		Cwd:       cwd,
		SessionID: core.NewSessionID(),
		UI:        a.ui,
	}
}

// applyConfig pushes reloadable settings into running components.
func (a *app) applyConfig(cfg *config.Config) {
	if a.search != nil {
		a.search.Client().SetAPIKey(cfg.Search.APIKey)
	}
	a.logger.Info("piext.config.reloaded", slog.Bool("api_key", cfg.Search.APIKey != ""))
}

func (a *app) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && a.logger != nil {
			a.logger.Warn("piext.shutdown.error", slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}
