// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package websearch

import (
	"context"

	"github.com/jllopis/pi-extensions/pkg/core"
	"github.com/jllopis/pi-extensions/pkg/extension"
)

const missingKeyWarning = "Brave Search: BRAVE_API_KEY not set"

// Extension registers the brave_search tool and warns at session start when
// no credential is configured.
type Extension struct {
	client *Client
}

// NewExtension creates the extension around client.
func NewExtension(client *Client) *Extension {
	return &Extension{client: client}
}

// Name implements extension.Extension.
func (e *Extension) Name() string { return ExtensionName }

// Client returns the underlying search client.
func (e *Extension) Client() *Client { return e.client }

// Register implements extension.Extension.
func (e *Extension) Register(api extension.API) error {
	if err := api.RegisterTool(NewTool(e.client)); err != nil {
		return err
	}
	api.OnSessionStart(e.onSessionStart)
	return nil
}

func (e *Extension) onSessionStart(_ context.Context, ec *extension.Context) error {
	if !e.client.HasAPIKey() && ec.HasUI() {
		ec.UI.Notify(missingKeyWarning, extension.LevelWarning)
	}
	return nil
}

// HealthChecker reports DEGRADED while no credential is configured.
func (e *Extension) HealthChecker() core.HealthChecker {
	return core.HealthCheckerFunc(func(context.Context) core.HealthResult {
		if !e.client.HasAPIKey() {
			return core.HealthResult{
				Status:    core.HealthDegraded,
				Component: ExtensionName,
				Message:   "BRAVE_API_KEY not set",
			}
		}
		return core.HealthResult{Status: core.HealthHealthy, Component: ExtensionName}
	})
}
