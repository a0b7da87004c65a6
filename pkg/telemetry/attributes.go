// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry wires OpenTelemetry tracing, metrics and slog logging for
// the extension host and its extensions.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys for extension telemetry.
const (
	AttrSessionID  = "piext.session.id"
	AttrExtension  = "piext.extension"
	AttrToolName   = "piext.tool.name"
	AttrToolCallID = "piext.tool.call_id"
	AttrOutcome    = "piext.outcome"
	AttrCommand    = "piext.command.name"
	AttrHook       = "piext.hook"

	AttrSearchQuery   = "piext.search.query"
	AttrSearchCount   = "piext.search.count"
	AttrSearchResults = "piext.search.results"
	AttrHTTPStatus    = "http.response.status_code"

	AttrSoulFound  = "piext.soul.found"
	AttrSoulPath   = "piext.soul.path"
	AttrSoulSource = "piext.soul.source"
)

// OutcomeOK is the outcome label for successful invocations.
const OutcomeOK = "ok"

// ToolAttributes returns the common attributes for a tool invocation.
func ToolAttributes(sessionID, tool, callID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrToolName, tool),
	}
	if sessionID != "" {
		attrs = append(attrs, attribute.String(AttrSessionID, sessionID))
	}
	if callID != "" {
		attrs = append(attrs, attribute.String(AttrToolCallID, callID))
	}
	return attrs
}

// SearchAttributes returns attributes describing a web search request.
func SearchAttributes(query string, count int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrSearchQuery, truncate(query, 256)),
		attribute.Int(AttrSearchCount, count),
	}
}

// SoulAttributes returns attributes describing an identity resolution.
func SoulAttributes(found bool, path, source string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Bool(AttrSoulFound, found),
	}
	if path != "" {
		attrs = append(attrs, attribute.String(AttrSoulPath, path))
	}
	if source != "" {
		attrs = append(attrs, attribute.String(AttrSoulSource, source))
	}
	return attrs
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
