// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records tool invocations and identity resolutions.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	toolCalls       metric.Int64Counter
	toolDuration    metric.Float64Histogram
	commandCalls    metric.Int64Counter
	soulResolutions metric.Int64Counter
}

// NewMetrics creates the instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("pi-extensions")

	toolCalls, err := meter.Int64Counter(
		"piext.tool.calls",
		metric.WithDescription("Tool invocations by tool and outcome"),
	)
	if err != nil {
		return nil, err
	}

	toolDuration, err := meter.Float64Histogram(
		"piext.tool.duration",
		metric.WithDescription("Tool invocation latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	commandCalls, err := meter.Int64Counter(
		"piext.command.calls",
		metric.WithDescription("Command invocations by command and outcome"),
	)
	if err != nil {
		return nil, err
	}

	soulResolutions, err := meter.Int64Counter(
		"piext.soul.resolutions",
		metric.WithDescription("Identity document resolutions by result"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		toolCalls:       toolCalls,
		toolDuration:    toolDuration,
		commandCalls:    commandCalls,
		soulResolutions: soulResolutions,
	}, nil
}

// RecordToolCall records one tool invocation.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrToolName, tool),
		attribute.String(AttrOutcome, outcome),
	)
	m.toolCalls.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}

// RecordCommand records one command invocation.
func (m *Metrics) RecordCommand(ctx context.Context, command, outcome string) {
	if m == nil {
		return
	}
	m.commandCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrCommand, command),
		attribute.String(AttrOutcome, outcome),
	))
}

// RecordSoulResolution records one identity resolution.
func (m *Metrics) RecordSoulResolution(ctx context.Context, found bool, source string) {
	if m == nil {
		return
	}
	m.soulResolutions.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool(AttrSoulFound, found),
		attribute.String(AttrSoulSource, source),
	))
}
