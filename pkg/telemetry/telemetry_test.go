// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestInitStdout(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Init("test-service", "v0.0.1", Config{Exporter: "stdout", Output: &buf})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if shutdown == nil {
		t.Fatal("Shutdown function should not be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestInitNone(t *testing.T) {
	shutdown, err := Init("test-service", "v0.0.1", Config{Exporter: "none"})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestInitErrors(t *testing.T) {
	if _, err := Init("svc", "v", Config{Exporter: "otlp"}); err == nil {
		t.Fatalf("expected error for otlp without endpoint")
	}
	if _, err := Init("svc", "v", Config{Exporter: "carrier-pigeon"}); err == nil {
		t.Fatalf("expected error for unknown exporter")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordToolCall(context.Background(), "brave_search", OutcomeOK, time.Millisecond)
	m.RecordCommand(context.Background(), "soul", OutcomeOK)
	m.RecordSoulResolution(context.Background(), true, "project")
}

func TestNewMetrics(t *testing.T) {
	m, err := NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.RecordToolCall(context.Background(), "brave_search", "cancelled", 5*time.Millisecond)
	m.RecordSoulResolution(context.Background(), false, "")
}

func TestConfigureSlogLevels(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	defer slog.SetDefault(prev)

	logger := ConfigureSlog(&buf, "warn", "json")
	logger.Info("hidden")
	logger.Warn("visible", slog.String("k", "v"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"visible"`) {
		t.Fatalf("expected json warn record, got %s", out)
	}
}

func TestSearchAttributesTruncatesQuery(t *testing.T) {
	attrs := SearchAttributes(strings.Repeat("q", 300), 5)
	if got := attrs[0].Value.AsString(); len(got) != 259 {
		t.Fatalf("expected truncated query, got %d chars", len(got))
	}
}
