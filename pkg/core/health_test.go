// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"strings"
	"testing"
)

func staticChecker(status HealthStatus, msg string) HealthChecker {
	return HealthCheckerFunc(func(context.Context) HealthResult {
		return HealthResult{Status: status, Message: msg}
	})
}

func TestHealthCheckerFuncStampsTime(t *testing.T) {
	result := staticChecker(HealthHealthy, "ok").Check(context.Background())
	if result.LastCheck.IsZero() {
		t.Fatalf("expected LastCheck to be set")
	}
}

func TestHealthRegistryCheckAll(t *testing.T) {
	tests := []struct {
		name     string
		statuses []HealthStatus
		want     HealthStatus
	}{
		{"all healthy", []HealthStatus{HealthHealthy, HealthHealthy}, HealthHealthy},
		{"one degraded", []HealthStatus{HealthHealthy, HealthDegraded}, HealthDegraded},
		{"unhealthy wins", []HealthStatus{HealthDegraded, HealthUnhealthy, HealthHealthy}, HealthUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewHealthRegistry()
			for i, status := range tt.statuses {
				reg.Register(string(rune('a'+i)), staticChecker(status, ""))
			}
			results, overall := reg.CheckAll(context.Background())
			if len(results) != len(tt.statuses) {
				t.Fatalf("expected %d results, got %d", len(tt.statuses), len(results))
			}
			if overall != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, overall)
			}
			if results[0].Component != "a" {
				t.Fatalf("expected results sorted by name, got %s first", results[0].Component)
			}
		})
	}
}

func TestHealthRegistryUnknown(t *testing.T) {
	reg := NewHealthRegistry()
	if _, err := reg.Check(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error for unknown checker")
	}
}

func TestEnsureSessionID(t *testing.T) {
	ctx, id := EnsureSessionID(context.Background())
	if !strings.HasPrefix(id, "session-") {
		t.Fatalf("unexpected session id %q", id)
	}
	again, same := EnsureSessionID(ctx)
	if same != id {
		t.Fatalf("expected existing id to be kept, got %q", same)
	}
	if got, ok := SessionID(again); !ok || got != id {
		t.Fatalf("expected session id in context")
	}
}

func TestToolCallID(t *testing.T) {
	id := NewToolCallID()
	ctx := WithToolCallID(context.Background(), id)
	if got, ok := ToolCallID(ctx); !ok || got != id {
		t.Fatalf("expected tool call id %q, got %q", id, got)
	}
	if _, ok := ToolCallID(context.Background()); ok {
		t.Fatalf("expected no tool call id")
	}
}
