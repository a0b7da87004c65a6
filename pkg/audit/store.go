// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package audit records tool, command and hook invocations made through the
// extension host.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Kind classifies an audited invocation.
type Kind string

const (
	KindTool    Kind = "tool"
	KindCommand Kind = "command"
	KindHook    Kind = "hook"
)

// Record is one audited invocation.
type Record struct {
	ID        string          `json:"id" yaml:"id"`
	SessionID string          `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Kind      Kind            `json:"kind" yaml:"kind"`
	Name      string          `json:"name" yaml:"name"`
	Outcome   string          `json:"outcome" yaml:"outcome"`
	Duration  time.Duration   `json:"duration" yaml:"duration"`
	StartedAt time.Time       `json:"started_at" yaml:"started_at"`
	Input     json.RawMessage `json:"input,omitempty" yaml:"-"`
	Details   any             `json:"details,omitempty" yaml:"details,omitempty"`
}

// Store persists audit records.
type Store interface {
	Record(ctx context.Context, rec Record) error
	List(ctx context.Context, filter Filter) ([]Record, error)
}

// Filter limits audit queries. Empty fields match everything.
type Filter struct {
	SessionID string
	Kind      Kind
	Name      string
	Outcome   string
	Limit     int
}

func (f Filter) matches(rec Record) bool {
	if f.SessionID != "" && rec.SessionID != f.SessionID {
		return false
	}
	if f.Kind != "" && rec.Kind != f.Kind {
		return false
	}
	if f.Name != "" && rec.Name != f.Name {
		return false
	}
	if f.Outcome != "" && rec.Outcome != f.Outcome {
		return false
	}
	return true
}

// MemoryStore keeps audit records in memory.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryStore returns an in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record appends an audit record.
func (s *MemoryStore) Record(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.StartedAt = normalizeTime(rec.StartedAt)
	s.records = append(s.records, rec)
	return nil
}

// List returns filtered records in insertion order.
func (s *MemoryStore) List(_ context.Context, filter Filter) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		if !filter.matches(rec) {
			continue
		}
		out = append(out, rec)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func encodeDetails(details any) ([]byte, error) {
	if details == nil {
		return []byte("null"), nil
	}
	return json.Marshal(details)
}

func decodeDetails(raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeTime(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return value.UTC()
}
