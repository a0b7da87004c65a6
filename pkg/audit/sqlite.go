// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists audit records in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens dsn with the modernc driver and prepares the schema.
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, errors.New("audit dsn is empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	store, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore creates a SQLite-backed audit store and ensures schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Record stores a single audit record.
func (s *SQLiteStore) Record(ctx context.Context, rec Record) error {
	details, err := encodeDetails(rec.Details)
	if err != nil {
		return err
	}
	input := string(rec.Input)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO extension_audit_events (
			record_id, session_id, kind, name, outcome, duration_ms, started_at, input_json, details_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.SessionID,
		string(rec.Kind),
		rec.Name,
		rec.Outcome,
		rec.Duration.Milliseconds(),
		normalizeTime(rec.StartedAt),
		input,
		string(details),
	)
	return err
}

// List returns records matching the filter, oldest first.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]Record, error) {
	query := `
		SELECT record_id, session_id, kind, name, outcome, duration_ms, started_at, input_json, details_json
		FROM extension_audit_events
	`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value)
	}
	if filter.SessionID != "" {
		addFilter("session_id = ?", filter.SessionID)
	}
	if filter.Kind != "" {
		addFilter("kind = ?", string(filter.Kind))
	}
	if filter.Name != "" {
		addFilter("name = ?", filter.Name)
	}
	if filter.Outcome != "" {
		addFilter("outcome = ?", filter.Outcome)
	}
	query += where + " ORDER BY started_at ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec         Record
			kind        string
			durationMS  int64
			started     sql.NullTime
			inputJSON   sql.NullString
			detailsJSON sql.NullString
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.SessionID,
			&kind,
			&rec.Name,
			&rec.Outcome,
			&durationMS,
			&started,
			&inputJSON,
			&detailsJSON,
		); err != nil {
			return nil, err
		}
		rec.Kind = Kind(kind)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if started.Valid {
			rec.StartedAt = started.Time
		}
		if inputJSON.Valid && inputJSON.String != "" {
			rec.Input = []byte(inputJSON.String)
		}
		if detailsJSON.Valid && detailsJSON.String != "" {
			if out, err := decodeDetails([]byte(detailsJSON.String)); err == nil {
				rec.Details = out
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS extension_audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			record_id TEXT NOT NULL,
			session_id TEXT,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			outcome TEXT NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			started_at TIMESTAMP,
			input_json TEXT,
			details_json TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_extension_audit_session ON extension_audit_events(session_id);
		CREATE INDEX IF NOT EXISTS idx_extension_audit_name ON extension_audit_events(kind, name);
	`)
	return err
}
