// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherDetectsChanges(t *testing.T) {
	clearCredential(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("search:\n  api_key: \"\"\n"), 0o644); err != nil {
		t.Fatalf("failed to write initial config: %v", err)
	}

	watcher, err := NewWatcher(Options{Path: configPath}, WithWatchInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	changes := make(chan *Config, 1)
	watcher.OnChange(func(cfg *Config) {
		select {
		case changes <- cfg:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher.Start(ctx)
	defer watcher.Stop()

	if watcher.Config().Search.APIKey != "" {
		t.Fatalf("expected empty initial credential")
	}

	time.Sleep(50 * time.Millisecond)
	future := time.Now().Add(2 * time.Second)
	if err := os.WriteFile(configPath, []byte("search:\n  api_key: rotated\n"), 0o644); err != nil {
		t.Fatalf("failed to write updated config: %v", err)
	}
	if err := os.Chtimes(configPath, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	select {
	case cfg := <-changes:
		if cfg.Search.APIKey != "rotated" {
			t.Errorf("expected rotated credential, got %q", cfg.Search.APIKey)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for config change notification")
	}
	if watcher.Config().Search.APIKey != "rotated" {
		t.Errorf("expected watcher config to be updated")
	}
}

func TestWatcherStops(t *testing.T) {
	clearCredential(t)
	watcher, err := NewWatcher(Options{}, WithWatchInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	watcher.Start(context.Background())

	done := make(chan struct{})
	go func() {
		watcher.Stop()
		watcher.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherKeepsConfigOnBadReload(t *testing.T) {
	clearCredential(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("soul:\n  mode: every_turn\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	watcher, err := NewWatcher(Options{Path: configPath})
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	if err := os.WriteFile(configPath, []byte("soul:\n  mode: never\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	watcher.reload()
	if watcher.Config().Soul.Mode != SoulModeEveryTurn {
		t.Fatalf("expected previous config to be kept, got %s", watcher.Config().Soul.Mode)
	}
}
