// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package extension

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Level is the severity of a user notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// UI is the optional user-facing surface of a session.
type UI interface {
	Notify(message string, level Level)
	SetStatus(key, text string)
}

// Context describes the session an invocation runs in.
type Context struct {
	Cwd       string
	SessionID string
	UI        UI
}

// HasUI reports whether a UI surface is attached.
func (c *Context) HasUI() bool {
	return c != nil && c.UI != nil
}

// Notify forwards to the UI when present.
func (c *Context) Notify(message string, level Level) {
	if c.HasUI() {
		c.UI.Notify(message, level)
	}
}

// SetStatus forwards to the UI when present.
func (c *Context) SetStatus(key, text string) {
	if c.HasUI() {
		c.UI.SetStatus(key, text)
	}
}

// ConsoleUI prints notifications and status changes to a writer.
type ConsoleUI struct {
	mu     sync.Mutex
	out    io.Writer
	status map[string]string
}

// ConsoleUIOption configures the console UI.
type ConsoleUIOption func(*ConsoleUI)

// WithUIOutput sets the writer for the console UI.
func WithUIOutput(w io.Writer) ConsoleUIOption {
	return func(u *ConsoleUI) {
		if w != nil {
			u.out = w
		}
	}
}

// NewConsoleUI creates a console UI writing to stderr by default.
func NewConsoleUI(opts ...ConsoleUIOption) *ConsoleUI {
	u := &ConsoleUI{
		out:    os.Stderr,
		status: make(map[string]string),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Notify prints "[level] message".
func (u *ConsoleUI) Notify(message string, level Level) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintf(u.out, "[%s] %s\n", level, message)
}

// SetStatus records and prints a status change. Unchanged values are not reprinted.
func (u *ConsoleUI) SetStatus(key, text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if prev, ok := u.status[key]; ok && prev == text {
		return
	}
	u.status[key] = text
	fmt.Fprintf(u.out, "[status] %s: %s\n", key, text)
}

// Status returns the last text set for key.
func (u *ConsoleUI) Status(key string) (string, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	text, ok := u.status[key]
	return text, ok
}
