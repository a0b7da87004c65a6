// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package testing provides helpers for testing extensions against the host:
//   - RecordingUI captures notifications and status updates
//   - StubTool is a scripted tool that records its calls
//   - Assertions wraps common checks on outcomes and UI activity
//
// Example usage:
//
//	ui := ptesting.NewRecordingUI()
//	ec := &extension.Context{UI: ui}
//	_ = host.StartSession(ctx, ec)
//	ptesting.NewAssertions(t).AssertUI(ui).Notified("Brave Search: BRAVE_API_KEY not set", extension.LevelWarning)
package testing

import (
	"sync"

	"github.com/jllopis/pi-extensions/pkg/extension"
)

// Notification is a captured UI notification.
type Notification struct {
	Message string
	Level   extension.Level
}

// RecordingUI implements extension.UI and records everything it receives.
type RecordingUI struct {
	mu            sync.Mutex
	notifications []Notification
	status        map[string]string
	statusWrites  int
}

// NewRecordingUI creates an empty recording UI.
func NewRecordingUI() *RecordingUI {
	return &RecordingUI{status: make(map[string]string)}
}

// Notify records a notification.
func (u *RecordingUI) Notify(message string, level extension.Level) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.notifications = append(u.notifications, Notification{Message: message, Level: level})
}

// SetStatus records a status value.
func (u *RecordingUI) SetStatus(key, text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status[key] = text
	u.statusWrites++
}

// Notifications returns a copy of the captured notifications.
func (u *RecordingUI) Notifications() []Notification {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Notification(nil), u.notifications...)
}

// Status returns the last value set for key.
func (u *RecordingUI) Status(key string) (string, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	text, ok := u.status[key]
	return text, ok
}

// StatusWrites returns how many times SetStatus was called.
func (u *RecordingUI) StatusWrites() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.statusWrites
}

// Reset clears captured state.
func (u *RecordingUI) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.notifications = nil
	u.status = make(map[string]string)
	u.statusWrites = 0
}
