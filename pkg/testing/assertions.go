// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package testing

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/jllopis/pi-extensions/pkg/errors"
	"github.com/jllopis/pi-extensions/pkg/extension"
)

// Assertions provides assertion helpers for testing.
type Assertions struct {
	t      *testing.T
	failed bool
}

// NewAssertions creates a new assertions helper.
func NewAssertions(t *testing.T) *Assertions {
	return &Assertions{t: t}
}

// Failed returns true if any assertion has failed.
func (a *Assertions) Failed() bool {
	return a.failed
}

// AssertEqual asserts that two values are equal.
func (a *Assertions) AssertEqual(expected, actual any, msg string) {
	a.t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		a.t.Errorf("%s: expected %v, got %v", msg, expected, actual)
		a.failed = true
	}
}

// AssertContains asserts that the string contains the substring.
func (a *Assertions) AssertContains(s, substr, msg string) {
	a.t.Helper()
	if !strings.Contains(s, substr) {
		a.t.Errorf("%s: %q does not contain %q", msg, s, substr)
		a.failed = true
	}
}

// AssertNoError asserts that the error is nil.
func (a *Assertions) AssertNoError(err error, msg string) {
	a.t.Helper()
	if err != nil {
		a.t.Errorf("%s: unexpected error: %v", msg, err)
		a.failed = true
	}
}

// AssertErrorCode asserts that err carries the given code.
func (a *Assertions) AssertErrorCode(err error, code errors.ErrorCode, msg string) {
	a.t.Helper()
	if got := errors.CodeOf(err); got != code {
		a.t.Errorf("%s: expected error code %q, got %q (%v)", msg, code, got, err)
		a.failed = true
	}
}

// OutcomeAssertions provides assertion helpers for tool outcomes.
type OutcomeAssertions struct {
	*Assertions
	outcome extension.Outcome
}

// AssertOutcome creates assertions for the given outcome.
func (a *Assertions) AssertOutcome(outcome extension.Outcome) *OutcomeAssertions {
	return &OutcomeAssertions{Assertions: a, outcome: outcome}
}

// HasText asserts the outcome text equals expected.
func (o *OutcomeAssertions) HasText(expected string) *OutcomeAssertions {
	o.t.Helper()
	if got := o.outcome.Text(); got != expected {
		o.t.Errorf("expected outcome text %q, got %q", expected, got)
		o.failed = true
	}
	return o
}

// TextContains asserts the outcome text contains substr.
func (o *OutcomeAssertions) TextContains(substr string) *OutcomeAssertions {
	o.t.Helper()
	if got := o.outcome.Text(); !strings.Contains(got, substr) {
		o.t.Errorf("outcome text %q does not contain %q", got, substr)
		o.failed = true
	}
	return o
}

// Succeeded asserts the outcome carries no failure code.
func (o *OutcomeAssertions) Succeeded() *OutcomeAssertions {
	o.t.Helper()
	if o.outcome.Failed() {
		o.t.Errorf("expected success, got %q: %s", o.outcome.Code, o.outcome.Text())
		o.failed = true
	}
	return o
}

// HasCode asserts the outcome failure code.
func (o *OutcomeAssertions) HasCode(code errors.ErrorCode) *OutcomeAssertions {
	o.t.Helper()
	if o.outcome.Code != code {
		o.t.Errorf("expected outcome code %q, got %q", code, o.outcome.Code)
		o.failed = true
	}
	return o
}

// HasDetail asserts details[key] equals value. Details must be a map[string]any.
func (o *OutcomeAssertions) HasDetail(key string, value any) *OutcomeAssertions {
	o.t.Helper()
	details, ok := o.outcome.Details.(map[string]any)
	if !ok {
		o.t.Errorf("outcome details are %T, not map[string]any", o.outcome.Details)
		o.failed = true
		return o
	}
	got, ok := details[key]
	if !ok {
		o.t.Errorf("outcome details missing %q: %v", key, details)
		o.failed = true
		return o
	}
	if !reflect.DeepEqual(got, value) {
		o.t.Errorf("outcome detail %q: expected %v (%T), got %v (%T)", key, value, value, got, got)
		o.failed = true
	}
	return o
}

// UIAssertions provides assertion helpers for a RecordingUI.
type UIAssertions struct {
	*Assertions
	ui *RecordingUI
}

// AssertUI creates assertions for the given recording UI.
func (a *Assertions) AssertUI(ui *RecordingUI) *UIAssertions {
	return &UIAssertions{Assertions: a, ui: ui}
}

// Notified asserts a notification with the exact message and level was sent.
func (u *UIAssertions) Notified(message string, level extension.Level) *UIAssertions {
	u.t.Helper()
	for _, n := range u.ui.Notifications() {
		if n.Message == message && n.Level == level {
			return u
		}
	}
	u.t.Errorf("notification %q (%s) not found in %s", message, level, describeNotifications(u.ui.Notifications()))
	u.failed = true
	return u
}

// NotificationCount asserts the number of notifications.
func (u *UIAssertions) NotificationCount(count int) *UIAssertions {
	u.t.Helper()
	if got := len(u.ui.Notifications()); got != count {
		u.t.Errorf("expected %d notifications, got %d: %s", count, got, describeNotifications(u.ui.Notifications()))
		u.failed = true
	}
	return u
}

// HasStatus asserts the status for key.
func (u *UIAssertions) HasStatus(key, text string) *UIAssertions {
	u.t.Helper()
	got, ok := u.ui.Status(key)
	if !ok || got != text {
		u.t.Errorf("expected status %s=%q, got %q (set=%v)", key, text, got, ok)
		u.failed = true
	}
	return u
}

// NoStatus asserts no status was set for key.
func (u *UIAssertions) NoStatus(key string) *UIAssertions {
	u.t.Helper()
	if got, ok := u.ui.Status(key); ok {
		u.t.Errorf("expected no status for %s, got %q", key, got)
		u.failed = true
	}
	return u
}

func describeNotifications(ns []Notification) string {
	parts := make([]string, 0, len(ns))
	for _, n := range ns {
		parts = append(parts, fmt.Sprintf("[%s] %s", n.Level, n.Message))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// RequireNoError fails the test immediately if err is not nil.
func RequireNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}

// RequireEqual fails the test immediately if values are not equal.
func RequireEqual(t *testing.T, expected, actual any, msg string) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Fatalf("%s: expected %v, got %v", msg, expected, actual)
	}
}
