// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	perrors "github.com/jllopis/pi-extensions/pkg/errors"
)

func transient() error {
	return perrors.New(perrors.CodeAPIError, "upstream 503", nil).WithRecoverable(true)
}

func TestRetryDefaultSingleAttempt(t *testing.T) {
	attempts := 0
	err := DefaultRetryConfig().Do(context.Background(), func() error {
		attempts++
		return transient()
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetrySuccess(t *testing.T) {
	attempts := 0
	config := DefaultRetryConfig().WithMaxAttempts(3).WithInitialDelay(time.Millisecond)
	err := config.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return transient()
		}
		return nil
	})
	if err != nil {
		t.Errorf("expected success, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	config := DefaultRetryConfig().WithMaxAttempts(2).WithInitialDelay(time.Millisecond)
	err := config.Do(context.Background(), func() error {
		attempts++
		return transient()
	})
	if !perrors.Is(err, perrors.CodeAPIError) {
		t.Errorf("expected last api error, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryPlainErrorsNotRetried(t *testing.T) {
	attempts := 0
	config := DefaultRetryConfig().WithMaxAttempts(5).WithInitialDelay(time.Millisecond)
	err := config.Do(context.Background(), func() error {
		attempts++
		return errors.New("bad request")
	})
	if err == nil {
		t.Errorf("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetryCustomPredicate(t *testing.T) {
	attempts := 0
	config := DefaultRetryConfig().
		WithMaxAttempts(3).
		WithInitialDelay(time.Millisecond).
		WithIsRecoverable(func(error) bool { return true })
	_ = config.Do(context.Background(), func() error {
		attempts++
		return errors.New("flaky")
	})
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := DefaultRetryConfig().WithMaxAttempts(5).WithInitialDelay(200 * time.Millisecond)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	attempts := 0
	err := config.Do(ctx, func() error {
		attempts++
		return transient()
	})
	if !perrors.Is(err, perrors.CodeCancelled) {
		t.Fatalf("expected cancelled error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt before cancellation, got %d", attempts)
	}
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	config := DefaultRetryConfig().WithMaxAttempts(2).WithInitialDelay(time.Millisecond)
	result, err := DoWithResult(context.Background(), config, func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", transient()
		}
		return "success", nil
	})
	if err != nil {
		t.Errorf("expected success, got error: %v", err)
	}
	if result != "success" {
		t.Errorf("expected 'success', got %v", result)
	}
}

func TestCalculateBackoffCapped(t *testing.T) {
	rc := RetryConfig{InitialDelay: time.Second, MaxDelay: 2 * time.Second, Multiplier: 10}
	if got := calculateBackoff(1, rc); got != time.Second {
		t.Errorf("first retry delay: got %v, want 1s", got)
	}
	if got := calculateBackoff(3, rc); got != 2*time.Second {
		t.Errorf("capped delay: got %v, want 2s", got)
	}
}
