/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package retry_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"chainguard.dev/docprobe/agents/reader/retry"
)

func testConfig() retry.Config {
	return retry.Config{
		Timeout:    50 * time.Millisecond,
		MaxRetries: 1,
		Backoff:    time.Millisecond,
		MaxJitter:  time.Millisecond,
	}
}

func alwaysRetryable(err error) bool {
	return err != nil
}

func TestDo_Success(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	got, attempts, err := retry.Do(context.Background(), testConfig(), "test_op", alwaysRetryable, func(context.Context) (string, error) {
		calls.Add(1)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || attempts != 1 || calls.Load() != 1 {
		t.Fatalf("got = %q after %d attempts (%d calls), wanted ok after 1", got, attempts, calls.Load())
	}
}

func TestDo_RetriesOnce(t *testing.T) {
	t.Parallel()
	retryableErr := errors.New("503 overloaded")
	var calls atomic.Int32
	_, attempts, err := retry.Do(context.Background(), testConfig(), "test_op", alwaysRetryable, func(context.Context) (string, error) {
		calls.Add(1)
		return "", retryableErr
	})
	if !errors.Is(err, retryableErr) {
		t.Fatalf("expected wrapped error, got: %v", err)
	}
	if attempts != 2 || calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d (%d calls)", attempts, calls.Load())
	}
}

func TestDo_RecoversOnRetry(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	got, attempts, err := retry.Do(context.Background(), testConfig(), "test_op", alwaysRetryable, func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("429 rate limit")
		}
		return "recovered", nil
	})
	if err != nil || got != "recovered" || attempts != 2 {
		t.Fatalf("got = %q, %d, %v", got, attempts, err)
	}
}

func TestDo_NonRetryable(t *testing.T) {
	t.Parallel()
	permErr := errors.New("permission denied")
	_, attempts, err := retry.Do(context.Background(), testConfig(), "test_op", func(error) bool { return false }, func(context.Context) (string, error) {
		return "", permErr
	})
	if !errors.Is(err, permErr) {
		t.Fatalf("expected original error, got: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestDo_TimeoutIsRetried(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	start := time.Now()
	_, attempts, err := retry.Do(context.Background(), testConfig(), "test_op", nil, func(ctx context.Context) (string, error) {
		calls.Add(1)
		<-ctx.Done()
		return "", errors.New("client gave up")
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeouts took %v", elapsed)
	}
}

func TestDo_InFlightCallSurvivesCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	got, attempts, err := retry.Do(ctx, testConfig(), "test_op", alwaysRetryable, func(actx context.Context) (string, error) {
		cancel()
		select {
		case <-actx.Done():
			return "", actx.Err()
		case <-time.After(5 * time.Millisecond):
			return "finished", nil
		}
	})
	if err != nil || got != "finished" || attempts != 1 {
		t.Fatalf("got = %q, %d, %v", got, attempts, err)
	}
}

func TestDo_NoRetryAfterCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	_, _, err := retry.Do(ctx, testConfig(), "test_op", alwaysRetryable, func(context.Context) (string, error) {
		calls.Add(1)
		cancel()
		return "", errors.New("429")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 call after cancellation, got %d", calls.Load())
	}
}

func TestDo_CancelledBeforeStart(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, attempts, err := retry.Do(ctx, testConfig(), "test_op", alwaysRetryable, func(context.Context) (string, error) {
		return "unreachable", nil
	})
	if !errors.Is(err, context.Canceled) || attempts != 0 {
		t.Fatalf("got attempts = %d, err = %v", attempts, err)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	if err := retry.DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
	cfg := retry.DefaultConfig()
	cfg.MaxRetries = 2
	if err := cfg.Validate(); err == nil {
		t.Error("Validate(MaxRetries=2): got nil error")
	}
	cfg = retry.DefaultConfig()
	cfg.Timeout = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate(Timeout=0): got nil error")
	}
}
