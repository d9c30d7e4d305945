package resilience

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/kbukum/openaikit/errors"
)

// fastBackoff returns a Backoff with a fake clock: sleeping advances the clock
// instead of blocking.
func fastBackoff(cfg RetryConfig) (*Backoff, *[]time.Duration) {
	b := NewBackoff(cfg)
	now := time.Unix(0, 0)
	var slept []time.Duration
	b.now = func() time.Time { return now }
	b.sleep = func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		slept = append(slept, d)
		now = now.Add(d)
		return nil
	}
	return b, &slept
}

func TestBackoff_SuccessFirstAttempt(t *testing.T) {
	b, slept := fastBackoff(RetryConfig{MaxAttempts: 3})

	callCount := 0
	err := b.Execute(context.Background(), func(ctx context.Context) error {
		callCount++
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if len(*slept) != 0 {
		t.Errorf("expected no waits, got %v", *slept)
	}
}

func TestBackoff_EventualSuccess(t *testing.T) {
	b, slept := fastBackoff(RetryConfig{MaxAttempts: 5, InitialBackoff: 10 * time.Millisecond})

	callCount := 0
	err := b.Execute(context.Background(), func(ctx context.Context) error {
		callCount++
		if callCount < 3 {
			return errors.Transport(nil)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
	if len(*slept) != 2 {
		t.Errorf("expected 2 waits, got %d", len(*slept))
	}
}

func TestBackoff_ExhaustsAttempts(t *testing.T) {
	b, _ := fastBackoff(RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond})

	last := errors.APIStatus(503, []byte("unavailable"))
	callCount := 0
	err := b.Execute(context.Background(), func(ctx context.Context) error {
		callCount++
		return last
	})

	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
	if !errors.IsKind(err, errors.KindRetryExhausted) {
		t.Fatalf("expected RetryExhausted, got %v", err)
	}
	appErr, _ := errors.AsAppError(err)
	if appErr.Cause != last {
		t.Errorf("expected last error as cause, got %v", appErr.Cause)
	}
	if appErr.Details["attempts"] != 3 {
		t.Errorf("expected attempts=3, got %v", appErr.Details["attempts"])
	}
}

func TestBackoff_TerminalErrorReturnedImmediately(t *testing.T) {
	b, slept := fastBackoff(RetryConfig{MaxAttempts: 5})

	terminal := errors.APIStatus(400, []byte("bad request"))
	callCount := 0
	err := b.Execute(context.Background(), func(ctx context.Context) error {
		callCount++
		return terminal
	})

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if err != terminal {
		t.Errorf("expected terminal error unchanged, got %v", err)
	}
	if len(*slept) != 0 {
		t.Errorf("expected no waits, got %v", *slept)
	}
}

func TestBackoff_ElapsedBudget(t *testing.T) {
	b, _ := fastBackoff(RetryConfig{
		MaxAttempts:    100,
		InitialBackoff: time.Second,
		MaxBackoff:     time.Second,
		Jitter:         0,
		MaxElapsedTime: 3500 * time.Millisecond,
	})

	callCount := 0
	err := b.Execute(context.Background(), func(ctx context.Context) error {
		callCount++
		return errors.Transport(nil)
	})

	if !errors.IsKind(err, errors.KindRetryExhausted) {
		t.Fatalf("expected RetryExhausted, got %v", err)
	}
	// Three 1s waits fit; a fourth would end at 4s.
	if callCount != 4 {
		t.Errorf("expected 4 calls within the elapsed budget, got %d", callCount)
	}
}

func TestBackoff_ContextCanceledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	// An hour-long backoff would overrun the elapsed budget; cancellation
	// must still win over exhaustion.
	retried := false
	b := NewBackoff(RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: time.Hour,
		MaxBackoff:     time.Hour,
		OnRetry:        func(int, error, time.Duration) { retried = true },
	})

	callCount := 0
	err := b.Execute(ctx, func(ctx context.Context) error {
		callCount++
		cancel()
		return errors.Transport(nil)
	})

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if !errors.IsKind(err, errors.KindTransport) {
		t.Fatalf("expected transport kind for cancellation, got %v", err)
	}
	if errors.IsRetryable(err) {
		t.Error("cancellation must not be retryable")
	}
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
	if retried {
		t.Error("OnRetry must not run after cancellation")
	}
}

func TestBackoff_ContextCanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b, _ := fastBackoff(RetryConfig{})

	called := false
	err := b.Execute(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	if called {
		t.Error("operation must not run with a canceled context")
	}
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestBackoff_OnRetryCallback(t *testing.T) {
	var attempts []int
	b, _ := fastBackoff(RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			attempts = append(attempts, attempt)
		},
	})

	_ = b.Execute(context.Background(), func(ctx context.Context) error {
		return errors.Transport(nil)
	})

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("expected OnRetry for attempts [1 2], got %v", attempts)
	}
}

func TestBackoff_Delay(t *testing.T) {
	b := NewBackoff(RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		BackoffFactor:  2,
	})
	b.cfg.Jitter = 0

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{10, time.Second},
	}
	for _, tc := range tests {
		if got := b.delay(tc.attempt); got != tc.want {
			t.Errorf("delay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestBackoff_DelayJitterBounds(t *testing.T) {
	b := NewBackoff(RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		BackoffFactor:  2,
		Jitter:         0.5,
	})
	for i := 0; i < 100; i++ {
		d := b.delay(1)
		if d < 50*time.Millisecond || d > 150*time.Millisecond {
			t.Fatalf("delay %v outside jitter bounds", d)
		}
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	if cfg.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.MaxAttempts)
	}
	if cfg.MaxElapsedTime != time.Minute {
		t.Errorf("expected 60s elapsed budget, got %v", cfg.MaxElapsedTime)
	}
	if cfg.RetryIf == nil {
		t.Fatal("expected RetryIf")
	}
	if !cfg.RetryIf(errors.APIStatus(429, nil)) {
		t.Error("429 should be retried")
	}
	if cfg.RetryIf(errors.APIStatus(401, nil)) {
		t.Error("401 should not be retried")
	}
}

func TestNoRetry(t *testing.T) {
	callCount := 0
	err := NoRetry{}.Execute(context.Background(), func(ctx context.Context) error {
		callCount++
		return errors.Transport(nil)
	})
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if !errors.IsKind(err, errors.KindTransport) {
		t.Errorf("expected the operation error unchanged, got %v", err)
	}
}

func TestRetry_Generic(t *testing.T) {
	b, _ := fastBackoff(RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond})

	callCount := 0
	result, err := Retry(context.Background(), b, func(ctx context.Context) (string, error) {
		callCount++
		if callCount < 2 {
			return "", errors.Transport(nil)
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Errorf("expected ok, got %s", result)
	}
	if callCount != 2 {
		t.Errorf("expected 2 calls, got %d", callCount)
	}
}

func TestRetry_GenericError(t *testing.T) {
	result, err := Retry(context.Background(), NoRetry{}, func(ctx context.Context) (int, error) {
		return 42, errors.InvalidArgument("nope")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if result != 0 {
		t.Errorf("expected zero value on error, got %d", result)
	}
}
