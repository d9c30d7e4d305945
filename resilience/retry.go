package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/kbukum/openaikit/errors"
)

// Policy runs one logical operation, possibly several times.
type Policy interface {
	Execute(ctx context.Context, op func(ctx context.Context) error) error
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	// MaxBackoff caps a single delay.
	MaxBackoff time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	// BackoffFactor is the multiplier for exponential backoff.
	BackoffFactor float64 `yaml:"backoff_factor" mapstructure:"backoff_factor"`
	// Jitter adds randomness to backoff (0.0 to 1.0).
	Jitter float64 `yaml:"jitter" mapstructure:"jitter"`
	// MaxElapsedTime bounds the total time spent across attempts and waits.
	MaxElapsedTime time.Duration `yaml:"max_elapsed_time" mapstructure:"max_elapsed_time"`
	// RetryIf determines if an error should be retried.
	RetryIf func(error) bool `yaml:"-" mapstructure:"-"`
	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, backoff time.Duration) `yaml:"-" mapstructure:"-"`
}

// DefaultRetryConfig returns sensible defaults: three attempts within a minute.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         0.2,
		MaxElapsedTime: time.Minute,
		RetryIf:        errors.IsRetryable,
	}
}

func (c *RetryConfig) applyDefaults() {
	def := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = def.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = def.MaxBackoff
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = def.BackoffFactor
	}
	if c.Jitter < 0 || c.Jitter > 1 {
		c.Jitter = def.Jitter
	}
	if c.MaxElapsedTime <= 0 {
		c.MaxElapsedTime = def.MaxElapsedTime
	}
	if c.RetryIf == nil {
		c.RetryIf = def.RetryIf
	}
}

// Backoff retries retryable failures with exponential backoff and jitter.
// It is safe for concurrent use; each Execute call keeps its own state.
type Backoff struct {
	cfg   RetryConfig
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewBackoff creates a Backoff policy; zero fields take their defaults.
func NewBackoff(cfg RetryConfig) *Backoff {
	cfg.applyDefaults()
	return &Backoff{cfg: cfg, now: time.Now, sleep: sleepContext}
}

// Config returns the effective configuration.
func (b *Backoff) Config() RetryConfig { return b.cfg }

// Execute runs op until it succeeds, fails terminally or the budget is spent.
func (b *Backoff) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	start := b.now()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Canceled(err)
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Canceled(ctxErr)
		}

		if !b.cfg.RetryIf(err) {
			return err
		}
		if attempt >= b.cfg.MaxAttempts {
			return errors.RetryExhausted(attempt, err)
		}

		backoff := b.delay(attempt)
		if b.now().Sub(start)+backoff > b.cfg.MaxElapsedTime {
			return errors.RetryExhausted(attempt, err)
		}

		if b.cfg.OnRetry != nil {
			b.cfg.OnRetry(attempt, err, backoff)
		}

		if err := b.sleep(ctx, backoff); err != nil {
			return errors.Canceled(err)
		}
	}
}

// delay returns min(MaxBackoff, InitialBackoff * factor^(attempt-1)) ± jitter.
func (b *Backoff) delay(attempt int) time.Duration {
	d := float64(b.cfg.InitialBackoff) * math.Pow(b.cfg.BackoffFactor, float64(attempt-1))
	if d > float64(b.cfg.MaxBackoff) {
		d = float64(b.cfg.MaxBackoff)
	}

	if b.cfg.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * b.cfg.Jitter
	}

	if d < 0 {
		d = float64(b.cfg.InitialBackoff)
	}
	return time.Duration(d)
}

// NoRetry runs the operation exactly once.
type NoRetry struct{}

// Execute runs op once.
func (NoRetry) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	return op(ctx)
}

// Retry runs fn under p and returns its result.
func Retry[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := p.Execute(ctx, func(ctx context.Context) error {
		r, err := fn(ctx)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
