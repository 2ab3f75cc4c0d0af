// File: internal/retry/policy.go
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	goretry "github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

var errNotYetReady = errors.New("attempt produced no result")

// Config describes a fixed-delay retry policy.
type Config struct {
	// Attempts is the total number of tries, including the first one.
	Attempts int
	// Delay is the fixed pause between tries. There is no exponential growth.
	Delay time.Duration
	// Retryable selects the faults that are absorbed as a failed attempt.
	// Any other fault propagates immediately. A nil Retryable absorbs nothing.
	Retryable func(error) bool
}

// Validate checks the policy invariants.
func (c Config) Validate() error {
	if c.Attempts < 1 {
		return fmt.Errorf("attempts must be at least 1, got %d", c.Attempts)
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay must not be negative, got %v", c.Delay)
	}
	return nil
}

// Operation is one try of a retried unit of work.
type Operation[T any] func(ctx context.Context) Outcome[T]

// Policy runs operations under a Config. A Policy is immutable once built
// and can be shared by operations of any result type.
type Policy struct {
	name        string
	cfg         Config
	clock       Clock
	logger      *zap.Logger
	beforeRetry func(ctx context.Context, attempt int, err error)
}

// Option customizes a Policy.
type Option func(*Policy)

// WithClock replaces the wall clock used for the delay between attempts.
func WithClock(c Clock) Option {
	return func(p *Policy) { p.clock = c }
}

// WithLogger sets the logger used to report absorbed faults.
func WithLogger(l *zap.Logger) Option {
	return func(p *Policy) { p.logger = l }
}

// WithBeforeRetry registers a hook that runs after a failed attempt when
// another attempt will follow. err is the absorbed fault, or nil when the
// attempt was merely not ready. It never runs after the final attempt.
func WithBeforeRetry(fn func(ctx context.Context, attempt int, err error)) Option {
	return func(p *Policy) { p.beforeRetry = fn }
}

// NewPolicy builds a named policy.
func NewPolicy(name string, cfg Config, opts ...Option) (*Policy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry policy %q: %w", name, err)
	}
	p := &Policy{
		name:   name,
		cfg:    cfg,
		clock:  RealClock(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.String("policy", name))
	return p, nil
}

// MustPolicy is NewPolicy for configurations known to be valid at compile time.
func MustPolicy(name string, cfg Config, opts ...Option) *Policy {
	p, err := NewPolicy(name, cfg, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Config returns the policy configuration.
func (p *Policy) Config() Config { return p.cfg }

// Execute runs op until it is Ready or the attempts are used up.
//
// It returns (value, true, nil) on the first Ready outcome. Exhaustion is not
// an error: it returns (zero, false, nil) and the caller treats it as "not yet
// achieved". A fault that the policy does not consider retryable is returned
// as is, without further attempts. Cancellation of ctx is returned as ctx.Err().
func Execute[T any](ctx context.Context, p *Policy, op Operation[T]) (T, bool, error) {
	var (
		zero       T
		result     T
		found      bool
		attempt    int
		lastErr    error
		propagated error
		sleepErr   error
	)

	between := goretry.BackoffFunc(func() (time.Duration, bool) {
		if p.beforeRetry != nil {
			p.beforeRetry(ctx, attempt, lastErr)
		}
		if err := p.clock.Sleep(ctx, p.cfg.Delay); err != nil {
			sleepErr = err
			return 0, true
		}
		return 0, false
	})
	backoff := goretry.WithMaxRetries(uint64(p.cfg.Attempts-1), between)

	_ = goretry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		out := op(ctx)
		lastErr = out.Err()

		switch {
		case out.IsReady():
			result, found = out.value, true
			return nil
		case !out.IsFaulted():
			p.logger.Debug("Attempt not ready.", zap.Int("attempt", attempt), zap.Int("attempts", p.cfg.Attempts))
			return goretry.RetryableError(errNotYetReady)
		case p.cfg.Retryable != nil && p.cfg.Retryable(out.err):
			p.logger.Warn("Allowable fault occurred, attempt consumed.",
				zap.Int("attempt", attempt),
				zap.Int("attempts", p.cfg.Attempts),
				zap.Error(out.err))
			return goretry.RetryableError(out.err)
		default:
			propagated = out.err
			return out.err
		}
	})

	switch {
	case found:
		return result, true, nil
	case propagated != nil:
		return zero, false, propagated
	case sleepErr != nil:
		return zero, false, sleepErr
	case ctx.Err() != nil:
		return zero, false, ctx.Err()
	}

	p.logger.Debug("Attempts exhausted without result.", zap.Int("attempts", attempt))
	return zero, false, nil
}
