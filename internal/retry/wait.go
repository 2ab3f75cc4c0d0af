// File: internal/retry/wait.go
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/xkilldash9x/elective-grabber/internal/fault"
)

// WaitConfig bounds a poll-until-condition wait.
type WaitConfig struct {
	Timeout  time.Duration
	Interval time.Duration
}

// Validate checks that both durations are positive and the interval fits in the timeout.
func (w WaitConfig) Validate() error {
	if w.Timeout <= 0 {
		return fmt.Errorf("wait timeout must be positive, got %v", w.Timeout)
	}
	if w.Interval <= 0 {
		return fmt.Errorf("wait interval must be positive, got %v", w.Interval)
	}
	if w.Interval > w.Timeout {
		return fmt.Errorf("wait interval %v exceeds timeout %v", w.Interval, w.Timeout)
	}
	return nil
}

// Predicate is a condition checked by WaitUntil.
type Predicate func(ctx context.Context) (bool, error)

// WaitUntil evaluates predicate every cfg.Interval until it holds or cfg.Timeout
// has elapsed. An AutomationFault from the predicate counts as "not yet"; any
// other error is returned immediately.
//
// On timeout, onTimeout (if set) runs exactly once before WaitUntil returns false,
// so that a retry layer above starts from a consistent page state. WaitUntil
// never retries on its own.
func WaitUntil(ctx context.Context, clock Clock, cfg WaitConfig, predicate Predicate, onTimeout func(ctx context.Context)) (bool, error) {
	if err := cfg.Validate(); err != nil {
		return false, err
	}

	deadline := clock.Now().Add(cfg.Timeout)
	for {
		ok, err := predicate(ctx)
		if err != nil && !fault.Is(err, fault.KindAutomation) {
			return false, err
		}
		if err == nil && ok {
			return true, nil
		}
		if err := clock.Sleep(ctx, cfg.Interval); err != nil {
			return false, err
		}
		if !clock.Now().Before(deadline) {
			break
		}
	}

	if onTimeout != nil {
		onTimeout(ctx)
	}
	return false, nil
}
