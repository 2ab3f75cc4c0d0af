// File: internal/grabber/action.go
package grabber

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/elective-grabber/internal/browser"
	"github.com/xkilldash9x/elective-grabber/internal/fault"
	"github.com/xkilldash9x/elective-grabber/internal/observability"
	"github.com/xkilldash9x/elective-grabber/internal/retry"
)

var (
	// elementWait bounds the visibility and clickability waits on a single element.
	elementWait = retry.WaitConfig{Timeout: 10 * time.Second, Interval: 200 * time.Millisecond}

	clickRetry = retry.Config{
		Attempts:  3,
		Delay:     5 * time.Second,
		Retryable: fault.KindIn(fault.KindAutomation),
	}
)

// Recovery scroll: a uniform number of ArrowDown presses in [min, max).
const (
	recoveryMinSteps  = 3
	recoveryMaxSteps  = 10
	recoveryStepPause = 300 * time.Millisecond
)

// AttemptResult is the outcome of trying to click an actionable control.
type AttemptResult int

const (
	// Success means the click went through.
	Success AttemptResult = iota + 1
	// RecoveredRetry marks a failed try after which the view was scrolled and another try follows.
	RecoveredRetry
	// Exhausted means every try failed.
	Exhausted
)

func (r AttemptResult) String() string {
	switch r {
	case Success:
		return "success"
	case RecoveredRetry:
		return "recovered_retry"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Control is an element found on the shortlist together with its action token.
type Control struct {
	Element browser.Element
	Token   string
}

// ActionAttempt clicks a control, scrolling the page between failed tries on
// the assumption that the control is covered or below the viewport.
type ActionAttempt struct {
	page    browser.Facade
	policy  *retry.Policy
	clock   retry.Clock
	rnd     *rand.Rand
	metrics *observability.Metrics
	logger  *zap.Logger
}

func NewActionAttempt(page browser.Facade, clock retry.Clock, rnd *rand.Rand, metrics *observability.Metrics, logger *zap.Logger) *ActionAttempt {
	a := &ActionAttempt{
		page:    page,
		clock:   clock,
		rnd:     rnd,
		metrics: metrics,
		logger:  logger.Named("action"),
	}
	a.policy = retry.MustPolicy("click", clickRetry,
		retry.WithClock(clock),
		retry.WithLogger(a.logger),
		retry.WithBeforeRetry(a.scrollDown),
	)
	return a
}

// Attempt tries to click control. A fault outside the automation kind stops
// the attempt and is returned with Exhausted.
func (a *ActionAttempt) Attempt(ctx context.Context, control Control) (AttemptResult, error) {
	_, clicked, err := retry.Execute(ctx, a.policy, func(ctx context.Context) retry.Outcome[bool] {
		return retry.FromBool(a.try(ctx, control.Element))
	})
	if err != nil {
		return Exhausted, err
	}
	if !clicked {
		a.metrics.ClickAttempts.WithLabelValues(observability.ClickExhausted).Inc()
		a.logger.Warn("Giving up on control.", zap.String("token", control.Token))
		return Exhausted, nil
	}
	a.metrics.ClickAttempts.WithLabelValues(observability.ClickSuccess).Inc()
	a.logger.Info("Clicked add button successfully.", zap.String("token", control.Token))
	return Success, nil
}

func (a *ActionAttempt) try(ctx context.Context, el browser.Element) (bool, error) {
	if err := a.page.MoveTo(ctx, el); err != nil {
		return false, err
	}
	el, err := a.page.WaitVisible(ctx, el, elementWait)
	if err != nil {
		return false, err
	}
	if el, err = a.page.WaitClickable(ctx, el, elementWait); err != nil {
		return false, err
	}
	if err := a.page.Click(ctx, el); err != nil {
		return false, err
	}
	return true, nil
}

// scrollDown scrolls the view down. Its own faults are logged and dropped.
func (a *ActionAttempt) scrollDown(ctx context.Context, attempt int, cause error) {
	a.metrics.ClickAttempts.WithLabelValues(observability.ClickRecoveredRetry).Inc()

	steps := recoveryMinSteps + a.rnd.IntN(recoveryMaxSteps-recoveryMinSteps)
	a.logger.Info("Click failed, scrolling before next try.",
		zap.Stringer("result", RecoveredRetry),
		zap.Int("attempt", attempt),
		zap.Int("steps", steps),
		zap.Error(cause))

	for i := 0; i < steps; i++ {
		if err := a.page.SendKey(ctx, browser.KeyArrowDown); err != nil {
			a.logger.Debug("Recovery scroll failed.", zap.Int("step", i), zap.Error(err))
			return
		}
		if err := a.clock.Sleep(ctx, recoveryStepPause); err != nil {
			return
		}
	}
}
