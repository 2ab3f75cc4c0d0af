// File: internal/grabber/poll.go
package grabber

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/elective-grabber/internal/browser"
	"github.com/xkilldash9x/elective-grabber/internal/config"
	"github.com/xkilldash9x/elective-grabber/internal/fault"
	"github.com/xkilldash9x/elective-grabber/internal/notify"
	"github.com/xkilldash9x/elective-grabber/internal/observability"
	"github.com/xkilldash9x/elective-grabber/internal/retry"
)

var (
	// shortlistWait is deliberately long: a slow page load is the common case.
	shortlistWait = retry.WaitConfig{Timeout: 360 * time.Second, Interval: 500 * time.Millisecond}

	// shortlistRetry reloads the page between waits to recover from a broken render.
	shortlistRetry = retry.Config{
		Attempts:  5,
		Delay:     time.Second,
		Retryable: fault.KindIn(fault.KindAutomation),
	}
)

// PollCycle performs one pass over the shortlist: wait for it to load, click
// every control that carries an action token, then pause.
type PollCycle struct {
	page      browser.Facade
	notifier  notify.Channel
	action    *ActionAttempt
	shortlist *retry.Policy
	site      config.SiteConfig
	pause     time.Duration
	clock     retry.Clock
	metrics   *observability.Metrics
	logger    *zap.Logger
}

func NewPollCycle(
	page browser.Facade,
	notifier notify.Channel,
	action *ActionAttempt,
	site config.SiteConfig,
	poll config.PollConfig,
	clock retry.Clock,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *PollCycle {
	logger = logger.Named("poll")
	return &PollCycle{
		page:     page,
		notifier: notifier,
		action:   action,
		shortlist: retry.MustPolicy("shortlist", shortlistRetry,
			retry.WithClock(clock),
			retry.WithLogger(logger),
		),
		site:    site,
		pause:   poll.RefreshPause(),
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}
}

// Run executes one cycle. Any error it returns ends polling.
func (c *PollCycle) Run(ctx context.Context) error {
	start := c.clock.Now()

	loaded, err := c.waitForShortlist(ctx)
	if err != nil {
		return err
	}
	if !loaded {
		c.metrics.ShortlistLoadFailures.Inc()
		c.logger.Warn("Shortlist did not load, scanning the page anyway.",
			zap.Int("attempts", shortlistRetry.Attempts),
			zap.Duration("wait", shortlistWait.Timeout))
	}

	controls, err := c.page.FindAll(ctx, c.site.ControlSelector)
	if err != nil {
		return fmt.Errorf("failed to enumerate controls: %w", err)
	}
	c.logger.Debug("Controls discovered.", zap.Int("count", len(controls)))

	// Strictly in discovery order: a click can move the controls after it.
	for i, el := range controls {
		control, err := c.inspect(ctx, el)
		if err != nil {
			return fmt.Errorf("failed to inspect control %d: %w", i, err)
		}
		if control.Token == "" {
			continue
		}
		if err := c.process(ctx, control); err != nil {
			return err
		}
	}

	c.metrics.PollCycles.Inc()
	c.metrics.CycleDuration.Observe(c.clock.Now().Sub(start).Seconds())
	c.logger.Debug("Poll cycle complete.", zap.Duration("pause", c.pause))
	return c.clock.Sleep(ctx, c.pause)
}

func (c *PollCycle) waitForShortlist(ctx context.Context) (bool, error) {
	_, loaded, err := retry.Execute(ctx, c.shortlist, func(ctx context.Context) retry.Outcome[bool] {
		return retry.FromBool(retry.WaitUntil(ctx, c.clock, shortlistWait, c.shortlistVisible, c.reloadAfterTimeout))
	})
	return loaded, err
}

func (c *PollCycle) shortlistVisible(ctx context.Context) (bool, error) {
	els, err := c.page.FindAll(ctx, c.site.ShortlistSelector)
	if err != nil || len(els) == 0 {
		return false, err
	}
	return c.page.Visible(ctx, els[0])
}

func (c *PollCycle) reloadAfterTimeout(ctx context.Context) {
	c.logger.Warn("Failed to load shortlist element, reloading.", zap.Duration("waited", shortlistWait.Timeout))
	if err := c.page.Refresh(ctx); err != nil {
		c.logger.Error("Reload after shortlist timeout failed.", zap.Error(err))
	}
}

// inspect brings el into view and reads its action token.
func (c *PollCycle) inspect(ctx context.Context, el browser.Element) (Control, error) {
	if err := c.page.MoveTo(ctx, el); err != nil {
		return Control{}, err
	}
	el, err := c.page.WaitVisible(ctx, el, elementWait)
	if err != nil {
		return Control{}, err
	}
	token, err := c.page.Attribute(ctx, el, c.site.TokenAttribute)
	if err != nil {
		return Control{}, err
	}
	return Control{Element: el, Token: token}, nil
}

func (c *PollCycle) process(ctx context.Context, control Control) error {
	c.metrics.ActionableControls.Inc()
	c.logger.Info("Found addable course.", zap.String("token", control.Token))
	if err := send(ctx, c.notifier, notify.Found(control.Token), c.metrics, c.logger); err != nil {
		return err
	}

	result, err := c.action.Attempt(ctx, control)
	if err != nil {
		return err
	}
	if result != Success {
		return nil
	}

	c.logger.Info("Added course.", zap.String("token", control.Token))
	return send(ctx, c.notifier, notify.Added(control.Token), c.metrics, c.logger)
}

// send delivers ev. A delivery fault is logged and counted but not returned;
// notifications are advisory and never stop the poll loop.
func send(ctx context.Context, ch notify.Channel, ev notify.Event, metrics *observability.Metrics, logger *zap.Logger) error {
	err := ch.Send(ctx, ev)
	if err == nil {
		metrics.Notifications.WithLabelValues(string(ev.Kind), observability.NotifySent).Inc()
		return nil
	}

	metrics.Notifications.WithLabelValues(string(ev.Kind), observability.NotifyFailed).Inc()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !fault.Is(err, fault.KindDelivery) {
		err = fault.Delivery("send "+string(ev.Kind), err)
	}
	logger.Error("Failed to send notification.", zap.String("subject", ev.Subject), zap.Error(err))
	return nil
}
