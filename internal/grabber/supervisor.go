// File: internal/grabber/supervisor.go
package grabber

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/elective-grabber/internal/browser"
	"github.com/xkilldash9x/elective-grabber/internal/config"
	"github.com/xkilldash9x/elective-grabber/internal/fault"
	"github.com/xkilldash9x/elective-grabber/internal/notify"
	"github.com/xkilldash9x/elective-grabber/internal/observability"
	"github.com/xkilldash9x/elective-grabber/internal/retry"
)

// State is the lifecycle position of the Supervisor.
type State int32

const (
	StateStart State = iota
	StateLoggedIn
	StatePolling
	StateStopped
	StateFatal
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateLoggedIn:
		return "logged_in"
	case StatePolling:
		return "polling"
	case StateStopped:
		return "stopped"
	case StateFatal:
		return "fatal"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Opener creates the browser session the Supervisor will own.
type Opener func(ctx context.Context) (browser.Facade, error)

// Supervisor owns the browser session for the lifetime of the process and
// drives login and the poll loop. It is the only place where a fault turns fatal.
type Supervisor struct {
	open     Opener
	site     config.SiteConfig
	poll     config.PollConfig
	notifier notify.Channel
	clock    retry.Clock
	rnd      *rand.Rand
	metrics  *observability.Metrics
	logger   *zap.Logger
	runID    string

	state atomic.Int32
}

// SupervisorOption customizes a Supervisor.
type SupervisorOption func(*Supervisor)

// WithClock replaces the wall clock used for every wait and pause.
func WithClock(c retry.Clock) SupervisorOption {
	return func(s *Supervisor) { s.clock = c }
}

// WithRand sets the random source of the recovery scroll.
func WithRand(r *rand.Rand) SupervisorOption {
	return func(s *Supervisor) { s.rnd = r }
}

func WithMetrics(m *observability.Metrics) SupervisorOption {
	return func(s *Supervisor) { s.metrics = m }
}

// WithRunID tags the fatal notification with the id of this run.
func WithRunID(id string) SupervisorOption {
	return func(s *Supervisor) { s.runID = id }
}

func NewSupervisor(
	open Opener,
	site config.SiteConfig,
	poll config.PollConfig,
	notifier notify.Channel,
	logger *zap.Logger,
	opts ...SupervisorOption,
) *Supervisor {
	s := &Supervisor{
		open:     open,
		site:     site,
		poll:     poll,
		notifier: notifier,
		clock:    retry.RealClock(),
		metrics:  observability.NewNopMetrics(),
		logger:   logger.Named("supervisor"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd == nil {
		now := uint64(time.Now().UnixNano())
		s.rnd = rand.New(rand.NewPCG(now, now>>32))
	}
	return s
}

// State returns the current lifecycle state. Safe for concurrent use.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

func (s *Supervisor) setState(st State) {
	s.state.Store(int32(st))
	s.logger.Debug("State changed.", zap.Stringer("state", st))
}

// Run opens the session and polls until ctx is cancelled or a fault reaches
// this level. Cancellation is a clean stop and returns nil. Any other fault is
// logged, reported in a single notification and returned as a fatal fault.
// The session is closed exactly once on every path.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Info("Starting scraper.")
	s.setState(StateStart)

	page, err := s.open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			s.setState(StateStopped)
			return nil
		}
		return s.fail(ctx, fmt.Errorf("failed to open browser session: %w", err))
	}
	defer func() {
		if err := page.Close(); err != nil {
			s.logger.Warn("Failed to close browser session.", zap.Error(err))
		}
		s.logger.Info("Stopping scraper.", zap.Stringer("state", s.State()))
	}()

	err = s.loop(ctx, page)
	if ctx.Err() != nil {
		s.setState(StateStopped)
		return nil
	}
	return s.fail(ctx, err)
}

func (s *Supervisor) loop(ctx context.Context, page browser.Facade) error {
	if err := page.Navigate(ctx, s.site.URL); err != nil {
		return err
	}

	state, err := NewLogin(page, s.site, s.clock, s.logger).Run(ctx)
	if err != nil {
		return err
	}
	if state == LoginDone {
		s.setState(StateLoggedIn)
	}

	if err := page.Maximize(ctx); err != nil {
		if !fault.Is(err, fault.KindAutomation) {
			return err
		}
		s.logger.Warn("Could not maximize the browser window.", zap.Error(err))
	}

	action := NewActionAttempt(page, s.clock, s.rnd, s.metrics, s.logger)
	cycle := NewPollCycle(page, s.notifier, action, s.site, s.poll, s.clock, s.metrics, s.logger)

	s.setState(StatePolling)
	for n := 1; ; n++ {
		if err := cycle.Run(ctx); err != nil {
			return fmt.Errorf("poll cycle %d: %w", n, err)
		}
		if err := page.Refresh(ctx); err != nil {
			return fmt.Errorf("refresh after cycle %d: %w", n, err)
		}
	}
}

func (s *Supervisor) fail(ctx context.Context, err error) error {
	err = fault.Fatal("supervisor", err)
	s.setState(StateFatal)
	s.logger.Error("Exception, stopping.", zap.Error(err))

	if sendErr := s.notifier.Send(ctx, notify.Fatal(err, s.runID)); sendErr != nil {
		s.metrics.Notifications.WithLabelValues(string(notify.KindFatal), observability.NotifyFailed).Inc()
		s.logger.Error("Failed to send fatal notification.", zap.Error(sendErr))
	} else {
		s.metrics.Notifications.WithLabelValues(string(notify.KindFatal), observability.NotifySent).Inc()
	}
	return err
}
