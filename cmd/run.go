// File: cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/elective-grabber/internal/browser"
	"github.com/xkilldash9x/elective-grabber/internal/config"
	"github.com/xkilldash9x/elective-grabber/internal/grabber"
	"github.com/xkilldash9x/elective-grabber/internal/notify"
	"github.com/xkilldash9x/elective-grabber/internal/observability"
)

// newRunCmd creates the `run` command, the long-running poll loop.
func newRunCmd(v *viper.Viper) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Log in and poll the shortlist until stopped or a fatal fault occurs",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Flags override the config file and environment.
			if err := v.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			if err := v.BindPFlag("poll.refresh_interval", cmd.Flags().Lookup("refresh-interval")); err != nil {
				return err
			}
			if local, _ := cmd.Flags().GetBool("local"); local {
				v.Set("browser.mode", config.BrowserModeLocal)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				return err
			}
			return runGrabber(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}

	runCmd.Flags().Bool("headless", false, "Run the local browser without a window")
	runCmd.Flags().Bool("local", false, "Launch browser.local_path instead of attaching to browser.remote_url")
	runCmd.Flags().Int("refresh-interval", 10, "Seconds between poll cycles (minimum 10)")
	return runCmd
}

func runGrabber(ctx context.Context, cfg *config.Config, console io.Writer) error {
	runID := uuid.NewString()

	logger, err := newLogger(cfg.Logger, console)
	if err != nil {
		return err
	}
	defer observability.Sync(logger)
	logger = logger.With(zap.String("run_id", runID))
	logger.Info("Starting elective-grabber.", zap.String("version", Version), zap.String("browser_mode", cfg.Browser.Mode))

	notifier, err := newNotifier(cfg.Notifier, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg)

	open := func(ctx context.Context) (browser.Facade, error) {
		return browser.NewSession(ctx, cfg.Browser, logger)
	}
	supervisor := grabber.NewSupervisor(open, cfg.Site, cfg.Poll, notifier, logger,
		grabber.WithMetrics(metrics),
		grabber.WithRunID(runID),
	)

	if !cfg.Metrics.Enabled {
		return supervisor.Run(ctx)
	}

	router := observability.NewStatusRouter(reg, func() (string, bool) {
		state := supervisor.State()
		return state.String(), state != grabber.StateFatal
	})
	server := observability.NewStatusServer(cfg.Metrics.Address, router, logger)

	g, gctx := errgroup.WithContext(ctx)
	serverCtx, stopServer := context.WithCancel(gctx)
	defer stopServer()

	g.Go(func() error {
		defer stopServer()
		return supervisor.Run(gctx)
	})
	g.Go(func() error {
		if err := server.Run(serverCtx); err != nil {
			return fmt.Errorf("status server: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// newNotifier returns the SMTP channel, or a log-only channel when mail is disabled.
func newNotifier(cfg config.NotifierConfig, logger *zap.Logger) (notify.Channel, error) {
	if !cfg.Enabled {
		logger.Warn("Mail notifications are disabled; events are only logged.")
		return notify.NewLogChannel(logger), nil
	}
	return notify.NewSMTPChannel(cfg, logger)
}
