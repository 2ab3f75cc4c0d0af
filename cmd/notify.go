// File: cmd/notify.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/elective-grabber/internal/config"
	"github.com/xkilldash9x/elective-grabber/internal/notify"
	"github.com/xkilldash9x/elective-grabber/internal/observability"
)

// newNotifyTestCmd creates the `notify-test` command, which sends one test
// message through the configured channel.
func newNotifyTestCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "notify-test",
		Short: "Send a test notification with the configured mail settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Logger, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer observability.Sync(logger)

			channel, err := newNotifier(cfg.Notifier, logger)
			if err != nil {
				return err
			}
			if err := channel.Send(cmd.Context(), notify.Test()); err != nil {
				return fmt.Errorf("test notification failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Test notification sent to %s\n", cfg.Notifier.SendTo)
			return nil
		},
	}
}
