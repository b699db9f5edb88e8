package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/freestar-tools/g2persist/internal/gateway"
	"github.com/freestar-tools/g2persist/internal/schedule"
	"github.com/spf13/cobra"
)

var watchSchedule string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run reconciliation passes on a schedule",
	Long: `Run a reconciliation pass immediately and then on every tick of a cron
schedule, until interrupted. Accepts five-field cron specs and descriptors
such as "@every 1m" or "@hourly".

Failed commands are logged and retried on the next tick. The watch stops
if the link tool cannot be started at all.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := settings.Schedule
		if cmd.Flags().Changed("schedule") {
			spec = watchSchedule
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s := settings
		runner := &schedule.Runner{
			Schedule:  spec,
			Immediate: true,
			Logger:    logger,
			Job: func(ctx context.Context) error {
				return reconcileOnce(ctx, s, cmd.OutOrStdout(), cmd.ErrOrStderr(), false)
			},
			Fatal: isStartError,
		}
		return runner.Start(ctx)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", `Cron schedule (default from settings, "@every 1m")`)
	rootCmd.AddCommand(watchCmd)
}

func isStartError(err error) bool {
	var startErr *gateway.StartError
	return errors.As(err, &startErr)
}
