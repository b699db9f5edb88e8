package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/freestar-tools/g2persist/internal/config"
	"github.com/freestar-tools/g2persist/internal/gateway"
	"github.com/freestar-tools/g2persist/internal/gwconfig"
	"github.com/freestar-tools/g2persist/internal/reconcile"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runDryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one reconciliation pass",
	Long: `Compare the configured persistent links with the gateway's current links
and send LINK or UNLINK commands where they differ.

Modules with recent RF activity are left alone until they have been idle
for their configured timer. With --dry-run the decisions are printed but no
command is sent.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reconcileOnce(cmd.Context(), settings, cmd.OutOrStdout(), cmd.ErrOrStderr(), runDryRun)
	},
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Print decisions without sending any command")
	rootCmd.AddCommand(runCmd)
}

// reconcileOnce parses g2_link.cfg and runs a single pass. Failed commands
// are reported after every module has been processed.
func reconcileOnce(ctx context.Context, s config.Settings, stdout, stderr io.Writer, dryRun bool) error {
	cfg, err := gwconfig.Parse(s.ConfigPath())
	if err != nil {
		return err
	}

	engine, err := newEngine(s, stdout)
	if err != nil {
		return err
	}

	if dryRun {
		_, err := engine.Plan(ctx, cfg)
		return err
	}

	engine.Adapter = &gateway.ExecAdapter{Path: s.ToolPath(), Stdout: stdout, Stderr: stderr}
	report, err := engine.Run(ctx, cfg)
	if err != nil {
		return err
	}
	if failed := report.Failed(); len(failed) > 0 {
		for _, o := range failed {
			logger.Warn("phase failed",
				zap.String("module", string(o.Action.Module)),
				zap.Stringer("action", o.Action.Kind),
				zap.Int("exit_code", o.ExitCode))
		}
		return fmt.Errorf("%d gateway command(s) failed", len(failed))
	}
	return nil
}

// newEngine builds an engine from settings. The caller sets the adapter.
func newEngine(s config.Settings, out io.Writer) (*reconcile.Engine, error) {
	modules, err := s.ModuleSet()
	if err != nil {
		return nil, err
	}
	return &reconcile.Engine{
		Modules: modules,
		Timers: reconcile.Timers{
			PerModule: s.TimerTable(),
			Default:   s.DefaultTimer,
		},
		Admin:          s.Admin,
		TimeoutSeconds: s.CommandTimeout,
		Retries:        s.CommandRetries,
		Out:            out,
		Logger:         logger,
	}, nil
}
