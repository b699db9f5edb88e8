package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"text/tabwriter"

	"github.com/freestar-tools/g2persist/internal/activity"
	"github.com/freestar-tools/g2persist/internal/desired"
	"github.com/freestar-tools/g2persist/internal/gwconfig"
	"github.com/freestar-tools/g2persist/internal/linkstate"
	"github.com/freestar-tools/g2persist/internal/reconcile"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current and persistent links per module",
	Long: `Show, for every module, the link the gateway reports, the configured
persistent link, how long the module has been idle on RF and its idle timer.

A missing status file is shown as no current links.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := gwconfig.Parse(settings.ConfigPath())
	if err != nil {
		return err
	}
	modules, err := settings.ModuleSet()
	if err != nil {
		return err
	}
	targets, err := desired.Resolve(cfg, modules)
	if err != nil {
		return fmt.Errorf("resolving persistent links: %w", err)
	}

	links := linkstate.Table{}
	if path, err := cfg.String(reconcile.KeyStatusFile); err == nil {
		links, err = linkstate.Read(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	flagsDir, _ := cfg.String(reconcile.KeyFlagsDir)

	timers := reconcile.Timers{PerModule: settings.TimerTable(), Default: settings.DefaultTimer}
	var monitor activity.Monitor

	fmt.Fprintf(cmd.OutOrStdout(), "Modules: %s\n\n", modules.String())
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "MODULE\tCURRENT\tPERSISTENT\tIDLE\tTIMER")
	for _, id := range modules {
		current := "-"
		if rec, ok := links.Get(id); ok {
			current = rec.Remote + " " + rec.RemoteModule
		}
		persistent := "-"
		if t, ok := targets[id]; ok {
			persistent = t.Callsign + " " + t.RemoteModule
		}
		idle := "-"
		if flagsDir != "" {
			idle = activity.FormatIdle(monitor.MinutesSinceModified(activity.MarkerPath(flagsDir, id)))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0fm\n", id, current, persistent, idle, timers.For(id))
	}
	return w.Flush()
}
