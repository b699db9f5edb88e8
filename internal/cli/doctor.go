package cli

import (
	"fmt"

	"github.com/freestar-tools/g2persist/internal/doctor"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Health check for the g2_link installation",
	Long: `Run diagnostic checks on the g2_link installation: the config file and
the keys a run reads, every LINK_AT_STARTUP entry, the RF flags directory,
the status file and the link tool.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary := doctor.Check(cmd.OutOrStdout(), settings)
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d ok, %d warning(s), %d failure(s)\n",
			summary.OK, summary.Warnings, summary.Failures)
		if !summary.Healthy() {
			return fmt.Errorf("%d check(s) failed", summary.Failures)
		}
		return nil
	},
}
