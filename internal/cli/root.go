package cli

import (
	"fmt"
	"os"

	"github.com/freestar-tools/g2persist/internal/branding"
	"github.com/freestar-tools/g2persist/internal/config"
	"github.com/freestar-tools/g2persist/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	settingsFile string
	verbose      bool
)

// Resolved by the root pre-run hook for every command that needs them.
var (
	settings config.Settings
	logger   = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` keeps the persistent links of a g2_link D-STAR gateway in place.

Each run compares the LINK_AT_STARTUP_<module> entries of g2_link.cfg with
the links listed in the gateway's status file, and re-establishes the
configured link on every module that has been idle on RF long enough.
Schedule "run" from cron or a systemd timer, or use "watch".`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&settingsFile, "settings", "", "Settings file (default ~/"+branding.HomeDir()+"/settings.yaml)")
	flags.String("install-dir", "", "g2_link install directory (default /root/g2_link)")
	flags.String("admin", "", "Admin callsign passed to the link tool (default N0HAP)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// setup builds the logger and resolves settings from flags, environment
// and the settings file.
func setup(cmd *cobra.Command, args []string) error {
	if skipSetup(cmd) {
		return nil
	}

	l, err := logging.New(verbose)
	if err != nil {
		return err
	}
	logger = l

	v := viper.New()
	flags := cmd.Root().PersistentFlags()
	for key, name := range map[string]string{
		config.KeyInstallDir: "install-dir",
		config.KeyAdmin:      "admin",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("binding flag --%s: %w", name, err)
		}
	}

	s, err := config.Load(v, settingsFile)
	if err != nil {
		return err
	}
	settings = s
	logger.Debug("settings loaded",
		zap.String("source", s.Source),
		zap.String("config", s.ConfigPath()),
		zap.String("tool", s.ToolPath()))
	return nil
}

// skipSetup reports whether cmd runs without settings.
func skipSetup(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "validate":
		return true
	}
	return false
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}
