package cli

import (
	"fmt"

	"github.com/freestar-tools/g2persist/internal/config"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect settings",
	Long:  `Inspect g2persist settings stored at ~/.g2persist/settings.yaml.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(settings)
		if err != nil {
			return fmt.Errorf("marshaling settings: %w", err)
		}
		out := cmd.OutOrStdout()
		if settings.Source != "" {
			fmt.Fprintf(out, "# from %s\n", settings.Source)
		} else {
			fmt.Fprintln(out, "# built-in defaults")
		}
		_, err = out.Write(data)
		return err
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a settings file",
	Long: `Validate a settings file against the settings schema and check that
its settings_version is supported. Defaults to ~/.g2persist/settings.yaml.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.FilePath()
		if len(args) == 1 {
			path = args[0]
		}

		result, err := config.ValidateFile(path)
		if err != nil {
			return err
		}
		if !result.Valid {
			return &config.InvalidError{Path: path, Issues: result.Issues}
		}
		if err := config.CheckFileVersion(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is valid.\n", path)
		return nil
	},
}
