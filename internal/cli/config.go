package cli

import (
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  "Inspect the settings gitdrive reads from the environment and the env file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  "Display the effective settings after env file, environment and flags are applied. Secrets are masked.",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that a sync could start with the current settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd, "")

	cfg, err := loadConfig(GetGlobalFlags())
	if err != nil {
		return fail(out, "config.show", err)
	}
	return out.WriteSuccess("config.show", cfg.Redacted())
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd, "")

	cfg, err := loadConfig(GetGlobalFlags())
	if err != nil {
		return fail(out, "config.validate", err)
	}
	if err := cfg.Validate(); err != nil {
		return fail(out, "config.validate", err)
	}

	out.Log("Configuration is valid")
	return out.WriteSuccess("config.validate", map[string]interface{}{
		"valid":       true,
		"mailEnabled": cfg.MailEnabled(),
		"history":     cfg.HistoryDB != "",
		"dryRun":      cfg.DryRun,
	})
}
