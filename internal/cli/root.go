package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dl-alexandre/gitdrive/internal/types"
	"github.com/dl-alexandre/gitdrive/internal/utils"
	"github.com/dl-alexandre/gitdrive/pkg/version"
	"github.com/spf13/cobra"
)

var globalFlags types.GlobalFlags

var rootCmd = &cobra.Command{
	Use:   "gitdrive",
	Short: "Publish a git tree to a Google Drive folder",
	Long: `gitdrive mirrors the files of a git revision into a Google Drive folder.

Every published file carries the git blob hash of its content, so a run
only uploads what changed and removes what git no longer tracks.
Settings come from the environment or an env file; see 'gitdrive config show'.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateGlobalFlags()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := newOutput(cmd, "")
		if globalFlags.OutputFormat == types.OutputFormatJSON {
			return out.WriteSuccess("version", version.Get())
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar((*string)(&globalFlags.OutputFormat), "output", "table", "Output format (json, table)")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.JSON, "json", false, "Output in JSON format (alias for --output json)")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "Only log errors")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Debug, "debug", false, "Log every Drive request")
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogFile, "log-file", "", "Also write JSON logs to this file")
	rootCmd.PersistentFlags().StringVar(&globalFlags.EnvFile, "env-file", "", "Env file to read settings from (default .env when present)")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.DryRun, "dry-run", false, "Compute and log actions without touching Drive")
	rootCmd.PersistentFlags().IntVar(&globalFlags.Concurrency, "concurrency", 0, "Maximum Drive operations in flight (overrides GITDRIVE_CONCURRENCY)")

	rootCmd.AddCommand(versionCmd)
}

func validateGlobalFlags() error {
	if globalFlags.JSON {
		globalFlags.OutputFormat = types.OutputFormatJSON
	}

	if globalFlags.OutputFormat != types.OutputFormatJSON && globalFlags.OutputFormat != types.OutputFormatTable {
		return utils.Errorf(utils.ErrCodeInvalidArgument, "invalid output format: %s", globalFlags.OutputFormat)
	}
	if globalFlags.Concurrency < 0 {
		return utils.Errorf(utils.ErrCodeInvalidArgument, "--concurrency must not be negative")
	}
	return nil
}

// Execute runs the root command. Command failures have already been written
// as error envelopes; flag and argument errors are printed here.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var done *reportedError
	if errors.As(err, &done) {
		return err
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var appErr *utils.AppError
	if !errors.As(err, &appErr) {
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build(), err)
	}
	return err
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() types.GlobalFlags {
	return globalFlags
}
