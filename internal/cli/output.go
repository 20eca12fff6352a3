package cli

import (
	"errors"

	"github.com/dl-alexandre/gitdrive/internal/config"
	"github.com/dl-alexandre/gitdrive/internal/utils"
	"github.com/spf13/cobra"
)

// reportedError marks a failure whose envelope was already written
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// newOutput builds a formatter over the command's writers
func newOutput(cmd *cobra.Command, traceID string) *config.OutputFormatter {
	flags := GetGlobalFlags()
	return config.NewOutputFormatter(config.OutputOptions{
		Format:  flags.OutputFormat,
		Quiet:   flags.Quiet,
		Verbose: flags.Verbose,
		TraceID: traceID,
		Writer:  cmd.OutOrStdout(),
		Errors:  cmd.ErrOrStderr(),
	})
}

// fail writes err as an error envelope and returns it marked as reported.
// Errors without a code are reported as UNKNOWN.
func fail(out *config.OutputFormatter, command string, err error) error {
	var appErr *utils.AppError
	if !errors.As(err, &appErr) {
		appErr = utils.WrapAppError(utils.NewCLIError(utils.ErrCodeUnknown, err.Error()).Build(), err)
		err = appErr
	}
	if writeErr := out.WriteError(command, appErr.CLIError); writeErr != nil {
		return writeErr
	}
	return &reportedError{err: err}
}
