package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dl-alexandre/gitdrive/internal/types"
	"github.com/dl-alexandre/gitdrive/internal/utils"
	"github.com/olekukonko/tablewriter"
)

// OutputFormatter handles output formatting for CLI commands
type OutputFormatter struct {
	format      types.OutputFormat
	quiet       bool
	verbose     bool
	traceID     string
	writer      io.Writer
	errorWriter io.Writer
	warnings    []types.CLIWarning
}

// OutputOptions configures the output formatter
type OutputOptions struct {
	Format  types.OutputFormat
	Quiet   bool
	Verbose bool
	// TraceID is the run id echoed in JSON envelopes
	TraceID string
	Writer  io.Writer
	Errors  io.Writer
}

// NewOutputFormatter creates a new output formatter
func NewOutputFormatter(opts OutputOptions) *OutputFormatter {
	f := &OutputFormatter{
		format:      opts.Format,
		quiet:       opts.Quiet,
		verbose:     opts.Verbose,
		traceID:     opts.TraceID,
		writer:      opts.Writer,
		errorWriter: opts.Errors,
		warnings:    []types.CLIWarning{},
	}
	if f.format == "" {
		f.format = types.OutputFormatTable
	}
	if f.writer == nil {
		f.writer = os.Stdout
	}
	if f.errorWriter == nil {
		f.errorWriter = os.Stderr
	}
	return f
}

// AddWarning adds a warning to be included in output
func (f *OutputFormatter) AddWarning(code, message, severity string) {
	f.warnings = append(f.warnings, types.CLIWarning{
		Code:     code,
		Message:  message,
		Severity: severity,
	})
}

// WriteSuccess writes a successful result
func (f *OutputFormatter) WriteSuccess(command string, data interface{}) error {
	switch f.format {
	case types.OutputFormatJSON:
		return f.writeJSON(types.CLIOutput{
			SchemaVersion: utils.SchemaVersion,
			TraceID:       f.traceID,
			Command:       command,
			Data:          data,
			Warnings:      f.warnings,
			Errors:        []types.CLIError{},
		})
	case types.OutputFormatTable:
		return f.writeTable(data)
	default:
		return fmt.Errorf("unsupported output format: %s", f.format)
	}
}

// WriteError writes an error result. Errors are always JSON so scripts can
// parse them.
func (f *OutputFormatter) WriteError(command string, cliErr types.CLIError) error {
	output := types.CLIOutput{
		SchemaVersion: utils.SchemaVersion,
		TraceID:       f.traceID,
		Command:       command,
		Warnings:      f.warnings,
		Errors:        []types.CLIError{cliErr},
	}
	encoder := json.NewEncoder(f.errorWriter)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// writeJSON writes data as JSON
func (f *OutputFormatter) writeJSON(data interface{}) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// writeTable writes data in table format
func (f *OutputFormatter) writeTable(data interface{}) error {
	if len(f.warnings) > 0 && !f.quiet {
		for _, warning := range f.warnings {
			if _, err := fmt.Fprintf(f.errorWriter, "Warning [%s]: %s\n", warning.Code, warning.Message); err != nil {
				return err
			}
		}
	}

	if renderable, ok := data.(types.TableRenderable); ok {
		return f.renderTable(renderable.AsTableRenderer())
	}
	if renderer, ok := data.(types.TableRenderer); ok {
		return f.renderTable(renderer)
	}
	if kv, ok := data.(map[string]interface{}); ok {
		return f.writeKeyValueTable(kv)
	}
	return f.writeJSON(data)
}

func (f *OutputFormatter) renderTable(renderer types.TableRenderer) error {
	rows := renderer.Rows()
	if len(rows) == 0 {
		if !f.quiet {
			if _, err := fmt.Fprintln(f.writer, renderer.EmptyMessage()); err != nil {
				return err
			}
		}
		return nil
	}

	table := tablewriter.NewWriter(f.writer)
	table.SetHeader(renderer.Headers())
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
	return nil
}

func (f *OutputFormatter) writeKeyValueTable(data map[string]interface{}) error {
	table := tablewriter.NewWriter(f.writer)
	table.SetHeader([]string{"Key", "Value"})
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, key := range sortedKeys(data) {
		table.Append([]string{key, fmt.Sprintf("%v", data[key])})
	}
	table.Render()
	return nil
}

// Log writes a message to stderr unless quiet mode is enabled
func (f *OutputFormatter) Log(format string, args ...interface{}) {
	if !f.quiet {
		_, _ = fmt.Fprintf(f.errorWriter, format+"\n", args...)
	}
}

// Verbose writes a message to stderr only in verbose mode
func (f *OutputFormatter) Verbose(format string, args ...interface{}) {
	if f.verbose {
		_, _ = fmt.Fprintf(f.errorWriter, "[VERBOSE] "+format+"\n", args...)
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
