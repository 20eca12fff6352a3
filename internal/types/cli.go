package types

// OutputFormat selects how command results are printed
type OutputFormat string

const (
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatTable OutputFormat = "table"
)

// CLIError is the stable, machine-readable error shape
type CLIError struct {
	Code        string                 `json:"code"`
	Message     string                 `json:"message"`
	HTTPStatus  int                    `json:"httpStatus,omitempty"`
	DriveReason string                 `json:"driveReason,omitempty"`
	Retryable   bool                   `json:"retryable"`
	Context     map[string]interface{} `json:"context,omitempty"`
}

// CLIWarning is a non-fatal condition reported alongside a result
type CLIWarning struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// CLIOutput is the JSON envelope written by every command
type CLIOutput struct {
	SchemaVersion string       `json:"schemaVersion"`
	TraceID       string       `json:"traceId"`
	Command       string       `json:"command"`
	Data          interface{}  `json:"data"`
	Warnings      []CLIWarning `json:"warnings"`
	Errors        []CLIError   `json:"errors"`
}

// GlobalFlags holds the persistent command-line flags
type GlobalFlags struct {
	OutputFormat OutputFormat
	Quiet        bool
	Verbose      bool
	Debug        bool
	LogFile      string
	EnvFile      string
	DryRun       bool
	Concurrency  int
	JSON         bool
}
