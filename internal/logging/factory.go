package logging

import (
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
)

// LogConfig describes which sinks NewLogger assembles
type LogConfig struct {
	Level           LogLevel
	OutputFile      string
	MaxFileSize     int64
	EnableConsole   bool
	EnableDebug     bool
	RedactSensitive bool
	EnableColor     bool
	EnableTimestamp bool
}

// DefaultLogConfig returns console logging at INFO with redaction on
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:           INFO,
		MaxFileSize:     100 * 1024 * 1024,
		EnableConsole:   true,
		RedactSensitive: true,
		EnableColor:     true,
		EnableTimestamp: true,
	}
}

// NewLogger builds a console logger, a file logger, both, or a no-op logger
func NewLogger(config LogConfig) (Logger, error) {
	var sinks []Logger

	if config.OutputFile != "" {
		fileLogger, err := NewFileLogger(FileLoggerConfig{
			FilePath:      config.OutputFile,
			Level:         config.Level,
			MaxFileSize:   config.MaxFileSize,
			RotateEnabled: config.MaxFileSize > 0,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fileLogger)
	}

	if config.EnableConsole {
		sinks = append(sinks, NewConsoleLogger(ConsoleLoggerConfig{
			Level:            config.Level,
			ColorEnabled:     config.EnableColor,
			TimestampEnabled: config.EnableTimestamp,
			RedactSensitive:  config.RedactSensitive,
		}))
	}

	switch len(sinks) {
	case 0:
		return NewNoOpLogger(), nil
	case 1:
		return sinks[0], nil
	default:
		return NewMultiLogger(sinks...), nil
	}
}

// NewDebugLoggerWithTransport builds a logger and, when EnableDebug is set,
// an HTTP transport that logs every Drive request through it.
func NewDebugLoggerWithTransport(config LogConfig) (Logger, *DebugTransport, error) {
	if config.EnableDebug {
		config.Level = DEBUG
	}
	logger, err := NewLogger(config)
	if err != nil {
		return nil, nil, err
	}
	if !config.EnableDebug {
		return logger, nil, nil
	}
	return logger, NewDebugTransport(http.DefaultTransport, logger), nil
}

// DebugTransport logs method, path, status and timing of each request.
// Query strings are dropped since they may carry tokens.
type DebugTransport struct {
	base   http.RoundTripper
	logger Logger
}

// NewDebugTransport wraps base
func NewDebugTransport(base http.RoundTripper, logger Logger) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &DebugTransport{base: base, logger: logger}
}

// Base returns the wrapped transport
func (t *DebugTransport) Base() http.RoundTripper {
	return t.base
}

func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	fields := []Field{
		F("method", req.Method),
		F("host", req.URL.Host),
		F("path", req.URL.Path),
		F("duration_ms", time.Since(start).Milliseconds()),
	}
	if req.ContentLength > 0 {
		fields = append(fields, F("request_size", humanize.Bytes(uint64(req.ContentLength))))
	}
	if err != nil {
		t.logger.Debug("HTTP request failed", append(fields, F("error", err.Error()))...)
		return nil, err
	}
	t.logger.Debug("HTTP request", append(fields, F("status", resp.StatusCode))...)
	return resp, nil
}
