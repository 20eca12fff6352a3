package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset = "\033[0m"
	ansiGray  = "\033[90m"
)

var levelColors = map[LogLevel]string{
	DEBUG: "\033[34m",
	INFO:  ansiReset,
	WARN:  "\033[33m",
	ERROR: "\033[31m",
}

// ConsoleLogger writes human-readable lines, by default to stderr
type ConsoleLogger struct {
	mu      *sync.Mutex // shared with traced copies
	opts    ConsoleLoggerConfig
	traceID string
}

// ConsoleLoggerConfig contains configuration for console logger
type ConsoleLoggerConfig struct {
	Writer           io.Writer
	Level            LogLevel
	ColorEnabled     bool
	TimestampEnabled bool
	RedactSensitive  bool
}

// NewConsoleLogger creates a new console logger
func NewConsoleLogger(config ConsoleLoggerConfig) *ConsoleLogger {
	if config.Writer == nil {
		config.Writer = os.Stderr
	}
	return &ConsoleLogger{mu: &sync.Mutex{}, opts: config}
}

// Secrets a sync run can carry: OAuth tokens, inline service account keys,
// Slack webhook paths and SendGrid keys.
var redactions = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile(`Bearer\s+[A-Za-z0-9\-._~+/]+=*`), "Bearer [REDACTED]"},
	{regexp.MustCompile(`(access_token|refresh_token|id_token)["']?\s*[:=]\s*["']?[A-Za-z0-9\-._~+/]+=*`), "$1=[REDACTED]"},
	{regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[^-]*-----END [A-Z ]*PRIVATE KEY-----`), "[REDACTED PRIVATE KEY]"},
	{regexp.MustCompile(`https://hooks\.slack\.com/services/[A-Za-z0-9/_+-]+`), "https://hooks.slack.com/services/[REDACTED]"},
	{regexp.MustCompile(`SG\.[A-Za-z0-9_\-]{16,}\.[A-Za-z0-9_\-]{16,}`), "SG.[REDACTED]"},
	{regexp.MustCompile(`(?i)authorization["']?\s*[:=]\s*["']?[^\s"']+`), "Authorization: [REDACTED]"},
}

func redactSensitiveData(s string) string {
	for _, r := range redactions {
		s = r.pattern.ReplaceAllString(s, r.repl)
	}
	return s
}

func (l *ConsoleLogger) paint(sb *strings.Builder, color, text string) {
	if l.opts.ColorEnabled {
		sb.WriteString(color)
		sb.WriteString(text)
		sb.WriteString(ansiReset)
		return
	}
	sb.WriteString(text)
}

func (l *ConsoleLogger) clean(s string) string {
	if l.opts.RedactSensitive {
		return redactSensitiveData(s)
	}
	return s
}

// formatMessage renders "[time] LEVEL [trace] message k=v, k=v"
func (l *ConsoleLogger) formatMessage(level LogLevel, msg string, fields ...Field) string {
	var sb strings.Builder

	if l.opts.TimestampEnabled {
		l.paint(&sb, ansiGray, time.Now().Format("2006-01-02 15:04:05"))
		sb.WriteByte(' ')
	}
	l.paint(&sb, levelColors[level], fmt.Sprintf("%-5s", level.String()))
	sb.WriteByte(' ')
	if l.traceID != "" {
		l.paint(&sb, ansiGray, "["+shortTrace(l.traceID)+"]")
		sb.WriteByte(' ')
	}
	sb.WriteString(l.clean(msg))

	for i, field := range fields {
		if i == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(field.Key)
		sb.WriteByte('=')
		sb.WriteString(l.clean(fmt.Sprintf("%v", field.Value)))
	}
	return sb.String()
}

// shortTrace keeps run ids readable; the full id is in the file log
func shortTrace(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (l *ConsoleLogger) log(level LogLevel, msg string, fields ...Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.opts.Level {
		return
	}
	_, _ = fmt.Fprintln(l.opts.Writer, l.formatMessage(level, msg, fields...))
}

func (l *ConsoleLogger) Debug(msg string, fields ...Field) { l.log(DEBUG, msg, fields...) }
func (l *ConsoleLogger) Info(msg string, fields ...Field)  { l.log(INFO, msg, fields...) }
func (l *ConsoleLogger) Warn(msg string, fields ...Field)  { l.log(WARN, msg, fields...) }
func (l *ConsoleLogger) Error(msg string, fields ...Field) { l.log(ERROR, msg, fields...) }

// WithTraceID returns a copy that prefixes lines with traceID
func (l *ConsoleLogger) WithTraceID(traceID string) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &ConsoleLogger{mu: l.mu, opts: l.opts, traceID: traceID}
}

func (l *ConsoleLogger) WithContext(ctx context.Context) Logger {
	if traceID := TraceIDFromContext(ctx); traceID != "" {
		return l.WithTraceID(traceID)
	}
	return l
}

func (l *ConsoleLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opts.Level = level
}

func (l *ConsoleLogger) Close() error { return nil }
