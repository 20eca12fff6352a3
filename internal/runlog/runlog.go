// Package runlog keeps the per-run event trail and the user-facing notices.
package runlog

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dl-alexandre/gitdrive/internal/logging"
)

// Level of a trail entry
type Level int

const (
	LevelDebug Level = iota
	LevelLog
	LevelError
	LevelNotice
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelLog:
		return "LOG"
	case LevelError:
		return "ERROR"
	case LevelNotice:
		return "NOTICE"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// Entry is one timestamped event
type Entry struct {
	Time    time.Time
	Level   Level
	Message string
}

// String renders the entry as a trail line
func (e Entry) String() string {
	return fmt.Sprintf("%s %s: %s", e.Time.UTC().Format(time.RFC3339Nano), e.Level, e.Message)
}

// Log is created once per run and handed to every component that reports
// progress. Debug, log and error entries form the trail and are kept for the
// whole run; notices are buffered separately until drained.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	notices []Entry
	logger  logging.Logger
	now     func() time.Time
}

// New creates an empty run log that also forwards every entry to logger
func New(logger logging.Logger) *Log {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Log{logger: logger, now: time.Now}
}

func (l *Log) append(level Level, msg string) {
	entry := Entry{Time: l.now(), Level: level, Message: msg}

	l.mu.Lock()
	if level == LevelNotice {
		l.notices = append(l.notices, entry)
	} else {
		l.entries = append(l.entries, entry)
	}
	l.mu.Unlock()

	switch level {
	case LevelDebug:
		l.logger.Debug(msg)
	case LevelLog, LevelNotice:
		l.logger.Info(msg)
	case LevelError:
		l.logger.Error(msg)
	}
}

// Debug records a debug entry
func (l *Log) Debug(format string, args ...interface{}) {
	l.append(LevelDebug, sprintf(format, args...))
}

// Log records an informational entry
func (l *Log) Log(format string, args ...interface{}) {
	l.append(LevelLog, sprintf(format, args...))
}

// Error records an error entry
func (l *Log) Error(format string, args ...interface{}) {
	l.append(LevelError, sprintf(format, args...))
}

// Notice queues a user-facing message
func (l *Log) Notice(format string, args ...interface{}) {
	l.append(LevelNotice, sprintf(format, args...))
}

// Entries returns a copy of the trail in recording order
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Trail renders every debug, log and error entry, one per line
func (l *Log) Trail() string {
	return render(l.Entries(), func(Entry) bool { return true })
}

// Errors renders only the error entries
func (l *Log) Errors() string {
	return render(l.Entries(), func(e Entry) bool { return e.Level == LevelError })
}

// HasErrors reports whether any error was recorded
func (l *Log) HasErrors() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.Level == LevelError {
			return true
		}
	}
	return false
}

// DrainNotices returns the pending notice messages and clears them
func (l *Log) DrainNotices() []string {
	l.mu.Lock()
	pending := l.notices
	l.notices = nil
	l.mu.Unlock()

	out := make([]string, len(pending))
	for i, n := range pending {
		out[i] = n.Message
	}
	return out
}

// PendingNotices reports how many notices wait to be drained
func (l *Log) PendingNotices() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.notices)
}

func render(entries []Entry, keep func(Entry) bool) string {
	var b strings.Builder
	for _, e := range entries {
		if !keep(e) {
			continue
		}
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
