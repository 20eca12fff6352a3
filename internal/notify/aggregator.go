// Package notify delivers run notices to chat and mail.
package notify

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dl-alexandre/gitdrive/internal/runlog"
	"github.com/dl-alexandre/gitdrive/internal/utils"
)

// Channel receives batches of notices
type Channel interface {
	Post(ctx context.Context, text string) error
}

// Source hands out pending notices, clearing them
type Source interface {
	DrainNotices() []string
	PendingNotices() int
}

// Aggregator moves notices from a Source to a Channel in batches of at most
// MaxChars characters. A notice is never split: one longer than MaxChars is
// sent alone. A batch that fails to post is logged and dropped.
type Aggregator struct {
	Source   Source
	Channel  Channel
	MaxChars int
	Log      *runlog.Log

	mu sync.Mutex
}

// Flush posts everything pending and returns how many batches were delivered
func (a *Aggregator) Flush(ctx context.Context) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	notices := a.Source.DrainNotices()
	if len(notices) == 0 || a.Channel == nil {
		return 0
	}

	maxChars := a.MaxChars
	if maxChars <= 0 {
		maxChars = utils.DefaultNoticeMaxChars
	}

	sent := 0
	for _, batch := range Batch(notices, maxChars) {
		if err := a.Channel.Post(ctx, batch); err != nil {
			if a.Log != nil {
				a.Log.Error("Notification delivery failed: %s", utils.Describe(err))
			}
			continue
		}
		sent++
	}
	return sent
}

// Run flushes every interval until stop is closed or ctx ends. Closing stop
// lets a post in flight finish, and a tick that races with stop drains
// nothing. The caller flushes once more after Run returns.
func (a *Aggregator) Run(ctx context.Context, stop <-chan struct{}, interval time.Duration) {
	if interval <= 0 {
		interval = time.Duration(utils.DefaultNoticeInterval) * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		select {
		case <-stop:
			return
		default:
		}
		if a.Source.PendingNotices() > 0 {
			a.Flush(ctx)
		}
	}
}

// Batch joins messages with newlines into chunks of at most maxChars
// characters, breaking only between messages
func Batch(messages []string, maxChars int) []string {
	var batches []string
	var current strings.Builder
	size, parts := 0, 0

	for _, m := range messages {
		n := utf8.RuneCountInString(m)
		if parts > 0 && size+1+n > maxChars {
			batches = append(batches, current.String())
			current.Reset()
			size, parts = 0, 0
		}
		if parts > 0 {
			current.WriteByte('\n')
			size++
		}
		current.WriteString(m)
		size += n
		parts++
	}
	if parts > 0 {
		batches = append(batches, current.String())
	}
	return batches
}
