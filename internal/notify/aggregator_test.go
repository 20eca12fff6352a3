package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dl-alexandre/gitdrive/internal/runlog"
	"github.com/dl-alexandre/gitdrive/internal/testing/mocks"
)

func TestBatch(t *testing.T) {
	tests := []struct {
		name     string
		messages []string
		max      int
		want     []string
	}{
		{"empty", nil, 10, nil},
		{"single batch", []string{"ab", "cd"}, 10, []string{"ab\ncd"}},
		{"exact fit", []string{"abcd", "efgh"}, 9, []string{"abcd\nefgh"}},
		{"split at boundary", []string{"abcd", "efgh"}, 8, []string{"abcd", "efgh"}},
		{"oversized message kept whole", []string{"a", strings.Repeat("x", 12), "b"}, 5, []string{"a", strings.Repeat("x", 12), "b"}},
		{"counts characters not bytes", []string{"ééé", "ü"}, 5, []string{"ééé\nü"}},
		{"empty messages keep separators", []string{"", "a"}, 10, []string{"\na"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Batch(tt.messages, tt.max)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Errorf("Batch() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAggregator_Flush(t *testing.T) {
	log := runlog.New(nil)
	for i := 0; i < 3; i++ {
		log.Notice("notice-%d", i)
	}

	ch := &mocks.MockChannel{PostFunc: func(n int, text string) error {
		if n == 1 {
			return errors.New("slack down")
		}
		return nil
	}}
	a := &Aggregator{Source: log, Channel: ch, MaxChars: 8, Log: log}

	if sent := a.Flush(context.Background()); sent != 2 {
		t.Errorf("Flush() = %d, want 2", sent)
	}
	posts := ch.Posts()
	if len(posts) != 3 || posts[0] != "notice-0" || posts[2] != "notice-2" {
		t.Errorf("posts = %q", posts)
	}
	if !strings.Contains(log.Errors(), "slack down") {
		t.Errorf("delivery failure not logged: %q", log.Errors())
	}
	if log.PendingNotices() != 0 {
		t.Error("notices not drained")
	}
	if sent := a.Flush(context.Background()); sent != 0 || len(ch.Posts()) != 3 {
		t.Error("second flush should have nothing to send")
	}
}

func TestAggregator_NoChannel(t *testing.T) {
	log := runlog.New(nil)
	log.Notice("dropped")
	a := &Aggregator{Source: log}
	if sent := a.Flush(context.Background()); sent != 0 {
		t.Errorf("Flush() = %d", sent)
	}
	if log.PendingNotices() != 0 {
		t.Error("notices should be drained even without a channel")
	}
}

func TestAggregator_Run(t *testing.T) {
	log := runlog.New(nil)
	ch := &mocks.MockChannel{}
	a := &Aggregator{Source: log, Channel: ch}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		a.Run(context.Background(), stop, 5*time.Millisecond)
		close(done)
	}()

	log.Notice("hello")
	deadline := time.Now().Add(2 * time.Second)
	for len(ch.Posts()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	close(stop)
	<-done

	if posts := ch.Posts(); len(posts) != 1 || posts[0] != "hello" {
		t.Errorf("posts = %q", posts)
	}
}

func TestAggregator_RunStopLeavesNoticesForFinalFlush(t *testing.T) {
	log := runlog.New(nil)
	ch := &mocks.MockChannel{}
	a := &Aggregator{Source: log, Channel: ch}

	stop := make(chan struct{})
	close(stop)
	log.Notice("late")
	a.Run(context.Background(), stop, time.Nanosecond)

	if len(ch.Posts()) != 0 || log.PendingNotices() != 1 {
		t.Fatalf("stopped loop drained notices: posts=%q pending=%d", ch.Posts(), log.PendingNotices())
	}
	if sent := a.Flush(context.Background()); sent != 1 {
		t.Errorf("final Flush() = %d, want 1", sent)
	}
}
