package runlog

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

func TestLog_Trail(t *testing.T) {
	l := New(nil)
	l.now = fixedClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	l.Debug("listing %s", "origin/main")
	l.Notice("*[ADDED]* a.txt")
	l.Log("planned %d actions", 3)
	l.Error("upload failed")

	want := "2024-03-01T12:00:01Z DEBUG: listing origin/main\n" +
		"2024-03-01T12:00:03Z LOG: planned 3 actions\n" +
		"2024-03-01T12:00:04Z ERROR: upload failed\n"
	if got := l.Trail(); got != want {
		t.Errorf("Trail() =\n%s\nwant\n%s", got, want)
	}

	if got := l.Errors(); got != "2024-03-01T12:00:04Z ERROR: upload failed\n" {
		t.Errorf("Errors() = %q", got)
	}
	if !l.HasErrors() {
		t.Error("HasErrors() = false")
	}
}

func TestLog_DrainNotices(t *testing.T) {
	l := New(nil)
	if l.HasErrors() {
		t.Error("fresh log reports errors")
	}

	l.Notice("one")
	l.Notice("two %d", 2)
	if l.PendingNotices() != 2 {
		t.Fatalf("PendingNotices() = %d", l.PendingNotices())
	}

	got := l.DrainNotices()
	if strings.Join(got, ",") != "one,two 2" {
		t.Errorf("DrainNotices() = %v", got)
	}
	if again := l.DrainNotices(); len(again) != 0 {
		t.Errorf("second drain returned %v", again)
	}
	if l.Trail() != "" {
		t.Errorf("notices leaked into the trail: %q", l.Trail())
	}
}

func TestLog_ConcurrentAppend(t *testing.T) {
	l := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Log("entry %d", i)
			l.Notice("notice %d", i)
		}(i)
	}
	wg.Wait()

	if n := len(l.Entries()); n != 50 {
		t.Errorf("entries = %d, want 50", n)
	}
	if n := len(l.DrainNotices()); n != 50 {
		t.Errorf("notices = %d, want 50", n)
	}
}
