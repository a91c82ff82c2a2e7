package schedule

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func mustLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		t.Fatalf("loading timezone: %v", err)
	}
	return loc
}

func TestNewAcceptsStandardSpec(t *testing.T) {
	_, err := New("0 7 * * *", mustLoc(t), func(time.Time) {})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New("every morning", mustLoc(t), func(time.Time) {})
	if err == nil {
		t.Fatal("expected an error for a malformed schedule")
	}
	if !strings.Contains(err.Error(), "parsing schedule") {
		t.Errorf("error should name the schedule, got %q", err)
	}
}

func TestNextAfter(t *testing.T) {
	loc := mustLoc(t)

	before := time.Date(2025, 6, 2, 6, 0, 0, 0, loc)
	next, err := NextAfter("0 7 * * *", loc, before)
	if err != nil {
		t.Fatalf("NextAfter: %v", err)
	}
	want := time.Date(2025, 6, 2, 7, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Errorf("expected next run %v, got %v", want, next)
	}

	after := time.Date(2025, 6, 2, 8, 0, 0, 0, loc)
	next, err = NextAfter("0 7 * * *", loc, after)
	if err != nil {
		t.Fatalf("NextAfter: %v", err)
	}
	want = time.Date(2025, 6, 3, 7, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Errorf("expected next run %v, got %v", want, next)
	}
}

func TestNextAfterRejectsBadSpec(t *testing.T) {
	if _, err := NextAfter("7am sharp", mustLoc(t), time.Now()); err == nil {
		t.Fatal("expected an error for a malformed schedule")
	}
}

func TestSchedulerRunsJob(t *testing.T) {
	fired := make(chan time.Time, 1)
	s, err := New("@every 100ms", mustLoc(t), func(now time.Time) {
		select {
		case fired <- now:
		default:
		}
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s.Start()
	defer s.Stop()

	select {
	case now := <-fired:
		if now.Location() != mustLoc(t) {
			t.Errorf("job should receive the trigger time in the schedule timezone, got %v", now.Location())
		}
	case <-time.After(3 * time.Second):
		t.Fatal("job never fired")
	}
}

func TestStopWaitsForRunningJob(t *testing.T) {
	started := make(chan struct{}, 1)
	var finished atomic.Bool
	s, err := New("@every 50ms", mustLoc(t), func(time.Time) {
		select {
		case started <- struct{}{}:
		default:
		}
		time.Sleep(150 * time.Millisecond)
		finished.Store(true)
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s.Start()
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}

	s.Stop()
	if !finished.Load() {
		t.Error("Stop returned before the running job finished")
	}
}
