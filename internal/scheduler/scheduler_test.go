package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestAddJobRejectsBadSpec(t *testing.T) {
	s := New()
	if err := s.AddJob("not a cron spec", "bad", func() error { return nil }); err == nil {
		t.Error("expected an error for an invalid spec")
	}
	if err := s.AddJob("0 3 * * *", "nightly", func() error { return nil }); err != nil {
		t.Errorf("valid spec rejected: %v", err)
	}
}

func TestJobRunsAndErrorsDoNotStopSchedule(t *testing.T) {
	s := New()
	var runs atomic.Int32
	err := s.AddJob("@every 10ms", "ticker", func() error {
		runs.Add(1)
		return errors.New("transient")
	})
	if err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	s.Start()
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("job ran %d times, want at least 2", runs.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
}
