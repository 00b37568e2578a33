package task

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSweeper struct{ calls int }

func (f *fakeSweeper) Sweep() int {
	f.calls++
	return 2
}

type fakeExpirer struct {
	cutoff time.Time
	err    error
}

func (f *fakeExpirer) ExpireStale(_ context.Context, cutoff time.Time) (int, error) {
	f.cutoff = cutoff
	return 1, f.err
}

type fakeBackfiller struct{ limit int }

func (f *fakeBackfiller) Backfill(_ context.Context, limit int) (int, error) {
	f.limit = limit
	return 0, nil
}

func TestStaleTransactionJobUsesCutoff(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	exp := &fakeExpirer{}
	job := NewStaleTransactionJob(exp, 15*time.Minute, time.Minute)
	job.now = func() time.Time { return now }

	job.Execute()

	if want := now.Add(-15 * time.Minute); !exp.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %v, got %v", want, exp.cutoff)
	}

	exp.err = errors.New("db down")
	job.Execute() // logged, must not panic
}

func TestJobsRunUnderScheduler(t *testing.T) {
	sw := &fakeSweeper{}
	bf := &fakeBackfiller{}

	m, err := NewManager()
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	for _, j := range []Job{
		NewLockSweepJob(sw, time.Hour),
		NewDocumentBackfillJob(bf, time.Hour),
		NewStaleTransactionJob(&fakeExpirer{}, time.Minute, time.Hour),
	} {
		if err := m.Register(j); err != nil {
			t.Fatalf("register %s: %v", j.GetName(), err)
		}
	}
	m.Start()
	m.Stop()

	NewLockSweepJob(sw, time.Hour).Execute()
	if sw.calls == 0 {
		t.Fatalf("sweeper was not called")
	}
	NewDocumentBackfillJob(bf, time.Hour).Execute()
	if bf.limit != 50 {
		t.Fatalf("expected batch of 50, got %d", bf.limit)
	}
}
