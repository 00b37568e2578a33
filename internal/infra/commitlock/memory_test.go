package commitlock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestMemoryRejectsSecondHolder(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	m := NewMemory(15 * time.Second).WithClock(clock.Now)
	ctx := context.Background()

	ok, _ := m.Acquire(ctx, "tok")
	if !ok {
		t.Fatal("first acquire should succeed")
	}
	if ok, _ := m.Acquire(ctx, "tok"); ok {
		t.Fatal("second acquire should be rejected while the lock is live")
	}
	if ok, _ := m.Acquire(ctx, "other"); !ok {
		t.Fatal("locks are per token")
	}
}

func TestMemoryLockExpiresAfterTTL(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	m := NewMemory(15 * time.Second).WithClock(clock.Now)
	ctx := context.Background()

	m.Acquire(ctx, "tok")
	clock.Advance(15 * time.Second)
	if ok, _ := m.Acquire(ctx, "tok"); !ok {
		t.Fatal("expired lock should be acquirable")
	}
}

func TestMemoryReleaseAfterGrace(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	m := NewMemory(15 * time.Second).WithClock(clock.Now)
	ctx := context.Background()

	m.Acquire(ctx, "tok")
	m.ReleaseAfter("tok", 2*time.Second)

	clock.Advance(time.Second)
	if ok, _ := m.Acquire(ctx, "tok"); ok {
		t.Fatal("lock must be held during the grace period")
	}
	clock.Advance(time.Second)
	if ok, _ := m.Acquire(ctx, "tok"); !ok {
		t.Fatal("lock must lapse once the grace period is over")
	}
}

func TestMemoryReleaseImmediately(t *testing.T) {
	m := NewMemory(15 * time.Second)
	ctx := context.Background()

	m.Acquire(ctx, "tok")
	m.ReleaseAfter("tok", 0)
	if m.Len() != 0 {
		t.Fatalf("expected entry removed, have %d", m.Len())
	}
}

func TestMemorySweepRemovesExpired(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	m := NewMemory(10 * time.Second).WithClock(clock.Now)
	ctx := context.Background()

	m.Acquire(ctx, "a")
	clock.Advance(5 * time.Second)
	m.Acquire(ctx, "b")
	clock.Advance(5 * time.Second)

	if removed := m.Sweep(); removed != 1 {
		t.Fatalf("expected 1 swept entry, got %d", removed)
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 live entry, got %d", m.Len())
	}
}

func TestMemoryConcurrentAcquireSingleWinner(t *testing.T) {
	m := NewMemory(time.Minute)
	ctx := context.Background()

	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := m.Acquire(ctx, "tok"); ok {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}
