package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	events []string
	fail   bool
	done   chan struct{}
}

func (r *recorder) Notify(_ context.Context, _ uint, eventType string, _ map[string]interface{}) error {
	r.mu.Lock()
	r.events = append(r.events, eventType)
	r.mu.Unlock()
	r.done <- struct{}{}
	if r.fail {
		return errors.New("broker down")
	}
	return nil
}

func TestAsyncDelivers(t *testing.T) {
	rec := &recorder{done: make(chan struct{}, 1)}
	a, err := NewAsync(rec, 2, time.Second)
	if err != nil {
		t.Fatalf("NewAsync: %v", err)
	}
	defer a.Close(time.Second)

	if err := a.Notify(context.Background(), 7, EventPayoutCreated, nil); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered")
	}
}

func TestAsyncSwallowsFailures(t *testing.T) {
	rec := &recorder{done: make(chan struct{}, 1), fail: true}
	a, _ := NewAsync(rec, 1, time.Second)
	defer a.Close(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Notify(ctx, 7, EventDisputeResolved, nil); err != nil {
		t.Fatalf("Notify must not surface delivery errors: %v", err)
	}
	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not attempted")
	}
}

type stuck struct {
	entered chan struct{}
	release chan struct{}
}

func (s *stuck) Notify(context.Context, uint, string, map[string]interface{}) error {
	s.entered <- struct{}{}
	<-s.release
	return nil
}

func TestAsyncDoesNotBlockWhenPoolIsBusy(t *testing.T) {
	s := &stuck{entered: make(chan struct{}, 1), release: make(chan struct{})}
	a, err := NewAsync(s, 1, time.Minute)
	if err != nil {
		t.Fatalf("NewAsync: %v", err)
	}
	defer a.Close(time.Second)
	defer close(s.release)

	_ = a.Notify(context.Background(), 1, EventPayoutCreated, nil)
	<-s.entered

	returned := make(chan struct{})
	go func() {
		_ = a.Notify(context.Background(), 2, EventPayoutCreated, nil)
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a saturated pool")
	}
}
