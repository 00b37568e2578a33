package notify

import (
	"context"
	"time"

	"marketplace-payments/internal/logger"

	"github.com/panjf2000/ants/v2"
)

// Async dispatches notifications on a bounded goroutine pool and returns
// immediately. When every worker is busy the notification is dropped and
// logged; callers never wait on the broker.
type Async struct {
	next    Notifier
	pool    *ants.Pool
	timeout time.Duration
}

func NewAsync(next Notifier, size int, timeout time.Duration) (*Async, error) {
	if size <= 0 {
		size = 1
	}
	pool, err := ants.NewPool(size, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &Async{next: next, pool: pool, timeout: timeout}, nil
}

func (a *Async) Notify(ctx context.Context, userID uint, eventType string, payload map[string]interface{}) error {
	// detach: the request may be finished long before delivery
	base := context.WithoutCancel(ctx)
	err := a.pool.Submit(func() {
		sendCtx, cancel := context.WithTimeout(base, a.timeout)
		defer cancel()
		if err := a.next.Notify(sendCtx, userID, eventType, payload); err != nil {
			logger.Warn("notification %s for user %d failed: %v", eventType, userID, err)
		}
	})
	if err != nil {
		logger.Warn("notification %s for user %d dropped: %v", eventType, userID, err)
	}
	return nil
}

// Close waits up to timeout for queued notifications before releasing the pool.
func (a *Async) Close(timeout time.Duration) error {
	return a.pool.ReleaseTimeout(timeout)
}
