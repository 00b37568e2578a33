// Package commitlock is a time-bounded mutual-exclusion registry keyed by
// gateway token. It only guards concurrent commits inside the lock window;
// durable idempotency belongs to the ledger.
package commitlock

import (
	"context"
	"time"
)

type Registry interface {
	// Acquire takes the lock for token for the registry's TTL. It reports
	// false, without error, when another holder's lock is still live.
	Acquire(ctx context.Context, token string) (bool, error)
	// ReleaseAfter lets the lock lapse grace from now. A grace <= 0 frees it
	// immediately.
	ReleaseAfter(token string, grace time.Duration)
}

// Sweeper is implemented by registries that need periodic cleanup.
type Sweeper interface {
	Sweep() int
}
