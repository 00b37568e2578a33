// Package notify signals interested parties about settlement events. Delivery
// is best effort: a failed notification never undoes a settlement.
package notify

import (
	"context"

	"marketplace-payments/internal/logger"
)

// Event types emitted by the settlement engine.
const (
	EventProjectPublished      = "project.published"
	EventSubscriptionActivated = "subscription.activated"
	EventPaymentRejected       = "payment.rejected"
	EventFundsReleased         = "escrow.released"
	EventPayoutCreated         = "payout.created"
	EventDisputeResolved       = "dispute.resolved"
)

type Notifier interface {
	Notify(ctx context.Context, userID uint, eventType string, payload map[string]interface{}) error
}

// LogNotifier only logs; used when no broker is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, userID uint, eventType string, payload map[string]interface{}) error {
	logger.Info("notify user=%d event=%s payload=%v", userID, eventType, payload)
	return nil
}
