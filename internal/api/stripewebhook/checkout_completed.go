package stripewebhooks

import (
	"context"
	"errors"
	"net/http"

	"marketplace-payments/internal/apperr"
	"marketplace-payments/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
)

// handleCheckoutSession commits the ledger row whose token is the session id.
// Only failures worth retrying answer non-2xx, since Stripe redelivers those.
func (h *Handler) handleCheckoutSession(ctx context.Context, eventType string, session *stripe.CheckoutSession) (int, gin.H) {
	if session.ID == "" {
		return http.StatusBadRequest, gin.H{"error": "session id missing"}
	}
	if eventType == "checkout.session.completed" && session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		// delayed payment methods settle with async_payment_succeeded/failed
		return http.StatusOK, gin.H{"status": "awaiting_payment"}
	}

	out, err := h.commits.Commit(ctx, session.ID)
	if err == nil {
		return http.StatusOK, gin.H{"status": "received", "transaction_status": out.Status, "replayed": out.Replayed}
	}

	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		// not one of ours
		return http.StatusOK, gin.H{"status": "ignored"}
	case apperr.KindConflict, apperr.KindValidation:
		logger.Warn("webhook %s for session %s not applied: %v", eventType, session.ID, err)
		return http.StatusOK, gin.H{"status": "not_applied"}
	case apperr.KindPending:
		return http.StatusOK, gin.H{"status": "awaiting_payment"}
	case apperr.KindBusy:
		return http.StatusLocked, gin.H{"error": "transaction in progress"}
	}

	var ae *apperr.Error
	code := "INTERNAL_ERROR"
	if errors.As(err, &ae) {
		code = ae.Code
	}
	logger.Error("webhook %s for session %s failed: %v", eventType, session.ID, err)
	return http.StatusInternalServerError, gin.H{"error": "commit failed", "code": code}
}
