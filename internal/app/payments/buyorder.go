package payments

import (
	"fmt"
	"strings"

	"marketplace-payments/internal/domain/billing"

	"github.com/google/uuid"
)

// NewBuyOrder builds a buy order carrying the payment type's prefix, e.g.
// "BO-42-1a2b3c4d" for project 42 or "SUB-7-9f8e7d6c" for user 7.
func NewBuyOrder(pt billing.PaymentType, ref uint) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s%d-%s", pt.BuyOrderPrefix(), ref, suffix)
}

// NewSessionID returns an opaque session reference for the gateway.
func NewSessionID() string {
	return uuid.NewString()
}
