package stripe

import (
	"strings"

	"marketplace-payments/internal/infra/gateway"
)

// Response codes reported back in the ledger, mirroring the classic
// "0 = approved, negative = declined" gateway convention.
const (
	ResponseApproved = 0
	ResponseDeclined = -1
	ResponseExpired  = -2
	ResponsePending  = -3
)

// NormalizeSessionStatus maps a Checkout Session's status pair, plus the
// status of its PaymentIntent when known, onto the gateway contract's commit
// status.
//
// A session paid with a delayed method (bank debits, vouchers) completes as
// "unpaid" while its intent is still processing. That is pending, not a
// decline: the async_payment_succeeded/failed events decide it later.
func NormalizeSessionStatus(paymentStatus, sessionStatus, intentStatus string) (string, int) {
	ps := strings.TrimSpace(paymentStatus)
	ss := strings.TrimSpace(sessionStatus)
	is := strings.TrimSpace(intentStatus)

	switch {
	case ps == "paid":
		return gateway.StatusAuthorized, ResponseApproved
	case ss == "expired":
		return "EXPIRED", ResponseExpired
	case ss == "open":
		return gateway.StatusPending, ResponsePending
	case ss == "complete" && ps == "unpaid":
		switch is {
		case "requires_payment_method", "canceled":
			return "FAILED", ResponseDeclined
		default:
			return gateway.StatusPending, ResponsePending
		}
	case ps == "":
		return "UNKNOWN", ResponseDeclined
	default:
		return strings.ToUpper(ps), ResponseDeclined
	}
}
