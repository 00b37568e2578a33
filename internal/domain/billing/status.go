package billing

import "strings"

type Status string

const (
	StatusInitiated  Status = "INITIATED"
	StatusProcessing Status = "PROCESSING"
	StatusApproved   Status = "APPROVED"
	StatusRejected   Status = "REJECTED"
	StatusError      Status = "ERROR"
)

// IsSettled reports whether the stored outcome can be replayed verbatim.
func (s Status) IsSettled() bool {
	return s == StatusApproved || s == StatusRejected
}

type PaymentType string

const (
	PaymentProjectPublication PaymentType = "PROJECT_PUBLICATION"
	PaymentSubscription       PaymentType = "SUBSCRIPTION"
)

// Buy-order prefixes. The stored PaymentType is authoritative; the prefix is
// only checked for agreement.
const (
	BuyOrderPrefixProject      = "BO-"
	BuyOrderPrefixSubscription = "SUB-"
)

func (p PaymentType) Valid() bool {
	return p == PaymentProjectPublication || p == PaymentSubscription
}

// BuyOrderPrefix returns the prefix expected for buy orders of this type.
func (p PaymentType) BuyOrderPrefix() string {
	switch p {
	case PaymentProjectPublication:
		return BuyOrderPrefixProject
	case PaymentSubscription:
		return BuyOrderPrefixSubscription
	default:
		return ""
	}
}

// BuyOrderMatches reports whether buyOrder carries the prefix of p.
func (p PaymentType) BuyOrderMatches(buyOrder string) bool {
	prefix := p.BuyOrderPrefix()
	return prefix != "" && strings.HasPrefix(buyOrder, prefix)
}
