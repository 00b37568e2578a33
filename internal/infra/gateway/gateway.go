// Package gateway is the request/response contract with the external payment
// gateway. Implementations live next to the provider SDK they wrap.
package gateway

import "context"

const (
	// StatusAuthorized is the only commit status that counts as a payment.
	StatusAuthorized = "AUTHORIZED"
	// StatusPending means the payer has not finished paying yet, or the
	// payment method clears later. It is neither approval nor rejection.
	StatusPending = "PENDING"
)

type CreateRequest struct {
	Amount      int64
	BuyOrder    string
	SessionID   string
	ReturnURL   string
	Description string
}

type CreateResponse struct {
	Token string
	URL   string
}

type CommitResponse struct {
	Status        string
	ResponseCode  int
	Amount        int64
	BuyOrder      string
	SessionID     string
	PaymentMethod string
}

// Authorized reports whether the gateway confirmed the payment.
func (r CommitResponse) Authorized() bool {
	return r.Status == StatusAuthorized
}

// Pending reports whether the payment may still be authorized later.
func (r CommitResponse) Pending() bool {
	return r.Status == StatusPending
}

type Gateway interface {
	Create(ctx context.Context, req CreateRequest) (CreateResponse, error)
	Commit(ctx context.Context, token string) (CommitResponse, error)
}
