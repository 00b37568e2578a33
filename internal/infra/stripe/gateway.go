package stripe

import (
	"context"
	"fmt"
	"strings"

	"marketplace-payments/internal/infra/gateway"

	stripego "github.com/stripe/stripe-go/v75"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
)

// Gateway implements gateway.Gateway on Stripe Checkout Sessions. The session
// id is the transaction token.
type Gateway struct {
	sessions *checkoutsession.Client
	currency string
}

func NewGateway(secretKey, currency string) *Gateway {
	return &Gateway{
		sessions: &checkoutsession.Client{B: stripego.GetBackend(stripego.APIBackend), Key: secretKey},
		currency: strings.ToLower(currency),
	}
}

func (g *Gateway) Create(ctx context.Context, req gateway.CreateRequest) (gateway.CreateResponse, error) {
	description := req.Description
	if description == "" {
		description = req.BuyOrder
	}

	params := &stripego.CheckoutSessionParams{
		Mode:              stripego.String(string(stripego.CheckoutSessionModePayment)),
		SuccessURL:        stripego.String(withTokenPlaceholder(req.ReturnURL)),
		CancelURL:         stripego.String(withQuery(req.ReturnURL, "canceled=1")),
		ClientReferenceID: stripego.String(req.BuyOrder),
		LineItems: []*stripego.CheckoutSessionLineItemParams{
			{
				PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripego.String(g.currency),
					UnitAmount: stripego.Int64(req.Amount),
					ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripego.String(description),
					},
				},
				Quantity: stripego.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("buy_order", req.BuyOrder)
	params.AddMetadata("session_id", req.SessionID)

	s, err := g.sessions.New(params)
	if err != nil {
		return gateway.CreateResponse{}, fmt.Errorf("stripe create checkout session: %w", err)
	}
	return gateway.CreateResponse{Token: s.ID, URL: s.URL}, nil
}

func (g *Gateway) Commit(ctx context.Context, token string) (gateway.CommitResponse, error) {
	params := &stripego.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	s, err := g.sessions.Get(token, params)
	if err != nil {
		return gateway.CommitResponse{}, fmt.Errorf("stripe get checkout session %s: %w", token, err)
	}

	var intentStatus string
	if s.PaymentIntent != nil {
		intentStatus = string(s.PaymentIntent.Status)
	}
	status, code := NormalizeSessionStatus(string(s.PaymentStatus), string(s.Status), intentStatus)

	resp := gateway.CommitResponse{
		Status:       status,
		ResponseCode: code,
		Amount:       s.AmountTotal,
		BuyOrder:     s.ClientReferenceID,
	}
	if s.Metadata != nil {
		resp.SessionID = s.Metadata["session_id"]
	}
	if len(s.PaymentMethodTypes) > 0 {
		resp.PaymentMethod = s.PaymentMethodTypes[0]
	}
	return resp, nil
}

// Stripe substitutes the session id for this placeholder on redirect, so the
// client comes back holding the token it must confirm.
func withTokenPlaceholder(returnURL string) string {
	return withQuery(returnURL, "token={CHECKOUT_SESSION_ID}")
}

func withQuery(u, q string) string {
	if strings.Contains(u, "?") {
		return u + "&" + q
	}
	return u + "?" + q
}
