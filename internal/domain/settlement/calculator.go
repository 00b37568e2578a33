// Package settlement computes how a retained escrow amount is divided between
// platform commission, worker payout and client refund. It performs no I/O.
package settlement

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultCommissionRate is the platform cut on standard releases.
var DefaultCommissionRate = decimal.RequireFromString("0.05")

// Split is the outcome of a settlement policy. Fields not used by a policy are 0.
type Split struct {
	Commission   int64 `json:"commission"`
	WorkerPayout int64 `json:"worker_payout"`
	ClientRefund int64 `json:"client_refund"`
}

// Calculator holds the commission rate; the zero value uses DefaultCommissionRate.
type Calculator struct {
	rate *decimal.Decimal
}

// NewCalculator uses rate as given. A zero rate charges no commission.
func NewCalculator(rate decimal.Decimal) Calculator {
	return Calculator{rate: &rate}
}

func (c Calculator) commissionRate() decimal.Decimal {
	if c.rate == nil {
		return DefaultCommissionRate
	}
	return *c.rate
}

// Commission is round-half-up(amount * rate) in whole currency units.
func (c Calculator) Commission(amount int64) int64 {
	return decimal.NewFromInt(amount).Mul(c.commissionRate()).Round(0).IntPart()
}

// StandardRelease pays the worker everything but the commission.
func (c Calculator) StandardRelease(amount int64) (Split, error) {
	if err := checkAmount(amount); err != nil {
		return Split{}, err
	}
	commission := c.Commission(amount)
	return Split{Commission: commission, WorkerPayout: amount - commission}, nil
}

// DisputeFavorWorker charges commission as on a standard release, since the
// service was rendered.
func (c Calculator) DisputeFavorWorker(amount int64) (Split, error) {
	return c.StandardRelease(amount)
}

// DisputeSplit halves the amount with no commission. On odd amounts the extra
// unit goes to the client.
func (c Calculator) DisputeSplit(amount int64) (Split, error) {
	if err := checkAmount(amount); err != nil {
		return Split{}, err
	}
	half := amount / 2
	return Split{WorkerPayout: half, ClientRefund: amount - half}, nil
}

func checkAmount(amount int64) error {
	if amount < 0 {
		return fmt.Errorf("settlement amount must be >= 0, got %d", amount)
	}
	return nil
}
