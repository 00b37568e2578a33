package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketplace-payments/internal/apperr"
	"marketplace-payments/internal/domain/billing"
	"marketplace-payments/internal/domain/plans"
	"marketplace-payments/internal/domain/projects"
	"marketplace-payments/internal/infra/commitlock"
	"marketplace-payments/internal/infra/gateway"
	"marketplace-payments/internal/logger"

	"gorm.io/gorm"
)

// CreateParams describes a transaction the client wants to pay.
type CreateParams struct {
	UserID      uint
	PaymentType billing.PaymentType
	Amount      int64
	BuyOrder    string
	SessionID   string
	ReturnURL   string
	PlanCode    string // subscriptions only
	ProjectID   uint   // project publications only
}

type CreatedTransaction struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// CommitResult is the gateway commit answer normalised for the ledger.
type CommitResult struct {
	Approved bool
	// Pending is set when the payer has not finished paying; nothing may
	// be settled from this result.
	Pending       bool
	Status        string
	ResponseCode  int
	Amount        int64
	BuyOrder      string
	SessionID     string
	PaymentMethod string
}

// GatewayAdapter wraps the external gateway. It owns the per-token commit
// lock that turns away near-simultaneous duplicate commits before they reach
// the gateway.
type GatewayAdapter struct {
	db      *gorm.DB
	gateway gateway.Gateway
	locks   commitlock.Registry
	ledger  *Ledger
	grace   time.Duration
	timeout time.Duration
}

type AdapterConfig struct {
	LockGrace      time.Duration
	GatewayTimeout time.Duration
}

func NewGatewayAdapter(db *gorm.DB, gw gateway.Gateway, locks commitlock.Registry, ledger *Ledger, cfg AdapterConfig) *GatewayAdapter {
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 20 * time.Second
	}
	return &GatewayAdapter{
		db:      db,
		gateway: gw,
		locks:   locks,
		ledger:  ledger,
		grace:   cfg.LockGrace,
		timeout: cfg.GatewayTimeout,
	}
}

// CreateTransaction validates the request, registers it with the gateway and
// records an INITIATED ledger row.
func (a *GatewayAdapter) CreateTransaction(ctx context.Context, p CreateParams) (CreatedTransaction, error) {
	p.BuyOrder = strings.TrimSpace(p.BuyOrder)
	p.SessionID = strings.TrimSpace(p.SessionID)
	p.ReturnURL = strings.TrimSpace(p.ReturnURL)
	p.PlanCode = strings.ToLower(strings.TrimSpace(p.PlanCode))

	if err := validateCreate(p); err != nil {
		return CreatedTransaction{}, err
	}

	db := a.db.WithContext(ctx)
	description, err := a.checkPayable(db, p)
	if err != nil {
		return CreatedTransaction{}, err
	}

	gwCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	resp, err := a.gateway.Create(gwCtx, gateway.CreateRequest{
		Amount:      p.Amount,
		BuyOrder:    p.BuyOrder,
		SessionID:   p.SessionID,
		ReturnURL:   p.ReturnURL,
		Description: description,
	})
	if err != nil {
		return CreatedTransaction{}, apperr.ErrGateway.Wrap(err)
	}
	if resp.Token == "" || resp.URL == "" {
		return CreatedTransaction{}, apperr.ErrGateway.WithDetail("gateway returned no token or url")
	}

	txn := billing.GatewayTransaction{
		Token:       resp.Token,
		BuyOrder:    p.BuyOrder,
		SessionID:   p.SessionID,
		Amount:      p.Amount,
		PaymentType: p.PaymentType,
		UserID:      p.UserID,
	}
	switch p.PaymentType {
	case billing.PaymentSubscription:
		code := p.PlanCode
		txn.PlanCode = &code
	case billing.PaymentProjectPublication:
		pid := p.ProjectID
		txn.ProjectID = &pid
	}
	if err := a.ledger.Insert(db, &txn); err != nil {
		return CreatedTransaction{}, apperr.Internal(err)
	}

	logger.Info("transaction %s created: type=%s buy_order=%s amount=%d", txn.Token, txn.PaymentType, txn.BuyOrder, txn.Amount)
	return CreatedTransaction{Token: resp.Token, RedirectURL: resp.URL}, nil
}

func validateCreate(p CreateParams) error {
	bad := apperr.ErrInvalidTransactionData
	switch {
	case p.UserID == 0:
		return bad.WithDetail("payer is required")
	case !p.PaymentType.Valid():
		return bad.WithDetail("unknown payment type %q", p.PaymentType)
	case p.Amount <= 0:
		return bad.WithDetail("amount must be positive")
	case p.BuyOrder == "":
		return bad.WithDetail("buy order is required")
	case p.SessionID == "":
		return bad.WithDetail("session id is required")
	case p.ReturnURL == "":
		return bad.WithDetail("return url is required")
	case !p.PaymentType.BuyOrderMatches(p.BuyOrder):
		return bad.WithDetail("buy order %q does not match payment type %s", p.BuyOrder, p.PaymentType)
	}
	if p.PaymentType == billing.PaymentSubscription && !plans.IsValidCode(p.PlanCode) {
		return bad.WithDetail("plan must be monthly or annual")
	}
	if p.PaymentType == billing.PaymentProjectPublication && p.ProjectID == 0 {
		return bad.WithDetail("project is required")
	}
	return nil
}

// checkPayable verifies the thing being paid for against stored state and
// returns a human description for the gateway checkout page.
func (a *GatewayAdapter) checkPayable(db *gorm.DB, p CreateParams) (string, error) {
	switch p.PaymentType {
	case billing.PaymentSubscription:
		var plan plans.Plan
		if err := db.Where("code = ?", p.PlanCode).Take(&plan).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", apperr.ErrPlanNotFound.WithDetail("plan %s is not offered", p.PlanCode)
			}
			return "", apperr.Internal(err)
		}
		if plan.Price != p.Amount {
			return "", apperr.ErrInvalidTransactionData.WithDetail("amount %d does not match %s plan price", p.Amount, plan.Code)
		}
		return fmt.Sprintf("%s subscription", plan.Name), nil

	case billing.PaymentProjectPublication:
		var project projects.Project
		if err := db.Take(&project, p.ProjectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", apperr.ErrProjectNotFound
			}
			return "", apperr.Internal(err)
		}
		if project.OwnerID != p.UserID {
			return "", apperr.ErrUnauthorized.WithDetail("only the project owner can fund it")
		}
		if project.State != projects.StatePendingPayment {
			return "", apperr.ErrProjectNotPayable
		}
		return fmt.Sprintf("Project publication: %s", project.Title), nil
	}
	return "", apperr.ErrInvalidTransactionData
}

// CommitTransaction takes the commit lock for token, runs begin (which must
// durably claim the ledger row), then asks the gateway to commit. A held lock
// fails fast with ErrTransactionInProgress without contacting the gateway.
// The lock lapses after the grace period, not on return.
func (a *GatewayAdapter) CommitTransaction(ctx context.Context, token string, begin func(context.Context) error) (CommitResult, error) {
	ok, err := a.locks.Acquire(ctx, token)
	if err != nil {
		return CommitResult{}, apperr.Internal(fmt.Errorf("acquire commit lock: %w", err))
	}
	if !ok {
		return CommitResult{}, apperr.ErrTransactionInProgress
	}

	if begin != nil {
		if err := begin(ctx); err != nil {
			a.locks.ReleaseAfter(token, 0)
			return CommitResult{}, err
		}
	}
	grace := a.grace
	defer func() { a.locks.ReleaseAfter(token, grace) }()

	gwCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	resp, err := a.gateway.Commit(gwCtx, token)
	if err != nil {
		return CommitResult{}, apperr.ErrGateway.Wrap(err)
	}
	if resp.Pending() {
		// nothing to settle, the next confirmation must not wait out the grace
		grace = 0
	}

	return CommitResult{
		Approved:      resp.Authorized(),
		Pending:       resp.Pending(),
		Status:        resp.Status,
		ResponseCode:  resp.ResponseCode,
		Amount:        resp.Amount,
		BuyOrder:      resp.BuyOrder,
		SessionID:     resp.SessionID,
		PaymentMethod: resp.PaymentMethod,
	}, nil
}
