package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-payments/internal/apperr"
	"marketplace-payments/internal/domain/billing"
	"marketplace-payments/internal/domain/escrow"
	"marketplace-payments/internal/domain/plans"
	"marketplace-payments/internal/domain/projects"
	"marketplace-payments/internal/domain/users"
	"marketplace-payments/internal/infra/notify"
	"marketplace-payments/internal/logger"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommitOutcome is what a commit call reports back. Replayed is set when the
// outcome was read from the ledger without contacting the gateway.
type CommitOutcome struct {
	Token         string              `json:"token"`
	Status        billing.Status      `json:"status"`
	Approved      bool                `json:"approved"`
	ResponseCode  *int                `json:"response_code,omitempty"`
	Amount        int64               `json:"amount"`
	BuyOrder      string              `json:"buy_order"`
	PaymentType   billing.PaymentType `json:"payment_type"`
	PaymentMethod *string             `json:"payment_method,omitempty"`
	ProjectID     *uint               `json:"project_id,omitempty"`
	PlanCode      *string             `json:"plan_code,omitempty"`
	HoldID        *uint               `json:"hold_id,omitempty"`
	Replayed      bool                `json:"replayed"`
}

func outcomeFromLedger(txn *billing.GatewayTransaction) CommitOutcome {
	return CommitOutcome{
		Token:         txn.Token,
		Status:        txn.Status,
		Approved:      txn.Status == billing.StatusApproved,
		ResponseCode:  txn.ResponseCode,
		Amount:        txn.Amount,
		BuyOrder:      txn.BuyOrder,
		PaymentType:   txn.PaymentType,
		PaymentMethod: txn.PaymentMethod,
		ProjectID:     txn.ProjectID,
		PlanCode:      txn.PlanCode,
	}
}

// CommitOrchestrator turns a gateway confirmation into exactly one settlement
// per token, however many times the client or the gateway retries.
type CommitOrchestrator struct {
	db       *gorm.DB
	ledger   *Ledger
	adapter  *GatewayAdapter
	escrow   *escrow.Manager
	notifier notify.Notifier
	now      func() time.Time
}

func NewCommitOrchestrator(db *gorm.DB, ledger *Ledger, adapter *GatewayAdapter, escrowMgr *escrow.Manager, notifier notify.Notifier) *CommitOrchestrator {
	return &CommitOrchestrator{
		db:       db,
		ledger:   ledger,
		adapter:  adapter,
		escrow:   escrowMgr,
		notifier: notifier,
		now:      time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (o *CommitOrchestrator) WithClock(now func() time.Time) *CommitOrchestrator {
	o.now = now
	return o
}

func (o *CommitOrchestrator) Commit(ctx context.Context, token string) (CommitOutcome, error) {
	if token == "" {
		return CommitOutcome{}, apperr.ErrInvalidTransactionData.WithDetail("token is required")
	}

	txn, err := o.ledger.FindByToken(o.db.WithContext(ctx), token)
	if err != nil {
		if errors.Is(err, apperr.ErrTransactionNotFound) {
			return CommitOutcome{}, err
		}
		return CommitOutcome{}, apperr.Internal(err)
	}

	switch txn.Status {
	case billing.StatusApproved, billing.StatusRejected:
		out := outcomeFromLedger(txn)
		out.Replayed = true
		return out, nil
	case billing.StatusProcessing:
		return CommitOutcome{}, apperr.ErrTransactionInProgress
	case billing.StatusError:
		return CommitOutcome{}, apperr.ErrTransactionFailed
	}

	if !txn.PaymentType.BuyOrderMatches(txn.BuyOrder) {
		return CommitOutcome{}, apperr.ErrInvalidTransactionData.WithDetail("buy order %q does not match payment type %s", txn.BuyOrder, txn.PaymentType)
	}

	result, err := o.adapter.CommitTransaction(ctx, token, func(ctx context.Context) error {
		return o.ledger.MarkProcessing(o.db.WithContext(ctx), token)
	})
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrTransactionInProgress):
			return CommitOutcome{}, err
		case errors.Is(err, apperr.ErrGateway):
			o.markError(ctx, token, nil)
			return CommitOutcome{}, err
		}
		// begin failed before anything was claimed, or the lock store is down
		return CommitOutcome{}, apperr.Internal(err)
	}

	if result.Pending {
		// not decided yet: leave the row open for the next confirmation
		// (client retry or the gateway's async webhook)
		if err := o.ledger.Reopen(o.db.WithContext(context.WithoutCancel(ctx)), token); err != nil {
			logger.Error("transaction %s: %v", token, err)
			return CommitOutcome{}, apperr.Internal(err)
		}
		logger.Info("transaction %s still pending at the gateway (%s)", token, result.Status)
		return CommitOutcome{}, apperr.ErrPaymentPending
	}

	if result.Approved {
		if result.Amount != txn.Amount || result.BuyOrder != txn.BuyOrder {
			logger.Error("transaction %s: gateway approved amount=%d buy_order=%s, ledger has amount=%d buy_order=%s",
				token, result.Amount, result.BuyOrder, txn.Amount, txn.BuyOrder)
			code := result.ResponseCode
			o.markError(ctx, token, &code)
			return CommitOutcome{}, apperr.ErrProcessingFailed.WithDetail("gateway result does not match the transaction")
		}
	}

	// the settlement must not be torn by a client hanging up
	dbCtx := context.WithoutCancel(ctx)
	var settled billing.GatewayTransaction
	var holdID *uint
	err = o.db.WithContext(dbCtx).Transaction(func(tx *gorm.DB) error {
		row, err := o.ledger.LockByToken(tx, token)
		if err != nil {
			return err
		}
		if row.Status != billing.StatusProcessing {
			return fmt.Errorf("transaction %s left PROCESSING while committing (now %s)", token, row.Status)
		}

		status := billing.StatusRejected
		if result.Approved {
			status = billing.StatusApproved
			switch row.PaymentType {
			case billing.PaymentProjectPublication:
				hold, err := o.publishProject(tx, row)
				if err != nil {
					return err
				}
				holdID = &hold.ID
			case billing.PaymentSubscription:
				if err := o.activateSubscription(tx, row); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown payment type %q", row.PaymentType)
			}
		}

		if err := o.ledger.Settle(tx, token, status, result.ResponseCode, result.PaymentMethod); err != nil {
			return err
		}
		reloaded, err := o.ledger.FindByToken(tx, token)
		if err != nil {
			return err
		}
		settled = *reloaded
		return nil
	})
	if err != nil {
		logger.Error("transaction %s settlement failed: %v", token, err)
		code := result.ResponseCode
		o.markError(dbCtx, token, &code)
		return CommitOutcome{}, apperr.ErrProcessingFailed
	}

	out := outcomeFromLedger(&settled)
	out.HoldID = holdID
	logger.Info("transaction %s settled as %s (response_code=%d)", token, settled.Status, result.ResponseCode)
	o.notifyOutcome(ctx, &settled)
	return out, nil
}

// publishProject retains the paid amount in escrow and moves the project to
// published. The project row is locked so a concurrent edit cannot interleave.
func (o *CommitOrchestrator) publishProject(tx *gorm.DB, txn *billing.GatewayTransaction) (*escrow.Hold, error) {
	if txn.ProjectID == nil {
		return nil, fmt.Errorf("publication transaction %s has no project", txn.Token)
	}
	var project projects.Project
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&project, *txn.ProjectID).Error; err != nil {
		return nil, fmt.Errorf("load project %d: %w", *txn.ProjectID, err)
	}
	if project.State != projects.StatePendingPayment {
		return nil, fmt.Errorf("project %d is %s, expected %s", project.ID, project.State, projects.StatePendingPayment)
	}

	hold, err := o.escrow.Retain(tx, project.ID, txn.Amount, txn.Token)
	if err != nil {
		return nil, err
	}

	now := o.now()
	res := tx.Model(&projects.Project{}).
		Where("id = ? AND state = ?", project.ID, projects.StatePendingPayment).
		Updates(map[string]interface{}{
			"state":        projects.StatePublished,
			"published_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("publish project %d: %w", project.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("publish project %d: state changed concurrently", project.ID)
	}
	return hold, nil
}

// activateSubscription grants the paid plan. Renewals extend from the later
// of now and the current period end so paid days are never lost.
func (o *CommitOrchestrator) activateSubscription(tx *gorm.DB, txn *billing.GatewayTransaction) error {
	if txn.PlanCode == nil {
		return fmt.Errorf("subscription transaction %s has no plan", txn.Token)
	}
	var plan plans.Plan
	if err := tx.Where("code = ?", *txn.PlanCode).Take(&plan).Error; err != nil {
		return fmt.Errorf("load plan %s: %w", *txn.PlanCode, err)
	}
	var user users.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&user, txn.UserID).Error; err != nil {
		return fmt.Errorf("load user %d: %w", txn.UserID, err)
	}

	now := o.now()
	start := now
	if user.SubscriptionEnd != nil && user.SubscriptionEnd.After(now) {
		start = *user.SubscriptionEnd
	}
	end := plans.PeriodEnd(&plan, start)

	updates := map[string]interface{}{
		"plan_id":          plan.ID,
		"subscription_end": end,
		"updated_at":       now,
	}
	if user.SubscriptionEnd == nil || !user.SubscriptionEnd.After(now) {
		updates["subscription_start"] = now
	}
	if err := tx.Model(&users.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("activate plan for user %d: %w", user.ID, err)
	}
	return nil
}

func (o *CommitOrchestrator) markError(ctx context.Context, token string, responseCode *int) {
	moved, err := o.ledger.MarkError(o.db.WithContext(context.WithoutCancel(ctx)), token, responseCode)
	if err != nil {
		logger.Error("transaction %s: could not record ERROR: %v", token, err)
		return
	}
	if moved {
		logger.Warn("transaction %s marked ERROR", token)
	}
}

func (o *CommitOrchestrator) notifyOutcome(ctx context.Context, txn *billing.GatewayTransaction) {
	if o.notifier == nil {
		return
	}
	payload := map[string]interface{}{
		"token":     txn.Token,
		"buy_order": txn.BuyOrder,
		"amount":    txn.Amount,
	}

	event := notify.EventPaymentRejected
	if txn.Status == billing.StatusApproved {
		switch txn.PaymentType {
		case billing.PaymentProjectPublication:
			event = notify.EventProjectPublished
			if txn.ProjectID != nil {
				payload["project_id"] = *txn.ProjectID
			}
		case billing.PaymentSubscription:
			event = notify.EventSubscriptionActivated
			if txn.PlanCode != nil {
				payload["plan"] = *txn.PlanCode
			}
		}
	}
	if err := o.notifier.Notify(ctx, txn.UserID, event, payload); err != nil {
		logger.Warn("notify %s for transaction %s: %v", event, txn.Token, err)
	}
}

// ExpireStale moves rows stuck in PROCESSING since before cutoff to ERROR.
// Those payments may have gone through at the gateway and need manual
// reconciliation, so each one is logged.
func (o *CommitOrchestrator) ExpireStale(ctx context.Context, cutoff time.Time) (int, error) {
	db := o.db.WithContext(ctx)
	rows, err := o.ledger.StaleProcessing(db, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stale transactions: %w", err)
	}
	expired := 0
	for _, row := range rows {
		moved, err := o.ledger.MarkError(db, row.Token, nil)
		if err != nil {
			return expired, err
		}
		if moved {
			expired++
			logger.Warn("transaction %s (buy_order=%s amount=%d) stuck in PROCESSING since %s, marked ERROR; reconcile with the gateway",
				row.Token, row.BuyOrder, row.Amount, row.UpdatedAt.Format(time.RFC3339))
		}
	}
	return expired, nil
}
