package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-payments/internal/apperr"
	"marketplace-payments/internal/domain/disputes"
	"marketplace-payments/internal/domain/escrow"
	"marketplace-payments/internal/domain/payouts"
	"marketplace-payments/internal/domain/projects"
	calc "marketplace-payments/internal/domain/settlement"
	"marketplace-payments/internal/infra/notify"
	"marketplace-payments/internal/logger"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DisputeResult struct {
	DisputeID           uint       `json:"dispute_id"`
	ProjectID           uint       `json:"project_id"`
	HoldID              uint       `json:"hold_id"`
	Policy              string     `json:"policy"`
	Status              string     `json:"status"`
	Split               calc.Split `json:"split"`
	PayoutOrderIDs      []uint     `json:"payout_order_ids"`
	CommissionInvoiceID *uint      `json:"commission_invoice_id,omitempty"`
	DocumentRefs        []string   `json:"document_refs,omitempty"`
	ResolvedAt          time.Time  `json:"resolved_at"`
}

type DisputeService struct {
	db       *gorm.DB
	escrow   *escrow.Manager
	calc     calc.Calculator
	docs     *DocumentIssuer
	notifier notify.Notifier
	now      func() time.Time
}

func NewDisputeService(db *gorm.DB, escrowMgr *escrow.Manager, calculator calc.Calculator, docs *DocumentIssuer, notifier notify.Notifier) *DisputeService {
	return &DisputeService{
		db:       db,
		escrow:   escrowMgr,
		calc:     calculator,
		docs:     docs,
		notifier: notifier,
		now:      time.Now,
	}
}

// Resolve settles an open dispute against the project's retained funds. It is
// not idempotent: once the hold is no longer RETAINED a second call fails with
// ErrDisputeNotFoundOrSettled and creates nothing.
func (s *DisputeService) Resolve(ctx context.Context, adminID, disputeID uint, policy string) (DisputeResult, error) {
	if !disputes.ValidPolicy(policy) {
		return DisputeResult{}, apperr.ErrInvalidInput.WithDetail("policy must be %s or %s", disputes.PolicyWorkerWins, disputes.PolicySplit)
	}

	var (
		result   DisputeResult
		orders   []payouts.PayoutOrder
		invoice  *payouts.CommissionInvoice
		ownerID  uint
		workerID uint
	)

	err := s.db.WithContext(context.WithoutCancel(ctx)).Transaction(func(tx *gorm.DB) error {
		var dispute disputes.Dispute
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND status IN ?", disputeID, disputes.OpenStatuses).
			Take(&dispute).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrDisputeNotFoundOrSettled
		}
		if err != nil {
			return fmt.Errorf("load dispute %d: %w", disputeID, err)
		}

		// project before hold, the order release and commit lock them in
		project, err := lockProject(tx, dispute.ProjectID)
		if err != nil {
			return err
		}
		hold, err := s.escrow.ActiveForProject(tx, project.ID)
		if errors.Is(err, apperr.ErrNoActiveHold) {
			return apperr.ErrDisputeNotFoundOrSettled.WithDetail("no retained funds for project %d", project.ID)
		}
		if err != nil {
			return err
		}
		ownerID = project.OwnerID
		workerID, err = acceptedFreelancer(tx, project.ID)
		if err != nil {
			return err
		}

		var split calc.Split
		if policy == disputes.PolicySplit {
			split, err = s.calc.DisputeSplit(hold.Amount)
		} else {
			split, err = s.calc.DisputeFavorWorker(hold.Amount)
		}
		if err != nil {
			return err
		}

		now := s.now()
		dID := dispute.ID
		newOrder := func(beneficiary uint, amount int64, purpose string) error {
			if amount <= 0 {
				return nil
			}
			o := payouts.PayoutOrder{
				ProjectID:     project.ID,
				BeneficiaryID: beneficiary,
				Amount:        amount,
				Purpose:       purpose,
				Status:        payouts.StatusPending,
				Source:        payouts.SourceDispute,
				DisputeID:     &dID,
				HoldID:        hold.ID,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := tx.Create(&o).Error; err != nil {
				return fmt.Errorf("create %s payout: %w", purpose, err)
			}
			orders = append(orders, o)
			return nil
		}
		if err := newOrder(workerID, split.WorkerPayout, payouts.PurposeWorkerFee); err != nil {
			return err
		}
		if err := newOrder(project.OwnerID, split.ClientRefund, payouts.PurposeClientRefund); err != nil {
			return err
		}

		invoice, err = createInvoice(tx, project.ID, hold.ID, split.Commission, now)
		if err != nil {
			return err
		}

		if err := s.escrow.Release(tx, hold.ID); err != nil {
			return err
		}

		status := disputes.TerminalStatus(policy)
		res := tx.Model(&disputes.Dispute{}).
			Where("id = ? AND status IN ?", dispute.ID, disputes.OpenStatuses).
			Updates(map[string]interface{}{
				"status":      status,
				"resolution":  policy,
				"resolved_by": adminID,
				"resolved_at": now,
				"updated_at":  now,
			})
		if res.Error != nil {
			return fmt.Errorf("resolve dispute %d: %w", dispute.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.ErrDisputeNotFoundOrSettled
		}

		if err := closeProject(tx, project.ID, projects.StateCancelled, now); err != nil {
			return err
		}

		result = DisputeResult{
			DisputeID:  dispute.ID,
			ProjectID:  project.ID,
			HoldID:     hold.ID,
			Policy:     policy,
			Status:     status,
			Split:      split,
			ResolvedAt: now,
		}
		for _, o := range orders {
			result.PayoutOrderIDs = append(result.PayoutOrderIDs, o.ID)
		}
		if invoice != nil {
			result.CommissionInvoiceID = &invoice.ID
		}
		return nil
	})
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return DisputeResult{}, err
		}
		logger.Error("resolution of dispute %d failed: %v", disputeID, err)
		return DisputeResult{}, apperr.Internal(err)
	}

	logger.Info("dispute %d resolved by admin %d: policy=%s worker=%d refund=%d commission=%d",
		disputeID, adminID, policy, result.Split.WorkerPayout, result.Split.ClientRefund, result.Split.Commission)

	for i := range orders {
		if ref := s.docs.IssuePayout(ctx, &orders[i]); ref != nil {
			result.DocumentRefs = append(result.DocumentRefs, *ref)
		}
	}
	if invoice != nil {
		if ref := s.docs.IssueInvoice(ctx, invoice); ref != nil {
			result.DocumentRefs = append(result.DocumentRefs, *ref)
		}
	}

	payload := map[string]interface{}{
		"dispute_id": result.DisputeID,
		"project_id": result.ProjectID,
		"status":     result.Status,
	}
	send(ctx, s.notifier, workerID, notify.EventDisputeResolved, payload)
	send(ctx, s.notifier, ownerID, notify.EventDisputeResolved, payload)
	return result, nil
}

// List returns disputes, newest first, optionally only those in status.
func (s *DisputeService) List(ctx context.Context, status string, limit int) ([]disputes.Dispute, error) {
	q := s.db.WithContext(ctx).Model(&disputes.Dispute{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []disputes.Dispute
	if err := q.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return rows, nil
}
