// Package settlement drives the fund movements that close a project: the
// standard release to the accepted freelancer and administrator dispute
// resolutions. Each one runs in a single database transaction; documents and
// notifications follow only after it commits.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketplace-payments/internal/apperr"
	"marketplace-payments/internal/domain/escrow"
	"marketplace-payments/internal/domain/payouts"
	"marketplace-payments/internal/domain/projects"
	calc "marketplace-payments/internal/domain/settlement"
	"marketplace-payments/internal/domain/users"
	"marketplace-payments/internal/infra/notify"
	"marketplace-payments/internal/logger"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReleaseResult struct {
	ProjectID           uint    `json:"project_id"`
	HoldID              uint    `json:"hold_id"`
	FreelancerID        uint    `json:"freelancer_id"`
	Amount              int64   `json:"amount"`
	Commission          int64   `json:"commission"`
	WorkerPayout        int64   `json:"worker_payout"`
	PayoutOrderID       uint    `json:"payout_order_id"`
	CommissionInvoiceID *uint   `json:"commission_invoice_id,omitempty"`
	PayoutDocumentRef   *string `json:"payout_document_ref,omitempty"`
	InvoiceDocumentRef  *string `json:"invoice_document_ref,omitempty"`
}

type ReleaseService struct {
	db       *gorm.DB
	escrow   *escrow.Manager
	calc     calc.Calculator
	docs     *DocumentIssuer
	notifier notify.Notifier
	now      func() time.Time
}

func NewReleaseService(db *gorm.DB, escrowMgr *escrow.Manager, calculator calc.Calculator, docs *DocumentIssuer, notifier notify.Notifier) *ReleaseService {
	return &ReleaseService{
		db:       db,
		escrow:   escrowMgr,
		calc:     calculator,
		docs:     docs,
		notifier: notifier,
		now:      time.Now,
	}
}

// Release pays the accepted freelancer from the project's retained funds.
// Preconditions are evaluated in order inside the transaction, after the
// project and hold rows are locked.
func (s *ReleaseService) Release(ctx context.Context, ownerID, projectID uint) (ReleaseResult, error) {
	var (
		result  ReleaseResult
		order   payouts.PayoutOrder
		invoice *payouts.CommissionInvoice
	)

	err := s.db.WithContext(context.WithoutCancel(ctx)).Transaction(func(tx *gorm.DB) error {
		project, err := lockProject(tx, projectID)
		if err != nil {
			return err
		}
		if project.OwnerID != ownerID {
			return apperr.ErrUnauthorized.WithDetail("project %d belongs to another user", projectID)
		}

		freelancerID, err := acceptedFreelancer(tx, projectID)
		if err != nil {
			return err
		}

		hold, err := s.escrow.ActiveForProject(tx, projectID)
		if errors.Is(err, apperr.ErrNoActiveHold) {
			return apperr.ErrNoFundsRetained
		}
		if err != nil {
			return err
		}

		var owner users.User
		if err := tx.Take(&owner, project.OwnerID).Error; err != nil {
			return fmt.Errorf("load owner %d: %w", project.OwnerID, err)
		}
		if owner.RequiresTaxReceipt() && (project.TaxReceiptRef == nil || *project.TaxReceiptRef == "") {
			return apperr.ErrReceiptRequired
		}

		split, err := s.calc.StandardRelease(hold.Amount)
		if err != nil {
			return err
		}

		now := s.now()
		order = payouts.PayoutOrder{
			ProjectID:     projectID,
			BeneficiaryID: freelancerID,
			Amount:        split.WorkerPayout,
			Purpose:       payouts.PurposeWorkerFee,
			Status:        payouts.StatusPending,
			Source:        payouts.SourceRelease,
			HoldID:        hold.ID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("create payout order: %w", err)
		}

		invoice, err = createInvoice(tx, projectID, hold.ID, split.Commission, now)
		if err != nil {
			return err
		}

		if err := s.escrow.Release(tx, hold.ID); err != nil {
			return err
		}
		if err := closeProject(tx, projectID, projects.StateFinalized, now); err != nil {
			return err
		}

		result = ReleaseResult{
			ProjectID:     projectID,
			HoldID:        hold.ID,
			FreelancerID:  freelancerID,
			Amount:        hold.Amount,
			Commission:    split.Commission,
			WorkerPayout:  split.WorkerPayout,
			PayoutOrderID: order.ID,
		}
		if invoice != nil {
			result.CommissionInvoiceID = &invoice.ID
		}
		return nil
	})
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return ReleaseResult{}, err
		}
		logger.Error("release of project %d failed: %v", projectID, err)
		return ReleaseResult{}, apperr.Internal(err)
	}

	logger.Info("project %d released: hold=%d payout=%d commission=%d", projectID, result.HoldID, result.WorkerPayout, result.Commission)

	result.PayoutDocumentRef = s.docs.IssuePayout(ctx, &order)
	if invoice != nil {
		result.InvoiceDocumentRef = s.docs.IssueInvoice(ctx, invoice)
	}

	send(ctx, s.notifier, result.FreelancerID, notify.EventPayoutCreated, map[string]interface{}{
		"project_id":      projectID,
		"payout_order_id": result.PayoutOrderID,
		"amount":          result.WorkerPayout,
	})
	send(ctx, s.notifier, ownerID, notify.EventFundsReleased, map[string]interface{}{
		"project_id": projectID,
		"amount":     result.Amount,
		"commission": result.Commission,
	})
	return result, nil
}

// AttachTaxReceipt records the tax receipt a business owner must file before
// a release. Replacing an earlier reference is allowed until the project closes.
func (s *ReleaseService) AttachTaxReceipt(ctx context.Context, ownerID, projectID uint, documentRef string) error {
	documentRef = strings.TrimSpace(documentRef)
	if documentRef == "" {
		return apperr.ErrInvalidInput.WithDetail("document reference is required")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := lockProject(tx, projectID)
		if err != nil {
			return err
		}
		if project.OwnerID != ownerID {
			return apperr.ErrUnauthorized.WithDetail("project %d belongs to another user", projectID)
		}
		if project.State == projects.StateFinalized || project.State == projects.StateCancelled {
			return apperr.ErrProjectClosed
		}
		return tx.Model(&projects.Project{}).Where("id = ?", projectID).Updates(map[string]interface{}{
			"tax_receipt_ref": documentRef,
			"updated_at":      s.now(),
		}).Error
	})
}

func lockProject(tx *gorm.DB, projectID uint) (*projects.Project, error) {
	var project projects.Project
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&project, projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load project %d: %w", projectID, err)
	}
	return &project, nil
}

func acceptedFreelancer(tx *gorm.DB, projectID uint) (uint, error) {
	var app projects.Application
	err := tx.Where("project_id = ? AND status = ?", projectID, projects.ApplicationAccepted).
		Order("id").
		Take(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperr.ErrNoAcceptedFreelancer
	}
	if err != nil {
		return 0, fmt.Errorf("load accepted application: %w", err)
	}
	return app.FreelancerID, nil
}

// createInvoice records the commission, if any. A zero commission produces no invoice.
func createInvoice(tx *gorm.DB, projectID, holdID uint, amount int64, now time.Time) (*payouts.CommissionInvoice, error) {
	if amount <= 0 {
		return nil, nil
	}
	inv := payouts.CommissionInvoice{
		ProjectID: projectID,
		HoldID:    holdID,
		Amount:    amount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.Create(&inv).Error; err != nil {
		return nil, fmt.Errorf("create commission invoice: %w", err)
	}
	return &inv, nil
}

func closeProject(tx *gorm.DB, projectID uint, state string, now time.Time) error {
	err := tx.Model(&projects.Project{}).Where("id = ?", projectID).Updates(map[string]interface{}{
		"state":      state,
		"closed_at":  now,
		"updated_at": now,
	}).Error
	if err != nil {
		return fmt.Errorf("mark project %d %s: %w", projectID, state, err)
	}
	return nil
}

func send(ctx context.Context, n notify.Notifier, userID uint, event string, payload map[string]interface{}) {
	if n == nil || userID == 0 {
		return
	}
	if err := n.Notify(ctx, userID, event, payload); err != nil {
		logger.Warn("notify %s to user %d: %v", event, userID, err)
	}
}
