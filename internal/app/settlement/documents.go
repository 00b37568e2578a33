package settlement

import (
	"context"
	"fmt"

	"marketplace-payments/internal/domain/payouts"
	"marketplace-payments/internal/infra/documents"
	"marketplace-payments/internal/logger"

	"gorm.io/gorm"
)

// DocumentIssuer renders payout orders and commission invoices once their
// rows are committed and stores the returned reference. A rendering failure
// leaves the reference empty for Backfill to retry later.
type DocumentIssuer struct {
	db  *gorm.DB
	gen documents.Generator
}

func NewDocumentIssuer(db *gorm.DB, gen documents.Generator) *DocumentIssuer {
	return &DocumentIssuer{db: db, gen: gen}
}

func (d *DocumentIssuer) IssuePayout(ctx context.Context, order *payouts.PayoutOrder) *string {
	if order.DocumentRef != nil {
		return order.DocumentRef
	}
	ref, err := d.gen.Generate(ctx, payouts.DocPayoutOrder, map[string]interface{}{
		"payout_order_id": order.ID,
		"project_id":      order.ProjectID,
		"beneficiary_id":  order.BeneficiaryID,
		"amount":          order.Amount,
		"purpose":         order.Purpose,
		"issued_at":       order.CreatedAt,
	})
	if err != nil {
		logger.Warn("payout order %d: document generation failed: %v", order.ID, err)
		return nil
	}
	if err := d.attach(ctx, &payouts.PayoutOrder{}, order.ID, ref); err != nil {
		logger.Error("payout order %d: store document ref: %v", order.ID, err)
		return nil
	}
	order.DocumentRef = &ref
	return &ref
}

func (d *DocumentIssuer) IssueInvoice(ctx context.Context, inv *payouts.CommissionInvoice) *string {
	if inv.DocumentRef != nil {
		return inv.DocumentRef
	}
	ref, err := d.gen.Generate(ctx, payouts.DocCommissionInvoice, map[string]interface{}{
		"invoice_id": inv.ID,
		"project_id": inv.ProjectID,
		"hold_id":    inv.HoldID,
		"amount":     inv.Amount,
		"issued_at":  inv.CreatedAt,
	})
	if err != nil {
		logger.Warn("commission invoice %d: document generation failed: %v", inv.ID, err)
		return nil
	}
	if err := d.attach(ctx, &payouts.CommissionInvoice{}, inv.ID, ref); err != nil {
		logger.Error("commission invoice %d: store document ref: %v", inv.ID, err)
		return nil
	}
	inv.DocumentRef = &ref
	return &ref
}

// attach only fills an empty reference so a concurrent backfill cannot
// overwrite one already stored.
func (d *DocumentIssuer) attach(ctx context.Context, model interface{}, id uint, ref string) error {
	return d.db.WithContext(ctx).Model(model).
		Where("id = ? AND document_ref IS NULL", id).
		Update("document_ref", ref).Error
}

// Backfill issues documents for up to limit rows still missing one and
// returns how many were issued.
func (d *DocumentIssuer) Backfill(ctx context.Context, limit int) (int, error) {
	return d.backfill(ctx, d.db.WithContext(ctx), limit)
}

// RegenerateForProject is Backfill scoped to one project.
func (d *DocumentIssuer) RegenerateForProject(ctx context.Context, projectID uint) (int, error) {
	return d.backfill(ctx, d.db.WithContext(ctx).Where("project_id = ?", projectID), 0)
}

func (d *DocumentIssuer) backfill(ctx context.Context, scope *gorm.DB, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}

	var orders []payouts.PayoutOrder
	if err := scope.Session(&gorm.Session{}).Where("document_ref IS NULL").Order("id").Limit(limit).Find(&orders).Error; err != nil {
		return 0, fmt.Errorf("list payout orders without document: %w", err)
	}
	var invoices []payouts.CommissionInvoice
	if err := scope.Session(&gorm.Session{}).Where("document_ref IS NULL").Order("id").Limit(limit).Find(&invoices).Error; err != nil {
		return 0, fmt.Errorf("list invoices without document: %w", err)
	}

	issued := 0
	for i := range orders {
		if ctx.Err() != nil {
			return issued, ctx.Err()
		}
		if d.IssuePayout(ctx, &orders[i]) != nil {
			issued++
		}
	}
	for i := range invoices {
		if ctx.Err() != nil {
			return issued, ctx.Err()
		}
		if d.IssueInvoice(ctx, &invoices[i]) != nil {
			issued++
		}
	}
	return issued, nil
}
