package settlement

import (
	"context"

	"marketplace-payments/internal/apperr"
	"marketplace-payments/internal/domain/payouts"

	"gorm.io/gorm"
)

// PayoutFilter narrows payout order listings. Zero values are ignored.
type PayoutFilter struct {
	ProjectID     uint
	BeneficiaryID uint
	Limit         int
}

func ListPayoutOrders(ctx context.Context, db *gorm.DB, f PayoutFilter) ([]payouts.PayoutOrder, error) {
	q := db.WithContext(ctx).Model(&payouts.PayoutOrder{})
	if f.ProjectID != 0 {
		q = q.Where("project_id = ?", f.ProjectID)
	}
	if f.BeneficiaryID != 0 {
		q = q.Where("beneficiary_id = ?", f.BeneficiaryID)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []payouts.PayoutOrder
	if err := q.Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return rows, nil
}
