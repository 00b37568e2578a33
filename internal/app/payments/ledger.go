package payments

import (
	"errors"
	"fmt"
	"time"

	"marketplace-payments/internal/apperr"
	"marketplace-payments/internal/domain/billing"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger is the access layer over gateway_transactions. Status changes are
// conditional updates so that each allowed transition happens at most once,
// whichever process attempts it.
type Ledger struct {
	now func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{now: time.Now}
}

func (l *Ledger) Insert(db *gorm.DB, txn *billing.GatewayTransaction) error {
	now := l.now()
	txn.Status = billing.StatusInitiated
	txn.CreatedAt = now
	txn.UpdatedAt = now
	if err := db.Create(txn).Error; err != nil {
		return fmt.Errorf("insert gateway transaction: %w", err)
	}
	return nil
}

func (l *Ledger) FindByToken(db *gorm.DB, token string) (*billing.GatewayTransaction, error) {
	var txn billing.GatewayTransaction
	err := db.Where("token = ?", token).Take(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load gateway transaction: %w", err)
	}
	return &txn, nil
}

// LockByToken loads the row FOR UPDATE; only meaningful inside a transaction.
func (l *Ledger) LockByToken(tx *gorm.DB, token string) (*billing.GatewayTransaction, error) {
	return l.FindByToken(tx.Clauses(clause.Locking{Strength: "UPDATE"}), token)
}

// MarkProcessing performs INITIATED -> PROCESSING. Losing the race to another
// committer surfaces as ErrTransactionInProgress.
func (l *Ledger) MarkProcessing(db *gorm.DB, token string) error {
	res := db.Model(&billing.GatewayTransaction{}).
		Where("token = ? AND status = ?", token, billing.StatusInitiated).
		Updates(map[string]interface{}{
			"status":     billing.StatusProcessing,
			"updated_at": l.now(),
		})
	if res.Error != nil {
		return fmt.Errorf("mark %s processing: %w", token, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrTransactionInProgress
	}
	return nil
}

// Reopen performs PROCESSING -> INITIATED for a commit that found the
// payment still pending at the gateway.
func (l *Ledger) Reopen(db *gorm.DB, token string) error {
	res := db.Model(&billing.GatewayTransaction{}).
		Where("token = ? AND status = ?", token, billing.StatusProcessing).
		Updates(map[string]interface{}{
			"status":     billing.StatusInitiated,
			"updated_at": l.now(),
		})
	if res.Error != nil {
		return fmt.Errorf("reopen %s: %w", token, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("reopen %s: row is no longer PROCESSING", token)
	}
	return nil
}

// Settle performs PROCESSING -> APPROVED | REJECTED and records the gateway response.
func (l *Ledger) Settle(tx *gorm.DB, token string, status billing.Status, responseCode int, paymentMethod string) error {
	if !status.IsSettled() {
		return fmt.Errorf("settle %s: %s is not a settled status", token, status)
	}
	updates := map[string]interface{}{
		"status":        status,
		"response_code": responseCode,
		"updated_at":    l.now(),
	}
	if paymentMethod != "" {
		updates["payment_method"] = paymentMethod
	}
	res := tx.Model(&billing.GatewayTransaction{}).
		Where("token = ? AND status = ?", token, billing.StatusProcessing).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("settle %s: %w", token, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("settle %s: row is no longer PROCESSING", token)
	}
	return nil
}

// MarkError moves a non-terminal row to ERROR. Settled rows are never touched.
func (l *Ledger) MarkError(db *gorm.DB, token string, responseCode *int) (bool, error) {
	updates := map[string]interface{}{
		"status":     billing.StatusError,
		"updated_at": l.now(),
	}
	if responseCode != nil {
		updates["response_code"] = *responseCode
	}
	res := db.Model(&billing.GatewayTransaction{}).
		Where("token = ? AND status IN ?", token, []billing.Status{billing.StatusInitiated, billing.StatusProcessing}).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("mark %s error: %w", token, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// StaleProcessing lists rows stuck in PROCESSING since before cutoff.
func (l *Ledger) StaleProcessing(db *gorm.DB, cutoff time.Time) ([]billing.GatewayTransaction, error) {
	var rows []billing.GatewayTransaction
	err := db.Where("status = ? AND updated_at < ?", billing.StatusProcessing, cutoff).
		Order("updated_at ASC").
		Find(&rows).Error
	return rows, err
}

// ListFilter narrows ledger listings. Zero values are ignored.
type ListFilter struct {
	UserID uint
	Status billing.Status
	Limit  int
}

func (l *Ledger) List(db *gorm.DB, f ListFilter) ([]billing.GatewayTransaction, error) {
	q := db.Model(&billing.GatewayTransaction{})
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var rows []billing.GatewayTransaction
	err := q.Order("created_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
