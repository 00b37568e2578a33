// Package escrow manages funds retained against projects. Every method takes
// the caller's transaction handle and never opens or commits one itself, so
// fund movements stay atomic with the payout and project changes around them.
package escrow

import (
	"errors"
	"fmt"
	"time"

	"marketplace-payments/internal/apperr"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Manager struct {
	now func() time.Time
}

func NewManager() *Manager {
	return &Manager{now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Retain records a RETAINED hold. A second RETAINED hold for the same project
// is an invariant breach and fails with ErrDuplicateActiveHold.
func (m *Manager) Retain(tx *gorm.DB, projectID uint, amount int64, token string) (*Hold, error) {
	if amount <= 0 || token == "" {
		return nil, apperr.ErrInvalidInput.WithDetail("retain requires a positive amount and a gateway token")
	}

	existing, err := m.ActiveForProject(tx, projectID)
	if err != nil && !errors.Is(err, apperr.ErrNoActiveHold) {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.ErrDuplicateActiveHold.WithDetail("project %d hold %d", projectID, existing.ID)
	}

	now := m.now()
	hold := Hold{
		ProjectID:    projectID,
		Amount:       amount,
		Status:       StatusRetained,
		GatewayToken: token,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.Create(&hold).Error; err != nil {
		return nil, fmt.Errorf("create escrow hold: %w", err)
	}
	return &hold, nil
}

// ActiveForProject loads and row-locks the RETAINED hold of a project.
func (m *Manager) ActiveForProject(tx *gorm.DB, projectID uint) (*Hold, error) {
	var hold Hold
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("project_id = ? AND status = ?", projectID, StatusRetained).
		Take(&hold).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNoActiveHold
	}
	if err != nil {
		return nil, fmt.Errorf("load active escrow hold: %w", err)
	}
	return &hold, nil
}

// Release moves a hold RETAINED -> RELEASED.
func (m *Manager) Release(tx *gorm.DB, holdID uint) error {
	return m.transition(tx, holdID, StatusReleased)
}

// Refund moves a hold RETAINED -> REFUNDED.
func (m *Manager) Refund(tx *gorm.DB, holdID uint) error {
	return m.transition(tx, holdID, StatusRefunded)
}

func (m *Manager) transition(tx *gorm.DB, holdID uint, to Status) error {
	res := tx.Model(&Hold{}).
		Where("id = ? AND status = ?", holdID, StatusRetained).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": m.now(),
		})
	if res.Error != nil {
		return fmt.Errorf("update escrow hold %d: %w", holdID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNoActiveHold.WithDetail("hold %d", holdID)
	}
	return nil
}
