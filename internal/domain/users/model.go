package users

import (
	"marketplace-payments/internal/domain/plans"
	"time"
)

// Account classes. Business accounts must file a tax receipt before escrowed
// funds for their projects can be released.
const (
	AccountPersonal = "personal"
	AccountBusiness = "business"
)

type User struct {
	ID           uint `gorm:"primaryKey"`
	Name         string
	Lastname     string
	Email        string `gorm:"not null;uniqueIndex:idx_users_email"`
	Role         string
	AccountClass string `gorm:"type:varchar(20);not null;default:'personal'"`

	PlanID *uint
	Plan   *plans.Plan

	SubscriptionStart *time.Time
	SubscriptionEnd   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RequiresTaxReceipt reports whether the account class must provide a
// receipt before a release.
func (u User) RequiresTaxReceipt() bool {
	return u.AccountClass == AccountBusiness
}
