package projects

import "time"

const (
	StatePendingPayment = "pending_payment"
	StatePublished      = "published"
	StateFinalized      = "finalized"
	StateCancelled      = "cancelled"
)

const (
	ApplicationPending  = "pending"
	ApplicationAccepted = "accepted"
	ApplicationRejected = "rejected"
)

type Project struct {
	ID            uint   `gorm:"primaryKey"`
	OwnerID       uint   `gorm:"not null;index"`
	Title         string `gorm:"not null"`
	Budget        int64
	State         string  `gorm:"type:varchar(20);not null;default:'pending_payment';index"`
	TaxReceiptRef *string `gorm:"column:tax_receipt_ref"`
	PublishedAt   *time.Time
	ClosedAt      *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Application is a freelancer's application to a project. At most one is
// expected to be accepted.
type Application struct {
	ID           uint   `gorm:"primaryKey"`
	ProjectID    uint   `gorm:"not null;index"`
	FreelancerID uint   `gorm:"not null;index"`
	Status       string `gorm:"type:varchar(20);not null;default:'pending'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
