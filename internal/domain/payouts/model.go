package payouts

import "time"

// Payout purposes.
const (
	PurposeWorkerFee    = "pago_honorario"
	PurposeClientRefund = "reembolso_cliente"
)

const StatusPending = "pending"

// Where a payout order came from.
const (
	SourceRelease = "release"
	SourceDispute = "dispute"
)

// PayoutOrder instructs downstream disbursement of Amount to BeneficiaryID.
// Rows are never updated by this service except for attaching DocumentRef.
type PayoutOrder struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ProjectID     uint      `gorm:"not null;index" json:"project_id"`
	BeneficiaryID uint      `gorm:"not null;index" json:"beneficiary_id"`
	Amount        int64     `gorm:"not null" json:"amount"`
	Purpose       string    `gorm:"type:varchar(24);not null" json:"purpose"`
	Status        string    `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	Source        string    `gorm:"type:varchar(16);not null" json:"source"`
	DisputeID     *uint     `gorm:"index" json:"dispute_id,omitempty"`
	HoldID        uint      `gorm:"not null;index" json:"hold_id"`
	DocumentRef   *string   `json:"document_ref,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CommissionInvoice records the platform commission earned on a settlement.
type CommissionInvoice struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProjectID   uint      `gorm:"not null;index" json:"project_id"`
	HoldID      uint      `gorm:"not null;uniqueIndex" json:"hold_id"`
	Amount      int64     `gorm:"not null" json:"amount"`
	DocumentRef *string   `json:"document_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Document types handed to the document generator.
const (
	DocPayoutOrder       = "payout_order"
	DocCommissionInvoice = "commission_invoice"
)
