package billing

import "time"

// GatewayTransaction is one ledger entry per gateway transaction attempt. The
// token is issued by the gateway and is the idempotency key for commits.
type GatewayTransaction struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	Token         string      `gorm:"not null;uniqueIndex" json:"token"`
	BuyOrder      string      `gorm:"not null;uniqueIndex" json:"buy_order"`
	SessionID     string      `gorm:"not null" json:"session_id"`
	Amount        int64       `gorm:"not null" json:"amount"`
	PaymentType   PaymentType `gorm:"type:varchar(32);not null;index" json:"payment_type"`
	Status        Status      `gorm:"type:varchar(16);not null;index" json:"status"`
	PaymentMethod *string     `json:"payment_method,omitempty"`
	UserID        uint        `gorm:"not null;index" json:"user_id"`
	PlanCode      *string     `json:"plan_code,omitempty"`
	ProjectID     *uint       `gorm:"index" json:"project_id,omitempty"`
	ResponseCode  *int        `json:"response_code,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
