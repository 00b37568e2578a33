package escrow

import "time"

type Status string

const (
	StatusRetained Status = "RETAINED"
	StatusReleased Status = "RELEASED"
	StatusRefunded Status = "REFUNDED"
)

// Hold is money retained against a project. At most one hold per project may
// be RETAINED; the partial unique index enforces it in storage as well.
type Hold struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ProjectID    uint      `gorm:"not null;index;uniqueIndex:idx_escrow_holds_active_project,where:status = 'RETAINED'" json:"project_id"`
	Amount       int64     `gorm:"not null" json:"amount"`
	Status       Status    `gorm:"type:varchar(16);not null;index" json:"status"`
	GatewayToken string    `gorm:"not null;uniqueIndex" json:"gateway_token"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Hold) TableName() string { return "escrow_holds" }
