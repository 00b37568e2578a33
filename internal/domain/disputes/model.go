package disputes

import "time"

const (
	StatusPending         = "pendiente"
	StatusInProgress      = "en_proceso"
	StatusResolvedPayment = "resuelta_pago"
	StatusResolvedRefund  = "resuelta_reembolso"
)

// Resolution policies an administrator can apply.
const (
	PolicyWorkerWins = "worker_wins"
	PolicySplit      = "split"
)

type Dispute struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ProjectID  uint       `gorm:"not null;index" json:"project_id"`
	ReporterID uint       `gorm:"not null" json:"reporter_id"`
	ReportedID uint       `gorm:"not null" json:"reported_id"`
	Reason     string     `json:"reason"`
	Status     string     `gorm:"type:varchar(24);not null;default:'pendiente'" json:"status"`
	Resolution *string    `json:"resolution,omitempty"`
	ResolvedBy *uint      `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// OpenStatuses are the statuses of disputes still awaiting a resolution.
var OpenStatuses = []string{StatusPending, StatusInProgress}

func ValidPolicy(p string) bool {
	return p == PolicyWorkerWins || p == PolicySplit
}

// TerminalStatus maps a resolution policy to the dispute's final status.
func TerminalStatus(policy string) string {
	if policy == PolicySplit {
		return StatusResolvedRefund
	}
	return StatusResolvedPayment
}
