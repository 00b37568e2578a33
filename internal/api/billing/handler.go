package billing

import (
	"marketplace-payments/internal/app/payments"

	"gorm.io/gorm"
)

// Handler serves the payer-facing transaction endpoints.
type Handler struct {
	db      *gorm.DB
	ledger  *payments.Ledger
	adapter *payments.GatewayAdapter
	commits *payments.CommitOrchestrator
}

func NewHandler(db *gorm.DB, ledger *payments.Ledger, adapter *payments.GatewayAdapter, commits *payments.CommitOrchestrator) *Handler {
	return &Handler{db: db, ledger: ledger, adapter: adapter, commits: commits}
}
