package admin

import (
	"net/http"
	"strconv"
	"strings"

	"marketplace-payments/internal/api/respond"
	"marketplace-payments/internal/app/payments"
	"marketplace-payments/internal/app/settlement"
	"marketplace-payments/internal/domain/billing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	db       *gorm.DB
	ledger   *payments.Ledger
	disputes *settlement.DisputeService
	docs     *settlement.DocumentIssuer
}

func NewHandler(db *gorm.DB, ledger *payments.Ledger, disputes *settlement.DisputeService, docs *settlement.DocumentIssuer) *Handler {
	return &Handler{db: db, ledger: ledger, disputes: disputes, docs: docs}
}

func (h *Handler) ResolveDispute(c *gin.Context) {
	adminID, ok := respond.CurrentUser(c)
	if !ok {
		return
	}
	disputeID, ok := respond.UintParam(c, "id")
	if !ok {
		return
	}

	var body struct {
		Policy string `json:"policy" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing policy"})
		return
	}

	res, err := h.disputes.Resolve(c.Request.Context(), adminID, disputeID, strings.ToLower(strings.TrimSpace(body.Policy)))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListDisputes(c *gin.Context) {
	rows, err := h.disputes.List(c.Request.Context(), c.Query("status"), queryInt(c, "limit"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) ListTransactions(c *gin.Context) {
	userID, _ := strconv.ParseUint(c.Query("user_id"), 10, 64)
	rows, err := h.ledger.List(h.db.WithContext(c.Request.Context()), payments.ListFilter{
		UserID: uint(userID),
		Status: billing.Status(strings.ToUpper(c.Query("status"))),
		Limit:  queryInt(c, "limit"),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transactions"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) ListPayouts(c *gin.Context) {
	projectID, _ := strconv.ParseUint(c.Query("project_id"), 10, 64)
	beneficiaryID, _ := strconv.ParseUint(c.Query("beneficiary_id"), 10, 64)
	rows, err := settlement.ListPayoutOrders(c.Request.Context(), h.db, settlement.PayoutFilter{
		ProjectID:     uint(projectID),
		BeneficiaryID: uint(beneficiaryID),
		Limit:         queryInt(c, "limit"),
	})
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// RegenerateDocuments retries document generation for a project's payout
// orders and invoices that have no reference yet.
func (h *Handler) RegenerateDocuments(c *gin.Context) {
	projectID, ok := respond.UintParam(c, "id")
	if !ok {
		return
	}
	n, err := h.docs.RegenerateForProject(c.Request.Context(), projectID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issued": n})
}

func queryInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}
