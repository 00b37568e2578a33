package billing

import (
	"net/http"
	"strings"

	"marketplace-payments/internal/api/respond"
	"marketplace-payments/internal/app/payments"
	"marketplace-payments/internal/apperr"
	"marketplace-payments/internal/domain/billing"

	"github.com/gin-gonic/gin"
)

type createTransactionRequest struct {
	PaymentType string `json:"payment_type" binding:"required"`
	Amount      int64  `json:"amount" binding:"required"`
	ReturnURL   string `json:"return_url" binding:"required"`
	ProjectID   uint   `json:"project_id"`
	Plan        string `json:"plan"`
	BuyOrder    string `json:"buy_order"`
	SessionID   string `json:"session_id"`
}

// CreateTransaction registers a payment with the gateway and returns where to
// send the payer.
func (h *Handler) CreateTransaction(c *gin.Context) {
	userID, ok := respond.CurrentUser(c)
	if !ok {
		return
	}

	var body createTransactionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid transaction fields"})
		return
	}

	pt := billing.PaymentType(strings.ToUpper(strings.TrimSpace(body.PaymentType)))
	if body.BuyOrder == "" && pt.Valid() {
		ref := userID
		if pt == billing.PaymentProjectPublication {
			ref = body.ProjectID
		}
		body.BuyOrder = payments.NewBuyOrder(pt, ref)
	}
	if body.SessionID == "" {
		body.SessionID = payments.NewSessionID()
	}

	created, err := h.adapter.CreateTransaction(c.Request.Context(), payments.CreateParams{
		UserID:      userID,
		PaymentType: pt,
		Amount:      body.Amount,
		BuyOrder:    body.BuyOrder,
		SessionID:   body.SessionID,
		ReturnURL:   body.ReturnURL,
		PlanCode:    body.Plan,
		ProjectID:   body.ProjectID,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":     created.Token,
		"url":       created.RedirectURL,
		"buy_order": body.BuyOrder,
	})
}

// CommitTransaction confirms a payment after the payer returns from the gateway.
func (h *Handler) CommitTransaction(c *gin.Context) {
	userID, ok := respond.CurrentUser(c)
	if !ok {
		return
	}

	var body struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing token"})
		return
	}

	if _, err := h.ownTransaction(c, userID, body.Token); err != nil {
		respond.Error(c, err)
		return
	}

	out, err := h.commits.Commit(c.Request.Context(), body.Token)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// GetTransaction lets a payer poll a transaction, e.g. after a busy commit.
func (h *Handler) GetTransaction(c *gin.Context) {
	userID, ok := respond.CurrentUser(c)
	if !ok {
		return
	}
	txn, err := h.ownTransaction(c, userID, c.Param("token"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

// GetPaymentHistory lists the caller's transactions, newest first.
func (h *Handler) GetPaymentHistory(c *gin.Context) {
	userID, ok := respond.CurrentUser(c)
	if !ok {
		return
	}

	rows, err := h.ledger.List(h.db.WithContext(c.Request.Context()), payments.ListFilter{
		UserID: userID,
		Status: billing.Status(strings.ToUpper(c.Query("status"))),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// ownTransaction hides other users' transactions behind not found.
func (h *Handler) ownTransaction(c *gin.Context, userID uint, token string) (*billing.GatewayTransaction, error) {
	txn, err := h.ledger.FindByToken(h.db.WithContext(c.Request.Context()), token)
	if err != nil {
		return nil, err
	}
	if txn.UserID != userID {
		return nil, apperr.ErrTransactionNotFound
	}
	return txn, nil
}
