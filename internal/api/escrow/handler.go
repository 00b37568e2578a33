package escrow

import (
	"net/http"

	"marketplace-payments/internal/api/respond"
	"marketplace-payments/internal/app/settlement"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	release *settlement.ReleaseService
}

func NewHandler(release *settlement.ReleaseService) *Handler {
	return &Handler{release: release}
}

// ReleaseFunds pays the accepted freelancer. A missing tax receipt answers
// 202 and nothing changes.
func (h *Handler) ReleaseFunds(c *gin.Context) {
	userID, ok := respond.CurrentUser(c)
	if !ok {
		return
	}
	projectID, ok := respond.UintParam(c, "id")
	if !ok {
		return
	}

	res, err := h.release.Release(c.Request.Context(), userID, projectID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) AttachTaxReceipt(c *gin.Context) {
	userID, ok := respond.CurrentUser(c)
	if !ok {
		return
	}
	projectID, ok := respond.UintParam(c, "id")
	if !ok {
		return
	}

	var body struct {
		DocumentRef string `json:"document_ref" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing document_ref"})
		return
	}

	if err := h.release.AttachTaxReceipt(c.Request.Context(), userID, projectID, body.DocumentRef); err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "attached"})
}
