package plans

import (
	"net/http"

	"marketplace-payments/internal/domain/plans"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// ListPlans returns the purchasable subscription plans, cheapest first.
func (h *Handler) ListPlans(c *gin.Context) {
	var plansList []plans.Plan
	if err := h.db.WithContext(c.Request.Context()).Order("price ASC").Find(&plansList).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plans"})
		return
	}
	c.JSON(http.StatusOK, plansList)
}
