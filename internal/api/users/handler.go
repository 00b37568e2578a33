package users

import (
	"errors"
	"net/http"
	"time"

	"marketplace-payments/internal/api/respond"
	"marketplace-payments/internal/apperr"
	"marketplace-payments/internal/domain/users"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// GetCurrentUser reports the caller's plan and subscription period.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID, ok := respond.CurrentUser(c)
	if !ok {
		return
	}

	var user users.User
	if err := h.db.WithContext(c.Request.Context()).
		Preload("Plan").
		Where("id = ?", userID).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respond.Error(c, apperr.ErrUserNotFound)
			return
		}
		respond.Error(c, apperr.Internal(err))
		return
	}

	c.JSON(http.StatusOK, MeResponse{
		User: UserDTO{
			ID:           user.ID,
			Email:        user.Email,
			Name:         user.Name,
			Lastname:     user.Lastname,
			Role:         user.Role,
			AccountClass: user.AccountClass,
		},
		Billing: BillingDTO{
			Plan:               BuildPlanDTO(user.Plan),
			Subscription:       BuildSubscriptionDTO(time.Now(), user),
			RequiresTaxReceipt: user.RequiresTaxReceipt(),
		},
	})
}
