// Package respond maps service errors onto HTTP responses.
package respond

import (
	"net/http"
	"strconv"
	"strings"

	"marketplace-payments/internal/apperr"
	"marketplace-payments/internal/logger"

	"github.com/gin-gonic/gin"
)

// RetryAfterSeconds is advertised on busy responses.
var RetryAfterSeconds = 3

func Status(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindBusy:
		return http.StatusLocked
	case apperr.KindPending:
		return http.StatusAccepted
	case apperr.KindGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as {"error", "code"} with the status of its kind, or as
// {"status": "pending", ...} for pending kinds. Internal causes are logged,
// never echoed.
func Error(c *gin.Context, err error) {
	ae := apperr.As(err)
	status := Status(ae.Kind)

	if ae.Kind == apperr.KindBusy {
		c.Header("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}

	if ae.Kind == apperr.KindPending {
		// not a failure: the request is parked until the caller or the gateway acts
		c.AbortWithStatusJSON(status, gin.H{"status": "pending", "code": ae.Code, "message": ae.Message})
		return
	}

	msg := ae.Message
	if ae.Kind == apperr.KindInternal || ae.Kind == apperr.KindGateway {
		logger.Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
		msg = strings.SplitN(ae.Message, ":", 2)[0]
	}

	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": ae.Code})
}

// UintParam parses a positive id path parameter, writing a 400 when it is not one.
func UintParam(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(n), true
}

// CurrentUser returns the user id set by the auth middleware.
func CurrentUser(c *gin.Context) (uint, bool) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return userID, true
}
