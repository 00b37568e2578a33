package respond

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"marketplace-payments/internal/apperr"

	"github.com/gin-gonic/gin"
)

func TestErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
	}{
		{apperr.ErrInvalidTransactionData.WithDetail("amount"), http.StatusBadRequest},
		{apperr.ErrUnauthorized, http.StatusForbidden},
		{apperr.ErrTransactionNotFound, http.StatusNotFound},
		{apperr.ErrDisputeNotFoundOrSettled, http.StatusConflict},
		{apperr.ErrTransactionInProgress, http.StatusLocked},
		{apperr.ErrReceiptRequired, http.StatusAccepted},
		{apperr.ErrPaymentPending, http.StatusAccepted},
		{apperr.ErrGateway.Wrap(errors.New("timeout")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/x", nil)

		Error(c, tc.err)

		if w.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, w.Code)
		}
	}
}

func TestBusySetsRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/x", nil)

	Error(c, apperr.ErrTransactionInProgress)

	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("busy response must carry Retry-After")
	}
}
