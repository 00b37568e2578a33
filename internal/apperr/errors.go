// Package apperr is the error taxonomy shared by the payment, escrow and
// settlement code. Every failure that reaches a handler is an *Error with a
// Kind (how the caller should react) and a Code (which failure it is).
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindBusy       Kind = "busy"    // retryable, another attempt holds the resource
	KindPending    Kind = "pending" // blocked on something the caller must supply first
	KindForbidden  Kind = "forbidden"
	KindGateway    Kind = "gateway"
	KindInternal   Kind = "internal"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so that derived errors (WithDetail, Wrap) still satisfy
// errors.Is against the package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy carrying a more specific message.
func (e *Error) WithDetail(format string, args ...interface{}) *Error {
	cp := *e
	cp.Message = e.Message + ": " + fmt.Sprintf(format, args...)
	return &cp
}

// Wrap returns a copy of e with err attached as the cause.
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Internal wraps an unexpected failure. Errors that already belong to the
// taxonomy are kept only if they are internal themselves.
func Internal(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind == KindInternal {
		return ae
	}
	return ErrInternal.Wrap(err)
}

// KindOf reports the Kind of err; anything outside the taxonomy is internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// As extracts the taxonomy error, converting foreign errors to ErrInternal.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return ErrInternal.Wrap(err)
}

var (
	ErrInternal         = New(KindInternal, "INTERNAL_ERROR", "unexpected error")
	ErrProcessingFailed = New(KindInternal, "PROCESSING_FAILED", "transaction could not be processed")

	ErrInvalidTransactionData = New(KindValidation, "INVALID_TRANSACTION_DATA", "invalid transaction data")
	ErrInvalidInput           = New(KindValidation, "INVALID_INPUT", "invalid input")

	ErrTransactionNotFound = New(KindNotFound, "TRANSACTION_NOT_FOUND", "transaction not found")
	ErrProjectNotFound     = New(KindNotFound, "PROJECT_NOT_FOUND", "project not found")
	ErrPlanNotFound        = New(KindNotFound, "PLAN_NOT_FOUND", "plan not found")
	ErrUserNotFound        = New(KindNotFound, "USER_NOT_FOUND", "user not found")

	ErrTransactionInProgress = New(KindBusy, "TRANSACTION_IN_PROGRESS", "transaction is being processed, retry later")

	ErrTransactionFailed        = New(KindConflict, "TRANSACTION_FAILED", "transaction ended in error, create a new one")
	ErrProjectNotPayable        = New(KindConflict, "PROJECT_NOT_PAYABLE", "project is not awaiting publication payment")
	ErrProjectClosed            = New(KindConflict, "PROJECT_CLOSED", "project is already closed")
	ErrNoActiveHold             = New(KindConflict, "NO_ACTIVE_HOLD", "escrow hold is not retained")
	ErrDuplicateActiveHold      = New(KindConflict, "DUPLICATE_ACTIVE_HOLD", "project already has retained funds")
	ErrNoAcceptedFreelancer     = New(KindConflict, "NO_ACCEPTED_FREELANCER", "project has no accepted freelancer")
	ErrNoFundsRetained          = New(KindConflict, "NO_FUNDS_RETAINED", "project has no retained funds")
	ErrDisputeNotFoundOrSettled = New(KindConflict, "DISPUTE_NOT_FOUND_OR_SETTLED", "dispute not found or already settled")

	ErrReceiptRequired = New(KindPending, "RECEIPT_REQUIRED", "a tax receipt must be uploaded before funds can be released")
	ErrPaymentPending  = New(KindPending, "PAYMENT_PENDING", "payment has not cleared at the gateway yet")

	ErrUnauthorized = New(KindForbidden, "UNAUTHORIZED", "caller is not allowed to perform this action")

	ErrGateway = New(KindGateway, "GATEWAY_ERROR", "payment gateway failure")
)
