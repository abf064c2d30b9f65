// Package errors provides custom error types for the fundledger API.
// All service-layer errors should use AppError so handlers can render
// consistent responses without leaking internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
// Details carries structured data for business-rule failures (for example
// the categories still missing a variance explanation).
type AppError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Internal   error       `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		Details:    sentinel.Details,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// WithDetails creates a new AppError carrying structured details and a custom message.
func WithDetails(sentinel *AppError, message string, details interface{}) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		Details:    details,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrForbidden    = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrTooManyRequest = &AppError{Code: "RATE_LIMITED", Message: "Too many requests. Please try again later.", StatusCode: http.StatusTooManyRequests}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Chart-of-accounts errors.
var (
	ErrAccountNotFound      = &AppError{Code: "ACCOUNT_NOT_FOUND", Message: "Account not found", StatusCode: http.StatusNotFound}
	ErrDuplicateAccountCode = &AppError{Code: "DUPLICATE_ACCOUNT_CODE", Message: "An account with this code already exists", StatusCode: http.StatusConflict}
	ErrInvalidParent        = &AppError{Code: "INVALID_PARENT", Message: "Subcategories must reference an existing category", StatusCode: http.StatusBadRequest}
	ErrAccountHasChildren   = &AppError{Code: "ACCOUNT_HAS_CHILDREN", Message: "Account has subcategories", StatusCode: http.StatusConflict}
	ErrAccountInUse         = &AppError{Code: "ACCOUNT_IN_USE", Message: "Account is used by existing transactions; choose transfer or cascade", StatusCode: http.StatusConflict}
	ErrTransferTargetNeeded = &AppError{Code: "TRANSFER_TARGET_REQUIRED", Message: "A destination account is required to transfer transactions", StatusCode: http.StatusBadRequest}
)

// Transaction errors.
var (
	ErrTransactionNotFound    = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrInvalidTransactionType = &AppError{Code: "INVALID_TRANSACTION_TYPE", Message: "Unsupported transaction type", StatusCode: http.StatusBadRequest}
)

// Budget allocation errors.
var (
	ErrInvalidMonthKey = &AppError{Code: "INVALID_MONTH_KEY", Message: "Month key must use the YYYY-MM format", StatusCode: http.StatusBadRequest}
)

// Report errors.
var (
	ErrReportNotFound      = &AppError{Code: "REPORT_NOT_FOUND", Message: "Report not found", StatusCode: http.StatusNotFound}
	ErrReportFinalized     = &AppError{Code: "REPORT_FINALIZED", Message: "Report is final; reopen it before editing", StatusCode: http.StatusConflict}
	ErrReportNotFinal      = &AppError{Code: "REPORT_NOT_FINAL", Message: "Only final reports can be reopened", StatusCode: http.StatusConflict}
	ErrMissingExplanations = &AppError{Code: "MISSING_VARIANCE_EXPLANATIONS", Message: "Variance explanations are required before finalizing", StatusCode: http.StatusUnprocessableEntity}
)

// Planning period errors.
var (
	ErrPlanningPeriodNotFound = &AppError{Code: "PLANNING_PERIOD_NOT_FOUND", Message: "Planning period not found", StatusCode: http.StatusNotFound}
	ErrInvalidPlanningPeriod  = &AppError{Code: "INVALID_PLANNING_PERIOD", Message: "Planning period is invalid", StatusCode: http.StatusBadRequest}
)
