package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrValidation        = errors.New("validation failed")
	ErrWrongLoanType     = errors.New("operation not applicable to loan type")
	ErrLoanNotFound      = errors.New("loan not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrLineNotFound      = errors.New("line not found")
	ErrNotFound          = errors.New("resource not found")
	ErrUpstream          = errors.New("lending api request failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrAccountFrozen     = errors.New("account is frozen")
	ErrSnapshotNotCached = errors.New("snapshot not cached")
)

// ValidationError reports a value that violates a required invariant at
// construction time. It is never corrected silently.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// WrongLoanTypeError is returned when a loan-type specific derivation is
// invoked against a snapshot of the other loan type. It indicates a caller bug.
type WrongLoanTypeError struct {
	Operation string
	Want      string
	Got       string
}

func (e *WrongLoanTypeError) Error() string {
	return fmt.Sprintf("%s requires %s, got %s", e.Operation, e.Want, e.Got)
}

func (e *WrongLoanTypeError) Is(target error) bool {
	return target == ErrWrongLoanType
}

// NewWrongLoanTypeError creates a wrong loan type error
func NewWrongLoanTypeError(operation, want, got string) *WrongLoanTypeError {
	return &WrongLoanTypeError{Operation: operation, Want: want, Got: got}
}

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound         = "LOAN_NOT_FOUND"
	ErrCodeCustomerNotFound     = "CUSTOMER_NOT_FOUND"
	ErrCodeLineNotFound         = "LINE_NOT_FOUND"
	ErrCodeUpstreamError        = "UPSTREAM_ERROR"
	ErrCodeUpstreamUnauthorized = "UPSTREAM_UNAUTHORIZED"
	ErrCodeAccountFrozen        = "ACCOUNT_FROZEN"
	ErrCodeDatabaseError        = "DATABASE_ERROR"
	ErrCodeCacheError           = "CACHE_ERROR"
)

// Wrap common errors with business context
func WrapLoanNotFound(loanID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %d not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapCustomerNotFound(customerID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeCustomerNotFound,
		fmt.Sprintf("Customer with ID %d not found", customerID),
		ErrCustomerNotFound,
	)
}

func WrapLineNotFound(lineID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeLineNotFound,
		fmt.Sprintf("Line with ID %d not found", lineID),
		ErrLineNotFound,
	)
}

// WrapUpstreamError classifies a lending api failure. Unauthorized and frozen
// accounts keep their own codes so handlers can map them to 401 and 403.
func WrapUpstreamError(err error) *BusinessError {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return NewBusinessError(ErrCodeUpstreamUnauthorized, "lending api rejected the credentials", err)
	case errors.Is(err, ErrAccountFrozen):
		return NewBusinessError(ErrCodeAccountFrozen, "account subscription has expired", err)
	}
	return NewBusinessError(ErrCodeUpstreamError, "lending api request failed", err)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}
