package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound          = errors.New("loan not found")
	ErrStorageUnavailable    = errors.New("storage unavailable")
	ErrValidation            = errors.New("validation failed")
	ErrInvalidLoanAmount     = errors.New("invalid loan amount")
	ErrInvalidPaymentAmount  = errors.New("invalid payment amount")
	ErrInvalidDueDate        = errors.New("invalid due date")
	ErrPaymentExceedsBalance = errors.New("payment exceeds remaining balance")
	ErrNoOutstandingBalance  = errors.New("no outstanding balance")
)

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
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeStorageUnavailable    = "STORAGE_UNAVAILABLE"
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeInvalidLoanAmount     = "INVALID_LOAN_AMOUNT"
	ErrCodeInvalidPaymentAmount  = "INVALID_PAYMENT_AMOUNT"
	ErrCodeInvalidDueDate        = "INVALID_DUE_DATE"
	ErrCodePaymentExceedsBalance = "PAYMENT_EXCEEDS_BALANCE"
	ErrCodeNoOutstandingBalance  = "NO_OUTSTANDING_BALANCE"
	ErrCodeExportFailed          = "EXPORT_FAILED"
)

// Code extracts the business error code from err, or "" when err carries none.
func Code(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// Message returns the client-facing message of a business error, or "" when err carries none.
func Message(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Message
	}
	return ""
}

// Wrap common errors with business context
func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapStorageUnavailable(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeStorageUnavailable,
		"storage operation failed",
		fmt.Errorf("%w: %w", ErrStorageUnavailable, err),
	)
}

func WrapValidation(message string) *BusinessError {
	return NewBusinessError(
		ErrCodeValidation,
		message,
		ErrValidation,
	)
}

func WrapInvalidLoanAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidLoanAmount,
		fmt.Sprintf("Invalid loan amount: %s", amount),
		ErrInvalidLoanAmount,
	)
}

func WrapInvalidDueDate(message string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidDueDate,
		message,
		ErrInvalidDueDate,
	)
}

func WrapInvalidPaymentAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPaymentAmount,
		fmt.Sprintf("Invalid payment amount: %s", amount),
		ErrInvalidPaymentAmount,
	)
}

func WrapPaymentExceedsBalance(amount, remaining string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentExceedsBalance,
		fmt.Sprintf("Payment %s exceeds remaining balance of %s", amount, remaining),
		ErrPaymentExceedsBalance,
	)
}

func WrapNoOutstandingBalance(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNoOutstandingBalance,
		fmt.Sprintf("Loan with ID %s has no outstanding balance", loanID),
		ErrNoOutstandingBalance,
	)
}

func WrapExportFailed(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeExportFailed,
		"export generation failed",
		err,
	)
}
