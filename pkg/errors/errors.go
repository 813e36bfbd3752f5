package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound         = errors.New("loan not found")
	ErrLoanAlreadyPaid      = errors.New("loan is already paid")
	ErrClientNotFound       = errors.New("client not found")
	ErrClientAlreadyExists  = errors.New("client already exists")
	ErrInvalidTaxID         = errors.New("invalid tax id")
	ErrInvalidPhone         = errors.New("invalid phone")
	ErrInvalidInput         = errors.New("invalid input")
	ErrPaymentRejected      = errors.New("payment rejected")
	ErrSettlementInProgress = errors.New("settlement already in progress")
	ErrDocumentUploadFailed = errors.New("document upload failed")
	ErrNotificationNotSent  = errors.New("notification not sent")
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
	ErrCodeLoanNotFound         = "LOAN_NOT_FOUND"
	ErrCodeLoanAlreadyPaid      = "LOAN_ALREADY_PAID"
	ErrCodeClientNotFound       = "CLIENT_NOT_FOUND"
	ErrCodeClientAlreadyExists  = "CLIENT_ALREADY_EXISTS"
	ErrCodeInvalidTaxID         = "INVALID_TAX_ID"
	ErrCodeInvalidPhone         = "INVALID_PHONE"
	ErrCodeInvalidInput         = "INVALID_INPUT"
	ErrCodePaymentRejected      = "PAYMENT_REJECTED"
	ErrCodeSettlementInProgress = "SETTLEMENT_IN_PROGRESS"
	ErrCodeDatabaseError        = "DATABASE_ERROR"
	ErrCodeCacheError           = "CACHE_ERROR"
	ErrCodeStorageError         = "STORAGE_ERROR"
	ErrCodeNotifierError        = "NOTIFIER_ERROR"
)

// Code extracts the business code from err, or "" when err is not a BusinessError
func Code(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// Wrap common errors with business context
func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapLoanAlreadyPaid(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyPaid,
		fmt.Sprintf("Loan with ID %s is already paid and cannot be settled again", loanID),
		ErrLoanAlreadyPaid,
	)
}

func WrapClientNotFound(clientID string) *BusinessError {
	return NewBusinessError(
		ErrCodeClientNotFound,
		fmt.Sprintf("Client with ID %s not found", clientID),
		ErrClientNotFound,
	)
}

func WrapClientAlreadyExists(taxID string) *BusinessError {
	return NewBusinessError(
		ErrCodeClientAlreadyExists,
		fmt.Sprintf("A client with tax id %s is already registered", taxID),
		ErrClientAlreadyExists,
	)
}

func WrapInvalidTaxID(raw string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidTaxID,
		fmt.Sprintf("Tax id %q must have 11 digits and valid check digits", raw),
		ErrInvalidTaxID,
	)
}

func WrapInvalidPhone(raw string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPhone,
		fmt.Sprintf("Phone %q must be an 11-digit mobile number (area code + 9 + 8 digits)", raw),
		ErrInvalidPhone,
	)
}

func WrapInvalidInput(message string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidInput,
		message,
		ErrInvalidInput,
	)
}

// WrapPaymentRejected keeps the engine rejection as the cause so callers can
// recover the threshold with errors.As.
func WrapPaymentRejected(rejection error) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentRejected,
		rejection.Error(),
		errors.Join(ErrPaymentRejected, rejection),
	)
}

func WrapSettlementInProgress(paymentID string) *BusinessError {
	return NewBusinessError(
		ErrCodeSettlementInProgress,
		fmt.Sprintf("Payment %s is already being settled", paymentID),
		ErrSettlementInProgress,
	)
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

func WrapStorageError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeStorageError,
		"document storage failed",
		errors.Join(ErrDocumentUploadFailed, err),
	)
}

func WrapNotifierError(phone string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeNotifierError,
		fmt.Sprintf("message to %s could not be delivered", phone),
		errors.Join(ErrNotificationNotSent, err),
	)
}
