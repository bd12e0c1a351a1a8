package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrLedgerWriteFailed   = NewDomainError("LEDGER_WRITE_FAILED", "Stock balance changed but the ledger entry could not be written")
)

// Error codes used across the inventory subsystem. Keeping them here lets the
// interface layer map codes to HTTP statuses without importing movement logic.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeValidation        = "INVALID_INPUT"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeLedgerWrite       = "LEDGER_WRITE_FAILED"
)

// NewNotFoundError creates a NOT_FOUND error naming the missing resource.
// Movement operations treat this as fatal and non-retryable.
func NewNotFoundError(resource string, id int64) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %d not found", resource, id))
}

// NewValidationError creates an INVALID_INPUT error for malformed input
// rejected before touching storage.
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewInsufficientStockError creates an INSUFFICIENT_STOCK error with an
// actionable message: which product, how much was requested and how much is
// on hand.
func NewInsufficientStockError(productName string, requested, available fmt.Stringer) *DomainError {
	return NewDomainError(CodeInsufficientStock, fmt.Sprintf(
		"insufficient stock for %s: requested %s, available %s",
		productName, requested.String(), available.String(),
	))
}

// IsDomainError reports whether err is a DomainError with the given code.
func IsDomainError(err error, code string) bool {
	de, ok := err.(*DomainError)
	return ok && de.Code == code
}
