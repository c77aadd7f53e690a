package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAccountNotFound        = errors.New("account not found")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrConnectionNotFound     = errors.New("bank feed connection not found")
	ErrMerchantNotFound       = errors.New("merchant not found")
	ErrUserNotFound           = errors.New("user not found")
	ErrDuplicateAccountNumber = errors.New("account number already in use")
	ErrInvalidStatus          = errors.New("invalid transaction status")
	ErrInvalidAccountType     = errors.New("invalid account type")
	ErrOwnerMismatch          = errors.New("owner mismatch")
	ErrAccountInUse           = errors.New("account is referenced by transactions")
	ErrValidation             = errors.New("validation failed")
)

// FieldError is a validation failure tied to one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error { return ErrValidation }

// NewFieldError is shorthand for a *FieldError.
func NewFieldError(field, format string, args ...any) error {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// BulkFailure describes why one item (or the request itself, ID 0) was rejected.
type BulkFailure struct {
	ID      int64  `json:"id,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// BulkValidationError lists every failure found before a bulk write.
type BulkValidationError struct {
	Failures []BulkFailure `json:"failures"`
}

func (e *BulkValidationError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.ID != 0 {
			parts = append(parts, fmt.Sprintf("%d %s: %s", f.ID, f.Field, f.Message))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
		}
	}
	return "bulk update rejected: " + strings.Join(parts, "; ")
}

func (e *BulkValidationError) Unwrap() error { return ErrValidation }

func (e *BulkValidationError) Add(id int64, field, format string, args ...any) {
	e.Failures = append(e.Failures, BulkFailure{ID: id, Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *BulkValidationError) Empty() bool { return len(e.Failures) == 0 }
