package service

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an id does not resolve
var ErrNotFound = errors.New("not found")

// ValidationError reports a malformed or rule-breaking request
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// InsufficientStockError rejects a sale whose cart asks for more units of a
// variant than are on hand
type InsufficientStockError struct {
	ProductName string
	VariantID   int64
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (available: %d, requested: %d)",
		e.ProductName, e.Available, e.Requested)
}

// VariantNotFoundError rejects a sale line that references a missing variant
type VariantNotFoundError struct {
	ProductName string
	VariantID   int64
}

func (e *VariantNotFoundError) Error() string {
	return fmt.Sprintf("variant %d not found for product: %s", e.VariantID, e.ProductName)
}

// IsRejection reports whether err is a business or validation failure that
// should be shown to the caller as is
func IsRejection(err error) bool {
	var (
		ve  *ValidationError
		ise *InsufficientStockError
		vnf *VariantNotFoundError
	)
	return errors.As(err, &ve) || errors.As(err, &ise) || errors.As(err, &vnf)
}
