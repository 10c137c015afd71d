package pos

import (
	"errors"
	"fmt"
	"strings"
)

// Caller-correctable input errors. No side effects occur when these are
// returned.
var (
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrNegativeDiscount     = errors.New("discount cannot be negative")
	ErrDiscountExceedsTotal = errors.New("discount cannot exceed subtotal")
	ErrInvalidTaxRate       = errors.New("tax rate must be between 0 and 100")
	ErrInvalidPayment       = errors.New("invalid payment method")
	ErrLineNotFound         = errors.New("medicine not found in cart")
	ErrEmptyCart            = errors.New("cannot complete sale with empty cart")
)

// InsufficientStockError is a business rule violation: the cart asked for
// more units than the latest stock snapshot holds. No side effects; the
// caller may retry with a smaller quantity.
type InsufficientStockError struct {
	MedicineID int64
	Available  int64
	Requested  int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for medicine %d: available %d, requested %d",
		e.MedicineID, e.Available, e.Requested)
}

// ValidationError aborts checkout before any write.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "sale validation failed: " + strings.Join(e.Errors, "; ")
}

// PersistError wraps a storage failure while saving the sale record.
// Nothing was written, so re-invoking Complete is a safe fresh attempt.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string { return "failed to save sale: " + e.Err.Error() }
func (e *PersistError) Unwrap() error { return e.Err }

// StockAdjustmentError is the data-consistency alarm: the sale record is
// persisted but one of its lines could not be decremented, so inventory no
// longer matches what was sold. It must be surfaced to an operator
// distinctly from every other failure and is never retried automatically.
type StockAdjustmentError struct {
	SaleID     int64
	MedicineID int64
	Err        error // nil when the decrement was refused for stock, non-nil on I/O failure
}

func (e *StockAdjustmentError) Error() string {
	msg := fmt.Sprintf("sale %d recorded but stock adjustment failed for medicine %d", e.SaleID, e.MedicineID)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StockAdjustmentError) Unwrap() error { return e.Err }
