package domain

import (
	"math"
	"time"
)

// Payment methods accepted at the register.
const (
	PaymentCash         = "cash"
	PaymentCard         = "card"
	PaymentUPI          = "upi"
	PaymentCheque       = "cheque"
	PaymentBankTransfer = "bank_transfer"
)

// PaymentMethods lists every accepted payment method in display order.
var PaymentMethods = []string{PaymentCash, PaymentCard, PaymentUPI, PaymentCheque, PaymentBankTransfer}

// ValidPaymentMethod reports whether method is one of the accepted values.
func ValidPaymentMethod(method string) bool {
	for _, m := range PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}

// SaleItem is one line of a sale. Name, unit price and batch number are
// snapshots taken when the line entered the cart; TotalPrice is always
// Round2(Quantity * UnitPrice) and never independently settable.
type SaleItem struct {
	MedicineID int64   `json:"medicine_id"`
	Name       string  `json:"name"`
	Quantity   int64   `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
	BatchNo    string  `json:"batch_no,omitempty"`
}

// Totals is the monetary breakdown of a cart or sale.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// Sale is an immutable record of a completed transaction. Items are stored
// denormalized on the row and never mutated after the sale is persisted.
type Sale struct {
	ID            int64      `db:"id" json:"id"`
	Date          string     `db:"date" json:"date"`
	Items         []SaleItem `db:"-" json:"items"`
	Subtotal      float64    `db:"subtotal" json:"subtotal"`
	Discount      float64    `db:"discount" json:"discount"`
	Tax           float64    `db:"tax" json:"tax"`
	Total         float64    `db:"total" json:"total"`
	PaymentMethod string     `db:"payment_method" json:"payment_method"`
	CashierID     *int64     `db:"cashier_id" json:"cashier_id,omitempty"`
	CustomerName  *string    `db:"customer_name" json:"customer_name,omitempty"`
	CreatedAt     string     `db:"created_at" json:"created_at"`
}

// Validate returns the list of problems preventing this sale from being
// persisted. Empty slice means valid.
func (s *Sale) Validate() []string {
	var errs []string

	if s.Date == "" {
		errs = append(errs, "sale date is required")
	} else if _, err := time.Parse("2006-01-02", s.Date); err != nil {
		errs = append(errs, "sale date must be in YYYY-MM-DD format")
	}

	if len(s.Items) == 0 {
		errs = append(errs, "sale must contain at least one item")
	}

	if s.Subtotal < 0 {
		errs = append(errs, "subtotal cannot be negative")
	}
	if s.Discount < 0 {
		errs = append(errs, "discount cannot be negative")
	}
	if s.Tax < 0 {
		errs = append(errs, "tax cannot be negative")
	}
	if s.Total < 0 {
		errs = append(errs, "total cannot be negative")
	}

	if !ValidPaymentMethod(s.PaymentMethod) {
		errs = append(errs, "payment method must be one of: cash, card, upi, cheque, bank_transfer")
	}

	return errs
}

// Round2 rounds to two decimal places using half-to-even. Every monetary
// value in the system is rounded with this at each step of the totals
// computation; intermediate values are never carried at full precision.
func Round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
