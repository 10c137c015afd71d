package domain

import (
	"fmt"
	"regexp"
	"time"
)

var barcodePattern = regexp.MustCompile(`^[A-Za-z0-9]{8,20}$`)

// Medicine is a single catalogue entry carrying the store's live stock.
// Quantity is the only field checkout mutates.
type Medicine struct {
	ID            int64   `db:"id" json:"id"`
	Name          string  `db:"name" json:"name"`
	Category      string  `db:"category" json:"category"`
	BatchNo       string  `db:"batch_no" json:"batch_no"`
	ExpiryDate    string  `db:"expiry_date" json:"expiry_date"`
	Quantity      int64   `db:"quantity" json:"quantity"`
	PurchasePrice float64 `db:"purchase_price" json:"purchase_price"`
	SellingPrice  float64 `db:"selling_price" json:"selling_price"`
	Barcode       *string `db:"barcode" json:"barcode,omitempty"`
	CreatedAt     string  `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt     string  `db:"updated_at" json:"updated_at,omitempty"`
}

// Validate returns the list of problems preventing this medicine from
// being stored. Empty slice means valid.
func (m *Medicine) Validate() []string {
	var errs []string

	switch {
	case m.Name == "":
		errs = append(errs, "medicine name is required")
	case len(m.Name) < 2:
		errs = append(errs, "medicine name must be at least 2 characters long")
	case len(m.Name) > 100:
		errs = append(errs, "medicine name must be less than 100 characters")
	}

	if m.Category == "" {
		errs = append(errs, "category is required")
	} else if len(m.Category) > 50 {
		errs = append(errs, "category must be less than 50 characters")
	}

	if m.BatchNo == "" {
		errs = append(errs, "batch number is required")
	} else if len(m.BatchNo) > 50 {
		errs = append(errs, "batch number must be less than 50 characters")
	}

	if m.ExpiryDate == "" {
		errs = append(errs, "expiry date is required")
	} else if expiry, err := time.Parse("2006-01-02", m.ExpiryDate); err != nil {
		errs = append(errs, "expiry date must be in YYYY-MM-DD format")
	} else if !expiry.After(today()) {
		errs = append(errs, "expiry date must be in the future")
	}

	if m.Quantity < 0 {
		errs = append(errs, "quantity cannot be negative")
	} else if m.Quantity > 999999 {
		errs = append(errs, "quantity cannot exceed 999,999")
	}

	if m.PurchasePrice < 0 {
		errs = append(errs, "purchase price cannot be negative")
	} else if m.PurchasePrice > 999999.99 {
		errs = append(errs, "purchase price cannot exceed 999,999.99")
	}

	if m.SellingPrice < 0 {
		errs = append(errs, "selling price cannot be negative")
	} else if m.SellingPrice > 999999.99 {
		errs = append(errs, "selling price cannot exceed 999,999.99")
	}

	if m.PurchasePrice > 0 && m.SellingPrice > 0 && m.SellingPrice < m.PurchasePrice {
		errs = append(errs, "selling price should not be less than purchase price")
	}

	if m.Barcode != nil && *m.Barcode != "" && !barcodePattern.MatchString(*m.Barcode) {
		errs = append(errs, "barcode must be 8-20 alphanumeric characters")
	}

	return errs
}

// CanSell reports whether the requested quantity is available.
func (m *Medicine) CanSell(requested int64) bool {
	return requested > 0 && m.Quantity >= requested
}

// IsLowStock reports whether stock is at or below the threshold.
func (m *Medicine) IsLowStock(threshold int64) bool {
	return m.Quantity <= threshold
}

// IsExpired treats an unparseable expiry date as expired.
func (m *Medicine) IsExpired() bool {
	expiry, err := time.Parse("2006-01-02", m.ExpiryDate)
	if err != nil {
		return true
	}
	return !expiry.After(today())
}

// IsExpiringSoon reports whether the medicine expires within the given
// number of days (and has not expired yet).
func (m *Medicine) IsExpiringSoon(days int) bool {
	expiry, err := time.Parse("2006-01-02", m.ExpiryDate)
	if err != nil {
		return false
	}
	until := int(expiry.Sub(today()).Hours() / 24)
	return until >= 0 && until <= days
}

func (m *Medicine) String() string {
	return fmt.Sprintf("%s - %s (Qty: %d)", m.Name, m.Category, m.Quantity)
}

func today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
