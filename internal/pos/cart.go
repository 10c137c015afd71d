// Package pos implements the register-side core: the cart pricing engine
// and the sale commit protocol.
package pos

import (
	"medstore/m/domain"
)

// Cart holds the in-progress sale for one register session: line items in
// insertion order (unique per medicine), a flat discount, a tax rate and a
// payment method. It performs no I/O and no locking; the owner of a cart
// shared across goroutines must guard it with a mutex.
type Cart struct {
	lines         []domain.SaleItem
	discount      float64
	taxRate       float64
	paymentMethod string
}

// NewCart returns an empty cart with the given default tax rate (percent).
func NewCart(taxRate float64) *Cart {
	c := &Cart{paymentMethod: domain.PaymentCash}
	if taxRate >= 0 && taxRate <= 100 {
		c.taxRate = taxRate
	}
	return c
}

// AddItem adds the requested quantity of a medicine to the cart, merging
// into an existing line for the same medicine. stock is the latest known
// snapshot supplied by the caller; its selling price is captured into the
// line at this moment and never re-read. On any error the cart is left
// unchanged.
func (c *Cart) AddItem(stock domain.Medicine, quantity int64) (domain.SaleItem, error) {
	if quantity <= 0 {
		return domain.SaleItem{}, ErrInvalidQuantity
	}

	if line := c.find(stock.ID); line != nil {
		newQty := line.Quantity + quantity
		if !stock.CanSell(newQty) {
			return domain.SaleItem{}, &InsufficientStockError{
				MedicineID: stock.ID,
				Available:  stock.Quantity,
				Requested:  newQty,
			}
		}
		line.Quantity = newQty
		line.TotalPrice = domain.Round2(float64(line.Quantity) * line.UnitPrice)
		return *line, nil
	}

	if !stock.CanSell(quantity) {
		return domain.SaleItem{}, &InsufficientStockError{
			MedicineID: stock.ID,
			Available:  stock.Quantity,
			Requested:  quantity,
		}
	}

	batch := stock.BatchNo
	item := domain.SaleItem{
		MedicineID: stock.ID,
		Name:       stock.Name,
		Quantity:   quantity,
		UnitPrice:  stock.SellingPrice,
		TotalPrice: domain.Round2(float64(quantity) * stock.SellingPrice),
		BatchNo:    batch,
	}
	c.lines = append(c.lines, item)
	return item, nil
}

// RemoveItem removes the line for the given medicine.
func (c *Cart) RemoveItem(medicineID int64) error {
	for i, line := range c.lines {
		if line.MedicineID == medicineID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return nil
		}
	}
	return ErrLineNotFound
}

// UpdateQuantity sets the line quantity for a medicine, re-validated
// against the supplied stock snapshot. A quantity of zero or less removes
// the line.
func (c *Cart) UpdateQuantity(medicineID int64, quantity int64, stock domain.Medicine) error {
	if quantity <= 0 {
		return c.RemoveItem(medicineID)
	}

	line := c.find(medicineID)
	if line == nil {
		return ErrLineNotFound
	}
	if !stock.CanSell(quantity) {
		return &InsufficientStockError{
			MedicineID: medicineID,
			Available:  stock.Quantity,
			Requested:  quantity,
		}
	}

	line.Quantity = quantity
	line.TotalPrice = domain.Round2(float64(line.Quantity) * line.UnitPrice)
	return nil
}

// SetDiscount sets the flat discount amount. The discount may not exceed
// the current subtotal.
func (c *Cart) SetDiscount(amount float64) error {
	if amount < 0 {
		return ErrNegativeDiscount
	}
	if amount > c.subtotal() {
		return ErrDiscountExceedsTotal
	}
	c.discount = amount
	return nil
}

// SetTaxRate sets the tax rate in percent, 0 to 100 inclusive.
func (c *Cart) SetTaxRate(percent float64) error {
	if percent < 0 || percent > 100 {
		return ErrInvalidTaxRate
	}
	c.taxRate = percent
	return nil
}

// SetPaymentMethod sets the payment method for the sale.
func (c *Cart) SetPaymentMethod(method string) error {
	if !domain.ValidPaymentMethod(method) {
		return ErrInvalidPayment
	}
	c.paymentMethod = method
	return nil
}

// Totals computes the monetary breakdown of the cart. The rounding order
// is fixed: each line's total is already rounded, the sum is rounded, the
// discount is clamped to the subtotal (removing a line can shrink the
// subtotal below a previously valid discount), tax is computed on the
// discounted amount and rounded, and the final total is rounded last.
func (c *Cart) Totals() domain.Totals {
	subtotal := c.subtotal()
	discount := c.discount
	if discount > subtotal {
		discount = subtotal
	}
	discounted := subtotal - discount
	tax := domain.Round2(discounted * c.taxRate / 100)
	return domain.Totals{
		Subtotal: domain.Round2(subtotal),
		Discount: domain.Round2(discount),
		Tax:      tax,
		Total:    domain.Round2(discounted + tax),
	}
}

// Clear resets the cart to its initial state: no lines, zero discount,
// zero tax rate, cash payment.
func (c *Cart) Clear() {
	c.lines = nil
	c.discount = 0
	c.taxRate = 0
	c.paymentMethod = domain.PaymentCash
}

// Items returns a copy of the cart lines in insertion order.
func (c *Cart) Items() []domain.SaleItem {
	items := make([]domain.SaleItem, len(c.lines))
	copy(items, c.lines)
	return items
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Discount returns the currently set discount amount.
func (c *Cart) Discount() float64 { return c.discount }

// TaxRate returns the currently set tax rate in percent.
func (c *Cart) TaxRate() float64 { return c.taxRate }

// PaymentMethod returns the currently selected payment method.
func (c *Cart) PaymentMethod() string { return c.paymentMethod }

func (c *Cart) find(medicineID int64) *domain.SaleItem {
	for i := range c.lines {
		if c.lines[i].MedicineID == medicineID {
			return &c.lines[i]
		}
	}
	return nil
}

func (c *Cart) subtotal() float64 {
	var sum float64
	for _, line := range c.lines {
		sum += line.TotalPrice
	}
	return domain.Round2(sum)
}
