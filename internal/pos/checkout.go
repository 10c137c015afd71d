package pos

import (
	"context"
	"time"

	"go.uber.org/zap"

	"medstore/m/domain"
)

// SaleStore persists committed sales.
type SaleStore interface {
	Save(ctx context.Context, sale *domain.Sale) (*domain.Sale, error)
}

// MedicineLookup supplies stock snapshots for pre-commit validation.
type MedicineLookup interface {
	FindByID(ctx context.Context, id int64) (*domain.Medicine, error)
}

// StockAdjuster decrements stock. CheckAndDecrement must be a single
// atomic conditional update at the storage layer; it returns (false, nil)
// when stock is insufficient at the moment of decrement, which is distinct
// from an I/O error.
type StockAdjuster interface {
	CheckAndDecrement(ctx context.Context, medicineID, quantity int64) (bool, error)
}

// Checkout commits carts: validate, re-check stock, persist the sale,
// decrement stock line by line, clear the cart.
type Checkout struct {
	sales     SaleStore
	medicines MedicineLookup
	stock     StockAdjuster
	log       *zap.Logger
}

// NewCheckout constructs a Checkout.
func NewCheckout(sales SaleStore, medicines MedicineLookup, stock StockAdjuster, log *zap.Logger) *Checkout {
	return &Checkout{
		sales:     sales,
		medicines: medicines,
		stock:     stock,
		log:       log.Named("pos.checkout"),
	}
}

// Complete commits the cart as a sale.
//
// Failure contract, in order of the steps:
//   - ErrEmptyCart, *InsufficientStockError, *ValidationError: nothing was
//     written, the cart is untouched, fix the input and retry.
//   - *PersistError: nothing was written, the cart is untouched, retrying
//     creates exactly one fresh attempt.
//   - *StockAdjustmentError: the sale IS persisted and returned alongside
//     the error; lines earlier in the cart were decremented and are not
//     reversed, later lines were not touched. The cart is deliberately not
//     cleared, since re-running Complete would record the same items a
//     second time; the operator decides how to reconcile.
//
// Stock is decremented sequentially in cart-line order, each line through
// one atomic conditional update, but the lines are not wrapped in a single
// cross-row transaction.
func (co *Checkout) Complete(ctx context.Context, cart *Cart, cashierID *int64, customerName string) (*domain.Sale, error) {
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	totals := cart.Totals()
	sale := &domain.Sale{
		Date:          time.Now().Format("2006-01-02"),
		Items:         cart.Items(),
		Subtotal:      totals.Subtotal,
		Discount:      totals.Discount,
		Tax:           totals.Tax,
		Total:         totals.Total,
		PaymentMethod: cart.PaymentMethod(),
		CashierID:     cashierID,
		CreatedAt:     time.Now().Format(time.RFC3339),
	}
	if name := customerName; name != "" {
		sale.CustomerName = &name
	}

	if errs := sale.Validate(); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	// Re-check stock against the live records before writing anything.
	// Quantity only: unit prices were captured when the lines were added.
	for _, item := range sale.Items {
		med, err := co.medicines.FindByID(ctx, item.MedicineID)
		if err != nil {
			return nil, &ValidationError{Errors: []string{"medicine " + item.Name + " not found"}}
		}
		if !med.CanSell(item.Quantity) {
			return nil, &InsufficientStockError{
				MedicineID: item.MedicineID,
				Available:  med.Quantity,
				Requested:  item.Quantity,
			}
		}
	}

	saved, err := co.sales.Save(ctx, sale)
	if err != nil {
		return nil, &PersistError{Err: err}
	}

	for _, item := range saved.Items {
		ok, err := co.stock.CheckAndDecrement(ctx, item.MedicineID, item.Quantity)
		if err == nil && ok {
			continue
		}
		// The sale stays persisted and earlier decrements stand. Surface
		// this louder than any other failure: inventory no longer matches
		// the recorded sale.
		adjErr := &StockAdjustmentError{SaleID: saved.ID, MedicineID: item.MedicineID, Err: err}
		co.log.Error("stock inconsistency: sale recorded but stock not decremented",
			zap.Int64("sale_id", saved.ID),
			zap.Int64("medicine_id", item.MedicineID),
			zap.Int64("quantity", item.Quantity),
			zap.Error(err),
		)
		return saved, adjErr
	}

	cart.Clear()
	co.log.Info("sale completed",
		zap.Int64("sale_id", saved.ID),
		zap.Float64("total", saved.Total),
		zap.Int("items", len(saved.Items)),
	)
	return saved, nil
}
