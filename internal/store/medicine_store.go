// Package store contains the sqlx repositories over SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"medstore/m/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// MedicineStore handles medicine persistence, including the atomic stock
// decrement used by checkout.
type MedicineStore struct {
	db  *sqlx.DB
	log *zap.Logger
}

// NewMedicineStore constructs a MedicineStore.
func NewMedicineStore(db *sqlx.DB, log *zap.Logger) *MedicineStore {
	return &MedicineStore{db: db, log: log.Named("store.medicines")}
}

// Save inserts a new medicine and returns it with its assigned id.
func (s *MedicineStore) Save(ctx context.Context, med *domain.Medicine) (*domain.Medicine, error) {
	if errs := med.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("medicine validation failed: %s", strings.Join(errs, "; "))
	}

	res, err := s.db.ExecContext(ctx, `
        INSERT INTO medicines (name, category, batch_no, expiry_date, quantity, purchase_price, selling_price, barcode)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		med.Name, med.Category, med.BatchNo, med.ExpiryDate,
		med.Quantity, med.PurchasePrice, med.SellingPrice, med.Barcode,
	)
	if err != nil {
		return nil, fmt.Errorf("insert medicine: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("medicine id: %w", err)
	}
	med.ID = id
	s.log.Info("medicine saved", zap.Int64("id", id), zap.String("name", med.Name))
	return med, nil
}

// FindByID returns the medicine with the given id, or ErrNotFound.
func (s *MedicineStore) FindByID(ctx context.Context, id int64) (*domain.Medicine, error) {
	var med domain.Medicine
	err := s.db.GetContext(ctx, &med, `SELECT * FROM medicines WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find medicine %d: %w", id, err)
	}
	return &med, nil
}

// FindByBarcode returns the medicine with the given barcode, or ErrNotFound.
func (s *MedicineStore) FindByBarcode(ctx context.Context, barcode string) (*domain.Medicine, error) {
	var med domain.Medicine
	err := s.db.GetContext(ctx, &med, `SELECT * FROM medicines WHERE barcode = ?`, strings.TrimSpace(barcode))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find medicine by barcode: %w", err)
	}
	return &med, nil
}

// FindAll returns all medicines ordered by name.
func (s *MedicineStore) FindAll(ctx context.Context) ([]domain.Medicine, error) {
	meds := []domain.Medicine{}
	if err := s.db.SelectContext(ctx, &meds, `SELECT * FROM medicines ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}
	return meds, nil
}

// Search matches medicines by name or barcode, case-insensitive partial match.
func (s *MedicineStore) Search(ctx context.Context, query string) ([]domain.Medicine, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Medicine{}, nil
	}
	like := "%" + query + "%"
	meds := []domain.Medicine{}
	err := s.db.SelectContext(ctx, &meds, `
        SELECT * FROM medicines
        WHERE name LIKE ? OR barcode LIKE ?
        ORDER BY name ASC`, like, like)
	if err != nil {
		return nil, fmt.Errorf("search medicines: %w", err)
	}
	return meds, nil
}

// Update replaces the mutable fields of an existing medicine.
func (s *MedicineStore) Update(ctx context.Context, med *domain.Medicine) error {
	if errs := med.Validate(); len(errs) > 0 {
		return fmt.Errorf("medicine validation failed: %s", strings.Join(errs, "; "))
	}

	res, err := s.db.ExecContext(ctx, `
        UPDATE medicines
        SET name = ?, category = ?, batch_no = ?, expiry_date = ?, quantity = ?,
            purchase_price = ?, selling_price = ?, barcode = ?, updated_at = CURRENT_TIMESTAMP
        WHERE id = ?`,
		med.Name, med.Category, med.BatchNo, med.ExpiryDate, med.Quantity,
		med.PurchasePrice, med.SellingPrice, med.Barcode, med.ID,
	)
	if err != nil {
		return fmt.Errorf("update medicine %d: %w", med.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update medicine %d: %w", med.ID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a medicine from the catalogue. Sales referencing it keep
// their snapshot line items.
func (s *MedicineStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM medicines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete medicine %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete medicine %d: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	s.log.Info("medicine deleted", zap.Int64("id", id))
	return nil
}

// CheckAndDecrement atomically decrements stock for a medicine, but only
// if enough is available. The check and the write are one conditional
// UPDATE judged by its affected-row count, so two racing sales can never
// both pass the check. Returns (false, nil) when stock was insufficient;
// an error only signals a real storage failure.
func (s *MedicineStore) CheckAndDecrement(ctx context.Context, medicineID, quantity int64) (bool, error) {
	if quantity <= 0 {
		return false, fmt.Errorf("decrement quantity must be positive, got %d", quantity)
	}
	res, err := s.db.ExecContext(ctx, `
        UPDATE medicines
        SET quantity = quantity - ?, updated_at = CURRENT_TIMESTAMP
        WHERE id = ? AND quantity >= ?`,
		quantity, medicineID, quantity,
	)
	if err != nil {
		return false, fmt.Errorf("decrement stock for medicine %d: %w", medicineID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decrement stock for medicine %d: %w", medicineID, err)
	}
	if affected == 0 {
		s.log.Warn("stock decrement refused", zap.Int64("medicine_id", medicineID), zap.Int64("requested", quantity))
		return false, nil
	}
	return true, nil
}

// AdjustStock applies a signed quantity change (restock or correction),
// refusing changes that would take stock negative.
func (s *MedicineStore) AdjustStock(ctx context.Context, medicineID, change int64) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE medicines
        SET quantity = quantity + ?, updated_at = CURRENT_TIMESTAMP
        WHERE id = ? AND quantity + ? >= 0`,
		change, medicineID, change,
	)
	if err != nil {
		return fmt.Errorf("adjust stock for medicine %d: %w", medicineID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust stock for medicine %d: %w", medicineID, err)
	}
	if affected == 0 {
		if _, err := s.FindByID(ctx, medicineID); err != nil {
			return err
		}
		return fmt.Errorf("stock adjustment of %d would make medicine %d negative", change, medicineID)
	}
	return nil
}

// LowStock returns medicines at or below the threshold, lowest first.
func (s *MedicineStore) LowStock(ctx context.Context, threshold int64) ([]domain.Medicine, error) {
	meds := []domain.Medicine{}
	err := s.db.SelectContext(ctx, &meds, `
        SELECT * FROM medicines WHERE quantity <= ? ORDER BY quantity ASC, name ASC`, threshold)
	if err != nil {
		return nil, fmt.Errorf("low stock query: %w", err)
	}
	return meds, nil
}

// Expired returns medicines whose expiry date is today or earlier.
func (s *MedicineStore) Expired(ctx context.Context) ([]domain.Medicine, error) {
	meds := []domain.Medicine{}
	err := s.db.SelectContext(ctx, &meds, `
        SELECT * FROM medicines WHERE expiry_date <= date('now') ORDER BY expiry_date ASC`)
	if err != nil {
		return nil, fmt.Errorf("expired query: %w", err)
	}
	return meds, nil
}

// ExpiringSoon returns unexpired medicines that expire within the given
// number of days, soonest first.
func (s *MedicineStore) ExpiringSoon(ctx context.Context, days int) ([]domain.Medicine, error) {
	meds := []domain.Medicine{}
	err := s.db.SelectContext(ctx, &meds, `
        SELECT * FROM medicines
        WHERE expiry_date > date('now') AND expiry_date <= date('now', ? || ' days')
        ORDER BY expiry_date ASC`, days)
	if err != nil {
		return nil, fmt.Errorf("expiring soon query: %w", err)
	}
	return meds, nil
}

// Categories returns the distinct category names in use.
func (s *MedicineStore) Categories(ctx context.Context) ([]string, error) {
	cats := []string{}
	err := s.db.SelectContext(ctx, &cats, `
        SELECT DISTINCT category FROM medicines ORDER BY category ASC`)
	if err != nil {
		return nil, fmt.Errorf("categories query: %w", err)
	}
	return cats, nil
}
