package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medstore/m/domain"
	"medstore/m/internal/database"
	"medstore/m/internal/migrations"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(db))
	return db
}

func futureDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format("2006-01-02")
}

func testMedicine(name string, qty int64) *domain.Medicine {
	return &domain.Medicine{
		Name:          name,
		Category:      "Analgesic",
		BatchNo:       "B-2024-001",
		ExpiryDate:    futureDate(365),
		Quantity:      qty,
		PurchasePrice: 3.00,
		SellingPrice:  5.00,
	}
}

func TestMedicineSaveAndFind(t *testing.T) {
	s := NewMedicineStore(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	saved, err := s.Save(ctx, testMedicine("Paracetamol", 50))
	require.NoError(t, err)
	require.NotZero(t, saved.ID)

	found, err := s.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol", found.Name)
	assert.Equal(t, int64(50), found.Quantity)
	assert.Equal(t, 5.00, found.SellingPrice)

	_, err = s.FindByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMedicineSaveRejectsInvalid(t *testing.T) {
	s := NewMedicineStore(newTestDB(t), zap.NewNop())

	expired := testMedicine("Old Stock", 10)
	expired.ExpiryDate = "2020-01-01"
	_, err := s.Save(context.Background(), expired)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expiry date must be in the future")
}

func TestMedicineSearch(t *testing.T) {
	s := NewMedicineStore(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	barcode := "PCM500MG01"
	m := testMedicine("Paracetamol 500mg", 10)
	m.Barcode = &barcode
	_, err := s.Save(ctx, m)
	require.NoError(t, err)
	_, err = s.Save(ctx, testMedicine("Ibuprofen", 10))
	require.NoError(t, err)

	byName, err := s.Search(ctx, "paraceta")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Paracetamol 500mg", byName[0].Name)

	byBarcode, err := s.FindByBarcode(ctx, "PCM500MG01")
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol 500mg", byBarcode.Name)

	empty, err := s.Search(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMedicineUpdateAndDelete(t *testing.T) {
	s := NewMedicineStore(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	saved, err := s.Save(ctx, testMedicine("Paracetamol", 50))
	require.NoError(t, err)

	saved.SellingPrice = 6.50
	saved.Quantity = 40
	require.NoError(t, s.Update(ctx, saved))

	found, err := s.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 6.50, found.SellingPrice)
	assert.Equal(t, int64(40), found.Quantity)

	require.NoError(t, s.Delete(ctx, saved.ID))
	_, err = s.FindByID(ctx, saved.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	missing := testMedicine("Ghost", 1)
	missing.ID = 424242
	assert.ErrorIs(t, s.Update(ctx, missing), ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, 424242), ErrNotFound)
}

func TestCheckAndDecrement(t *testing.T) {
	s := NewMedicineStore(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	saved, err := s.Save(ctx, testMedicine("Paracetamol", 5))
	require.NoError(t, err)

	ok, err := s.CheckAndDecrement(ctx, saved.ID, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	// Refusal at the boundary is not an error and leaves stock untouched.
	ok, err = s.CheckAndDecrement(ctx, saved.ID, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := s.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), found.Quantity)

	// Exact remaining quantity drains to zero.
	ok, err = s.CheckAndDecrement(ctx, saved.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	found, err = s.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), found.Quantity)

	_, err = s.CheckAndDecrement(ctx, saved.ID, 0)
	assert.Error(t, err)
}

// Concurrent decrements against one medicine must never oversell: with
// stock 50 and 20 racing requests of 5 each, exactly 10 can win.
func TestCheckAndDecrementConcurrent(t *testing.T) {
	s := NewMedicineStore(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	saved, err := s.Save(ctx, testMedicine("Paracetamol", 50))
	require.NoError(t, err)

	const (
		workers = 20
		each    = int64(5)
	)
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int64
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.CheckAndDecrement(ctx, saved.ID, each)
			assert.NoError(t, err)
			if err == nil && ok {
				mu.Lock()
				succeeded += each
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), succeeded)
	found, err := s.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), found.Quantity)
}

func TestAdjustStock(t *testing.T) {
	s := NewMedicineStore(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	saved, err := s.Save(ctx, testMedicine("Paracetamol", 10))
	require.NoError(t, err)

	require.NoError(t, s.AdjustStock(ctx, saved.ID, 15))
	require.NoError(t, s.AdjustStock(ctx, saved.ID, -5))

	found, err := s.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), found.Quantity)

	err = s.AdjustStock(ctx, saved.ID, -100)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.AdjustStock(ctx, 9999, 5), ErrNotFound)
}

func TestStockAlertQueries(t *testing.T) {
	db := newTestDB(t)
	s := NewMedicineStore(db, zap.NewNop())
	ctx := context.Background()

	low := testMedicine("Low Stock Med", 3)
	_, err := s.Save(ctx, low)
	require.NoError(t, err)
	healthy := testMedicine("Healthy Med", 100)
	_, err = s.Save(ctx, healthy)
	require.NoError(t, err)
	expiring := testMedicine("Expiring Med", 50)
	expiring.ExpiryDate = futureDate(10)
	_, err = s.Save(ctx, expiring)
	require.NoError(t, err)

	// Save validates expiry, so an already expired row goes in raw.
	_, err = db.Exec(`
        INSERT INTO medicines (name, category, batch_no, expiry_date, quantity, purchase_price, selling_price)
        VALUES ('Expired Med', 'Analgesic', 'B-OLD', '2020-01-01', 5, 1, 2)`)
	require.NoError(t, err)

	lows, err := s.LowStock(ctx, 10)
	require.NoError(t, err)
	names := []string{}
	for _, m := range lows {
		names = append(names, m.Name)
	}
	assert.Contains(t, names, "Low Stock Med")
	assert.Contains(t, names, "Expired Med")
	assert.NotContains(t, names, "Healthy Med")

	expired, err := s.Expired(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "Expired Med", expired[0].Name)

	soon, err := s.ExpiringSoon(ctx, 30)
	require.NoError(t, err)
	require.Len(t, soon, 1)
	assert.Equal(t, "Expiring Med", soon[0].Name)
}

func TestCategories(t *testing.T) {
	s := NewMedicineStore(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	a := testMedicine("Paracetamol", 10)
	a.Category = "Analgesic"
	b := testMedicine("Cetirizine", 10)
	b.Category = "Antihistamine"
	for _, m := range []*domain.Medicine{a, b} {
		_, err := s.Save(ctx, m)
		require.NoError(t, err)
	}

	cats, err := s.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Analgesic", "Antihistamine"}, cats)
}
