package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medstore/m/domain"
)

func testSale(date string, total float64, method string) *domain.Sale {
	return &domain.Sale{
		Date: date,
		Items: []domain.SaleItem{
			{MedicineID: 1, Name: "Paracetamol", Quantity: 2, UnitPrice: total / 2, TotalPrice: total, BatchNo: "B-100"},
		},
		Subtotal:      total,
		Discount:      0,
		Tax:           0,
		Total:         total,
		PaymentMethod: method,
	}
}

func TestSaleSaveAndFind(t *testing.T) {
	s := NewSaleStore(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	cashier := int64(3)
	customer := "Asha"
	sale := testSale("2026-08-24", 49.50, domain.PaymentCard)
	sale.CashierID = &cashier
	sale.CustomerName = &customer

	saved, err := s.Save(ctx, sale)
	require.NoError(t, err)
	require.NotZero(t, saved.ID)

	found, err := s.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-24", found.Date)
	assert.Equal(t, 49.50, found.Total)
	assert.Equal(t, domain.PaymentCard, found.PaymentMethod)
	require.NotNil(t, found.CashierID)
	assert.Equal(t, int64(3), *found.CashierID)
	require.NotNil(t, found.CustomerName)
	assert.Equal(t, "Asha", *found.CustomerName)

	// Line items round-trip through the JSON column.
	require.Len(t, found.Items, 1)
	assert.Equal(t, int64(1), found.Items[0].MedicineID)
	assert.Equal(t, "Paracetamol", found.Items[0].Name)
	assert.Equal(t, int64(2), found.Items[0].Quantity)
	assert.Equal(t, 49.50, found.Items[0].TotalPrice)

	_, err = s.FindByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaleSaveRejectsInvalid(t *testing.T) {
	s := NewSaleStore(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	empty := testSale("2026-08-24", 10, domain.PaymentCash)
	empty.Items = nil
	_, err := s.Save(ctx, empty)
	assert.Error(t, err)

	badPayment := testSale("2026-08-24", 10, "bitcoin")
	_, err = s.Save(ctx, badPayment)
	assert.Error(t, err)
}

func TestSaleListByDate(t *testing.T) {
	s := NewSaleStore(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	for _, sale := range []*domain.Sale{
		testSale("2026-08-22", 10, domain.PaymentCash),
		testSale("2026-08-23", 20, domain.PaymentCard),
		testSale("2026-08-23", 30, domain.PaymentUPI),
		testSale("2026-08-24", 40, domain.PaymentCash),
	} {
		_, err := s.Save(ctx, sale)
		require.NoError(t, err)
	}

	day, err := s.ListByDate(ctx, "2026-08-23")
	require.NoError(t, err)
	assert.Len(t, day, 2)

	ranged, err := s.ListByDateRange(ctx, "2026-08-23", "2026-08-24")
	require.NoError(t, err)
	require.Len(t, ranged, 3)
	// Newest date first.
	assert.Equal(t, "2026-08-24", ranged[0].Date)

	none, err := s.ListByDate(ctx, "2026-01-01")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSaleRecent(t *testing.T) {
	s := NewSaleStore(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	// Distinct created_at values pin the ordering.
	times := []string{
		"2026-08-24T09:00:00Z",
		"2026-08-24T10:00:00Z",
		"2026-08-24T11:00:00Z",
	}
	for i, ts := range times {
		sale := testSale("2026-08-24", float64(10*(i+1)), domain.PaymentCash)
		sale.CreatedAt = ts
		_, err := s.Save(ctx, sale)
		require.NoError(t, err)
	}

	recent, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 30.0, recent[0].Total)
	assert.Equal(t, 20.0, recent[1].Total)

	// Non-positive limit falls back to the default of 10.
	all, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSaleRevenueReports(t *testing.T) {
	s := NewSaleStore(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	for _, sale := range []*domain.Sale{
		testSale("2026-08-22", 10, domain.PaymentCash),
		testSale("2026-08-23", 20, domain.PaymentCard),
		testSale("2026-08-23", 30, domain.PaymentCard),
		testSale("2026-08-24", 40, domain.PaymentUPI),
	} {
		_, err := s.Save(ctx, sale)
		require.NoError(t, err)
	}

	total, err := s.TotalRevenue(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, 100.0, total)

	bounded, err := s.TotalRevenue(ctx, "2026-08-23", "2026-08-24")
	require.NoError(t, err)
	assert.Equal(t, 90.0, bounded)

	byMethod, err := s.PaymentMethodBreakdown(ctx, "2026-08-22", "2026-08-24")
	require.NoError(t, err)
	require.Len(t, byMethod, 3)
	assert.Equal(t, domain.PaymentCard, byMethod[0].Method)
	assert.Equal(t, int64(2), byMethod[0].Transactions)
	assert.Equal(t, 50.0, byMethod[0].Revenue)

	daily, err := s.DailyBreakdown(ctx, "2026-08-22", "2026-08-24")
	require.NoError(t, err)
	require.Len(t, daily, 3)
	assert.Equal(t, "2026-08-22", daily[0].Date)
	assert.Equal(t, 50.0, daily[1].Revenue)
	assert.Equal(t, int64(2), daily[1].Transactions)
}

func TestSettingsStore(t *testing.T) {
	s := NewSettingsStore(newTestDB(t))
	ctx := context.Background()

	// Migrations seed the defaults.
	rate := s.GetFloat(ctx, "default_tax_rate", -1)
	assert.Equal(t, 0.0, rate)
	threshold := s.GetInt(ctx, "low_stock_threshold", -1)
	assert.Equal(t, int64(10), threshold)

	require.NoError(t, s.Set(ctx, "default_tax_rate", "7.5"))
	assert.Equal(t, 7.5, s.GetFloat(ctx, "default_tax_rate", -1))

	require.NoError(t, s.Set(ctx, "receipt_footer", "Thank you"))
	v, err := s.Get(ctx, "receipt_footer")
	require.NoError(t, err)
	assert.Equal(t, "Thank you", v)

	_, err = s.Get(ctx, "missing_key")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 42.0, s.GetFloat(ctx, "missing_key", 42))

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(all), 5)
}
