package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"medstore/m/domain"
)

// SaleStore is the append-only store of committed sales. Line items are
// serialized as JSON onto the sale row; a persisted sale is never updated.
type SaleStore struct {
	db  *sqlx.DB
	log *zap.Logger
}

// NewSaleStore constructs a SaleStore.
func NewSaleStore(db *sqlx.DB, log *zap.Logger) *SaleStore {
	return &SaleStore{db: db, log: log.Named("store.sales")}
}

type saleRow struct {
	domain.Sale
	ItemsJSON string `db:"items"`
}

// Save inserts a sale and returns it with its assigned id.
func (s *SaleStore) Save(ctx context.Context, sale *domain.Sale) (*domain.Sale, error) {
	if errs := sale.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("sale validation failed: %v", errs)
	}

	items, err := json.Marshal(sale.Items)
	if err != nil {
		return nil, fmt.Errorf("encode sale items: %w", err)
	}
	if sale.CreatedAt == "" {
		sale.CreatedAt = time.Now().Format(time.RFC3339)
	}

	res, err := s.db.ExecContext(ctx, `
        INSERT INTO sales (date, items, subtotal, discount, tax, total, payment_method, cashier_id, customer_name, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.Date, string(items), sale.Subtotal, sale.Discount, sale.Tax, sale.Total,
		sale.PaymentMethod, sale.CashierID, sale.CustomerName, sale.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert sale: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sale id: %w", err)
	}
	sale.ID = id
	s.log.Info("sale saved", zap.Int64("id", id), zap.Float64("total", sale.Total))
	return sale, nil
}

// FindByID returns the sale with the given id, or ErrNotFound.
func (s *SaleStore) FindByID(ctx context.Context, id int64) (*domain.Sale, error) {
	var row saleRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM sales WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find sale %d: %w", id, err)
	}
	return s.fromRow(row)
}

// ListByDateRange returns sales with start <= date <= end, newest first.
func (s *SaleStore) ListByDateRange(ctx context.Context, start, end string) ([]domain.Sale, error) {
	rows := []saleRow{}
	err := s.db.SelectContext(ctx, &rows, `
        SELECT * FROM sales
        WHERE date >= ? AND date <= ?
        ORDER BY date DESC, created_at DESC`, start, end)
	if err != nil {
		return nil, fmt.Errorf("sales by date range: %w", err)
	}
	return s.fromRows(rows)
}

// ListByDate returns the sales for one calendar date, newest first.
func (s *SaleStore) ListByDate(ctx context.Context, date string) ([]domain.Sale, error) {
	rows := []saleRow{}
	err := s.db.SelectContext(ctx, &rows, `
        SELECT * FROM sales WHERE date = ? ORDER BY created_at DESC`, date)
	if err != nil {
		return nil, fmt.Errorf("sales by date: %w", err)
	}
	return s.fromRows(rows)
}

// Recent returns the most recently created sales.
func (s *SaleStore) Recent(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit <= 0 {
		limit = 10
	}
	rows := []saleRow{}
	err := s.db.SelectContext(ctx, &rows, `
        SELECT * FROM sales ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent sales: %w", err)
	}
	return s.fromRows(rows)
}

// TotalRevenue sums sale totals, optionally bounded by an inclusive date
// range (empty strings mean unbounded).
func (s *SaleStore) TotalRevenue(ctx context.Context, start, end string) (float64, error) {
	var revenue float64
	var err error
	if start != "" && end != "" {
		err = s.db.GetContext(ctx, &revenue,
			`SELECT COALESCE(SUM(total), 0) FROM sales WHERE date >= ? AND date <= ?`, start, end)
	} else {
		err = s.db.GetContext(ctx, &revenue, `SELECT COALESCE(SUM(total), 0) FROM sales`)
	}
	if err != nil {
		return 0, fmt.Errorf("total revenue: %w", err)
	}
	return revenue, nil
}

// PaymentBreakdown summarizes transactions and revenue per payment method
// for an inclusive date range.
type PaymentBreakdown struct {
	Method       string  `db:"payment_method" json:"method"`
	Transactions int64   `db:"transactions" json:"transactions"`
	Revenue      float64 `db:"revenue" json:"revenue"`
}

// PaymentMethodBreakdown groups revenue by payment method, highest first.
func (s *SaleStore) PaymentMethodBreakdown(ctx context.Context, start, end string) ([]PaymentBreakdown, error) {
	out := []PaymentBreakdown{}
	err := s.db.SelectContext(ctx, &out, `
        SELECT payment_method, COUNT(*) AS transactions, COALESCE(SUM(total), 0) AS revenue
        FROM sales
        WHERE date >= ? AND date <= ?
        GROUP BY payment_method
        ORDER BY revenue DESC`, start, end)
	if err != nil {
		return nil, fmt.Errorf("payment breakdown: %w", err)
	}
	return out, nil
}

// DailyRevenue is one day's transaction count and revenue.
type DailyRevenue struct {
	Date         string  `db:"date" json:"date"`
	Transactions int64   `db:"transactions" json:"transactions"`
	Revenue      float64 `db:"revenue" json:"revenue"`
}

// DailyBreakdown groups revenue per day over an inclusive date range.
func (s *SaleStore) DailyBreakdown(ctx context.Context, start, end string) ([]DailyRevenue, error) {
	out := []DailyRevenue{}
	err := s.db.SelectContext(ctx, &out, `
        SELECT date, COUNT(*) AS transactions, COALESCE(SUM(total), 0) AS revenue
        FROM sales
        WHERE date >= ? AND date <= ?
        GROUP BY date
        ORDER BY date ASC`, start, end)
	if err != nil {
		return nil, fmt.Errorf("daily breakdown: %w", err)
	}
	return out, nil
}

func (s *SaleStore) fromRow(row saleRow) (*domain.Sale, error) {
	sale := row.Sale
	if row.ItemsJSON != "" {
		if err := json.Unmarshal([]byte(row.ItemsJSON), &sale.Items); err != nil {
			return nil, fmt.Errorf("decode items for sale %d: %w", sale.ID, err)
		}
	}
	return &sale, nil
}

func (s *SaleStore) fromRows(rows []saleRow) ([]domain.Sale, error) {
	sales := make([]domain.Sale, 0, len(rows))
	for _, row := range rows {
		sale, err := s.fromRow(row)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
	}
	return sales, nil
}
