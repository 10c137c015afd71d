package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
)

// SettingsStore is a key/value store for store-wide configuration such as
// the default tax rate and alert thresholds.
type SettingsStore struct {
	db *sqlx.DB
}

// NewSettingsStore constructs a SettingsStore.
func NewSettingsStore(db *sqlx.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Setting is one configuration entry.
type Setting struct {
	Key         string  `db:"key" json:"key"`
	Value       string  `db:"value" json:"value"`
	Description *string `db:"description" json:"description,omitempty"`
	UpdatedAt   string  `db:"updated_at" json:"updated_at"`
}

// Get returns the raw value for a key, or ErrNotFound.
func (s *SettingsStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

// GetFloat returns the value for a key parsed as float64, or the default
// when the key is absent or malformed.
func (s *SettingsStore) GetFloat(ctx context.Context, key string, def float64) float64 {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

// GetInt returns the value for a key parsed as int64, or the default when
// the key is absent or malformed.
func (s *SettingsStore) GetInt(ctx context.Context, key string, def int64) int64 {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}

// Set upserts a setting value, keeping any existing description.
func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO settings (key, value) VALUES (?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// All returns every setting ordered by key.
func (s *SettingsStore) All(ctx context.Context) ([]Setting, error) {
	out := []Setting{}
	if err := s.db.SelectContext(ctx, &out, `SELECT * FROM settings ORDER BY key ASC`); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return out, nil
}
