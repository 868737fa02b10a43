package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Item is one row of the latest-state item table. The json shape is the
// REST store's column set; brand is a Postgres-only column and reaches the
// REST store inside data.
type Item struct {
	VendorItemID string          `json:"vendor_item_id" db:"vendor_item_id"`
	ItemURL      string          `json:"item_url" db:"item_url"`
	Brand        string          `json:"-" db:"brand"`
	PriceValue   *float64        `json:"price_value" db:"price_value"`
	PriceText    string          `json:"price_text" db:"price_text"`
	Availability json.RawMessage `json:"availability" db:"availability"`
	Discontinued bool            `json:"discontinued" db:"discontinued"`
	Data         json.RawMessage `json:"data" db:"data"`
	CreatedAt    time.Time       `json:"-" db:"created_at"`
	UpdatedAt    time.Time       `json:"-" db:"updated_at"`
}

var ErrItemNotFound = errors.New("item not found")

// ItemRepository upserts items keyed by vendor_item_id.
type ItemRepository struct {
	db    *DB
	table string
}

func NewItemRepository(db *DB, table string) (*ItemRepository, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}
	return &ItemRepository{db: db, table: table}, nil
}

// UpsertWithTx merges item into the table within tx. It reports whether the
// row was newly inserted.
func (r *ItemRepository) UpsertWithTx(ctx context.Context, tx pgx.Tx, item *Item) (bool, error) {
	if item.VendorItemID == "" {
		return false, fmt.Errorf("vendor_item_id is required")
	}

	query := `
		INSERT INTO ` + r.table + ` (
			vendor_item_id, item_url, brand, price_value, price_text,
			availability, discontinued, data, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW()
		)
		ON CONFLICT (vendor_item_id) DO UPDATE SET
			item_url = EXCLUDED.item_url,
			brand = EXCLUDED.brand,
			price_value = EXCLUDED.price_value,
			price_text = EXCLUDED.price_text,
			availability = EXCLUDED.availability,
			discontinued = EXCLUDED.discontinued,
			data = EXCLUDED.data,
			updated_at = NOW()
		RETURNING (xmax = 0), created_at, updated_at`

	var inserted bool
	err := tx.QueryRow(ctx, query,
		item.VendorItemID, item.ItemURL, nullIfEmpty(item.Brand), item.PriceValue, item.PriceText,
		jsonOrEmpty(item.Availability), item.Discontinued, jsonOrEmpty(item.Data),
	).Scan(&inserted, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to upsert item: %w", err)
	}

	return inserted, nil
}

// Get loads one item by its vendor id.
func (r *ItemRepository) Get(ctx context.Context, vendorItemID string) (*Item, error) {
	query := `
		SELECT vendor_item_id, item_url, COALESCE(brand, ''), price_value, COALESCE(price_text, ''),
			availability, discontinued, data, created_at, updated_at
		FROM ` + r.table + `
		WHERE vendor_item_id = $1`

	item := &Item{}
	err := r.db.pool.QueryRow(ctx, query, vendorItemID).Scan(
		&item.VendorItemID, &item.ItemURL, &item.Brand, &item.PriceValue, &item.PriceText,
		&item.Availability, &item.Discontinued, &item.Data, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return item, nil
}

// Count returns the number of stored items.
func (r *ItemRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+r.table).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func jsonOrEmpty(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}
