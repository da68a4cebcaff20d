// Package sqlite provides the SQLite-backed catalog.Catalog implementation.
//
// The catalog tables are owned by the admin tooling; this adapter only reads
// them. The schema is still applied on startup with IF NOT EXISTS so a fresh
// database comes up in a usable state.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/teamwear/storefront/internal/catalog"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    name            TEXT    NOT NULL,
    collection_name TEXT    NOT NULL DEFAULT '',
    image_url       TEXT    NOT NULL DEFAULT '',

    -- JSON array of size codes, e.g. ["AS","AM","AL","2X"].
    available_sizes TEXT    NOT NULL DEFAULT '[]',

    -- Inactive products are hidden from the storefront but kept for
    -- historical order references.
    active          INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS product_variants (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    product_id    INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
    category_id   INTEGER NOT NULL,
    category_name TEXT    NOT NULL DEFAULT '',
    color_id      INTEGER NOT NULL DEFAULT 0,
    color_name    TEXT    NOT NULL DEFAULT '',

    -- Decimal stored as TEXT; SQLite REAL would lose cents.
    price         TEXT    NOT NULL DEFAULT '0.00'
);

CREATE INDEX IF NOT EXISTS idx_product_variants_product_id
    ON product_variants(product_id);
`

// Repository reads products and variants from SQLite.
type Repository struct {
	db *sql.DB
}

var _ catalog.Catalog = (*Repository)(nil)

// New wraps an open database handle and ensures the catalog tables exist.
func New(db *sql.DB) (*Repository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlite: apply catalog schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// GetProduct returns an active product with its variants, or
// catalog.ErrProductNotFound when the product is absent or inactive.
func (r *Repository) GetProduct(ctx context.Context, id int64) (*catalog.Product, error) {
	const q = `
		SELECT name, collection_name, image_url, available_sizes
		FROM   products
		WHERE  id = ? AND active = 1`

	var p catalog.Product
	var sizesJSON string
	err := r.db.QueryRowContext(ctx, q, id).Scan(&p.Name, &p.CollectionName, &p.ImageURL, &sizesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get product %d: %w", id, err)
	}
	p.ID = id

	if err := json.Unmarshal([]byte(sizesJSON), &p.AvailableSizes); err != nil {
		return nil, fmt.Errorf("sqlite: product %d has malformed sizes %q: %w", id, sizesJSON, err)
	}

	p.Variants, err = r.variants(ctx, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) variants(ctx context.Context, productID int64) ([]catalog.Variant, error) {
	const q = `
		SELECT category_id, category_name, color_id, color_name, price
		FROM   product_variants
		WHERE  product_id = ?
		ORDER  BY id`

	rows, err := r.db.QueryContext(ctx, q, productID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: variants for product %d: %w", productID, err)
	}
	defer rows.Close()

	var out []catalog.Variant
	for rows.Next() {
		var v catalog.Variant
		var price string
		if err := rows.Scan(&v.CategoryID, &v.CategoryName, &v.ColorID, &v.ColorName, &price); err != nil {
			return nil, fmt.Errorf("sqlite: scan variant: %w", err)
		}
		v.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("sqlite: variant price %q for product %d: %w", price, productID, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
