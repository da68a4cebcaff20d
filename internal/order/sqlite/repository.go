// Package sqlite implements order.Repository on SQLite.
//
// WAL mode is enabled on Open so readers never block the writer; the two
// reconciliation triggers (success redirect and webhook) may hit Finalize for
// the same order at the same time, and the conditional UPDATE below is what
// guarantees only one of them materializes the order items.
//
// We use modernc.org/sqlite instead of mattn/go-sqlite3 to avoid CGO
// requirements, making it easier to build and run in Docker (Alpine).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/teamwear/storefront/internal/order"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    -- Unguessable order token. This, and only this, is handed to the
    -- payment processor as correlating metadata.
    id                 TEXT PRIMARY KEY,

    customer_name      TEXT    NOT NULL DEFAULT '',
    customer_email     TEXT    NOT NULL DEFAULT '',

    -- 0 while the order awaits payment confirmation.
    paid               INTEGER NOT NULL DEFAULT 0,

    -- JSON snapshot of the validated, repriced cart captured at checkout.
    -- Cleared (set to '') by the finalize transition; while non-empty and
    -- unpaid it is the sole source of truth for the order's contents.
    pending_items      TEXT    NOT NULL DEFAULT '',

    -- Hosted checkout session ID, set once the processor session exists.
    -- Empty on orphaned rows where session creation failed.
    payment_session_id TEXT    NOT NULL DEFAULT '',

    -- RFC3339 stored as TEXT, SQLite idiom.
    created_at         TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS order_items (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id      TEXT    NOT NULL REFERENCES orders(id),
    product_id    INTEGER NOT NULL,
    product_name  TEXT    NOT NULL,
    color_name    TEXT    NOT NULL DEFAULT '',
    category_name TEXT    NOT NULL DEFAULT '',
    size_code     TEXT    NOT NULL,
    quantity      INTEGER NOT NULL,
    unit_cost     TEXT    NOT NULL,
    customization TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
`

// Repository is the SQLite implementation of order.Repository.
type Repository struct {
	db *sql.DB
}

var _ order.Repository = (*Repository)(nil)

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection. This also makes
	// the Finalize transaction serialize naturally under concurrency.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply orders schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// New wraps an already-open handle (shared with the catalog adapter) and
// applies the orders schema.
func New(db *sql.DB) (*Repository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlite: apply orders schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// DB exposes the underlying handle so other adapters can share it.
func (r *Repository) DB() *sql.DB { return r.db }

// Close releases the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// CreatePending inserts the unpaid order with its serialized snapshot.
func (r *Repository) CreatePending(ctx context.Context, po *order.PendingOrder) error {
	snapshot, err := json.Marshal(po.PendingItems)
	if err != nil {
		return fmt.Errorf("sqlite: marshal snapshot for %q: %w", po.ID, err)
	}

	const q = `
		INSERT INTO orders (id, customer_name, customer_email, paid, pending_items, payment_session_id, created_at)
		VALUES (?, ?, ?, 0, ?, '', ?)`

	_, err = r.db.ExecContext(ctx, q,
		po.ID,
		po.CustomerName,
		po.CustomerEmail,
		string(snapshot),
		po.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: create pending order %q: %w", po.ID, err)
	}
	return nil
}

// SetPaymentSession records the hosted session ID once the processor call
// succeeded.
func (r *Repository) SetPaymentSession(ctx context.Context, orderID, sessionID string) error {
	const q = `UPDATE orders SET payment_session_id = ? WHERE id = ?`

	res, err := r.db.ExecContext(ctx, q, sessionID, orderID)
	if err != nil {
		return fmt.Errorf("sqlite: set payment session for %q: %w", orderID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return order.ErrNotFound
	}
	return nil
}

// GetPending loads an order row with its snapshot.
func (r *Repository) GetPending(ctx context.Context, orderID string) (*order.PendingOrder, error) {
	const q = `
		SELECT customer_name, customer_email, paid, pending_items, payment_session_id, created_at
		FROM   orders
		WHERE  id = ?`

	var po order.PendingOrder
	var paid int
	var snapshot, createdAt string
	err := r.db.QueryRowContext(ctx, q, orderID).Scan(
		&po.CustomerName, &po.CustomerEmail, &paid, &snapshot, &po.PaymentSessionID, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get pending order %q: %w", orderID, err)
	}

	po.ID = orderID
	po.Paid = paid != 0
	if snapshot != "" {
		if err := json.Unmarshal([]byte(snapshot), &po.PendingItems); err != nil {
			return nil, fmt.Errorf("sqlite: malformed snapshot for %q: %w", orderID, err)
		}
	}
	po.CreatedAt, err = parseRFC3339(createdAt)
	if err != nil {
		return nil, err
	}
	return &po, nil
}

// Finalize applies the paid transition exactly once.
//
// The conditional UPDATE keyed on "still unpaid, snapshot still present" is
// the atomic primitive: whichever confirmation channel runs it first wins,
// the other sees zero affected rows and gets ErrAlreadyFinalized.
func (r *Repository) Finalize(ctx context.Context, orderID string) (*order.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin finalize tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const sel = `
		SELECT customer_name, customer_email, paid, pending_items, created_at
		FROM   orders
		WHERE  id = ?`

	var o order.Order
	var paid int
	var snapshot, createdAt string
	err = tx.QueryRowContext(ctx, sel, orderID).Scan(
		&o.CustomerName, &o.CustomerEmail, &paid, &snapshot, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: load order %q for finalize: %w", orderID, err)
	}

	const upd = `
		UPDATE orders
		SET    paid = 1, pending_items = ''
		WHERE  id = ? AND paid = 0 AND pending_items <> ''`

	res, err := tx.ExecContext(ctx, upd, orderID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: finalize order %q: %w", orderID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Row exists but is no longer in the unpaid-with-snapshot state.
		return nil, order.ErrAlreadyFinalized
	}

	var items []order.LineItem
	if err := json.Unmarshal([]byte(snapshot), &items); err != nil {
		return nil, fmt.Errorf("sqlite: malformed snapshot for %q: %w", orderID, err)
	}

	const ins = `
		INSERT INTO order_items
			(order_id, product_id, product_name, color_name, category_name, size_code, quantity, unit_cost, customization)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, item := range items {
		_, err := tx.ExecContext(ctx, ins,
			orderID,
			item.ProductID,
			item.ProductName,
			item.ColorName,
			item.CategoryName,
			item.SizeCode,
			item.Quantity,
			item.UnitCost.StringFixed(2),
			item.Customization,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: materialize item for %q: %w", orderID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: commit finalize for %q: %w", orderID, err)
	}

	o.ID = orderID
	o.Items = items
	o.CreatedAt, err = parseRFC3339(createdAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// parseRFC3339 reads the timestamps this repository stores as TEXT columns.
func parseRFC3339(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}

// ItemCount returns the number of materialized item rows for an order.
// Used by tests and the admin export tooling.
func (r *Repository) ItemCount(ctx context.Context, orderID string) (int, error) {
	const q = `SELECT COUNT(*) FROM order_items WHERE order_id = ?`

	var n int
	if err := r.db.QueryRowContext(ctx, q, orderID).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count items for %q: %w", orderID, err)
	}
	return n, nil
}
