// Package sqlite provides the SQLite-backed orderlog.Repository.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/teamwear/storefront/internal/orderlog"
)

const schema = `
CREATE TABLE IF NOT EXISTS order_logs (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,

    -- Not UNIQUE: several rows exist per order, one per transition.
    order_id   TEXT NOT NULL,

    event      TEXT NOT NULL,
    detail     TEXT NOT NULL DEFAULT '',

    -- W3C identifiers of the active OTel span, for jumping from a row to
    -- the full trace.
    trace_id   TEXT NOT NULL DEFAULT '',
    span_id    TEXT NOT NULL DEFAULT '',

    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_logs_order_id ON order_logs(order_id, created_at);
`

// Repository appends entries to the order_logs table.
type Repository struct {
	db *sql.DB
}

var _ orderlog.Repository = (*Repository)(nil)

// New wraps an open handle (shared with the order repository) and applies
// the schema.
func New(db *sql.DB) (*Repository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlite: apply order_logs schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// Save inserts a new entry. Safe to call concurrently.
func (r *Repository) Save(ctx context.Context, e *orderlog.Entry) error {
	const q = `
		INSERT INTO order_logs (order_id, event, detail, trace_id, span_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		e.OrderID,
		string(e.Event),
		e.Detail,
		e.TraceID,
		e.SpanID,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save order log for %q: %w", e.OrderID, err)
	}
	return nil
}
