// Package orderlog defines a durable audit trail of order lifecycle
// transitions.
//
// Each entry is an immutable event: checkout started, payment session created
// or failed, order finalized, duplicate confirmation observed. Two uses:
//
//  1. Observability: join an order to its distributed trace via the trace_id
//     column and see exactly which channel confirmed it.
//
//  2. Operations: orphaned pending orders (session creation failed after the
//     row was persisted) show up as SESSION_FAILED entries, which is what an
//     external cleanup sweep keys on.
package orderlog

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Event is one kind of lifecycle transition.
type Event string

const (
	EventCheckoutStarted       Event = "CHECKOUT_STARTED"
	EventSessionCreated        Event = "SESSION_CREATED"
	EventSessionFailed         Event = "SESSION_FAILED"
	EventFinalized             Event = "FINALIZED"
	EventDuplicateConfirmation Event = "DUPLICATE_CONFIRMATION"
)

// Entry is a single row in the order_logs table.
type Entry struct {
	// OrderID joins the entry with the orders table.
	OrderID string

	// Event is the transition being recorded.
	Event Event

	// Detail carries free-form context: the confirmation channel, the
	// processor error for SESSION_FAILED rows, the session ID.
	Detail string

	// TraceID / SpanID are the W3C identifiers of the OTel span active when
	// the entry was written. Empty when no span is in the context.
	TraceID string
	SpanID  string

	CreatedAt time.Time
}

// Repository persists entries. Append-only; there is no update or delete.
type Repository interface {
	Save(ctx context.Context, e *Entry) error
}

// NewEntry builds an Entry with trace identifiers extracted from ctx.
// detail may be any JSON-marshalable value; marshal failures degrade to an
// empty detail rather than blocking the write.
func NewEntry(ctx context.Context, orderID string, event Event, detail any) *Entry {
	e := &Entry{
		OrderID:   orderID,
		Event:     event,
		CreatedAt: time.Now().UTC(),
	}

	if detail != nil {
		if b, err := json.Marshal(detail); err == nil {
			e.Detail = string(b)
		}
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		e.TraceID = sc.TraceID().String()
		e.SpanID = sc.SpanID().String()
	}
	return e
}
