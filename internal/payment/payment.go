// Package payment defines the port to the hosted payment processor.
//
// The storefront never charges cards itself: checkout creates a hosted
// session with the processor and redirects the customer there. The only
// correlating value we hand over is the order token in the session metadata;
// the processor is not trusted with pricing logic and the token keeps the
// tampering surface minimal.
package payment

import (
	"context"
	"errors"
)

// MetadataOrderID is the metadata key carrying the order token.
const MetadataOrderID = "order_id"

// ErrSessionNotFound is returned when the processor does not know the
// session ID (expired or bogus).
var ErrSessionNotFound = errors.New("payment: session not found")

// SessionLineItem is one display line on the hosted checkout page.
// UnitAmount is in minor currency units (cents).
type SessionLineItem struct {
	Name        string
	Description string
	UnitAmount  int64
	Quantity    int
	ImageURL    string
}

// CreateSessionParams is the input to CreateSession.
type CreateSessionParams struct {
	LineItems     []SessionLineItem
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	OrderID       string
}

// Session is a hosted checkout session as the processor reports it.
type Session struct {
	ID       string
	URL      string
	Metadata map[string]string
}

// OrderID extracts the order token from the session metadata.
func (s *Session) OrderID() string {
	return s.Metadata[MetadataOrderID]
}

// Processor creates and retrieves hosted checkout sessions.
type Processor interface {
	CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (*Session, error)
}
