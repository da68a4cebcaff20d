// Package reconcile finalizes pending orders once payment is confirmed.
//
// Confirmation arrives over two independent channels that race: the
// customer's success redirect (carrying a session ID) and the processor's
// signed webhook (carrying the order token). Both funnel into Finalize, the
// one-way PENDING_UNPAID -> PAID transition. The exactly-once guarantee lives
// in the storage layer's conditional update, not here: whichever channel
// reaches it first wins, the other observes order.ErrAlreadyFinalized and
// treats it as a normal outcome.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/teamwear/storefront/internal/notify"
	"github.com/teamwear/storefront/internal/order"
	"github.com/teamwear/storefront/internal/orderlog"
	"github.com/teamwear/storefront/internal/payment"
)

// Service drives the finalize transition and the follow-up notification.
type Service struct {
	orders    order.Repository
	processor payment.Processor
	notifier  notify.Gateway
	log       orderlog.Repository // nil-safe: lifecycle logging skipped if nil
}

func NewService(orders order.Repository, processor payment.Processor, notifier notify.Gateway, log orderlog.Repository) *Service {
	return &Service{
		orders:    orders,
		processor: processor,
		notifier:  notifier,
		log:       log,
	}
}

// Finalize flips the order to paid and materializes its items, exactly once.
//
// Returns the finalized order, order.ErrAlreadyFinalized when another
// channel got there first (or the same event was redelivered), or
// order.ErrNotFound for unknown tokens.
func (s *Service) Finalize(ctx context.Context, orderID string) (*order.Order, error) {
	o, err := s.orders.Finalize(ctx, orderID)
	if errors.Is(err, order.ErrAlreadyFinalized) {
		slog.InfoContext(ctx, "duplicate payment confirmation ignored", "order_id", orderID)
		s.logEvent(ctx, orderID, orderlog.EventDuplicateConfirmation, nil)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, orderID, orderlog.EventFinalized, map[string]any{
		"items": len(o.Items),
		"total": o.Total().StringFixed(2),
	})
	slog.InfoContext(ctx, "order finalized",
		"order_id", o.ID,
		"items", len(o.Items),
		"total", o.Total().StringFixed(2),
	)

	// Best effort only. A failed email must never make the confirmation
	// look failed to the processor, or it would redeliver an event for an
	// already-successful payment.
	if err := s.notifier.OrderPaid(ctx, o); err != nil {
		slog.ErrorContext(ctx, "order notification failed", "order_id", o.ID, "error", err)
	}

	return o, nil
}

// FinalizeBySession handles the success-redirect path: the browser comes
// back with only a payment-session reference, which the processor resolves
// to the order token.
func (s *Service) FinalizeBySession(ctx context.Context, sessionID string) (*order.Order, error) {
	session, err := s.processor.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("reconcile: resolve session %s: %w", sessionID, err)
	}

	orderID := session.OrderID()
	if orderID == "" {
		return nil, fmt.Errorf("reconcile: session %s carries no order token: %w", sessionID, order.ErrNotFound)
	}
	return s.Finalize(ctx, orderID)
}

func (s *Service) logEvent(ctx context.Context, orderID string, event orderlog.Event, detail any) {
	if s.log == nil {
		return
	}
	if err := s.log.Save(ctx, orderlog.NewEntry(ctx, orderID, event, detail)); err != nil {
		slog.WarnContext(ctx, "order log write failed", "order_id", orderID, "event", string(event), "error", err)
	}
}
