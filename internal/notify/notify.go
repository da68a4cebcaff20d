// Package notify sends the shop an order-confirmation message once payment
// is recognized. Strictly fire-and-forget: a failed notification is logged
// and never rolls back or re-reports the finalize transition, because the
// money has already moved.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teamwear/storefront/internal/catalog"
	"github.com/teamwear/storefront/internal/order"
)

// Gateway delivers order confirmations.
type Gateway interface {
	OrderPaid(ctx context.Context, o *order.Order) error
}

// LogGateway writes confirmations to the structured log. Used in development
// and as the fallback when no SMTP relay is configured.
type LogGateway struct{}

var _ Gateway = LogGateway{}

func (LogGateway) OrderPaid(ctx context.Context, o *order.Order) error {
	slog.InfoContext(ctx, "order paid",
		"order_id", o.ID,
		"customer", o.CustomerName,
		"items", len(o.Items),
		"total", o.Total().StringFixed(2),
	)
	return nil
}

// renderOrder builds the plain-text confirmation body.
func renderOrder(o *order.Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "A new order has been received and paid!\n\n")
	fmt.Fprintf(&b, "Order ID: %s\n", o.ID)
	fmt.Fprintf(&b, "Customer Name: %s\n", o.CustomerName)
	fmt.Fprintf(&b, "Email: %s\n", o.CustomerEmail)
	fmt.Fprintf(&b, "Order Date: %s\n\n", o.CreatedAt.Format("January 2, 2006 at 3:04 PM"))
	fmt.Fprintf(&b, "Order Items:\n")

	for _, item := range o.Items {
		color := item.ColorName
		if color == "" {
			color = "N/A"
		}
		category := item.CategoryName
		if category == "" {
			category = "N/A"
		}

		fmt.Fprintf(&b, "  - %s - %s\n", item.ProductName, color)
		fmt.Fprintf(&b, "    Category: %s\n", category)
		fmt.Fprintf(&b, "    Size: %s\n", catalog.SizeLabel(item.SizeCode))
		fmt.Fprintf(&b, "    Quantity: %d\n", item.Quantity)
		fmt.Fprintf(&b, "    Price: $%s each", item.UnitCost.StringFixed(2))
		if item.Customization != "" {
			fmt.Fprintf(&b, " (Back: %s)", item.Customization)
		}
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "Total: $%s\n", o.Total().StringFixed(2))
	return b.String()
}
