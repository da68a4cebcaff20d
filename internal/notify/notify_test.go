package notify

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/teamwear/storefront/internal/order"
)

func TestRenderOrder(t *testing.T) {
	o := &order.Order{
		ID:            "ord-1",
		CustomerName:  "John Doe",
		CustomerEmail: "john@test.com",
		CreatedAt:     time.Date(2026, 3, 14, 15, 4, 0, 0, time.UTC),
		Items: []order.LineItem{
			{
				ProductName:   "Team Shirt",
				ColorName:     "Red",
				CategoryName:  "T-Shirt",
				SizeCode:      "2X",
				Quantity:      1,
				UnitCost:      decimal.RequireFromString("29.00"),
				Customization: "SMITH",
			},
			{
				ProductName: "Team Hoodie",
				SizeCode:    "AL",
				Quantity:    2,
				UnitCost:    decimal.RequireFromString("35.00"),
			},
		},
	}

	body := renderOrder(o)

	assert.Contains(t, body, "Order ID: ord-1")
	assert.Contains(t, body, "Size: Adult 2X")
	assert.Contains(t, body, "(Back: SMITH)")
	assert.Contains(t, body, "Category: N/A") // hoodie has no category snapshot
	assert.Contains(t, body, "Total: $99.00")
}
