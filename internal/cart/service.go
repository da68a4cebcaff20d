package cart

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/teamwear/storefront/internal/catalog"
	"github.com/teamwear/storefront/internal/pricing"
)

// Service implements the cart operations on top of a Store and the catalog.
type Service struct {
	store   Store
	catalog catalog.Catalog
}

func NewService(store Store, cat catalog.Catalog) *Service {
	return &Service{store: store, catalog: cat}
}

// AddRequest carries the customer's add-to-cart input. CategoryID and
// Customization are optional.
type AddRequest struct {
	ProductID     int64
	SizeCode      string
	Quantity      int
	CategoryID    int64
	Customization string
}

// Add resolves the product and appends a line item to the session's cart.
//
// The size code is deliberately not validated here: a size dropped from the
// catalog between page load and submit should not fail the add, checkout does
// the authoritative check. Unknown or inactive products do fail, there is
// nothing meaningful to snapshot for them.
func (s *Service) Add(ctx context.Context, sessionID string, req AddRequest) (*LineItem, error) {
	if req.Quantity < 1 {
		return nil, ErrEmptyQuantity
	}

	product, err := s.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	variant := product.VariantFor(req.CategoryID)

	item := LineItem{
		ProductID:     product.ID,
		ProductName:   product.Name,
		SizeCode:      req.SizeCode,
		Quantity:      req.Quantity,
		ColorName:     variant.ColorName,
		CategoryID:    variant.CategoryID,
		CategoryName:  variant.CategoryName,
		Customization: req.Customization,
		UnitPrice:     variant.Price,
	}

	c, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c.Items = append(c.Items, item)

	if err := s.store.Save(ctx, sessionID, c); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "cart item added",
		"session_id", sessionID,
		"product_id", item.ProductID,
		"size", item.SizeCode,
		"quantity", item.Quantity,
	)
	return &item, nil
}

// Remove deletes the first line item matching productID+sizeCode and reports
// whether anything was removed. Duplicate product/size pairs collapse under
// this key, matching how the storefront UI addresses cart rows.
func (s *Service) Remove(ctx context.Context, sessionID string, productID int64, sizeCode string) (bool, error) {
	c, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}

	for i, item := range c.Items {
		if item.ProductID == productID && item.SizeCode == sizeCode {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			if err := s.store.Save(ctx, sessionID, c); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// Items returns the session's line items in insertion order.
func (s *Service) Items(ctx context.Context, sessionID string) ([]LineItem, error) {
	c, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return c.Items, nil
}

// Clear drops the session's cart.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("cart: clear session %s: %w", sessionID, err)
	}
	return nil
}

// DisplayTotal sums the advisory display prices (base price plus derived
// surcharges) for a cart view. Checkout recomputes everything from the live
// catalog, so this total can go stale without harm.
func DisplayTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		unit := pricing.Quote(item.UnitPrice, item.SizeCode, item.Customization != "")
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total.Round(2)
}
