// Package catalog defines the read-only port through which the cart and
// checkout consult the product catalog. Catalog administration (product CRUD,
// images, collections) lives outside this service; the pipeline only ever
// needs to resolve a product, its available sizes, and a variant price.
package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrProductNotFound is returned when a product does not exist or is inactive.
// Inactive products are indistinguishable from deleted ones on purpose: both
// must disappear from carts at checkout.
var ErrProductNotFound = errors.New("catalog: product not found")

// Variant is one sellable combination of product, category and color.
type Variant struct {
	CategoryID   int64
	CategoryName string
	ColorID      int64
	ColorName    string
	Price        decimal.Decimal
}

// Product is the catalog view the pipeline needs: identity, the sizes a
// customer may order right now, and the priced variants.
type Product struct {
	ID             int64
	Name           string
	CollectionName string
	ImageURL       string
	AvailableSizes []string
	Variants       []Variant
}

// Catalog resolves products for the cart and checkout.
type Catalog interface {
	// GetProduct returns an active product by id, or ErrProductNotFound.
	GetProduct(ctx context.Context, id int64) (*Product, error)
}

// HasSize reports whether the product currently offers the given size code.
func (p *Product) HasSize(code string) bool {
	for _, s := range p.AvailableSizes {
		if s == code {
			return true
		}
	}
	return false
}

// VariantFor picks the variant used to price a line item: the one matching
// the requested category when given, else the first variant. The zero price
// is returned when the product has no variants at all.
func (p *Product) VariantFor(categoryID int64) Variant {
	if categoryID != 0 {
		for _, v := range p.Variants {
			if v.CategoryID == categoryID {
				return v
			}
		}
	}
	if len(p.Variants) > 0 {
		return p.Variants[0]
	}
	return Variant{Price: decimal.Zero}
}
