package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Status enumerates the publication states of a catalog product.
type Status string

const (
	StatusActive     Status = "active"
	StatusDraft      Status = "draft"
	StatusOutOfStock Status = "out_of_stock"
	StatusArchived   Status = "archived"
)

// Product represents a catalog item available for purchase.
//
// Rating and ReviewCount are derived values: only the review aggregation
// engine writes them, via Repository.UpdateRating.
type Product struct {
	ID            string
	Name          string
	Description   string
	Brand         string
	Category      string
	SKU           string
	Price         decimal.Decimal
	ComparePrice  decimal.Decimal
	Stock         int
	TrackQuantity bool
	Status        Status
	Variants      []Variant
	Rating        decimal.Decimal
	ReviewCount   int
}

// Variant is a sellable variation of a product (size, color) with its own
// price and stock. Stored as a JSON snapshot both on the product and on
// order lines.
type Variant struct {
	Name  string          `json:"name,omitempty"`
	Size  string          `json:"size,omitempty"`
	Color string          `json:"color,omitempty"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
	SKU   string          `json:"sku,omitempty"`
}

// NormalizeStatus enforces the stock/status invariant: a quantity-tracked
// product with no stock is out of stock, and a restocked product flips back
// to active. Called on every path that sets Stock directly; the conditional
// decrement in storage applies the same rule in SQL.
func (p *Product) NormalizeStatus() {
	switch {
	case p.TrackQuantity && p.Stock <= 0:
		p.Status = StatusOutOfStock
	case p.Status == StatusOutOfStock && p.Stock > 0:
		p.Status = StatusActive
	}
}

// Repository defines the catalog store operations consumed by the order and
// review pipelines.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]Product, error)

	// DecrementStock atomically decrements stock by qty, but only while
	// stock >= qty for quantity-tracked products. It reports false when the
	// guard fails, leaving the row untouched. Products that do not track
	// quantity are decremented unconditionally.
	DecrementStock(ctx context.Context, id string, qty int) (bool, error)

	// UpdateRating writes the derived rating fields. Reserved for the review
	// aggregation engine.
	UpdateRating(ctx context.Context, id string, rating decimal.Decimal, reviewCount int) error
}
