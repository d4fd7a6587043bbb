package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/glamlocks/storefront/internal/domain/product"
)

const (
	productColumns = `id, name, description, brand, category, sku, price, compare_price,
		stock, track_quantity, status, variants, rating, review_count`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	// The guard and the stock/status invariant both live in this statement:
	// quantity-tracked rows only match while stock covers the quantity, and a
	// row drained to zero flips to out_of_stock in the same update.
	decrementStockSQL = `UPDATE products
		SET stock = stock - $2,
		    status = CASE
		        WHEN track_quantity AND stock - $2 <= 0 THEN 'out_of_stock'
		        ELSE status
		    END
		WHERE id = $1 AND (NOT track_quantity OR stock >= $2)`

	updateRatingSQL = `UPDATE products SET rating = $2, review_count = $3 WHERE id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// DecrementStock atomically decrements stock by qty while the row can cover
// it. Reports false when the guard fails and the row was left untouched.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, qty int) (bool, error) {
	tag, err := r.pool.Exec(ctx, decrementStockSQL, id, qty)
	if err != nil {
		return false, fmt.Errorf("decrementing stock for %q: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateRating writes the derived rating fields onto the product row.
func (r *ProductRepository) UpdateRating(ctx context.Context, id string, rating decimal.Decimal, reviewCount int) error {
	_, err := r.pool.Exec(ctx, updateRatingSQL, id, rating, reviewCount)
	if err != nil {
		return fmt.Errorf("updating rating for %q: %w", id, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p        product.Product
		variants []byte
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Brand, &p.Category, &p.SKU,
		&p.Price, &p.ComparePrice, &p.Stock, &p.TrackQuantity, &p.Status,
		&variants, &p.Rating, &p.ReviewCount,
	)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(variants, &p.Variants); err != nil {
		return p, fmt.Errorf("unmarshaling variants for %q: %w", p.ID, err)
	}
	return p, nil
}
