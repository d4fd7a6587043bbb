package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glamlocks/storefront/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT id, code, description, type, value, minimum_amount,
		maximum_discount, usage_limit, used_count, valid_from, valid_until, active
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	// The redemption guard is the WHERE clause: concurrent orders racing for
	// the last use see at most one row update.
	incrementUsageSQL = `UPDATE coupons SET used_count = used_count + 1
		WHERE id = $1 AND (usage_limit = 0 OR used_count < usage_limit)`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive).
// Returns coupon.ErrInvalidCoupon when no matching coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalidCoupon
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// IncrementUsage atomically consumes one redemption. Reports false when the
// coupon is already exhausted.
func (r *CouponRepository) IncrementUsage(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, incrementUsageSQL, id)
	if err != nil {
		return false, fmt.Errorf("incrementing usage for coupon %q: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &c.Type, &c.Value, &c.MinimumAmount,
		&c.MaximumDiscount, &c.UsageLimit, &c.UsedCount, &c.ValidFrom,
		&c.ValidUntil, &c.IsActive,
	)
	return c, err
}
