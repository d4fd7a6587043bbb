package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validator resolves a coupon code against an order subtotal and later
// consumes a redemption. Resolve does not touch the usage counter; the order
// pipeline calls Redeem only after all other validation passed.
type Validator interface {
	Resolve(ctx context.Context, code string, subtotal decimal.Decimal) (*Coupon, error)

	// Redeem consumes one redemption. It reports false when the coupon was
	// exhausted by a concurrent order.
	Redeem(ctx context.Context, id string) (bool, error)
}

// RepoValidator implements Validator over a Repository.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Resolve looks up the coupon by normalized code and checks activity, the
// validity window, remaining redemptions, and the minimum order amount.
//
// Error contract: ErrInvalidCoupon (unknown/inactive/expired), ErrExhausted
// (no redemptions left), *MinimumAmountError (subtotal too small).
func (v *RepoValidator) Resolve(ctx context.Context, code string, subtotal decimal.Decimal) (*Coupon, error) {
	c, err := v.repo.FindByCode(ctx, Normalize(code))
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if !c.UsableAt(v.now()) {
		return nil, ErrInvalidCoupon
	}
	if !c.Remaining() {
		return nil, ErrExhausted
	}
	if subtotal.LessThan(c.MinimumAmount) {
		return nil, &MinimumAmountError{Code: c.Code, Minimum: c.MinimumAmount}
	}

	return c, nil
}

// Redeem atomically consumes one redemption via the repository's guarded
// increment.
func (v *RepoValidator) Redeem(ctx context.Context, id string) (bool, error) {
	return v.repo.IncrementUsage(ctx, id)
}
