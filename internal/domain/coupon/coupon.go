package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported coupon discount strategies.
type Type string

const (
	// TypePercentage applies a percentage of the subtotal, optionally capped
	// by MaximumDiscount.
	TypePercentage Type = "percentage"
	// TypeFixed subtracts a fixed amount from the subtotal.
	TypeFixed Type = "fixed"
)

var (
	// ErrInvalidCoupon is returned when a coupon code is not found, inactive,
	// or outside its validity window.
	ErrInvalidCoupon = errors.New("invalid or expired coupon code")
	// ErrExhausted is returned when a coupon has no redemptions left.
	ErrExhausted = errors.New("coupon usage limit reached")
)

// MinimumAmountError indicates the order subtotal is below the coupon's
// minimum purchase requirement.
type MinimumAmountError struct {
	Code    string
	Minimum decimal.Decimal
}

func (e *MinimumAmountError) Error() string {
	return "minimum order amount for coupon " + e.Code + " is " + e.Minimum.String()
}

// Coupon defines a discount rule and its eligibility constraints.
type Coupon struct {
	ID          string
	Code        string
	Description string
	Type        Type
	Value       decimal.Decimal
	// MinimumAmount is the smallest subtotal the coupon applies to.
	MinimumAmount decimal.Decimal
	// MaximumDiscount caps the computed discount for percentage coupons.
	// A zero value means no cap.
	MaximumDiscount decimal.Decimal
	// UsageLimit is the total number of allowed redemptions; zero means
	// unlimited.
	UsageLimit int
	UsedCount  int
	ValidFrom  time.Time
	ValidUntil time.Time
	IsActive   bool
}

// Normalize returns the canonical form of a coupon code: trimmed and
// upper-cased. Codes are matched case-insensitively everywhere.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// UsableAt reports whether the coupon can be redeemed at the given instant,
// ignoring order-specific constraints.
func (c *Coupon) UsableAt(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		return false
	}
	return true
}

// Remaining reports whether the coupon still has redemptions left.
func (c *Coupon) Remaining() bool {
	return c.UsageLimit == 0 || c.UsedCount < c.UsageLimit
}

// Repository provides lookup and redemption of coupons.
type Repository interface {
	// FindByCode looks up an active coupon by its normalized code.
	// Returns ErrInvalidCoupon when no such coupon exists.
	FindByCode(ctx context.Context, code string) (*Coupon, error)

	// IncrementUsage atomically increments the usage counter while
	// used_count < usage_limit (or the limit is zero). It reports false when
	// the guard fails, which callers must treat as ErrExhausted.
	IncrementUsage(ctx context.Context, id string) (bool, error)
}
