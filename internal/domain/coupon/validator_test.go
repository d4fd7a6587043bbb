package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	byCode    map[string]*Coupon
	denyUsage bool
}

func (s *stubRepo) FindByCode(_ context.Context, code string) (*Coupon, error) {
	c, ok := s.byCode[code]
	if !ok {
		return nil, ErrInvalidCoupon
	}
	cp := *c
	return &cp, nil
}

func (s *stubRepo) IncrementUsage(_ context.Context, _ string) (bool, error) {
	return !s.denyUsage, nil
}

func validCoupon() *Coupon {
	return &Coupon{
		ID:         "c1",
		Code:       "SAVE10",
		Type:       TypePercentage,
		Value:      decimal.NewFromInt(10),
		UsageLimit: 100,
		UsedCount:  0,
		ValidFrom:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidUntil: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive:   true,
	}
}

func newValidator(c *Coupon) (*RepoValidator, *stubRepo) {
	repo := &stubRepo{byCode: map[string]*Coupon{}}
	if c != nil {
		repo.byCode[c.Code] = c
	}
	v := NewRepoValidator(repo)
	v.now = func() time.Time {
		return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	}
	return v, repo
}

func TestResolve(t *testing.T) {
	subtotal := decimal.NewFromInt(5000)

	tests := []struct {
		name    string
		mutate  func(*Coupon)
		code    string
		wantErr error
	}{
		{name: "valid", code: "SAVE10"},
		{name: "case insensitive", code: "  save10 "},
		{name: "unknown code", code: "NOPE", wantErr: ErrInvalidCoupon},
		{
			name:    "inactive",
			code:    "SAVE10",
			mutate:  func(c *Coupon) { c.IsActive = false },
			wantErr: ErrInvalidCoupon,
		},
		{
			name:    "not yet valid",
			code:    "SAVE10",
			mutate:  func(c *Coupon) { c.ValidFrom = time.Date(2029, 1, 1, 0, 0, 0, 0, time.UTC) },
			wantErr: ErrInvalidCoupon,
		},
		{
			name:    "expired",
			code:    "SAVE10",
			mutate:  func(c *Coupon) { c.ValidUntil = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) },
			wantErr: ErrInvalidCoupon,
		},
		{
			name:    "exhausted",
			code:    "SAVE10",
			mutate:  func(c *Coupon) { c.UsedCount = c.UsageLimit },
			wantErr: ErrExhausted,
		},
		{
			name:   "zero limit is unlimited",
			code:   "SAVE10",
			mutate: func(c *Coupon) { c.UsageLimit = 0; c.UsedCount = 1_000_000 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCoupon()
			if tt.mutate != nil {
				tt.mutate(c)
			}
			v, _ := newValidator(c)

			got, err := v.Resolve(context.Background(), tt.code, subtotal)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "c1", got.ID)
		})
	}
}

func TestResolve_MinimumAmount(t *testing.T) {
	c := validCoupon()
	c.MinimumAmount = decimal.NewFromInt(2000)
	v, _ := newValidator(c)

	_, err := v.Resolve(context.Background(), "SAVE10", decimal.NewFromInt(1999))
	var minErr *MinimumAmountError
	require.ErrorAs(t, err, &minErr)
	assert.Equal(t, "SAVE10", minErr.Code)
	assert.True(t, decimal.NewFromInt(2000).Equal(minErr.Minimum))

	// Exactly at the minimum is fine.
	_, err = v.Resolve(context.Background(), "SAVE10", decimal.NewFromInt(2000))
	require.NoError(t, err)
}

func TestRedeem(t *testing.T) {
	v, repo := newValidator(validCoupon())

	ok, err := v.Redeem(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, ok)

	repo.denyUsage = true
	ok, err = v.Redeem(context.Background(), "c1")
	require.NoError(t, err)
	assert.False(t, ok, "a concurrently exhausted coupon must not redeem")
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "HAPPYHRS", Normalize("  happyHrs\t"))
}
