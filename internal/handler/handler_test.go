package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/glamlocks/storefront/internal/domain/auth"
	"github.com/glamlocks/storefront/internal/domain/coupon"
	"github.com/glamlocks/storefront/internal/domain/order"
	"github.com/glamlocks/storefront/internal/domain/product"
	"github.com/glamlocks/storefront/internal/domain/review"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID map[string]*product.Product
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) DecrementStock(_ context.Context, id string, qty int) (bool, error) {
	p, ok := m.byID[id]
	if !ok {
		return false, nil
	}
	if p.TrackQuantity && p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	return true, nil
}

func (m *mockProductRepo) UpdateRating(_ context.Context, id string, rating decimal.Decimal, count int) error {
	if p, ok := m.byID[id]; ok {
		p.Rating = rating
		p.ReviewCount = count
	}
	return nil
}

type mockCouponValidator struct {
	coupon *coupon.Coupon
	err    error
}

func (m *mockCouponValidator) Resolve(_ context.Context, _ string, _ decimal.Decimal) (*coupon.Coupon, error) {
	return m.coupon, m.err
}

func (m *mockCouponValidator) Redeem(_ context.Context, _ string) (bool, error) {
	return true, nil
}

type mockOrderRepo struct {
	byID map[string]*order.Order
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.Order) error {
	m.byID[o.ID] = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.byID {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) List(_ context.Context, _ order.Page) ([]order.Order, int, error) {
	var out []order.Order
	for _, o := range m.byID {
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (m *mockOrderRepo) Update(_ context.Context, o *order.Order) error {
	m.byID[o.ID] = o
	return nil
}

func (m *mockOrderRepo) HasDeliveredProduct(_ context.Context, _, _ string) (bool, error) {
	return true, nil
}

type mockAPIKeyRepo struct {
	info *auth.APIKeyInfo
}

func (m *mockAPIKeyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	if m.info == nil || m.info.KeyHash != hash {
		return nil, errors.New("api key not found")
	}
	return m.info, nil
}

type mockReviewRepo struct {
	byID map[string]*review.Review
}

func (m *mockReviewRepo) Create(_ context.Context, r *review.Review) error {
	m.byID[r.ID] = r
	return nil
}

func (m *mockReviewRepo) GetByID(_ context.Context, id string) (*review.Review, error) {
	r, ok := m.byID[id]
	if !ok {
		return nil, review.ErrNotFound
	}
	return r, nil
}

func (m *mockReviewRepo) UpdateContent(_ context.Context, r *review.Review) error {
	m.byID[r.ID] = r
	return nil
}

func (m *mockReviewRepo) Delete(_ context.Context, id string) error {
	delete(m.byID, id)
	return nil
}

func (m *mockReviewRepo) ExistsForUser(_ context.Context, productID, userID string) (bool, error) {
	for _, r := range m.byID {
		if r.ProductID == productID && r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockReviewRepo) ExistsForGuestEmail(_ context.Context, productID, email string) (bool, error) {
	for _, r := range m.byID {
		if r.ProductID == productID && r.UserID == "" && r.GuestEmail == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockReviewRepo) ListApproved(_ context.Context, productID string, _ review.Sort, _ review.Page) ([]review.Review, error) {
	var out []review.Review
	for _, r := range m.byID {
		if r.ProductID == productID && r.Status == review.StatusApproved {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockReviewRepo) ListAdmin(_ context.Context, _ review.AdminFilter) ([]review.Review, int, error) {
	var out []review.Review
	for _, r := range m.byID {
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (m *mockReviewRepo) ApprovedRatingCounts(_ context.Context, productID string) (review.RatingCounts, error) {
	var counts review.RatingCounts
	for _, r := range m.byID {
		if r.ProductID == productID && r.Status == review.StatusApproved {
			counts[r.Rating-1]++
		}
	}
	return counts, nil
}

func (m *mockReviewRepo) ToggleHelpful(_ context.Context, reviewID, userID string) (int, bool, error) {
	r, ok := m.byID[reviewID]
	if !ok {
		return 0, false, review.ErrNotFound
	}
	r.Helpful++
	r.HelpfulUsers = append(r.HelpfulUsers, userID)
	return r.Helpful, true, nil
}

func (m *mockReviewRepo) ToggleLike(_ context.Context, reviewID, userID string) (int, bool, error) {
	r, ok := m.byID[reviewID]
	if !ok {
		return 0, false, review.ErrNotFound
	}
	r.Likes++
	r.LikedUsers = append(r.LikedUsers, userID)
	return r.Likes, true, nil
}

func (m *mockReviewRepo) SetReports(_ context.Context, id string, reports []review.Report, status review.Status) error {
	if r, ok := m.byID[id]; ok {
		r.Reports = reports
		r.Status = status
	}
	return nil
}

func (m *mockReviewRepo) SetStatus(_ context.Context, id string, status review.Status) error {
	if r, ok := m.byID[id]; ok {
		r.Status = status
	}
	return nil
}

func (m *mockReviewRepo) InteractionIDs(_ context.Context, _ string) ([]string, []string, error) {
	return nil, nil, nil
}

// --- Helpers ---

type fixture struct {
	handler  http.Handler
	products *mockProductRepo
	orders   *mockOrderRepo
	reviews  *mockReviewRepo
	coupons  *mockCouponValidator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	products := &mockProductRepo{byID: map[string]*product.Product{
		"p1": {
			ID:            "p1",
			Name:          "Curl Cream",
			Price:         decimal.NewFromInt(100),
			Stock:         10,
			TrackQuantity: true,
			Status:        product.StatusActive,
		},
	}}
	orders := &mockOrderRepo{byID: map[string]*order.Order{}}
	reviews := &mockReviewRepo{byID: map[string]*review.Review{}}
	coupons := &mockCouponValidator{}

	orderSvc := order.NewService(products, coupons, orders, "GLAM")
	reviewSvc := review.NewService(reviews, products, orders, zap.NewNop(), true)
	security := NewSecurity(&mockAPIKeyRepo{}, []byte("pepper"))

	h := NewHandler(products, orderSvc, reviewSvc, security)
	return &fixture{
		handler:  h.Routes(),
		products: products,
		orders:   orders,
		reviews:  reviews,
		coupons:  coupons,
	}
}

func (f *fixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func asUser(id string) map[string]string {
	return map[string]string{"X-User-ID": id}
}

// --- Tests ---

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t)

	body := `{
		"items": [{"productId": "p1", "quantity": 2}],
		"shippingAddress": {"firstName": "Ama", "lastName": "Mensah", "street": "1 Main St", "city": "Accra"},
		"shippingMethod": "standard_48h"
	}`
	rec := f.do(http.MethodPost, "/api/orders", body, asUser("u1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(200), resp["subtotal"])
	assert.Equal(t, float64(3000), resp["shipping"])
	assert.Equal(t, float64(16), resp["tax"])
	assert.Equal(t, float64(3216), resp["total"])
	assert.Equal(t, "pending", resp["status"])
	assert.Equal(t, "pay_on_delivery", resp["paymentMethod"])
	assert.Regexp(t, `^GLAM-\d{8}-[A-Z0-9]{9}$`, resp["orderNumber"])

	// Billing defaults to shipping.
	billing := resp["billingAddress"].(map[string]any)
	assert.Equal(t, "Ama", billing["firstName"])

	assert.Equal(t, 8, f.products.byID["p1"].Stock, "stock was reserved")
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/orders", `{"items": []}`, asUser("u1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceOrder_InvalidCoupon(t *testing.T) {
	f := newFixture(t)
	f.coupons.err = coupon.ErrInvalidCoupon

	body := `{"items": [{"productId": "p1", "quantity": 1}], "couponCode": "NOPE"}`
	rec := f.do(http.MethodPost, "/api/orders", body, asUser("u1"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 10, f.products.byID["p1"].Stock, "stock untouched on rejection")
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	f := newFixture(t)

	body := `{"items": [{"productId": "p1", "quantity": 11}]}`
	rec := f.do(http.MethodPost, "/api/orders", body, asUser("u1"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient stock")
}

func TestPlaceOrder_MalformedBody(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/orders", `{"items": [`, asUser("u1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProduct_NotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/products/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrder_Ownership(t *testing.T) {
	f := newFixture(t)
	f.orders.byID["o1"] = &order.Order{ID: "o1", UserID: "u1"}

	rec := f.do(http.MethodGet, "/api/orders/o1", "", asUser("u2"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodGet, "/api/orders/o1", "", asUser("u1"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/orders/o1", "", map[string]string{
		"X-User-ID": "mod", "X-User-Role": "admin",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutes_RequireRole(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/admin/orders", "", asUser("u1"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodGet, "/api/admin/orders", "", map[string]string{
		"X-User-ID": "mod", "X-User-Role": "admin",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutes_APIKey(t *testing.T) {
	products := &mockProductRepo{byID: map[string]*product.Product{}}
	orders := &mockOrderRepo{byID: map[string]*order.Order{}}
	reviews := &mockReviewRepo{byID: map[string]*review.Review{}}

	pepper := []byte("pepper")
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte("secret-key"))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	security := NewSecurity(&mockAPIKeyRepo{info: &auth.APIKeyInfo{
		ID:      "k1",
		KeyHash: keyHash,
		Name:    "ops",
		Scopes:  []string{"admin"},
	}}, pepper)

	h := NewHandler(products,
		order.NewService(products, &mockCouponValidator{}, orders, "GLAM"),
		review.NewService(reviews, products, orders, zap.NewNop(), true),
		security,
	)
	f := &fixture{handler: h.Routes()}

	rec := f.do(http.MethodGet, "/api/admin/orders", "", map[string]string{"api_key": "secret-key"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/admin/orders", "", map[string]string{"api_key": "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateReview_Guest(t *testing.T) {
	f := newFixture(t)

	body := `{"rating": 5, "title": "Love it", "comment": "Really defines curls.", "guestName": "Fatou"}`
	rec := f.do(http.MethodPost, "/api/products/p1/reviews", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "approved", resp["status"])
	assert.Equal(t, "Fatou", resp["guestName"])
	assert.NotContains(t, rec.Body.String(), "guestEmail", "guest emails are never exposed")
}

func TestCreateReview_Duplicate(t *testing.T) {
	f := newFixture(t)

	body := `{"rating": 5, "title": "Love it", "comment": "Really defines curls."}`
	rec := f.do(http.MethodPost, "/api/products/p1/reviews", body, asUser("u1"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodPost, "/api/products/p1/reviews", body, asUser("u1"))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListReviews_Statistics(t *testing.T) {
	f := newFixture(t)

	for _, tc := range []struct {
		user   string
		rating string
	}{{"u1", "5"}, {"u2", "5"}, {"u3", "4"}} {
		body := `{"rating": ` + tc.rating + `, "title": "t", "comment": "c"}`
		rec := f.do(http.MethodPost, "/api/products/p1/reviews", body, asUser(tc.user))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := f.do(http.MethodGet, "/api/products/p1/reviews?sort=highest", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Total      int `json:"total"`
		Statistics struct {
			AverageRating float64 `json:"averageRating"`
			Distribution  []int   `json:"distribution"`
		} `json:"statistics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	assert.InDelta(t, 4.7, resp.Statistics.AverageRating, 0.001)
	assert.Equal(t, []int{2, 1, 0, 0, 0}, resp.Statistics.Distribution)
}

func TestToggleHelpful_RequiresAuth(t *testing.T) {
	f := newFixture(t)
	f.reviews.byID["r1"] = &review.Review{ID: "r1", ProductID: "p1", Rating: 5}

	rec := f.do(http.MethodPost, "/api/reviews/r1/helpful", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodPost, "/api/reviews/r1/helpful", "", asUser("u1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"helpful": 1, "action": "added"}`, rec.Body.String())
}
