// Package handler implements the HTTP façade over the domain services.
//
// Identity is taken from the X-User-ID and X-User-Role headers set by the
// trusted API gateway; this service never sees end-user credentials. Admin
// automation can alternatively present an api_key header validated against
// HMAC-hashed keys in storage.
package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/glamlocks/storefront/internal/domain/coupon"
	"github.com/glamlocks/storefront/internal/domain/identity"
	"github.com/glamlocks/storefront/internal/domain/order"
	"github.com/glamlocks/storefront/internal/domain/product"
	"github.com/glamlocks/storefront/internal/domain/review"
)

// maxBodyBytes caps request bodies well above any legitimate payload.
const maxBodyBytes = 1 << 20

// Handler exposes the storefront API over net/http, delegating business
// logic to the domain services.
type Handler struct {
	products product.Repository
	orders   *order.Service
	reviews  *review.Service
	security *Security
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	orders *order.Service,
	reviews *review.Service,
	security *Security,
) *Handler {
	return &Handler{
		products: products,
		orders:   orders,
		reviews:  reviews,
		security: security,
	}
}

// Routes registers all API routes on a new ServeMux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)

	mux.HandleFunc("POST /api/orders", h.placeOrder)
	mux.HandleFunc("GET /api/orders/my", h.listMyOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("GET /api/admin/orders", h.requireAdmin(h.listAllOrders))
	mux.HandleFunc("PATCH /api/admin/orders/{id}", h.requireAdmin(h.updateOrderStatus))

	mux.HandleFunc("GET /api/products/{id}/reviews", h.listReviews)
	mux.HandleFunc("POST /api/products/{id}/reviews", h.createReview)
	mux.HandleFunc("PUT /api/reviews/{id}", h.updateReview)
	mux.HandleFunc("DELETE /api/reviews/{id}", h.deleteReview)
	mux.HandleFunc("POST /api/reviews/{id}/helpful", h.toggleHelpful)
	mux.HandleFunc("POST /api/reviews/{id}/like", h.toggleLike)
	mux.HandleFunc("POST /api/reviews/{id}/report", h.reportReview)
	mux.HandleFunc("GET /api/reviews/interactions", h.reviewInteractions)
	mux.HandleFunc("GET /api/admin/reviews", h.requireAdmin(h.listAdminReviews))
	mux.HandleFunc("PATCH /api/admin/reviews/{id}/status", h.requireAdmin(h.setReviewStatus))

	return mux
}

// identityFrom builds the caller identity from the gateway headers.
func identityFrom(r *http.Request) identity.Identity {
	return identity.Identity{
		UserID: r.Header.Get("X-User-ID"),
		Role:   r.Header.Get("X-User-Role"),
	}
}

// requireAdmin guards admin routes: the gateway role header or a valid
// admin-scoped API key.
func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if identityFrom(r).Admin() || h.security.AdminKey(r) {
			next(w, r)
			return
		}
		writeError(w, http.StatusForbidden, "admin access required")
	}
}

// readBody reads at most maxBodyBytes from the request.
func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
}

// pageFrom parses page/limit query parameters, leaving zero values for the
// services to clamp to their defaults.
func pageFrom(r *http.Request) (number, limit int) {
	number, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	return number, limit
}

// writeJSON encodes one value with jx and writes it with the given status.
func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes a {code, message} error body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		})
	})
}

// respondError maps a domain error onto an HTTP status. Unknown errors are
// logged and masked as 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *review.ValidationError
		minAmountErr  *coupon.MinimumAmountError
		notFoundErr   *order.ProductNotFoundError
		quantityErr   *order.InvalidQuantityError
		stockErr      *order.InsufficientStockError
	)

	switch {
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrTerminalStatus),
		errors.Is(err, review.ErrBadStatus),
		errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, review.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, order.ErrForbidden),
		errors.Is(err, review.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())

	case errors.Is(err, review.ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error())

	case errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, coupon.ErrExhausted),
		errors.As(err, &minAmountErr),
		errors.As(err, &notFoundErr),
		errors.As(err, &quantityErr),
		errors.As(err, &stockErr):
		writeError(w, http.StatusUnprocessableEntity, err.Error())

	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
