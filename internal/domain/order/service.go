package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/glamlocks/storefront/internal/domain/coupon"
	"github.com/glamlocks/storefront/internal/domain/identity"
	"github.com/glamlocks/storefront/internal/domain/pricing"
	"github.com/glamlocks/storefront/internal/domain/product"
)

// Sentinel errors for order operations.
var (
	ErrEmptyItems     = errors.New("items required")
	ErrNotFound       = errors.New("order not found")
	ErrForbidden      = errors.New("not allowed to access this order")
	ErrInvalidStatus  = errors.New("invalid order status")
	ErrTerminalStatus = errors.New("order is in a terminal status")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InsufficientStockError indicates the catalog cannot cover the requested
// quantity. Available reports the stock seen at the time of failure.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d available", e.Name, e.Available)
}

// ItemRequest is a requested order line before pricing.
type ItemRequest struct {
	ProductID string
	Variant   *product.Variant
	Quantity  int
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Identity        identity.Identity
	GuestEmail      string
	Items           []ItemRequest
	ShippingAddress Address
	BillingAddress  *Address
	ShippingMethod  string
	CouponCode      string
	Notes           string
}

// Service orchestrates order placement and fulfillment updates.
type Service struct {
	products    product.Repository
	coupons     coupon.Validator
	orders      Repository
	orderPrefix string
	now         func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
// orderPrefix is the leading segment of generated order numbers.
func NewService(
	products product.Repository,
	coupons coupon.Validator,
	orders Repository,
	orderPrefix string,
) *Service {
	return &Service{
		products:    products,
		coupons:     coupons,
		orders:      orders,
		orderPrefix: orderPrefix,
		now:         time.Now,
	}
}

// PlaceOrder runs the placement pipeline: validate the line items against the
// catalog, freeze unit prices, resolve the coupon, atomically reserve stock
// and a coupon redemption, price the order, and persist it.
//
// All validation happens before any mutation, so a failure on a missing
// product, insufficient stock, or an unusable coupon leaves stock and coupon
// counters untouched. The stock decrement and coupon increment are
// conditional single-row updates, so concurrent placements cannot oversell
// or over-redeem. No partial order is ever persisted.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	// Resolve products, validate quantities and stock, freeze line prices.
	lines := make([]Line, len(req.Items))
	priced := make([]pricing.Line, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}

		p, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				return nil, &ProductNotFoundError{ProductID: item.ProductID}
			}
			return nil, errors.Wrapf(err, "get product %s", item.ProductID)
		}

		if p.TrackQuantity && p.Stock < item.Quantity {
			return nil, &InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Available: p.Stock,
			}
		}

		// Variant price wins over the product price when present.
		unitPrice := p.Price
		if item.Variant != nil && item.Variant.Price.IsPositive() {
			unitPrice = item.Variant.Price
		}

		lines[i] = Line{
			ProductID: item.ProductID,
			Variant:   item.Variant,
			Quantity:  item.Quantity,
			UnitPrice: unitPrice,
		}
		priced[i] = pricing.Line{UnitPrice: unitPrice, Quantity: item.Quantity}
	}

	subtotal := pricing.Subtotal(priced)

	// Resolve the coupon before touching any counters.
	var appliedCoupon *coupon.Coupon
	if req.CouponCode != "" {
		c, err := s.coupons.Resolve(ctx, req.CouponCode, subtotal)
		if err != nil {
			return nil, err
		}
		appliedCoupon = c
	}

	// Reserve stock. The guard lives in the store: quantity-tracked rows are
	// only decremented while stock covers the quantity.
	for i, l := range lines {
		ok, err := s.products.DecrementStock(ctx, l.ProductID, l.Quantity)
		if err != nil {
			return nil, errors.Wrapf(err, "decrement stock for %s", l.ProductID)
		}
		if !ok {
			return nil, s.stockFailure(ctx, req.Items[i])
		}
	}

	// Consume a coupon redemption, guarded the same way.
	if appliedCoupon != nil {
		ok, err := s.coupons.Redeem(ctx, appliedCoupon.ID)
		if err != nil {
			return nil, errors.Wrap(err, "redeem coupon")
		}
		if !ok {
			return nil, coupon.ErrExhausted
		}
	}

	quote := pricing.Compute(priced, appliedCoupon, req.ShippingMethod)

	now := s.now()
	o := &Order{
		ID:              uuid.New().String(),
		OrderNumber:     NewOrderNumber(s.orderPrefix, now),
		UserID:          req.Identity.UserID,
		Lines:           lines,
		Subtotal:        quote.Subtotal,
		Shipping:        quote.Shipping,
		Tax:             quote.Tax,
		Discount:        quote.Discount,
		Total:           quote.Total,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		PaymentMethod:   PaymentOnDelivery,
		ShippingAddress: req.ShippingAddress,
		ShippingMethod:  req.ShippingMethod,
		Notes:           req.Notes,
		CreatedAt:       now,
	}

	if appliedCoupon != nil {
		o.CouponID = appliedCoupon.ID
	}

	// Billing defaults to the shipping address when absent.
	if req.BillingAddress != nil {
		o.BillingAddress = *req.BillingAddress
	} else {
		o.BillingAddress = req.ShippingAddress
	}

	if !req.Identity.Authenticated() {
		o.Guest = &Guest{
			Email:     req.GuestEmail,
			FirstName: req.ShippingAddress.FirstName,
			LastName:  req.ShippingAddress.LastName,
			Phone:     req.ShippingAddress.Phone,
		}
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// stockFailure builds the error for a lost stock race, re-reading the row so
// the caller sees the quantity actually available.
func (s *Service) stockFailure(ctx context.Context, item ItemRequest) error {
	p, err := s.products.GetByID(ctx, item.ProductID)
	if err != nil {
		return &InsufficientStockError{ProductID: item.ProductID, Name: item.ProductID}
	}
	return &InsufficientStockError{ProductID: p.ID, Name: p.Name, Available: p.Stock}
}

// Get returns an order when the caller owns it or is an admin.
func (s *Service) Get(ctx context.Context, id string, ident identity.Identity) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ident.Admin() && (o.UserID == "" || o.UserID != ident.UserID) {
		return nil, ErrForbidden
	}
	return o, nil
}

// ListMine returns the caller's orders, newest first.
func (s *Service) ListMine(ctx context.Context, ident identity.Identity) ([]Order, error) {
	if !ident.Authenticated() {
		return nil, ErrForbidden
	}
	return s.orders.ListByUser(ctx, ident.UserID)
}

// ListAll returns a page of all orders with the total count. Admin only;
// the façade enforces the role.
func (s *Service) ListAll(ctx context.Context, page Page) ([]Order, int, error) {
	if page.Number < 1 {
		page.Number = 1
	}
	if page.Limit < 1 || page.Limit > 100 {
		page.Limit = 20
	}
	return s.orders.List(ctx, page)
}

// UpdateStatus applies an admin fulfillment update. Empty fields are left
// unchanged; status values are validated against the fixed enums, and orders
// in a terminal state cannot be moved to another status.
func (s *Service) UpdateStatus(ctx context.Context, id string, upd StatusUpdate) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Status != "" {
		if !ValidStatus(upd.Status) {
			return nil, ErrInvalidStatus
		}
		if o.Status.Terminal() && upd.Status != o.Status {
			return nil, ErrTerminalStatus
		}
		o.Status = upd.Status
	}
	if upd.PaymentStatus != "" {
		if !ValidPaymentStatus(upd.PaymentStatus) {
			return nil, ErrInvalidStatus
		}
		o.PaymentStatus = upd.PaymentStatus
	}
	if upd.TrackingNumber != "" {
		o.TrackingNumber = upd.TrackingNumber
	}
	if upd.Carrier != "" {
		o.Carrier = upd.Carrier
	}

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}
	return o, nil
}
