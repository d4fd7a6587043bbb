package order

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/glamlocks/storefront/internal/domain/product"
)

// Status is the fulfillment state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusReturned  Status = "returned"
	StatusCancelled Status = "cancelled"
)

// PaymentStatus tracks payment independently from fulfillment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// PaymentOnDelivery is the only payment method this storefront supports.
const PaymentOnDelivery = "pay_on_delivery"

// Terminal reports whether s is an end state of the fulfillment machine.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusReturned || s == StatusCancelled
}

// ValidStatus reports whether s is a known fulfillment status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusShipped,
		StatusDelivered, StatusReturned, StatusCancelled:
		return true
	}
	return false
}

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentCancelled:
		return true
	}
	return false
}

// Address is a postal address snapshot. Orders copy addresses rather than
// referencing user records, so later profile edits do not rewrite history.
type Address struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Street       string `json:"street"`
	City         string `json:"city"`
	State        string `json:"state,omitempty"`
	ZipCode      string `json:"zipCode,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// Guest holds contact details for orders placed without an account.
type Guest struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Line is a single ordered item. UnitPrice is frozen at placement time and
// never re-derived from the catalog.
type Line struct {
	ProductID string           `json:"productId"`
	Variant   *product.Variant `json:"variant,omitempty"`
	Quantity  int              `json:"quantity"`
	UnitPrice decimal.Decimal  `json:"unitPrice"`
}

// Order is the persisted result of a successful placement. Orders are a
// financial record: they are created once and never deleted.
type Order struct {
	ID          string
	OrderNumber string
	UserID      string
	Guest       *Guest
	Lines       []Line

	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal

	// CouponID references the redeemed coupon; Discount keeps the frozen
	// amount so later coupon edits cannot rewrite history.
	CouponID string

	Status        Status
	PaymentStatus PaymentStatus
	PaymentMethod string

	ShippingAddress Address
	BillingAddress  Address
	ShippingMethod  string

	TrackingNumber string
	Carrier        string
	Notes          string

	CreatedAt time.Time
}

// StatusUpdate carries the admin-mutable fields of an order. Nil/empty
// fields are left unchanged.
type StatusUpdate struct {
	Status         Status
	PaymentStatus  PaymentStatus
	TrackingNumber string
	Carrier        string
}

// Page is a pagination request.
type Page struct {
	Number int
	Limit  int
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	List(ctx context.Context, page Page) ([]Order, int, error)
	Update(ctx context.Context, o *Order) error

	// HasDeliveredProduct reports whether the user has a delivered order
	// containing the product. Used to mark reviews as verified purchases.
	HasDeliveredProduct(ctx context.Context, userID, productID string) (bool, error)
}

const numberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewOrderNumber builds an order number in the persisted wire format
// PREFIX-YYYYMMDD-RAND9, where RAND9 is 9 uppercase alphanumerics. The
// number is assigned exactly once at creation.
func NewOrderNumber(prefix string, now time.Time) string {
	suffix := make([]byte, 9)
	randomBytes := make([]byte, 9)
	_, _ = rand.Read(randomBytes)
	for i, b := range randomBytes {
		suffix[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102"), suffix)
}
