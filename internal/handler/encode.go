package handler

import (
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/glamlocks/storefront/internal/domain/order"
	"github.com/glamlocks/storefront/internal/domain/product"
	"github.com/glamlocks/storefront/internal/domain/review"
)

func encDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

func encTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encStrings(e *jx.Encoder, ss []string) {
	e.Arr(func(e *jx.Encoder) {
		for _, s := range ss {
			e.Str(s)
		}
	})
}

func encodeProduct(e *jx.Encoder, p *product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		e.Field("brand", func(e *jx.Encoder) { e.Str(p.Brand) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		e.Field("sku", func(e *jx.Encoder) { e.Str(p.SKU) })
		e.Field("price", func(e *jx.Encoder) { encDecimal(e, p.Price) })
		e.Field("comparePrice", func(e *jx.Encoder) { encDecimal(e, p.ComparePrice) })
		e.Field("stock", func(e *jx.Encoder) { e.Int(p.Stock) })
		e.Field("trackQuantity", func(e *jx.Encoder) { e.Bool(p.TrackQuantity) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(p.Status)) })
		e.Field("variants", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range p.Variants {
					encodeVariant(e, &p.Variants[i])
				}
			})
		})
		e.Field("rating", func(e *jx.Encoder) { encDecimal(e, p.Rating) })
		e.Field("reviewCount", func(e *jx.Encoder) { e.Int(p.ReviewCount) })
	})
}

func encodeVariant(e *jx.Encoder, v *product.Variant) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("name", func(e *jx.Encoder) { e.Str(v.Name) })
		e.Field("size", func(e *jx.Encoder) { e.Str(v.Size) })
		e.Field("color", func(e *jx.Encoder) { e.Str(v.Color) })
		e.Field("price", func(e *jx.Encoder) { encDecimal(e, v.Price) })
		e.Field("stock", func(e *jx.Encoder) { e.Int(v.Stock) })
		e.Field("sku", func(e *jx.Encoder) { e.Str(v.SKU) })
	})
}

func encodeAddress(e *jx.Encoder, a *order.Address) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("firstName", func(e *jx.Encoder) { e.Str(a.FirstName) })
		e.Field("lastName", func(e *jx.Encoder) { e.Str(a.LastName) })
		e.Field("street", func(e *jx.Encoder) { e.Str(a.Street) })
		e.Field("city", func(e *jx.Encoder) { e.Str(a.City) })
		e.Field("state", func(e *jx.Encoder) { e.Str(a.State) })
		e.Field("zipCode", func(e *jx.Encoder) { e.Str(a.ZipCode) })
		e.Field("phone", func(e *jx.Encoder) { e.Str(a.Phone) })
		e.Field("instructions", func(e *jx.Encoder) { e.Str(a.Instructions) })
	})
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("orderNumber", func(e *jx.Encoder) { e.Str(o.OrderNumber) })
		if o.UserID != "" {
			e.Field("userId", func(e *jx.Encoder) { e.Str(o.UserID) })
		}
		if o.Guest != nil {
			e.Field("guest", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("email", func(e *jx.Encoder) { e.Str(o.Guest.Email) })
					e.Field("firstName", func(e *jx.Encoder) { e.Str(o.Guest.FirstName) })
					e.Field("lastName", func(e *jx.Encoder) { e.Str(o.Guest.LastName) })
					e.Field("phone", func(e *jx.Encoder) { e.Str(o.Guest.Phone) })
				})
			})
		}
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range o.Lines {
					encodeLine(e, &o.Lines[i])
				}
			})
		})
		e.Field("subtotal", func(e *jx.Encoder) { encDecimal(e, o.Subtotal) })
		e.Field("shipping", func(e *jx.Encoder) { encDecimal(e, o.Shipping) })
		e.Field("tax", func(e *jx.Encoder) { encDecimal(e, o.Tax) })
		e.Field("discount", func(e *jx.Encoder) { encDecimal(e, o.Discount) })
		e.Field("total", func(e *jx.Encoder) { encDecimal(e, o.Total) })
		if o.CouponID != "" {
			e.Field("couponId", func(e *jx.Encoder) { e.Str(o.CouponID) })
		}
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("paymentStatus", func(e *jx.Encoder) { e.Str(string(o.PaymentStatus)) })
		e.Field("paymentMethod", func(e *jx.Encoder) { e.Str(o.PaymentMethod) })
		e.Field("shippingAddress", func(e *jx.Encoder) { encodeAddress(e, &o.ShippingAddress) })
		e.Field("billingAddress", func(e *jx.Encoder) { encodeAddress(e, &o.BillingAddress) })
		e.Field("shippingMethod", func(e *jx.Encoder) { e.Str(o.ShippingMethod) })
		if o.TrackingNumber != "" {
			e.Field("trackingNumber", func(e *jx.Encoder) { e.Str(o.TrackingNumber) })
		}
		if o.Carrier != "" {
			e.Field("carrier", func(e *jx.Encoder) { e.Str(o.Carrier) })
		}
		if o.Notes != "" {
			e.Field("notes", func(e *jx.Encoder) { e.Str(o.Notes) })
		}
		e.Field("createdAt", func(e *jx.Encoder) { encTime(e, o.CreatedAt) })
	})
}

func encodeLine(e *jx.Encoder, l *order.Line) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("productId", func(e *jx.Encoder) { e.Str(l.ProductID) })
		if l.Variant != nil {
			e.Field("variant", func(e *jx.Encoder) { encodeVariant(e, l.Variant) })
		}
		e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
		e.Field("unitPrice", func(e *jx.Encoder) { encDecimal(e, l.UnitPrice) })
	})
}

func encodeReview(e *jx.Encoder, r *review.Review) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(r.ID) })
		e.Field("productId", func(e *jx.Encoder) { e.Str(r.ProductID) })
		if r.UserID != "" {
			e.Field("userId", func(e *jx.Encoder) { e.Str(r.UserID) })
		}
		e.Field("rating", func(e *jx.Encoder) { e.Int(r.Rating) })
		e.Field("title", func(e *jx.Encoder) { e.Str(r.Title) })
		e.Field("comment", func(e *jx.Encoder) { e.Str(r.Comment) })
		if r.GuestName != "" {
			e.Field("guestName", func(e *jx.Encoder) { e.Str(r.GuestName) })
		}
		e.Field("verified", func(e *jx.Encoder) { e.Bool(r.Verified) })
		e.Field("helpful", func(e *jx.Encoder) { e.Int(r.Helpful) })
		e.Field("likes", func(e *jx.Encoder) { e.Int(r.Likes) })
		e.Field("reportCount", func(e *jx.Encoder) { e.Int(len(r.Reports)) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(r.Status)) })
		e.Field("createdAt", func(e *jx.Encoder) { encTime(e, r.CreatedAt) })
		if !r.UpdatedAt.IsZero() {
			e.Field("updatedAt", func(e *jx.Encoder) { encTime(e, r.UpdatedAt) })
		}
	})
}

func encodeStatistics(e *jx.Encoder, s review.Statistics) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("averageRating", func(e *jx.Encoder) { encDecimal(e, s.AverageRating) })
		e.Field("totalReviews", func(e *jx.Encoder) { e.Int(s.TotalReviews) })
		// Histogram bars render five stars first.
		e.Field("distribution", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, n := range s.Distribution {
					e.Int(n)
				}
			})
		})
	})
}
