package handler

import (
	"strings"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/glamlocks/storefront/internal/domain/order"
	"github.com/glamlocks/storefront/internal/domain/product"
	"github.com/glamlocks/storefront/internal/domain/review"
)

func decodePlaceOrder(body []byte) (order.PlaceOrderRequest, error) {
	var req order.PlaceOrderRequest
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				item, err := decodeItem(d)
				if err != nil {
					return err
				}
				req.Items = append(req.Items, item)
				return nil
			})
		case "shippingAddress":
			addr, err := decodeAddress(d)
			if err != nil {
				return err
			}
			req.ShippingAddress = addr
			return nil
		case "billingAddress":
			addr, err := decodeAddress(d)
			if err != nil {
				return err
			}
			req.BillingAddress = &addr
			return nil
		case "shippingMethod":
			return decodeStr(d, &req.ShippingMethod)
		case "couponCode":
			return decodeStr(d, &req.CouponCode)
		case "guestEmail":
			return decodeStr(d, &req.GuestEmail)
		case "notes":
			return decodeStr(d, &req.Notes)
		default:
			return d.Skip()
		}
	})
	return req, err
}

func decodeItem(d *jx.Decoder) (order.ItemRequest, error) {
	var item order.ItemRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "productId":
			return decodeStr(d, &item.ProductID)
		case "quantity":
			q, err := d.Int()
			item.Quantity = q
			return err
		case "variant":
			v, err := decodeVariant(d)
			if err != nil {
				return err
			}
			item.Variant = &v
			return nil
		default:
			return d.Skip()
		}
	})
	return item, err
}

func decodeVariant(d *jx.Decoder) (product.Variant, error) {
	var v product.Variant
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			return decodeStr(d, &v.Name)
		case "size":
			return decodeStr(d, &v.Size)
		case "color":
			return decodeStr(d, &v.Color)
		case "price":
			return decodeDecimal(d, &v.Price)
		case "stock":
			n, err := d.Int()
			v.Stock = n
			return err
		case "sku":
			return decodeStr(d, &v.SKU)
		default:
			return d.Skip()
		}
	})
	return v, err
}

func decodeAddress(d *jx.Decoder) (order.Address, error) {
	var a order.Address
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "firstName":
			return decodeStr(d, &a.FirstName)
		case "lastName":
			return decodeStr(d, &a.LastName)
		case "street":
			return decodeStr(d, &a.Street)
		case "city":
			return decodeStr(d, &a.City)
		case "state":
			return decodeStr(d, &a.State)
		case "zipCode":
			return decodeStr(d, &a.ZipCode)
		case "phone":
			return decodeStr(d, &a.Phone)
		case "instructions":
			return decodeStr(d, &a.Instructions)
		default:
			return d.Skip()
		}
	})
	return a, err
}

func decodeOrderStatusUpdate(body []byte) (order.StatusUpdate, error) {
	var upd order.StatusUpdate
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "status":
			s, err := d.Str()
			upd.Status = order.Status(s)
			return err
		case "paymentStatus":
			s, err := d.Str()
			upd.PaymentStatus = order.PaymentStatus(s)
			return err
		case "trackingNumber":
			return decodeStr(d, &upd.TrackingNumber)
		case "carrier":
			return decodeStr(d, &upd.Carrier)
		default:
			return d.Skip()
		}
	})
	return upd, err
}

func decodeReviewCreate(body []byte) (review.CreateRequest, error) {
	var req review.CreateRequest
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "rating":
			n, err := d.Int()
			req.Rating = n
			return err
		case "title":
			return decodeStr(d, &req.Title)
		case "comment":
			return decodeStr(d, &req.Comment)
		case "guestName":
			return decodeStr(d, &req.Reviewer.GuestName)
		case "guestEmail":
			return decodeStr(d, &req.Reviewer.GuestEmail)
		default:
			return d.Skip()
		}
	})
	return req, err
}

func decodeReviewUpdate(body []byte) (review.UpdateRequest, error) {
	var req review.UpdateRequest
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "rating":
			n, err := d.Int()
			req.Rating = n
			return err
		case "title":
			return decodeStr(d, &req.Title)
		case "comment":
			return decodeStr(d, &req.Comment)
		default:
			return d.Skip()
		}
	})
	return req, err
}

func decodeReason(body []byte) (string, error) {
	var reason string
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key == "reason" {
			return decodeStr(d, &reason)
		}
		return d.Skip()
	})
	return reason, err
}

func decodeReviewStatus(body []byte) (review.Status, error) {
	var status review.Status
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key == "status" {
			s, err := d.Str()
			status = review.Status(s)
			return err
		}
		return d.Skip()
	})
	return status, err
}

func decodeStr(d *jx.Decoder, dst *string) error {
	s, err := d.Str()
	*dst = s
	return err
}

// decodeDecimal accepts both JSON numbers and numeric strings.
func decodeDecimal(d *jx.Decoder, dst *decimal.Decimal) error {
	n, err := d.Num()
	if err != nil {
		return err
	}
	v, err := decimal.NewFromString(strings.Trim(n.String(), `"`))
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
