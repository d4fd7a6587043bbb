package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/glamlocks/storefront/internal/domain/order"
)

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	req, err := decodePlaceOrder(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	req.Identity = identityFrom(r)

	o, err := h.orders.PlaceOrder(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"), identityFrom(r))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

func (h *Handler) listMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListMine(r.Context(), identityFrom(r))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range orders {
				encodeOrder(e, &orders[i])
			}
		})
	})
}

func (h *Handler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	number, limit := pageFrom(r)
	orders, total, err := h.orders.ListAll(r.Context(), order.Page{Number: number, Limit: limit})
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("orders", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for i := range orders {
						encodeOrder(e, &orders[i])
					}
				})
			})
			e.Field("total", func(e *jx.Encoder) { e.Int(total) })
		})
	})
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	upd, err := decodeOrderStatusUpdate(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), upd)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}
