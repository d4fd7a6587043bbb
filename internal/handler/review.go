package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/glamlocks/storefront/internal/domain/review"
)

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	number, limit := pageFrom(r)
	sort := review.Sort(r.URL.Query().Get("sort"))

	res, err := h.reviews.List(r.Context(), r.PathValue("id"), sort, review.Page{
		Number: number,
		Limit:  limit,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("reviews", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for i := range res.Items {
						encodeReview(e, &res.Items[i])
					}
				})
			})
			e.Field("total", func(e *jx.Encoder) { e.Int(res.Total) })
			e.Field("page", func(e *jx.Encoder) { e.Int(res.Page) })
			e.Field("limit", func(e *jx.Encoder) { e.Int(res.Limit) })
			e.Field("pages", func(e *jx.Encoder) { e.Int(res.Pages) })
			e.Field("statistics", func(e *jx.Encoder) { encodeStatistics(e, res.Statistics) })
		})
	})
}

func (h *Handler) createReview(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	req, err := decodeReviewCreate(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	req.ProductID = r.PathValue("id")
	req.Reviewer.UserID = identityFrom(r).UserID

	rv, err := h.reviews.Create(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeReview(e, rv)
	})
}

func (h *Handler) updateReview(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	req, err := decodeReviewUpdate(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rv, err := h.reviews.Update(r.Context(), r.PathValue("id"), identityFrom(r), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeReview(e, rv)
	})
}

func (h *Handler) deleteReview(w http.ResponseWriter, r *http.Request) {
	if err := h.reviews.Delete(r.Context(), r.PathValue("id"), identityFrom(r)); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) toggleHelpful(w http.ResponseWriter, r *http.Request) {
	res, err := h.reviews.ToggleHelpful(r.Context(), r.PathValue("id"), identityFrom(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeToggle(w, "helpful", res)
}

func (h *Handler) toggleLike(w http.ResponseWriter, r *http.Request) {
	res, err := h.reviews.ToggleLike(r.Context(), r.PathValue("id"), identityFrom(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeToggle(w, "likes", res)
}

func writeToggle(w http.ResponseWriter, field string, res *review.ToggleResult) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field(field, func(e *jx.Encoder) { e.Int(res.Count) })
			e.Field("action", func(e *jx.Encoder) { e.Str(res.Action) })
		})
	})
}

func (h *Handler) reportReview(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	reason, err := decodeReason(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	count, err := h.reviews.Report(r.Context(), r.PathValue("id"), identityFrom(r), reason)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("reportCount", func(e *jx.Encoder) { e.Int(count) })
		})
	})
}

func (h *Handler) reviewInteractions(w http.ResponseWriter, r *http.Request) {
	helpful, liked, err := h.reviews.Interactions(r.Context(), identityFrom(r))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("helpful", func(e *jx.Encoder) { encStrings(e, helpful) })
			e.Field("liked", func(e *jx.Encoder) { encStrings(e, liked) })
		})
	})
}

func (h *Handler) listAdminReviews(w http.ResponseWriter, r *http.Request) {
	number, limit := pageFrom(r)
	f := review.AdminFilter{
		Status: review.Status(r.URL.Query().Get("status")),
		Page:   review.Page{Number: number, Limit: limit},
	}

	reviews, total, err := h.reviews.ListAdmin(r.Context(), f)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("reviews", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for i := range reviews {
						encodeReview(e, &reviews[i])
					}
				})
			})
			e.Field("total", func(e *jx.Encoder) { e.Int(total) })
		})
	})
}

func (h *Handler) setReviewStatus(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	status, err := decodeReviewStatus(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rv, err := h.reviews.SetStatus(r.Context(), r.PathValue("id"), status)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeReview(e, rv)
	})
}
