//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func reviewsPath(productID string) string {
	return "/api/products/" + productID + "/reviews"
}

func createReview(t *testing.T, productID string, req reviewRequest, headers map[string]string) reviewResponse {
	t.Helper()

	resp := doReq(t, http.MethodPost, reviewsPath(productID), req, headers)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create review: expected 201, got %d", resp.StatusCode)
	}
	return decodeJSON[reviewResponse](t, resp)
}

func TestCreateReview_User(t *testing.T) {
	rv := createReview(t, curlCreamID, reviewRequest{
		Rating:  5,
		Title:   "Holy grail",
		Comment: "Defined curls for three days straight.",
	}, asUser("it-reviewer-1"))

	if rv.Status != "approved" {
		t.Errorf("status: got %q, want approved", rv.Status)
	}
	if rv.UserID != "it-reviewer-1" {
		t.Errorf("userId: got %q", rv.UserID)
	}
	if rv.Rating != 5 {
		t.Errorf("rating: got %d, want 5", rv.Rating)
	}
}

func TestCreateReview_Guest(t *testing.T) {
	resp := doReq(t, http.MethodPost, reviewsPath(curlCreamID), reviewRequest{
		Rating:     4,
		Title:      "Pretty good",
		Comment:    "Works well on 4C hair, a bit heavy.",
		GuestName:  "Fatou",
		GuestEmail: "fatou@example.com",
	}, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	rv := decodeJSON[reviewResponse](t, resp)
	if rv.GuestName != "Fatou" {
		t.Errorf("guestName: got %q, want Fatou", rv.GuestName)
	}
}

func TestCreateReview_DuplicateUser(t *testing.T) {
	req := reviewRequest{Rating: 5, Title: "Once", Comment: "Reviewing this product once."}
	createReview(t, shampooID, req, asUser("it-dup"))

	resp := doReq(t, http.MethodPost, reviewsPath(shampooID), req, asUser("it-dup"))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestCreateReview_InvalidRating(t *testing.T) {
	resp := doReq(t, http.MethodPost, reviewsPath(curlCreamID), reviewRequest{
		Rating:  6,
		Title:   "Too good",
		Comment: "Rating out of range should be rejected.",
	}, asUser("it-sixstars"))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListReviews_Statistics(t *testing.T) {
	for i, rating := range []int{5, 5, 4} {
		createReview(t, silkBonnetID, reviewRequest{
			Rating:  rating,
			Title:   "Silk life",
			Comment: "No more frizzy mornings with this bonnet.",
		}, asUser(fmt.Sprintf("it-stats-%d", i)))
	}

	resp := doGet(t, reviewsPath(silkBonnetID))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	list := decodeJSON[reviewListResponse](t, resp)
	if list.Total != 3 {
		t.Fatalf("total: got %d, want 3", list.Total)
	}
	// mean of 5, 5, 4 rounded to one decimal
	if list.Statistics.AverageRating != 4.7 {
		t.Errorf("averageRating: got %v, want 4.7", list.Statistics.AverageRating)
	}
	// five stars first
	want := []int{2, 1, 0, 0, 0}
	for i, n := range list.Statistics.Distribution {
		if n != want[i] {
			t.Errorf("distribution: got %v, want %v", list.Statistics.Distribution, want)
			break
		}
	}

	// The product rating is kept in sync with approved reviews.
	resp = doGet(t, "/api/products/"+silkBonnetID)
	defer resp.Body.Close()
	p := decodeJSON[productResponse](t, resp)
	if p.Rating != 4.7 {
		t.Errorf("product rating: got %v, want 4.7", p.Rating)
	}
	if p.ReviewCount != 3 {
		t.Errorf("reviewCount: got %d, want 3", p.ReviewCount)
	}
}

func TestToggleHelpful(t *testing.T) {
	rv := createReview(t, deepMaskID, reviewRequest{
		Rating:  5,
		Title:   "Revived my ends",
		Comment: "One treatment and my ends feel new.",
	}, asUser("it-toggler-author"))

	// Anonymous callers cannot vote.
	resp := doReq(t, http.MethodPost, "/api/reviews/"+rv.ID+"/helpful", nil, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 without identity, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doReq(t, http.MethodPost, "/api/reviews/"+rv.ID+"/helpful", nil, asUser("it-toggler"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	toggled := decodeJSON[toggleResponse](t, resp)
	resp.Body.Close()
	if toggled.Helpful != 1 || toggled.Action != "added" {
		t.Errorf("first toggle: got %+v, want helpful=1 action=added", toggled)
	}

	// Toggling again removes the mark.
	resp = doReq(t, http.MethodPost, "/api/reviews/"+rv.ID+"/helpful", nil, asUser("it-toggler"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	toggled = decodeJSON[toggleResponse](t, resp)
	resp.Body.Close()
	if toggled.Helpful != 0 || toggled.Action != "removed" {
		t.Errorf("second toggle: got %+v, want helpful=0 action=removed", toggled)
	}
}

func TestReportReview_Threshold(t *testing.T) {
	rv := createReview(t, deepMaskID, reviewRequest{
		Rating:  1,
		Title:   "Spam spam spam",
		Comment: "Visit my site for cheap knockoffs.",
	}, asUser("it-spammer"))

	report := map[string]string{"reason": "spam"}
	for _, reporter := range []string{"it-rep-1", "it-rep-2", "it-rep-3"} {
		resp := doReq(t, http.MethodPost, "/api/reviews/"+rv.ID+"/report", report, asUser(reporter))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("report as %s: expected 200, got %d", reporter, resp.StatusCode)
		}
		resp.Body.Close()
	}

	// Three distinct reporters pull the review back into moderation.
	resp := doReq(t, http.MethodGet, "/api/admin/reviews?status=pending", nil, asAdmin())
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	list := decodeJSON[adminReviewListResponse](t, resp)
	found := false
	for _, r := range list.Reviews {
		if r.ID == rv.ID {
			found = true
			if r.ReportCount != 3 {
				t.Errorf("reportCount: got %d, want 3", r.ReportCount)
			}
		}
	}
	if !found {
		t.Error("reported review not in pending moderation queue")
	}
}

func TestAdminModeration(t *testing.T) {
	rv := createReview(t, edgeBrushID, reviewRequest{
		Rating:  2,
		Title:   "Bristles too soft",
		Comment: "Does not hold my edges at all.",
	}, asUser("it-moderated"))

	// Reject it via the moderation endpoint.
	resp := doReq(t, http.MethodPatch, "/api/admin/reviews/"+rv.ID+"/status",
		map[string]string{"status": "rejected"}, asAdmin())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	updated := decodeJSON[reviewResponse](t, resp)
	resp.Body.Close()
	if updated.Status != "rejected" {
		t.Errorf("status: got %q, want rejected", updated.Status)
	}

	// Rejected reviews disappear from the public listing.
	resp = doGet(t, reviewsPath(edgeBrushID))
	defer resp.Body.Close()
	list := decodeJSON[reviewListResponse](t, resp)
	for _, r := range list.Reviews {
		if r.ID == rv.ID {
			t.Error("rejected review still listed publicly")
		}
	}
}

func TestAdminModeration_RequiresKey(t *testing.T) {
	resp := doReq(t, http.MethodGet, "/api/admin/reviews", nil, asUser("it-nokey"))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestUpdateReview_OwnerOnly(t *testing.T) {
	rv := createReview(t, silkBonnetID, reviewRequest{
		Rating:  3,
		Title:   "Band loosens",
		Comment: "Comfortable but slides off at night.",
	}, asUser("it-editor"))

	update := reviewRequest{Rating: 4, Title: "Better now", Comment: "Adjusted the band, stays on now."}

	resp := doReq(t, http.MethodPut, "/api/reviews/"+rv.ID, update, asUser("it-not-editor"))
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for non-owner, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doReq(t, http.MethodPut, "/api/reviews/"+rv.ID, update, asUser("it-editor"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for owner, got %d", resp.StatusCode)
	}
	updated := decodeJSON[reviewResponse](t, resp)
	if updated.Rating != 4 {
		t.Errorf("rating: got %d, want 4", updated.Rating)
	}
	// Edits go back through moderation.
	if updated.Status != "pending" {
		t.Errorf("status after edit: got %q, want pending", updated.Status)
	}
}

func TestDeleteReview(t *testing.T) {
	rv := createReview(t, shampooID, reviewRequest{
		Rating:  5,
		Title:   "Short lived",
		Comment: "This review is about to be deleted.",
	}, asUser("it-deleter"))

	resp := doReq(t, http.MethodDelete, "/api/reviews/"+rv.ID, nil, asUser("it-deleter"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp = doReq(t, http.MethodPut, "/api/reviews/"+rv.ID, reviewRequest{
		Rating: 1, Title: "Gone", Comment: "Should not be found anymore.",
	}, asUser("it-deleter"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}
