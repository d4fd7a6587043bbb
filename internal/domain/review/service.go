package review

import (
	"context"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/glamlocks/storefront/internal/domain/identity"
	"github.com/glamlocks/storefront/internal/domain/product"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// PurchaseChecker answers whether a user received a product, to flag
// verified-purchase reviews. Implemented by the order repository.
type PurchaseChecker interface {
	HasDeliveredProduct(ctx context.Context, userID, productID string) (bool, error)
}

// CreateRequest holds the input for submitting a review.
type CreateRequest struct {
	Reviewer  Reviewer
	ProductID string
	Rating    int
	Title     string
	Comment   string
}

// UpdateRequest carries a reviewer's edit. Zero fields are left unchanged.
type UpdateRequest struct {
	Rating  int
	Title   string
	Comment string
}

// ToggleResult reports the counter value after a helpful/like toggle and
// whether the mark was added or removed.
type ToggleResult struct {
	Count  int
	Action string // "added" or "removed"
}

// Statistics is the live rating summary computed from the approved set.
type Statistics struct {
	AverageRating decimal.Decimal
	TotalReviews  int
	// Distribution counts stars from five down to one, matching the order
	// the storefront renders histogram bars.
	Distribution [5]int
}

// ListResult is a page of approved reviews plus the live statistics.
type ListResult struct {
	Items      []Review
	Total      int
	Page       int
	Limit      int
	Pages      int
	Statistics Statistics
}

// Service implements review submission, moderation, interaction toggles, and
// the product rating aggregation engine.
type Service struct {
	reviews     Repository
	products    product.Repository
	purchases   PurchaseChecker
	lg          *zap.Logger
	autoApprove bool
	now         func() time.Time
}

// NewService creates a review Service. autoApprove controls whether new
// reviews publish immediately or enter the moderation queue.
func NewService(
	reviews Repository,
	products product.Repository,
	purchases PurchaseChecker,
	lg *zap.Logger,
	autoApprove bool,
) *Service {
	return &Service{
		reviews:     reviews,
		products:    products,
		purchases:   purchases,
		lg:          lg,
		autoApprove: autoApprove,
		now:         time.Now,
	}
}

// Create validates and persists a new review.
//
// Authenticated reviewers are limited to one review per product; so are
// guests who supply an email. Guests without an email are deliberately not
// deduplicated. New reviews publish immediately when auto-approval is on.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Review, error) {
	if err := validateContent(req.ProductID, req.Rating, req.Title, req.Comment); err != nil {
		return nil, err
	}

	if _, err := s.products.GetByID(ctx, req.ProductID); err != nil {
		return nil, err
	}

	r := &Review{
		ID:        uuid.New().String(),
		ProductID: req.ProductID,
		Rating:    req.Rating,
		Title:     strings.TrimSpace(req.Title),
		Comment:   strings.TrimSpace(req.Comment),
		Status:    StatusPending,
		CreatedAt: s.now(),
	}
	if s.autoApprove {
		r.Status = StatusApproved
	}

	switch {
	case req.Reviewer.Authenticated():
		exists, err := s.reviews.ExistsForUser(ctx, req.ProductID, req.Reviewer.UserID)
		if err != nil {
			return nil, errors.Wrap(err, "check duplicate review")
		}
		if exists {
			return nil, ErrDuplicate
		}

		r.UserID = req.Reviewer.UserID
		verified, err := s.purchases.HasDeliveredProduct(ctx, req.Reviewer.UserID, req.ProductID)
		if err != nil {
			return nil, errors.Wrap(err, "check purchase")
		}
		r.Verified = verified

	default:
		if strings.TrimSpace(req.Reviewer.GuestName) == "" {
			return nil, &ValidationError{Field: "guestName", Reason: "required for guest reviews"}
		}
		r.GuestName = strings.TrimSpace(req.Reviewer.GuestName)

		if email := strings.TrimSpace(req.Reviewer.GuestEmail); email != "" {
			if !emailPattern.MatchString(email) {
				return nil, &ValidationError{Field: "guestEmail", Reason: "invalid email format"}
			}
			exists, err := s.reviews.ExistsForGuestEmail(ctx, req.ProductID, email)
			if err != nil {
				return nil, errors.Wrap(err, "check duplicate guest review")
			}
			if exists {
				return nil, ErrDuplicate
			}
			r.GuestEmail = email
		}
	}

	if err := s.reviews.Create(ctx, r); err != nil {
		return nil, err
	}

	if r.Status == StatusApproved {
		s.recompute(ctx, r.ProductID)
	}
	return r, nil
}

// Update applies an owner's edit. Edited reviews always return to the
// moderation queue, so an edit of an approved review shrinks the approved
// set until re-approval.
func (s *Service) Update(ctx context.Context, id string, ident identity.Identity, req UpdateRequest) (*Review, error) {
	r, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID == "" || r.UserID != ident.UserID {
		return nil, ErrForbidden
	}

	if req.Rating != 0 {
		if req.Rating < 1 || req.Rating > 5 {
			return nil, &ValidationError{Field: "rating", Reason: "must be between 1 and 5"}
		}
		r.Rating = req.Rating
	}
	if req.Title != "" {
		r.Title = strings.TrimSpace(req.Title)
	}
	if req.Comment != "" {
		r.Comment = strings.TrimSpace(req.Comment)
	}

	r.Status = StatusPending
	r.UpdatedAt = s.now()

	if err := s.reviews.UpdateContent(ctx, r); err != nil {
		return nil, errors.Wrap(err, "update review")
	}

	s.recompute(ctx, r.ProductID)
	return r, nil
}

// Delete removes a review. Owners and admins only.
func (s *Service) Delete(ctx context.Context, id string, ident identity.Identity) error {
	r, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return err
	}

	isOwner := r.UserID != "" && r.UserID == ident.UserID
	if !isOwner && !ident.Admin() {
		return ErrForbidden
	}

	if err := s.reviews.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete review")
	}

	s.recompute(ctx, r.ProductID)
	return nil
}

// SetStatus is the admin moderation action. Any transition that enters or
// leaves the approved set triggers rating recomputation.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) (*Review, error) {
	if !ValidStatus(status) {
		return nil, ErrBadStatus
	}

	r, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	prev := r.Status
	if err := s.reviews.SetStatus(ctx, id, status); err != nil {
		return nil, errors.Wrap(err, "set review status")
	}
	r.Status = status

	if prev == StatusApproved || status == StatusApproved {
		s.recompute(ctx, r.ProductID)
	}
	return r, nil
}

// ToggleHelpful flips the caller's helpful mark. Toggling twice restores the
// original counter.
func (s *Service) ToggleHelpful(ctx context.Context, id string, ident identity.Identity) (*ToggleResult, error) {
	if !ident.Authenticated() {
		return nil, ErrForbidden
	}
	count, added, err := s.reviews.ToggleHelpful(ctx, id, ident.UserID)
	if err != nil {
		return nil, err
	}
	return &ToggleResult{Count: count, Action: action(added)}, nil
}

// ToggleLike flips the caller's like mark.
func (s *Service) ToggleLike(ctx context.Context, id string, ident identity.Identity) (*ToggleResult, error) {
	if !ident.Authenticated() {
		return nil, ErrForbidden
	}
	count, added, err := s.reviews.ToggleLike(ctx, id, ident.UserID)
	if err != nil {
		return nil, err
	}
	return &ToggleResult{Count: count, Action: action(added)}, nil
}

func action(added bool) string {
	if added {
		return "added"
	}
	return "removed"
}

// Report files an abuse report. Each reporter counts once; when distinct
// reporters reach the threshold the review is pulled back to pending, and a
// formerly approved review drops out of the product rating.
func (s *Service) Report(ctx context.Context, id string, ident identity.Identity, reason string) (int, error) {
	if !ident.Authenticated() {
		return 0, ErrForbidden
	}
	if strings.TrimSpace(reason) == "" {
		return 0, &ValidationError{Field: "reason", Reason: "required"}
	}

	r, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}

	if r.ReportedBy(ident.UserID) {
		return len(r.Reports), nil
	}

	r.Reports = append(r.Reports, Report{
		UserID:     ident.UserID,
		Reason:     strings.TrimSpace(reason),
		ReportedAt: s.now(),
	})

	wasApproved := r.Status == StatusApproved
	if len(r.Reports) >= ReportThreshold {
		r.Status = StatusPending
	}

	if err := s.reviews.SetReports(ctx, id, r.Reports, r.Status); err != nil {
		return 0, errors.Wrap(err, "save report")
	}

	if wasApproved && r.Status == StatusPending {
		s.recompute(ctx, r.ProductID)
	}
	return len(r.Reports), nil
}

// List returns a page of approved reviews plus live statistics. The average
// here is recomputed from the approved set rather than read from the cached
// product fields, so the page and its summary always agree.
func (s *Service) List(ctx context.Context, productID string, sort Sort, page Page) (*ListResult, error) {
	sort = NormalizeSort(sort)
	if page.Number < 1 {
		page.Number = 1
	}
	if page.Limit < 1 || page.Limit > 100 {
		page.Limit = 10
	}

	counts, err := s.reviews.ApprovedRatingCounts(ctx, productID)
	if err != nil {
		return nil, errors.Wrap(err, "rating counts")
	}

	items, err := s.reviews.ListApproved(ctx, productID, sort, page)
	if err != nil {
		return nil, errors.Wrap(err, "list reviews")
	}

	total := counts.Total()
	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       page.Number,
		Limit:      page.Limit,
		Pages:      int(math.Ceil(float64(total) / float64(page.Limit))),
		Statistics: statisticsFrom(counts),
	}, nil
}

// ListAdmin returns the back-office listing, optionally filtered by status.
func (s *Service) ListAdmin(ctx context.Context, f AdminFilter) ([]Review, int, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, ErrBadStatus
	}
	if f.Page.Number < 1 {
		f.Page.Number = 1
	}
	if f.Page.Limit < 1 || f.Page.Limit > 100 {
		f.Page.Limit = 20
	}
	return s.reviews.ListAdmin(ctx, f)
}

// Interactions returns the review IDs the caller marked helpful and liked.
func (s *Service) Interactions(ctx context.Context, ident identity.Identity) (helpful, liked []string, err error) {
	if !ident.Authenticated() {
		return nil, nil, ErrForbidden
	}
	return s.reviews.InteractionIDs(ctx, ident.UserID)
}

// RecomputeProductRating recalculates a product's rating (mean of approved
// ratings, one decimal) and review count from the source of truth, and
// writes both onto the product. Zero approved reviews reset the fields to
// 0/0. The recomputation is idempotent: any later mutation triggers another
// pass that self-heals transient races.
func (s *Service) RecomputeProductRating(ctx context.Context, productID string) error {
	counts, err := s.reviews.ApprovedRatingCounts(ctx, productID)
	if err != nil {
		return errors.Wrap(err, "rating counts")
	}

	rating := averageOf(counts)
	if err := s.products.UpdateRating(ctx, productID, rating, counts.Total()); err != nil {
		return errors.Wrap(err, "update product rating")
	}
	return nil
}

// recompute runs RecomputeProductRating and downgrades failure to a log
// line: a stale rating is preferable to failing the user action that
// triggered the recompute.
func (s *Service) recompute(ctx context.Context, productID string) {
	if err := s.RecomputeProductRating(ctx, productID); err != nil {
		s.lg.Warn("product rating recompute failed",
			zap.String("product_id", productID),
			zap.Error(err),
		)
	}
}

func averageOf(counts RatingCounts) decimal.Decimal {
	total := counts.Total()
	if total == 0 {
		return decimal.Zero
	}
	sum := 0
	for i, n := range counts {
		sum += (i + 1) * n
	}
	return decimal.NewFromInt(int64(sum)).
		Div(decimal.NewFromInt(int64(total))).
		Round(1)
}

func statisticsFrom(counts RatingCounts) Statistics {
	var dist [5]int
	for i, n := range counts {
		// counts is 1★..5★; the histogram renders 5★ first.
		dist[4-i] = n
	}
	return Statistics{
		AverageRating: averageOf(counts),
		TotalReviews:  counts.Total(),
		Distribution:  dist,
	}
}

func validateContent(productID string, rating int, title, comment string) error {
	switch {
	case productID == "":
		return &ValidationError{Field: "productId", Reason: "required"}
	case rating < 1 || rating > 5:
		return &ValidationError{Field: "rating", Reason: "must be between 1 and 5"}
	case strings.TrimSpace(title) == "":
		return &ValidationError{Field: "title", Reason: "required"}
	case strings.TrimSpace(comment) == "":
		return &ValidationError{Field: "comment", Reason: "required"}
	}
	return nil
}
