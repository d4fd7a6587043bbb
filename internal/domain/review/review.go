package review

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

// Status is the moderation state of a review. Only approved reviews count
// toward product ratings and public listings.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ValidStatus reports whether s is a known moderation state.
func ValidStatus(s Status) bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// ReportThreshold is the number of distinct reporters that forces a review
// back to pending for re-moderation.
const ReportThreshold = 3

// Sentinel errors for review operations.
var (
	ErrNotFound  = errors.New("review not found")
	ErrDuplicate = errors.New("a review for this product already exists")
	ErrForbidden = errors.New("not allowed to modify this review")
	ErrBadStatus = errors.New("invalid review status")
)

// ValidationError reports a malformed or missing input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Reviewer identifies who wrote a review: a verified user, or a guest with a
// name and an optional email. The two halves are mutually exclusive; the
// duplicate and ownership checks consume this uniformly.
type Reviewer struct {
	UserID     string
	GuestName  string
	GuestEmail string
}

// Authenticated reports whether the reviewer has a verified account.
func (r Reviewer) Authenticated() bool { return r.UserID != "" }

// Report is one abuse report against a review.
type Report struct {
	UserID     string    `json:"userId"`
	Reason     string    `json:"reason"`
	ReportedAt time.Time `json:"reportedAt"`
}

// Review is a customer rating with optional prose, owned by either a user or
// a guest identity.
type Review struct {
	ID        string
	ProductID string
	UserID    string

	Rating  int
	Title   string
	Comment string

	GuestName  string
	GuestEmail string

	// Verified marks reviewers with a delivered order containing the product.
	Verified bool

	Helpful      int
	HelpfulUsers []string
	Likes        int
	LikedUsers   []string

	Reports []Report
	Status  Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReportedBy reports whether userID already filed a report on this review.
func (r *Review) ReportedBy(userID string) bool {
	for _, rep := range r.Reports {
		if rep.UserID == userID {
			return true
		}
	}
	return false
}

// Sort enumerates the listing orders. Every sort is total: ties break on
// createdAt descending.
type Sort string

const (
	SortNewest      Sort = "newest"
	SortOldest      Sort = "oldest"
	SortHighest     Sort = "highest"
	SortLowest      Sort = "lowest"
	SortMostHelpful Sort = "most_helpful"
	SortMostLiked   Sort = "most_liked"
)

// NormalizeSort maps unknown sort keys to the default (newest first).
func NormalizeSort(s Sort) Sort {
	switch s {
	case SortNewest, SortOldest, SortHighest, SortLowest, SortMostHelpful, SortMostLiked:
		return s
	}
	return SortNewest
}

// Page is a pagination request.
type Page struct {
	Number int
	Limit  int
}

// RatingCounts holds per-star counts of the approved set; index i is the
// number of (i+1)-star reviews.
type RatingCounts [5]int

// Total returns the size of the approved set.
func (c RatingCounts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// AdminFilter selects reviews for the back-office listing.
type AdminFilter struct {
	Status Status // empty matches all
	Page   Page
}

// Repository defines persistence operations for reviews. Counter mutations
// (toggles) are conditional single-statement updates keyed on set
// membership, so they stay idempotent under concurrent retries.
type Repository interface {
	Create(ctx context.Context, r *Review) error
	GetByID(ctx context.Context, id string) (*Review, error)
	UpdateContent(ctx context.Context, r *Review) error
	Delete(ctx context.Context, id string) error

	ExistsForUser(ctx context.Context, productID, userID string) (bool, error)
	ExistsForGuestEmail(ctx context.Context, productID, email string) (bool, error)

	ListApproved(ctx context.Context, productID string, sort Sort, page Page) ([]Review, error)
	ListAdmin(ctx context.Context, f AdminFilter) ([]Review, int, error)

	// ApprovedRatingCounts returns the per-star histogram of approved
	// reviews for a product. This is the aggregation engine's source of
	// truth: mean and count derive from it.
	ApprovedRatingCounts(ctx context.Context, productID string) (RatingCounts, error)

	// ToggleHelpful flips userID's membership in the helpful set and moves
	// the counter accordingly. It returns the new counter value and whether
	// the toggle added (true) or removed (false) the mark.
	ToggleHelpful(ctx context.Context, reviewID, userID string) (int, bool, error)
	ToggleLike(ctx context.Context, reviewID, userID string) (int, bool, error)

	// SetReports replaces the reports list and moderation status in one
	// update, leaving the counters alone.
	SetReports(ctx context.Context, id string, reports []Report, status Status) error
	SetStatus(ctx context.Context, id string, status Status) error

	// InteractionIDs returns the review IDs the user marked helpful and
	// liked, for client-side state restoration.
	InteractionIDs(ctx context.Context, userID string) (helpful, liked []string, err error)
}
