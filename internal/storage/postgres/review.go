package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glamlocks/storefront/internal/domain/review"
)

const (
	reviewColumns = `id, product_id, user_id, rating, title, comment, guest_name,
		guest_email, verified, helpful, helpful_users, likes, liked_users,
		reports, status, created_at, updated_at`

	createReviewSQL = `INSERT INTO reviews (id, product_id, user_id, rating, title,
		comment, guest_name, guest_email, verified, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	getReviewByIDSQL = `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`

	updateReviewContentSQL = `UPDATE reviews SET rating = $2, title = $3,
		comment = $4, status = $5, updated_at = $6 WHERE id = $1`

	deleteReviewSQL = `DELETE FROM reviews WHERE id = $1`

	existsForUserSQL = `SELECT EXISTS (
		SELECT 1 FROM reviews WHERE product_id = $1 AND user_id = $2)`

	existsForGuestEmailSQL = `SELECT EXISTS (
		SELECT 1 FROM reviews WHERE product_id = $1 AND user_id = '' AND guest_email = $2)`

	approvedRatingCountsSQL = `SELECT rating, COUNT(*) FROM reviews
		WHERE product_id = $1 AND status = 'approved' GROUP BY rating`

	// The membership test and both counter moves happen in one statement, so
	// concurrent toggles by the same user cannot double-count. RETURNING sees
	// the new row: the membership test there reports whether the mark was
	// just added.
	toggleHelpfulSQL = `UPDATE reviews SET
		helpful_users = CASE WHEN $2 = ANY(helpful_users)
			THEN array_remove(helpful_users, $2)
			ELSE array_append(helpful_users, $2) END,
		helpful = CASE WHEN $2 = ANY(helpful_users)
			THEN helpful - 1 ELSE helpful + 1 END
		WHERE id = $1
		RETURNING helpful, $2 = ANY(helpful_users)`

	toggleLikeSQL = `UPDATE reviews SET
		liked_users = CASE WHEN $2 = ANY(liked_users)
			THEN array_remove(liked_users, $2)
			ELSE array_append(liked_users, $2) END,
		likes = CASE WHEN $2 = ANY(liked_users)
			THEN likes - 1 ELSE likes + 1 END
		WHERE id = $1
		RETURNING likes, $2 = ANY(liked_users)`

	setReportsSQL = `UPDATE reviews SET reports = $2, status = $3 WHERE id = $1`

	setStatusSQL = `UPDATE reviews SET status = $2 WHERE id = $1`

	helpfulIDsSQL = `SELECT id FROM reviews WHERE $1 = ANY(helpful_users)`
	likedIDsSQL   = `SELECT id FROM reviews WHERE $1 = ANY(liked_users)`
)

var _ review.Repository = (*ReviewRepository)(nil)

// ReviewRepository implements review.Repository backed by PostgreSQL.
//
// Duplicate prevention is delegated to the partial unique indexes on
// (product_id, user_id) and (product_id, guest_email), so racing submissions
// collapse to exactly one review.
type ReviewRepository struct {
	pool *pgxpool.Pool
}

// NewReviewRepository returns a ReviewRepository that uses the given pool.
func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create persists a new review. Returns review.ErrDuplicate when a unique
// index rejects the row.
func (r *ReviewRepository) Create(ctx context.Context, rv *review.Review) error {
	_, err := r.pool.Exec(ctx, createReviewSQL,
		rv.ID, rv.ProductID, rv.UserID, rv.Rating, rv.Title, rv.Comment,
		rv.GuestName, rv.GuestEmail, rv.Verified, rv.Status, rv.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return review.ErrDuplicate
		}
		return fmt.Errorf("creating review %q: %w", rv.ID, err)
	}
	return nil
}

// GetByID returns a single review by its identifier.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*review.Review, error) {
	rows, err := r.pool.Query(ctx, getReviewByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting review %q: %w", id, err)
	}

	rv, err := pgx.CollectExactlyOneRow(rows, scanReview)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, review.ErrNotFound
		}
		return nil, fmt.Errorf("getting review %q: %w", id, err)
	}
	return &rv, nil
}

// UpdateContent writes the reviewer-editable fields plus the moderation
// status reset that accompanies an edit.
func (r *ReviewRepository) UpdateContent(ctx context.Context, rv *review.Review) error {
	tag, err := r.pool.Exec(ctx, updateReviewContentSQL,
		rv.ID, rv.Rating, rv.Title, rv.Comment, rv.Status, rv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating review %q: %w", rv.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return review.ErrNotFound
	}
	return nil
}

// Delete removes a review.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteReviewSQL, id)
	if err != nil {
		return fmt.Errorf("deleting review %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return review.ErrNotFound
	}
	return nil
}

// ExistsForUser reports whether the user already reviewed the product.
func (r *ReviewRepository) ExistsForUser(ctx context.Context, productID, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, existsForUserSQL, productID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking review for user %q: %w", userID, err)
	}
	return exists, nil
}

// ExistsForGuestEmail reports whether the guest email already reviewed the
// product.
func (r *ReviewRepository) ExistsForGuestEmail(ctx context.Context, productID, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, existsForGuestEmailSQL, productID, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking review for guest email: %w", err)
	}
	return exists, nil
}

// ListApproved returns a page of approved reviews in the requested order.
func (r *ReviewRepository) ListApproved(ctx context.Context, productID string, sort review.Sort, page review.Page) ([]review.Review, error) {
	q := `SELECT ` + reviewColumns + ` FROM reviews
		WHERE product_id = $1 AND status = 'approved'
		ORDER BY ` + orderClause(sort) + ` LIMIT $2 OFFSET $3`

	offset := (page.Number - 1) * page.Limit
	rows, err := r.pool.Query(ctx, q, productID, page.Limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing reviews for product %q: %w", productID, err)
	}
	return pgx.CollectRows(rows, scanReview)
}

// orderClause maps a normalized sort key onto a fixed ORDER BY expression.
// Every sort breaks ties on created_at descending so pagination is stable.
func orderClause(sort review.Sort) string {
	switch sort {
	case review.SortOldest:
		return "created_at ASC"
	case review.SortHighest:
		return "rating DESC, created_at DESC"
	case review.SortLowest:
		return "rating ASC, created_at DESC"
	case review.SortMostHelpful:
		return "helpful DESC, created_at DESC"
	case review.SortMostLiked:
		return "likes DESC, created_at DESC"
	default:
		return "created_at DESC"
	}
}

// ListAdmin returns a page of reviews for the back office, optionally
// filtered by moderation status, with the total matching count.
func (r *ReviewRepository) ListAdmin(ctx context.Context, f review.AdminFilter) ([]review.Review, int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reviews WHERE ($1 = '' OR status = $1)`,
		string(f.Status),
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting reviews: %w", err)
	}

	offset := (f.Page.Number - 1) * f.Page.Limit
	rows, err := r.pool.Query(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE ($1 = '' OR status = $1)
			ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		string(f.Status), f.Page.Limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing reviews: %w", err)
	}

	reviews, err := pgx.CollectRows(rows, scanReview)
	if err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

// ApprovedRatingCounts returns the per-star histogram of approved reviews.
func (r *ReviewRepository) ApprovedRatingCounts(ctx context.Context, productID string) (review.RatingCounts, error) {
	var counts review.RatingCounts
	rows, err := r.pool.Query(ctx, approvedRatingCountsSQL, productID)
	if err != nil {
		return counts, fmt.Errorf("counting ratings for product %q: %w", productID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var rating, n int
		if err := rows.Scan(&rating, &n); err != nil {
			return counts, fmt.Errorf("scanning rating counts: %w", err)
		}
		if rating >= 1 && rating <= 5 {
			counts[rating-1] = n
		}
	}
	if err := rows.Err(); err != nil {
		return counts, fmt.Errorf("reading rating counts: %w", err)
	}
	return counts, nil
}

// ToggleHelpful flips userID's helpful mark in a single statement.
func (r *ReviewRepository) ToggleHelpful(ctx context.Context, reviewID, userID string) (int, bool, error) {
	return r.toggle(ctx, toggleHelpfulSQL, reviewID, userID)
}

// ToggleLike flips userID's like mark in a single statement.
func (r *ReviewRepository) ToggleLike(ctx context.Context, reviewID, userID string) (int, bool, error) {
	return r.toggle(ctx, toggleLikeSQL, reviewID, userID)
}

func (r *ReviewRepository) toggle(ctx context.Context, q, reviewID, userID string) (int, bool, error) {
	var (
		count int
		added bool
	)
	err := r.pool.QueryRow(ctx, q, reviewID, userID).Scan(&count, &added)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, review.ErrNotFound
		}
		return 0, false, fmt.Errorf("toggling mark on review %q: %w", reviewID, err)
	}
	return count, added, nil
}

// SetReports replaces the reports list and moderation status in one update.
func (r *ReviewRepository) SetReports(ctx context.Context, id string, reports []review.Report, status review.Status) error {
	reportsJSON, err := json.Marshal(reports)
	if err != nil {
		return fmt.Errorf("marshaling reports: %w", err)
	}

	tag, err := r.pool.Exec(ctx, setReportsSQL, id, reportsJSON, status)
	if err != nil {
		return fmt.Errorf("saving reports for review %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return review.ErrNotFound
	}
	return nil
}

// SetStatus writes the moderation status.
func (r *ReviewRepository) SetStatus(ctx context.Context, id string, status review.Status) error {
	tag, err := r.pool.Exec(ctx, setStatusSQL, id, status)
	if err != nil {
		return fmt.Errorf("setting status for review %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return review.ErrNotFound
	}
	return nil
}

// InteractionIDs returns the review IDs the user marked helpful and liked.
func (r *ReviewRepository) InteractionIDs(ctx context.Context, userID string) (helpful, liked []string, err error) {
	helpful, err = r.collectIDs(ctx, helpfulIDsSQL, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing helpful marks: %w", err)
	}
	liked, err = r.collectIDs(ctx, likedIDsSQL, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing like marks: %w", err)
	}
	return helpful, liked, nil
}

func (r *ReviewRepository) collectIDs(ctx context.Context, q, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanReview(row pgx.CollectableRow) (review.Review, error) {
	var (
		rv      review.Review
		reports []byte
	)
	err := row.Scan(
		&rv.ID, &rv.ProductID, &rv.UserID, &rv.Rating, &rv.Title, &rv.Comment,
		&rv.GuestName, &rv.GuestEmail, &rv.Verified, &rv.Helpful,
		&rv.HelpfulUsers, &rv.Likes, &rv.LikedUsers, &reports, &rv.Status,
		&rv.CreatedAt, &rv.UpdatedAt,
	)
	if err != nil {
		return rv, err
	}
	if err := json.Unmarshal(reports, &rv.Reports); err != nil {
		return rv, fmt.Errorf("unmarshaling reports for %q: %w", rv.ID, err)
	}
	return rv, nil
}
