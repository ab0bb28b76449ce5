package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const reviewColumns = "id, revision_id, reviewer_id, status, recommendation, text, editor_feedback, due_at, submitted_at, closed_at, created_at"

func scanReview(row scanner) (*Review, error) {
	var (
		r                            Review
		status                       string
		recommendation, text, editor sql.NullString
		due, submitted, closed, made sql.NullString
	)
	if err := row.Scan(
		&r.ID, &r.RevisionID, &r.ReviewerID, &status, &recommendation, &text, &editor,
		&due, &submitted, &closed, &made,
	); err != nil {
		return nil, err
	}
	r.Status = ReviewStatus(status)
	r.Recommendation = Recommendation(recommendation.String)
	r.Text = text.String
	r.EditorFeedback = editor.String
	r.DueAt = parseTime(due)
	r.SubmittedAt = parseTimePtr(submitted)
	r.ClosedAt = parseTimePtr(closed)
	r.CreatedAt = parseTime(made)
	return &r, nil
}

// CreateReview inserts r and assigns its ID. A second review for the same
// reviewer on one revision fails with ErrDuplicate.
func (c conn) CreateReview(ctx context.Context, r *Review) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	res, err := c.execWithRetry(ctx,
		`INSERT INTO reviews (
            revision_id, reviewer_id, status, recommendation, text, editor_feedback,
            due_at, submitted_at, closed_at, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RevisionID,
		r.ReviewerID,
		string(r.Status),
		nullableString(string(r.Recommendation)),
		nullableString(r.Text),
		nullableString(r.EditorFeedback),
		formatTime(r.DueAt),
		nullableTime(r.SubmittedAt),
		nullableTime(r.ClosedAt),
		formatTime(r.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("review by %d on revision %d: %w", r.ReviewerID, r.RevisionID, ErrDuplicate)
		}
		return fmt.Errorf("insert review: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	r.ID = id
	return nil
}

// GetReview fetches a review by id.
func (c conn) GetReview(ctx context.Context, id int64) (*Review, error) {
	row := c.q.QueryRowContext(ensureContext(ctx), "SELECT "+reviewColumns+" FROM reviews WHERE id = ?", id)
	r, err := scanReview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("review %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return r, nil
}

// UpdateReview persists every mutable field of r, including a cleared
// closed timestamp after an extension.
func (c conn) UpdateReview(ctx context.Context, r *Review) error {
	res, err := c.execWithRetry(ctx,
		`UPDATE reviews SET
            status = ?, recommendation = ?, text = ?, editor_feedback = ?,
            due_at = ?, submitted_at = ?, closed_at = ?
        WHERE id = ?`,
		string(r.Status),
		nullableString(string(r.Recommendation)),
		nullableString(r.Text),
		nullableString(r.EditorFeedback),
		formatTime(r.DueAt),
		nullableTime(r.SubmittedAt),
		nullableTime(r.ClosedAt),
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("review %d: %w", r.ID, ErrNotFound)
	}
	return nil
}

// ReviewsForRevision returns the revision's reviews ordered by id.
func (c conn) ReviewsForRevision(ctx context.Context, revisionID int64) ([]*Review, error) {
	return c.queryReviews(ctx,
		"SELECT "+reviewColumns+" FROM reviews WHERE revision_id = ? ORDER BY id", revisionID)
}

// ReviewsByReviewer returns every review assigned to reviewerID, newest first.
func (c conn) ReviewsByReviewer(ctx context.Context, reviewerID int64) ([]*Review, error) {
	return c.queryReviews(ctx,
		"SELECT "+reviewColumns+" FROM reviews WHERE reviewer_id = ? ORDER BY id DESC", reviewerID)
}

// OverdueReviews returns owed reviews whose due date is before now.
func (c conn) OverdueReviews(ctx context.Context, now time.Time) ([]*Review, error) {
	return c.queryReviews(ctx,
		"SELECT "+reviewColumns+" FROM reviews WHERE status IN (?, ?) AND due_at < ? ORDER BY due_at, id",
		string(ReviewAssigned), string(ReviewEditRequested), formatTime(now))
}

func (c conn) queryReviews(ctx context.Context, query string, args ...any) ([]*Review, error) {
	rows, err := c.q.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}
