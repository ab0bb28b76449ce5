package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const revisionColumns = "id, manuscript_id, title, text, revision_note, editorial_review, revision_number, status, deleted, created_at, submitted_at, decided_at, published_at"

func scanRevision(row scanner) (*Revision, error) {
	var (
		r                                     Revision
		note, editorial                       sql.NullString
		status                                string
		deleted                               int
		created, submitted, decided, publishd sql.NullString
	)
	if err := row.Scan(
		&r.ID, &r.ManuscriptID, &r.Title, &r.Text, &note, &editorial, &r.Number, &status, &deleted,
		&created, &submitted, &decided, &publishd,
	); err != nil {
		return nil, err
	}
	r.RevisionNote = note.String
	r.EditorialReview = editorial.String
	r.Status = RevisionStatus(status)
	r.Deleted = deleted != 0
	r.CreatedAt = parseTime(created)
	r.SubmittedAt = parseTimePtr(submitted)
	r.DecidedAt = parseTimePtr(decided)
	r.PublishedAt = parseTimePtr(publishd)
	return &r, nil
}

// CreateRevision inserts r and assigns its ID. The (manuscript, number) pair
// must be unused.
func (c conn) CreateRevision(ctx context.Context, r *Revision) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	res, err := c.execWithRetry(ctx,
		`INSERT INTO revisions (
            manuscript_id, title, text, revision_note, editorial_review, revision_number, status,
            deleted, created_at, submitted_at, decided_at, published_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?)`,
		r.ManuscriptID,
		r.Title,
		r.Text,
		nullableString(r.RevisionNote),
		nullableString(r.EditorialReview),
		r.Number,
		string(r.Status),
		formatTime(r.CreatedAt),
		nullableTime(r.SubmittedAt),
		nullableTime(r.DecidedAt),
		nullableTime(r.PublishedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("revision %d of manuscript %d: %w", r.Number, r.ManuscriptID, ErrDuplicate)
		}
		return fmt.Errorf("insert revision: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	r.ID = id
	return nil
}

// GetRevision loads a live revision together with its reviews.
func (c conn) GetRevision(ctx context.Context, id int64) (*Revision, error) {
	ctx = ensureContext(ctx)
	row := c.q.QueryRowContext(ctx, "SELECT "+revisionColumns+" FROM revisions WHERE id = ? AND deleted = 0", id)
	r, err := scanRevision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("revision %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get revision: %w", err)
	}
	if r.Reviews, err = c.ReviewsForRevision(ctx, id); err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateRevision persists the mutable fields of r. Timestamps that are
// already set in the database are never cleared or overwritten.
func (c conn) UpdateRevision(ctx context.Context, r *Revision) error {
	res, err := c.execWithRetry(ctx,
		`UPDATE revisions SET
            title = ?, text = ?, revision_note = ?, editorial_review = ?, status = ?,
            submitted_at = COALESCE(submitted_at, ?),
            decided_at = COALESCE(decided_at, ?),
            published_at = COALESCE(published_at, ?)
        WHERE id = ?`,
		r.Title,
		r.Text,
		nullableString(r.RevisionNote),
		nullableString(r.EditorialReview),
		string(r.Status),
		nullableTime(r.SubmittedAt),
		nullableTime(r.DecidedAt),
		nullableTime(r.PublishedAt),
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("update revision: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("revision %d: %w", r.ID, ErrNotFound)
	}
	return nil
}

func (c conn) revisionsFor(ctx context.Context, manuscriptID int64) ([]*Revision, error) {
	rows, err := c.q.QueryContext(ctx,
		"SELECT "+revisionColumns+" FROM revisions WHERE manuscript_id = ? AND deleted = 0 ORDER BY revision_number",
		manuscriptID)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	var revisions []*Revision
	for rows.Next() {
		r, err := scanRevision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revisions = append(revisions, r)
	}
	return revisions, rows.Err()
}
