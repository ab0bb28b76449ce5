package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateManuscript inserts an empty manuscript row and assigns its ID.
// Authorships and revisions are added separately.
func (c conn) CreateManuscript(ctx context.Context, m *Manuscript) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	res, err := c.execWithRetry(ctx,
		"INSERT INTO manuscripts (deleted, created_at) VALUES (0, ?)",
		formatTime(m.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert manuscript: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	m.ID = id
	return nil
}

// AddAuthorship links authorID to the manuscript.
func (c conn) AddAuthorship(ctx context.Context, manuscriptID, authorID int64, acknowledged bool) error {
	_, err := c.execWithRetry(ctx,
		"INSERT INTO authorships (manuscript_id, author_id, acknowledged) VALUES (?, ?, ?)",
		manuscriptID, authorID, boolToInt(acknowledged),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("author %d on manuscript %d: %w", authorID, manuscriptID, ErrDuplicate)
		}
		return fmt.Errorf("insert authorship: %w", err)
	}
	return nil
}

// AcknowledgeAuthorship marks the author's authorship acknowledged.
func (c conn) AcknowledgeAuthorship(ctx context.Context, manuscriptID, authorID int64) error {
	res, err := c.execWithRetry(ctx,
		"UPDATE authorships SET acknowledged = 1 WHERE manuscript_id = ? AND author_id = ?",
		manuscriptID, authorID,
	)
	if err != nil {
		return fmt.Errorf("acknowledge authorship: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("author %d on manuscript %d: %w", authorID, manuscriptID, ErrNotFound)
	}
	return nil
}

// AddReviewers attaches reviewers to the manuscript. Reviewers already
// attached are left alone.
func (c conn) AddReviewers(ctx context.Context, manuscriptID int64, now time.Time, reviewerIDs ...int64) error {
	for _, id := range reviewerIDs {
		if _, err := c.execWithRetry(ctx,
			"INSERT OR IGNORE INTO manuscript_reviewers (manuscript_id, reviewer_id, created_at) VALUES (?, ?, ?)",
			manuscriptID, id, formatTime(now),
		); err != nil {
			return fmt.Errorf("add reviewer %d: %w", id, err)
		}
	}
	return nil
}

// SoftDeleteManuscript hides a manuscript from default queries.
func (c conn) SoftDeleteManuscript(ctx context.Context, id int64) error {
	res, err := c.execWithRetry(ctx, "UPDATE manuscripts SET deleted = 1 WHERE id = ? AND deleted = 0", id)
	if err != nil {
		return fmt.Errorf("delete manuscript: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("manuscript %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetManuscript loads a manuscript with its authorships, reviewer ids and
// revisions. Revisions do not carry their reviews; use GetRevision for that.
func (c conn) GetManuscript(ctx context.Context, id int64) (*Manuscript, error) {
	ctx = ensureContext(ctx)
	var (
		m       Manuscript
		deleted int
		created sql.NullString
	)
	err := c.q.QueryRowContext(ctx,
		"SELECT id, deleted, created_at FROM manuscripts WHERE id = ? AND deleted = 0", id,
	).Scan(&m.ID, &deleted, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("manuscript %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get manuscript: %w", err)
	}
	m.Deleted = deleted != 0
	m.CreatedAt = parseTime(created)

	if m.Authorships, err = c.authorships(ctx, id); err != nil {
		return nil, err
	}
	if m.ReviewerIDs, err = c.reviewerIDs(ctx, id); err != nil {
		return nil, err
	}
	if m.Revisions, err = c.revisionsFor(ctx, id); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListManuscripts returns every live manuscript, newest first.
func (c conn) ListManuscripts(ctx context.Context) ([]*Manuscript, error) {
	ctx = ensureContext(ctx)
	rows, err := c.q.QueryContext(ctx, "SELECT id FROM manuscripts WHERE deleted = 0 ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("list manuscripts: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan manuscript id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	manuscripts := make([]*Manuscript, 0, len(ids))
	for _, id := range ids {
		m, err := c.GetManuscript(ctx, id)
		if err != nil {
			return nil, err
		}
		manuscripts = append(manuscripts, m)
	}
	return manuscripts, nil
}

func (c conn) authorships(ctx context.Context, manuscriptID int64) ([]Authorship, error) {
	rows, err := c.q.QueryContext(ctx,
		`SELECT a.acknowledged, u.id, u.username, u.first_name, u.last_name, u.email,
                u.is_author, u.is_reviewer, u.is_editor, u.created_at
         FROM authorships a JOIN users u ON u.id = a.author_id
         WHERE a.manuscript_id = ?
         ORDER BY a.id`, manuscriptID)
	if err != nil {
		return nil, fmt.Errorf("query authorships: %w", err)
	}
	defer rows.Close()

	var out []Authorship
	for rows.Next() {
		var ack int
		var inner ackScanner
		inner.ack = &ack
		inner.rows = rows
		u, err := scanUser(&inner)
		if err != nil {
			return nil, fmt.Errorf("scan authorship: %w", err)
		}
		out = append(out, Authorship{ManuscriptID: manuscriptID, Author: *u, Acknowledged: ack != 0})
	}
	return out, rows.Err()
}

// ackScanner prepends the acknowledged column to a user scan.
type ackScanner struct {
	ack  *int
	rows *sql.Rows
}

func (s *ackScanner) Scan(dest ...any) error {
	return s.rows.Scan(append([]any{s.ack}, dest...)...)
}

func (c conn) reviewerIDs(ctx context.Context, manuscriptID int64) ([]int64, error) {
	rows, err := c.q.QueryContext(ctx,
		"SELECT reviewer_id FROM manuscript_reviewers WHERE manuscript_id = ? ORDER BY created_at, reviewer_id",
		manuscriptID)
	if err != nil {
		return nil, fmt.Errorf("query manuscript reviewers: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan reviewer id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
