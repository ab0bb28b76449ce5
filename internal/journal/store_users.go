package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"editorial/internal/ranking"
)

const userColumns = "id, username, first_name, last_name, email, is_author, is_reviewer, is_editor, created_at"

func scanUser(row scanner) (*User, error) {
	var (
		u                      User
		first, last, email     sql.NullString
		author, reviewer, edit int
		created                sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Username, &first, &last, &email, &author, &reviewer, &edit, &created); err != nil {
		return nil, err
	}
	u.FirstName = first.String
	u.LastName = last.String
	u.Email = email.String
	u.IsAuthor = author != 0
	u.IsReviewer = reviewer != 0
	u.IsEditor = edit != 0
	u.CreatedAt = parseTime(created)
	return &u, nil
}

// CreateUser inserts u and assigns its ID.
func (c conn) CreateUser(ctx context.Context, u *User) error {
	if strings.TrimSpace(u.Username) == "" {
		return errors.New("create user: username is required")
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	res, err := c.execWithRetry(ctx,
		`INSERT INTO users (username, first_name, last_name, email, is_author, is_reviewer, is_editor, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Username,
		nullableString(u.FirstName),
		nullableString(u.LastName),
		nullableString(u.Email),
		boolToInt(u.IsAuthor),
		boolToInt(u.IsReviewer),
		boolToInt(u.IsEditor),
		formatTime(u.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user %q: %w", u.Username, ErrDuplicate)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	u.ID = id
	return nil
}

// GetUser fetches a user by id.
func (c conn) GetUser(ctx context.Context, id int64) (*User, error) {
	row := c.q.QueryRowContext(ensureContext(ctx), "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserByUsername fetches a user by username.
func (c conn) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := c.q.QueryRowContext(ensureContext(ctx), "SELECT "+userColumns+" FROM users WHERE username = ?", username)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListUsers returns every user ordered by id.
func (c conn) ListUsers(ctx context.Context) ([]*User, error) {
	return c.queryUsers(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
}

// UsersByID loads the given users keyed by id. Unknown ids are skipped.
func (c conn) UsersByID(ctx context.Context, ids []int64) (map[int64]*User, error) {
	users := make(map[int64]*User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	list, err := c.queryUsers(ctx,
		"SELECT "+userColumns+" FROM users WHERE id IN ("+makePlaceholders(len(ids))+") ORDER BY id",
		int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	for _, u := range list {
		users[u.ID] = u
	}
	return users, nil
}

// Editors returns every user with the editor role.
func (c conn) Editors(ctx context.Context) ([]*User, error) {
	return c.queryUsers(ctx, "SELECT "+userColumns+" FROM users WHERE is_editor = 1 ORDER BY id")
}

func (c conn) queryUsers(ctx context.Context, query string, args ...any) ([]*User, error) {
	rows, err := c.q.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ReviewerCandidates returns every reviewer with their total review count and
// the number of distinct reviews they wrote for manuscripts by any of
// authorIDs, ordered by id. Exclusion of authors and assigned reviewers is
// left to ranking.Rank.
func (c conn) ReviewerCandidates(ctx context.Context, authorIDs []int64) ([]ranking.Candidate, error) {
	authorCount := "0"
	var args []any
	if len(authorIDs) > 0 {
		authorCount = `(SELECT COUNT(DISTINCT r.id)
            FROM reviews r
            JOIN revisions v ON v.id = r.revision_id
            JOIN authorships a ON a.manuscript_id = v.manuscript_id
            WHERE r.reviewer_id = u.id AND a.author_id IN (` + makePlaceholders(len(authorIDs)) + `))`
		args = int64Args(authorIDs)
	}
	query := `SELECT u.id,
            (SELECT COUNT(1) FROM reviews r WHERE r.reviewer_id = u.id),
            ` + authorCount + `
        FROM users u
        WHERE u.is_reviewer = 1
        ORDER BY u.id`

	rows, err := c.q.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviewer candidates: %w", err)
	}
	defer rows.Close()

	var candidates []ranking.Candidate
	for rows.Next() {
		var cand ranking.Candidate
		if err := rows.Scan(&cand.ReviewerID, &cand.TotalReviews, &cand.AuthorReviews); err != nil {
			return nil, fmt.Errorf("scan reviewer candidate: %w", err)
		}
		candidates = append(candidates, cand)
	}
	return candidates, rows.Err()
}
