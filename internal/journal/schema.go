package journal

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

// journalSchema is the layout version written into new journals. Any change
// to schema.sql must bump it; journals are never migrated in place.
const journalSchema = 1

// journalTables must all exist in a journal whose version row matches.
var journalTables = []string{
	"users",
	"manuscripts",
	"authorships",
	"manuscript_reviewers",
	"revisions",
	"reviews",
	"transition_history",
}

// ErrSchemaMismatch matches every *SchemaError.
var ErrSchemaMismatch = errors.New("journal schema mismatch")

// SchemaError reports a journal file this build cannot use as-is.
type SchemaError struct {
	Path    string
	Found   int
	Want    int
	Missing []string
}

func (e *SchemaError) Error() string {
	switch {
	case len(e.Missing) > 0:
		return fmt.Sprintf("journal %s is missing tables: %s", e.Path, strings.Join(e.Missing, ", "))
	case e.Found == 0:
		return fmt.Sprintf("journal %s has no schema version recorded", e.Path)
	case e.Found > e.Want:
		return fmt.Sprintf("journal %s was written by a newer build (schema v%d, this build reads v%d)", e.Path, e.Found, e.Want)
	default:
		return fmt.Sprintf("journal %s uses retired schema v%d (this build reads v%d)", e.Path, e.Found, e.Want)
	}
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchemaMismatch }

// initSchema creates a fresh journal or checks that an existing one matches
// journalSchema.
func (s *Store) initSchema(ctx context.Context) error {
	existing, err := s.tableNames(ctx)
	if err != nil {
		return err
	}
	if _, ok := existing["schema_version"]; !ok {
		return s.createSchema(ctx)
	}

	var found int
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return fmt.Errorf("journal version: %w", err)
	}
	for rows.Next() {
		if err := rows.Scan(&found); err != nil {
			_ = rows.Close()
			return fmt.Errorf("journal version: %w", err)
		}
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("journal version: %w", err)
	}
	if found != journalSchema {
		return &SchemaError{Path: s.path, Found: found, Want: journalSchema}
	}

	var missing []string
	for _, name := range journalTables {
		if _, ok := existing[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Path: s.path, Found: found, Want: journalSchema, Missing: missing}
	}
	return nil
}

func (s *Store) tableNames(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		return nil, fmt.Errorf("list journal tables: %w", err)
	}
	defer rows.Close()

	names := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list journal tables: %w", err)
		}
		names[name] = struct{}{}
	}
	return names, rows.Err()
}

// createSchema lays out every table and stamps the version in one
// transaction.
func (s *Store) createSchema(ctx context.Context) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.execWithRetry(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create journal tables: %w", err)
		}
		if _, err := tx.execWithRetry(ctx, "INSERT INTO schema_version (version) VALUES (?)", journalSchema); err != nil {
			return fmt.Errorf("stamp journal version: %w", err)
		}
		return nil
	})
}
