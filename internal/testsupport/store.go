package testsupport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"editorial/internal/config"
	"editorial/internal/journal"
)

// MustOpenStore opens a journal.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Role flags for SeedUser.
type Role int

const (
	Author Role = 1 << iota
	Reviewer
	Editor
)

// SeedUser creates a user with the given roles. The email address is
// derived from the username.
func SeedUser(t testing.TB, store *journal.Store, username string, roles Role) *journal.User {
	t.Helper()

	u := &journal.User{
		Username:   username,
		FirstName:  username,
		LastName:   "Tester",
		Email:      fmt.Sprintf("%s@journal.test", username),
		IsAuthor:   roles&Author != 0,
		IsReviewer: roles&Reviewer != 0,
		IsEditor:   roles&Editor != 0,
	}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("store.CreateUser(%s): %v", username, err)
	}
	return u
}

// SeedRevision inserts a manuscript with acknowledged authors and one
// revision in status, bypassing the workflow.
func SeedRevision(t testing.TB, store *journal.Store, status journal.RevisionStatus, authors ...*journal.User) (*journal.Manuscript, *journal.Revision) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

	m := &journal.Manuscript{CreatedAt: now}
	if err := store.CreateManuscript(ctx, m); err != nil {
		t.Fatalf("store.CreateManuscript: %v", err)
	}
	for _, a := range authors {
		if err := store.AddAuthorship(ctx, m.ID, a.ID, true); err != nil {
			t.Fatalf("store.AddAuthorship: %v", err)
		}
	}
	rev := &journal.Revision{
		ManuscriptID: m.ID,
		Title:        "Seeded manuscript",
		Text:         "Body",
		Status:       status,
		CreatedAt:    now,
	}
	if err := store.CreateRevision(ctx, rev); err != nil {
		t.Fatalf("store.CreateRevision: %v", err)
	}
	return m, rev
}

// SeedReview attaches reviewer to the revision's manuscript and inserts a
// review in status due at due.
func SeedReview(t testing.TB, store *journal.Store, rev *journal.Revision, reviewer *journal.User, status journal.ReviewStatus, due time.Time) *journal.Review {
	t.Helper()
	ctx := context.Background()

	if err := store.AddReviewers(ctx, rev.ManuscriptID, due, reviewer.ID); err != nil {
		t.Fatalf("store.AddReviewers: %v", err)
	}
	review := &journal.Review{
		RevisionID: rev.ID,
		ReviewerID: reviewer.ID,
		Status:     status,
		DueAt:      due,
		CreatedAt:  due.Add(-7 * 24 * time.Hour),
	}
	if err := store.CreateReview(ctx, review); err != nil {
		t.Fatalf("store.CreateReview: %v", err)
	}
	return review
}
