package workflow_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"editorial/internal/config"
	"editorial/internal/journal"
	"editorial/internal/logging"
	"editorial/internal/testsupport"
	"editorial/internal/workflow"
)

var testNow = time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

type harness struct {
	cfg      *config.Config
	store    *journal.Store
	svc      *workflow.Service
	clock    *testsupport.Clock
	notifier *testsupport.Notifier
	audit    *testsupport.Audit
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	h := &harness{
		cfg:      cfg,
		store:    store,
		clock:    testsupport.NewClock(testNow),
		notifier: &testsupport.Notifier{},
		audit:    &testsupport.Audit{},
	}
	svc, err := workflow.New(cfg, store, logging.NewNop(),
		workflow.WithClock(h.clock),
		workflow.WithNotifier(h.notifier),
		workflow.WithRecorder(h.audit),
	)
	if err != nil {
		t.Fatalf("workflow.New: %v", err)
	}
	h.svc = svc
	return h
}

func (h *harness) revision(t *testing.T, id int64) *journal.Revision {
	t.Helper()
	rev, err := h.store.GetRevision(context.Background(), id)
	if err != nil {
		t.Fatalf("GetRevision(%d): %v", id, err)
	}
	return rev
}

func (h *harness) review(t *testing.T, id int64) *journal.Review {
	t.Helper()
	review, err := h.store.GetReview(context.Background(), id)
	if err != nil {
		t.Fatalf("GetReview(%d): %v", id, err)
	}
	return review
}

func (h *harness) manuscript(t *testing.T, id int64) *journal.Manuscript {
	t.Helper()
	m, err := h.store.GetManuscript(context.Background(), id)
	if err != nil {
		t.Fatalf("GetManuscript(%d): %v", id, err)
	}
	return m
}

func (h *harness) history(t *testing.T, entity string, id int64) []*journal.HistoryEntry {
	t.Helper()
	entries, err := h.store.History(context.Background(), entity, id)
	if err != nil {
		t.Fatalf("History(%s, %d): %v", entity, id, err)
	}
	return entries
}

func TestTransitionTablesAreExhaustive(t *testing.T) {
	h := newHarness(t)

	wantRevision := map[[2]journal.RevisionStatus]bool{
		{journal.RevisionUnsubmitted, journal.RevisionWaitingForAuthors}: true,
		{journal.RevisionUnsubmitted, journal.RevisionPending}:           true,
		{journal.RevisionWaitingForAuthors, journal.RevisionUnsubmitted}: true,
		{journal.RevisionPending, journal.RevisionWithdrawn}:             true,
		{journal.RevisionPending, journal.RevisionAccept}:                true,
		{journal.RevisionPending, journal.RevisionMinorRevision}:         true,
		{journal.RevisionPending, journal.RevisionMajorRevision}:         true,
		{journal.RevisionPending, journal.RevisionReject}:                true,
		{journal.RevisionAccept, journal.RevisionPublished}:              true,
	}
	edges := h.svc.RevisionTable()
	if len(edges) != len(wantRevision) {
		t.Fatalf("revision table has %d edges, want %d", len(edges), len(wantRevision))
	}
	for _, e := range edges {
		if !wantRevision[[2]journal.RevisionStatus{e.From, e.To}] {
			t.Fatalf("unexpected revision edge %s -> %s", e.From, e.To)
		}
	}

	wantReview := map[[2]journal.ReviewStatus]bool{
		{journal.ReviewAssigned, journal.ReviewSubmitted}:      true,
		{journal.ReviewAssigned, journal.ReviewExpired}:        true,
		{journal.ReviewAssigned, journal.ReviewWithdrawn}:      true,
		{journal.ReviewAssigned, journal.ReviewNotNeeded}:      true,
		{journal.ReviewSubmitted, journal.ReviewComplete}:      true,
		{journal.ReviewSubmitted, journal.ReviewEditRequested}: true,
		{journal.ReviewExpired, journal.ReviewAssigned}:        true,
		{journal.ReviewEditRequested, journal.ReviewSubmitted}: true,
		{journal.ReviewEditRequested, journal.ReviewExpired}:   true,
		{journal.ReviewEditRequested, journal.ReviewNotNeeded}: true,
	}
	reviewEdges := h.svc.ReviewTable()
	if len(reviewEdges) != len(wantReview) {
		t.Fatalf("review table has %d edges, want %d", len(reviewEdges), len(wantReview))
	}
	for _, e := range reviewEdges {
		if !wantReview[[2]journal.ReviewStatus{e.From, e.To}] {
			t.Fatalf("unexpected review edge %s -> %s", e.From, e.To)
		}
	}
}

func TestIllegalRevisionTransitionsChangeNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	editor := testsupport.SeedUser(t, h.store, "editor", testsupport.Editor)
	author := testsupport.SeedUser(t, h.store, "author", testsupport.Author)

	legal := map[[2]journal.RevisionStatus]bool{}
	for _, e := range h.svc.RevisionTable() {
		legal[[2]journal.RevisionStatus{e.From, e.To}] = true
	}

	for _, from := range journal.RevisionStatuses {
		for _, to := range journal.RevisionStatuses {
			if legal[[2]journal.RevisionStatus{from, to}] {
				continue
			}
			_, rev := testsupport.SeedRevision(t, h.store, from, author)
			_, err := h.svc.TransitionRevision(ctx, editor.ID, rev.ID, to)
			if !errors.Is(err, workflow.ErrIllegalTransition) {
				t.Fatalf("%s -> %s: expected ErrIllegalTransition, got %v", from, to, err)
			}
			if got := h.revision(t, rev.ID).Status; got != from {
				t.Fatalf("%s -> %s: status changed to %s", from, to, got)
			}
			if entries := h.history(t, "revision", rev.ID); len(entries) != 0 {
				t.Fatalf("%s -> %s: expected no history, got %d entries", from, to, len(entries))
			}
		}
	}
	if records := h.audit.Records(); len(records) != 0 {
		t.Fatalf("illegal transitions must not reach a handler, got %d audit records", len(records))
	}
	if msgs := h.notifier.Messages(); len(msgs) != 0 {
		t.Fatalf("expected no notifications, got %d", len(msgs))
	}
}

func TestIllegalReviewTransitionsChangeNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	editor := testsupport.SeedUser(t, h.store, "editor", testsupport.Editor)
	author := testsupport.SeedUser(t, h.store, "author", testsupport.Author)
	reviewer := testsupport.SeedUser(t, h.store, "reviewer", testsupport.Reviewer)

	legal := map[[2]journal.ReviewStatus]bool{}
	for _, e := range h.svc.ReviewTable() {
		legal[[2]journal.ReviewStatus{e.From, e.To}] = true
	}

	for _, from := range journal.ReviewStatuses {
		for _, to := range journal.ReviewStatuses {
			if legal[[2]journal.ReviewStatus{from, to}] {
				continue
			}
			_, rev := testsupport.SeedRevision(t, h.store, journal.RevisionPending, author)
			review := testsupport.SeedReview(t, h.store, rev, reviewer, from, testNow.Add(48*time.Hour))
			_, err := h.svc.TransitionReview(ctx, editor.ID, review.ID, to)
			if !errors.Is(err, workflow.ErrIllegalTransition) {
				t.Fatalf("%s -> %s: expected ErrIllegalTransition, got %v", from, to, err)
			}
			if got := h.review(t, review.ID).Status; got != from {
				t.Fatalf("%s -> %s: status changed to %s", from, to, got)
			}
		}
	}
	if records := h.audit.Records(); len(records) != 0 {
		t.Fatalf("expected no audit records, got %d", len(records))
	}
}

func TestTerminalStatesAllowNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	author := testsupport.SeedUser(t, h.store, "author", testsupport.Author)
	reviewer := testsupport.SeedUser(t, h.store, "reviewer", testsupport.Reviewer)

	for _, status := range []journal.RevisionStatus{
		journal.RevisionWithdrawn,
		journal.RevisionMinorRevision,
		journal.RevisionMajorRevision,
		journal.RevisionReject,
		journal.RevisionPublished,
	} {
		_, rev := testsupport.SeedRevision(t, h.store, status, author)
		allowed, err := h.svc.AllowedRevisionTransitions(ctx, rev.ID)
		if err != nil {
			t.Fatalf("AllowedRevisionTransitions: %v", err)
		}
		if allowed == nil || len(allowed) != 0 {
			t.Fatalf("%s: expected empty allowed set, got %v", status, allowed)
		}
	}

	for _, status := range []journal.ReviewStatus{journal.ReviewComplete, journal.ReviewWithdrawn, journal.ReviewNotNeeded} {
		_, rev := testsupport.SeedRevision(t, h.store, journal.RevisionPending, author)
		review := testsupport.SeedReview(t, h.store, rev, reviewer, status, testNow)
		allowed, err := h.svc.AllowedReviewTransitions(ctx, review.ID)
		if err != nil {
			t.Fatalf("AllowedReviewTransitions: %v", err)
		}
		if len(allowed) != 0 {
			t.Fatalf("%s: expected empty allowed set, got %v", status, allowed)
		}
	}

	_, rev := testsupport.SeedRevision(t, h.store, journal.RevisionPending, author)
	allowed, err := h.svc.AllowedRevisionTransitions(ctx, rev.ID)
	if err != nil {
		t.Fatalf("AllowedRevisionTransitions: %v", err)
	}
	if len(allowed) != 5 {
		t.Fatalf("PENDING should allow 5 targets, got %v", allowed)
	}
}

func TestTransitionRecordsAuditAndHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	editor := testsupport.SeedUser(t, h.store, "editor", testsupport.Editor)
	author := testsupport.SeedUser(t, h.store, "author", testsupport.Author)
	_, rev := testsupport.SeedRevision(t, h.store, journal.RevisionAccept, author)

	res, err := h.svc.TransitionRevision(ctx, editor.ID, rev.ID, journal.RevisionPublished)
	if err != nil {
		t.Fatalf("TransitionRevision: %v", err)
	}
	if res.State != string(journal.RevisionPublished) || res.UnitID == "" {
		t.Fatalf("unexpected result %+v", res)
	}

	records := h.audit.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(records))
	}
	rec := records[0]
	if rec.Entity != "revision" || rec.EntityID != rev.ID || rec.From != "ACCEPT" || rec.To != "PUBLISHED" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.ActorID == nil || *rec.ActorID != editor.ID {
		t.Fatalf("expected actor %d, got %v", editor.ID, rec.ActorID)
	}
	if !rec.Committed || rec.Cascade || rec.Err != nil || rec.UnitID != res.UnitID {
		t.Fatalf("unexpected record flags %+v", rec)
	}

	entries := h.history(t, "revision", rev.ID)
	if len(entries) != 1 || entries[0].To != "PUBLISHED" || entries[0].UnitID != res.UnitID {
		t.Fatalf("unexpected history %+v", entries)
	}
	if got := h.revision(t, rev.ID); got.PublishedAt == nil || !got.PublishedAt.Equal(testNow) {
		t.Fatalf("expected published timestamp %v, got %v", testNow, got.PublishedAt)
	}
	if msgs := h.notifier.To(author.Email); len(msgs) != 1 {
		t.Fatalf("expected one author notification, got %d", len(msgs))
	}
}

func TestTransitionWithoutActor(t *testing.T) {
	h := newHarness(t)
	author := testsupport.SeedUser(t, h.store, "author", testsupport.Author)
	_, rev := testsupport.SeedRevision(t, h.store, journal.RevisionAccept, author)

	res, err := h.svc.TransitionRevision(context.Background(), 0, rev.ID, journal.RevisionPublished)
	if err != nil {
		t.Fatalf("TransitionRevision: %v", err)
	}
	if len(res.Messages) != 0 {
		t.Fatalf("expected no flash messages without an actor, got %v", res.Messages)
	}
	if records := h.audit.Records(); len(records) != 1 || records[0].ActorID != nil {
		t.Fatalf("expected one record without actor, got %+v", records)
	}
}

func TestUnknownActorFails(t *testing.T) {
	h := newHarness(t)
	author := testsupport.SeedUser(t, h.store, "author", testsupport.Author)
	_, rev := testsupport.SeedRevision(t, h.store, journal.RevisionAccept, author)

	_, err := h.svc.TransitionRevision(context.Background(), 999, rev.ID, journal.RevisionPublished)
	if !errors.Is(err, journal.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := h.revision(t, rev.ID).Status; got != journal.RevisionAccept {
		t.Fatalf("status changed to %s", got)
	}
}

func TestPersistenceFailureRollsBackCascade(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	editor := testsupport.SeedUser(t, h.store, "editor", testsupport.Editor)
	author := testsupport.SeedUser(t, h.store, "author", testsupport.Author)
	late := testsupport.SeedUser(t, h.store, "late", testsupport.Reviewer)
	early := testsupport.SeedUser(t, h.store, "early", testsupport.Reviewer)

	_, rev := testsupport.SeedRevision(t, h.store, journal.RevisionPending, author)
	overdue := testsupport.SeedReview(t, h.store, rev, late, journal.ReviewAssigned, testNow.Add(-time.Hour))
	owed := testsupport.SeedReview(t, h.store, rev, early, journal.ReviewAssigned, testNow.Add(72*time.Hour))

	raw, err := sql.Open("sqlite", h.store.Path())
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	defer raw.Close()
	if _, err := raw.Exec(`CREATE TRIGGER fail_not_needed BEFORE UPDATE ON reviews
        WHEN NEW.status = 'NOT_NEEDED'
        BEGIN SELECT RAISE(ABORT, 'disk on fire'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	_, err = h.svc.TransitionRevision(ctx, editor.ID, rev.ID, journal.RevisionReject)
	if err == nil {
		t.Fatal("expected the cascade to fail")
	}

	if got := h.revision(t, rev.ID); got.Status != journal.RevisionPending || got.DecidedAt != nil {
		t.Fatalf("revision should be untouched, got %s decided=%v", got.Status, got.DecidedAt)
	}
	if got := h.review(t, overdue.ID).Status; got != journal.ReviewAssigned {
		t.Fatalf("overdue review should be rolled back, got %s", got)
	}
	if got := h.review(t, owed.ID).Status; got != journal.ReviewAssigned {
		t.Fatalf("owed review should be unchanged, got %s", got)
	}
	if entries := h.history(t, "revision", rev.ID); len(entries) != 0 {
		t.Fatalf("expected no history after rollback, got %d", len(entries))
	}
	if msgs := h.notifier.Messages(); len(msgs) != 0 {
		t.Fatalf("expected no notifications after rollback, got %d", len(msgs))
	}

	records := h.audit.Records()
	if len(records) != 3 {
		t.Fatalf("expected 3 audit records, got %d", len(records))
	}
	for _, rec := range records {
		if rec.Committed {
			t.Fatalf("record %+v should not be committed", rec)
		}
	}
	if records[0].Outcome() != "rolled_back" || records[1].Outcome() != "failed" || records[2].Outcome() != "failed" {
		t.Fatalf("unexpected outcomes %s %s %s", records[0].Outcome(), records[1].Outcome(), records[2].Outcome())
	}
}

func TestNotificationFailureDoesNotFailTransition(t *testing.T) {
	h := newHarness(t)
	h.notifier.Err = errors.New("smtp down")
	editor := testsupport.SeedUser(t, h.store, "editor", testsupport.Editor)
	author := testsupport.SeedUser(t, h.store, "author", testsupport.Author)
	_, rev := testsupport.SeedRevision(t, h.store, journal.RevisionAccept, author)

	res, err := h.svc.TransitionRevision(context.Background(), editor.ID, rev.ID, journal.RevisionPublished)
	if err != nil {
		t.Fatalf("TransitionRevision: %v", err)
	}
	if res.Notified != 0 {
		t.Fatalf("expected 0 delivered notifications, got %d", res.Notified)
	}
	if len(h.notifier.Messages()) != 1 {
		t.Fatalf("expected one attempted notification, got %d", len(h.notifier.Messages()))
	}
	if got := h.revision(t, rev.ID).Status; got != journal.RevisionPublished {
		t.Fatalf("status = %s, want PUBLISHED", got)
	}
}

func TestNewRequiresConfigAndStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := workflow.New(nil, testsupport.MustOpenStore(t, cfg), logging.NewNop()); err == nil {
		t.Fatal("expected error without config")
	}
	if _, err := workflow.New(cfg, nil, logging.NewNop()); err == nil {
		t.Fatal("expected error without store")
	}
}
