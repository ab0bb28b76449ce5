package workflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"editorial/internal/journal"
	"editorial/internal/statemachine"
	"editorial/internal/testsupport"
	"editorial/internal/workflow"
)

func TestDecisionCascade(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	editor := testsupport.SeedUser(t, h.store, "editor", testsupport.Editor)
	author := testsupport.SeedUser(t, h.store, "author", testsupport.Author)
	_, rev := testsupport.SeedRevision(t, h.store, journal.RevisionPending, author)

	past := testNow.Add(-24 * time.Hour)
	future := testNow.Add(7 * 24 * time.Hour)
	cases := []struct {
		name string
		from journal.ReviewStatus
		due  time.Time
		want journal.ReviewStatus
	}{
		{"assigned-overdue", journal.ReviewAssigned, past, journal.ReviewExpired},
		{"assigned-early", journal.ReviewAssigned, future, journal.ReviewNotNeeded},
		{"edit-overdue", journal.ReviewEditRequested, past, journal.ReviewExpired},
		{"edit-early", journal.ReviewEditRequested, future, journal.ReviewNotNeeded},
		{"submitted", journal.ReviewSubmitted, future, journal.ReviewComplete},
		{"submitted-overdue", journal.ReviewSubmitted, past, journal.ReviewComplete},
		{"complete", journal.ReviewComplete, past, journal.ReviewComplete},
		{"withdrawn", journal.ReviewWithdrawn, past, journal.ReviewWithdrawn},
		{"expired", journal.ReviewExpired, past, journal.ReviewExpired},
		{"not-needed", journal.ReviewNotNeeded, future, journal.ReviewNotNeeded},
	}
	ids := make([]int64, len(cases))
	for i, tc := range cases {
		reviewer := testsupport.SeedUser(t, h.store, tc.name, testsupport.Reviewer)
		ids[i] = testsupport.SeedReview(t, h.store, rev, reviewer, tc.from, tc.due).ID
	}

	res, err := h.svc.Decide(ctx, editor.ID, rev.ID, journal.RevisionAccept, "Clear and well argued.")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if res.State != string(journal.RevisionAccept) {
		t.Fatalf("state = %s, want ACCEPT", res.State)
	}

	for i, tc := range cases {
		if got := h.review(t, ids[i]).Status; got != tc.want {
			t.Fatalf("%s: status = %s, want %s", tc.name, got, tc.want)
		}
	}

	got := h.revision(t, rev.ID)
	if got.DecidedAt == nil || !got.DecidedAt.Equal(testNow) {
		t.Fatalf("decided timestamp = %v, want %v", got.DecidedAt, testNow)
	}
	if got.EditorialReview != "Clear and well argued." {
		t.Fatalf("editorial review = %q", got.EditorialReview)
	}

	records := h.audit.Records()
	if len(records) != 7 {
		t.Fatalf("expected 7 audit records (6 cascaded + 1), got %d", len(records))
	}
	cascaded := 0
	for _, rec := range records {
		if !rec.Committed {
			t.Fatalf("record %+v should be committed", rec)
		}
		if rec.Cascade {
			cascaded++
		}
		if rec.UnitID != res.UnitID {
			t.Fatalf("record unit %s, want %s", rec.UnitID, res.UnitID)
		}
	}
	if cascaded != 6 {
		t.Fatalf("expected 6 cascaded records, got %d", cascaded)
	}

	decisionMail := h.notifier.To(author.Email)
	if len(decisionMail) != 1 || decisionMail[0].Subject != "Your manuscript has a decision" {
		t.Fatalf("unexpected author mail %+v", decisionMail)
	}
}

func TestWithdrawCascadesOnlyAssignedReviews(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	author := testsupport.SeedUser(t, h.store, "author", testsupport.Author)
	_, rev := testsupport.SeedRevision(t, h.store, journal.RevisionPending, author)

	due := testNow.Add(72 * time.Hour)
	assigned := testsupport.SeedReview(t, h.store, rev, testsupport.SeedUser(t, h.store, "r1", testsupport.Reviewer), journal.ReviewAssigned, due)
	submitted := testsupport.SeedReview(t, h.store, rev, testsupport.SeedUser(t, h.store, "r2", testsupport.Reviewer), journal.ReviewSubmitted, due)
	edit := testsupport.SeedReview(t, h.store, rev, testsupport.SeedUser(t, h.store, "r3", testsupport.Reviewer), journal.ReviewEditRequested, due)

	if h.revision(t, rev.ID).CanWithdraw() {
		t.Fatal("CanWithdraw must be false with reviews underway")
	}
	if _, err := h.svc.Withdraw(ctx, author.ID, rev.ID); !errors.Is(err, workflow.ErrActionNotAllowed) {
		t.Fatalf("expected ErrActionNotAllowed, got %v", err)
	}

	if _, err := h.svc.TransitionRevision(ctx, author.ID, rev.ID, journal.RevisionWithdrawn); err != nil {
		t.Fatalf("TransitionRevision: %v", err)
	}
	if got := h.review(t, assigned.ID).Status; got != journal.ReviewWithdrawn {
		t.Fatalf("assigned review = %s, want WITHDRAWN", got)
	}
	if got := h.review(t, submitted.ID).Status; got != journal.ReviewSubmitted {
		t.Fatalf("submitted review = %s, want SUBMITTED", got)
	}
	if got := h.review(t, edit.ID).Status; got != journal.ReviewEditRequested {
		t.Fatalf("edit-requested review = %s, want EDIT_REQUESTED", got)
	}
}

func TestWithdrawBeforeReviewWork(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	author := testsupport.SeedUser(t, h.store, "author", testsupport.Author)
	reviewer := testsupport.SeedUser(t, h.store, "reviewer", testsupport.Reviewer)
	_, rev := testsupport.SeedRevision(t, h.store, journal.RevisionPending, author)
	review := testsupport.SeedReview(t, h.store, rev, reviewer, journal.ReviewAssigned, testNow.Add(time.Hour))

	res, err := h.svc.Withdraw(ctx, author.ID, rev.ID)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if len(res.Messages) != 1 {
		t.Fatalf("expected one flash for the author, got %v", res.Messages)
	}
	got := h.review(t, review.ID)
	if got.Status != journal.ReviewWithdrawn || got.ClosedAt == nil {
		t.Fatalf("review = %s closed=%v", got.Status, got.ClosedAt)
	}
	if mail := h.notifier.To(reviewer.Email); len(mail) != 1 {
		t.Fatalf("expected reviewer notified once, got %d", len(mail))
	}
}

func TestWaitingForAuthorsScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := testsupport.SeedUser(t, h.store, "first", testsupport.Author)
	second := testsupport.SeedUser(t, h.store, "second", testsupport.Author)
	m, rev := testsupport.SeedRevision(t, h.store, journal.RevisionUnsubmitted, first)
	if err := h.store.AddAuthorship(ctx, m.ID, second.ID, false); err != nil {
		t.Fatalf("AddAuthorship: %v", err)
	}

	res, err := h.svc.TransitionRevision(ctx, first.ID, rev.ID, journal.RevisionWaitingForAuthors)
	if err != nil {
		t.Fatalf("TransitionRevision: %v", err)
	}
	if res.State != string(journal.RevisionWaitingForAuthors) {
		t.Fatalf("state = %s", res.State)
	}
	msgs := h.notifier.Messages()
	if len(msgs) != 1 || len(msgs[0].Recipients) != 1 || msgs[0].Recipients[0] != second.Email {
		t.Fatalf("expected one message to %s, got %+v", second.Email, msgs)
	}

	_, err = h.svc.TransitionRevision(ctx, first.ID, rev.ID, journal.RevisionPending)
	if !errors.Is(err, workflow.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	var illegal *statemachine.IllegalTransitionError
	if !errors.As(err, &illegal) || illegal.From != journal.RevisionWaitingForAuthors {
		t.Fatalf("expected illegal transition from WAITING_FOR_AUTHORS, got %v", err)
	}
	if got := h.revision(t, rev.ID).Status; got != journal.RevisionWaitingForAuthors {
		t.Fatalf("status = %s", got)
	}
}

func TestSubmittedReviewCompletesOnEarlyDecision(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	editor := testsupport.SeedUser(t, h.store, "editor", testsupport.Editor)
	author := testsupport.SeedUser(t, h.store, "author", testsupport.Author)
	reviewer := testsupport.SeedUser(t, h.store, "reviewer", testsupport.Reviewer)
	_, rev := testsupport.SeedRevision(t, h.store, journal.RevisionPending, author)
	review := testsupport.SeedReview(t, h.store, rev, reviewer, journal.ReviewSubmitted, testNow.Add(7*24*time.Hour))

	if _, err := h.svc.TransitionRevision(ctx, editor.ID, rev.ID, journal.RevisionAccept); err != nil {
		t.Fatalf("TransitionRevision: %v", err)
	}
	if got := h.review(t, review.ID).Status; got != journal.ReviewComplete {
		t.Fatalf("review = %s, want COMPLETE", got)
	}
	mail := h.notifier.To(reviewer.Email)
	if len(mail) != 1 || mail[0].Subject != "A manuscript you reviewed has a decision" {
		t.Fatalf("unexpected reviewer mail %+v", mail)
	}
}

func TestSubmitDoesNotDuplicateReviews(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	author := testsupport.SeedUser(t, h.store, "author", testsupport.Author)
	existing := testsupport.SeedUser(t, h.store, "existing", testsupport.Reviewer)
	fresh := testsupport.SeedUser(t, h.store, "fresh", testsupport.Reviewer)
	m, rev := testsupport.SeedRevision(t, h.store, journal.RevisionUnsubmitted, author)
	testsupport.SeedReview(t, h.store, rev, existing, journal.ReviewAssigned, testNow.Add(time.Hour))
	if err := h.store.AddReviewers(ctx, m.ID, testNow, fresh.ID); err != nil {
		t.Fatalf("AddReviewers: %v", err)
	}

	if _, err := h.svc.Submit(ctx, author.ID, rev.ID, ""); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	got := h.revision(t, rev.ID)
	if got.Status != journal.RevisionPending || got.SubmittedAt == nil {
		t.Fatalf("revision = %s submitted=%v", got.Status, got.SubmittedAt)
	}
	if len(got.Reviews) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(got.Reviews))
	}
	counts := map[int64]int{}
	for _, r := range got.Reviews {
		counts[r.ReviewerID]++
	}
	if counts[existing.ID] != 1 || counts[fresh.ID] != 1 {
		t.Fatalf("unexpected review counts %v", counts)
	}

	created := got.Review(fresh.ID)
	wantDue := time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC)
	if !created.DueAt.Equal(wantDue) {
		t.Fatalf("due = %v, want %v", created.DueAt, wantDue)
	}
	if mail := h.notifier.To(fresh.Email); len(mail) != 1 || mail[0].Subject != "You have been assigned as a reviewer" {
		t.Fatalf("unexpected mail to new reviewer %+v", mail)
	}
	if mail := h.notifier.To(existing.Email); len(mail) != 0 {
		t.Fatalf("existing reviewer should not be mailed, got %d", len(mail))
	}
	if mail := h.notifier.To(author.Email); len(mail) != 1 || mail[0].Subject != "Your manuscript was submitted" {
		t.Fatalf("unexpected author mail %+v", mail)
	}
}

func TestAutomaticAssignmentWithTooFewCandidates(t *testing.T) {
	h := newHarness(t, testsupport.WithAutoAssign(3))
	ctx := context.Background()
	first := testsupport.SeedUser(t, h.store, "first", testsupport.Author|testsupport.Reviewer)
	second := testsupport.SeedUser(t, h.store, "second", testsupport.Author)
	assigned := testsupport.SeedUser(t, h.store, "assigned", testsupport.Reviewer)
	testsupport.SeedUser(t, h.store, "spare", testsupport.Reviewer)

	m, rev := testsupport.SeedRevision(t, h.store, journal.RevisionUnsubmitted, first, second)
	if err := h.store.AddReviewers(ctx, m.ID, testNow, assigned.ID); err != nil {
		t.Fatalf("AddReviewers: %v", err)
	}

	res, err := h.svc.Submit(ctx, first.ID, rev.ID, "")
	if err != nil {
		t.Fatalf("Submit should succeed, got %v", err)
	}
	if res.State != string(journal.RevisionPending) {
		t.Fatalf("state = %s", res.State)
	}
	if len(res.Warnings) != 1 || !errors.Is(res.Warnings[0], workflow.ErrInsufficientReviewers) {
		t.Fatalf("expected an insufficient reviewers warning, got %v", res.Warnings)
	}
	if got := h.manuscript(t, m.ID).ReviewerIDs; len(got) != 1 || got[0] != assigned.ID {
		t.Fatalf("reviewers = %v, want only %d", got, assigned.ID)
	}
	if reviews := h.revision(t, rev.ID).Reviews; len(reviews) != 1 || reviews[0].ReviewerID != assigned.ID {
		t.Fatalf("unexpected reviews %+v", reviews)
	}
}

func TestAutomaticAssignmentPrefersLightLoad(t *testing.T) {
	h := newHarness(t, testsupport.WithAutoAssign(1))
	ctx := context.Background()
	author := testsupport.SeedUser(t, h.store, "author", testsupport.Author)
	busy := testsupport.SeedUser(t, h.store, "busy", testsupport.Reviewer)
	idle := testsupport.SeedUser(t, h.store, "idle", testsupport.Reviewer)

	other := testsupport.SeedUser(t, h.store, "other", testsupport.Author)
	_, earlier := testsupport.SeedRevision(t, h.store, journal.RevisionReject, other)
	testsupport.SeedReview(t, h.store, earlier, busy, journal.ReviewComplete, testNow)

	m, rev := testsupport.SeedRevision(t, h.store, journal.RevisionUnsubmitted, author)
	res, err := h.svc.Submit(ctx, author.ID, rev.ID, "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", res.Warnings)
	}
	if got := h.manuscript(t, m.ID).ReviewerIDs; len(got) != 1 || got[0] != idle.ID {
		t.Fatalf("reviewers = %v, want [%d]", got, idle.ID)
	}
	if h.revision(t, rev.ID).Review(idle.ID) == nil {
		t.Fatal("expected a review for the assigned reviewer")
	}
}

func TestRankReviewersExcludesAuthorsAndAssigned(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	author := testsupport.SeedUser(t, h.store, "author", testsupport.Author|testsupport.Reviewer)
	assigned := testsupport.SeedUser(t, h.store, "assigned", testsupport.Reviewer)
	a := testsupport.SeedUser(t, h.store, "a", testsupport.Reviewer)
	b := testsupport.SeedUser(t, h.store, "b", testsupport.Reviewer)

	m, _ := testsupport.SeedRevision(t, h.store, journal.RevisionPending, author)
	if err := h.store.AddReviewers(ctx, m.ID, testNow, assigned.ID); err != nil {
		t.Fatalf("AddReviewers: %v", err)
	}

	first, err := h.svc.RankReviewers(ctx, m.ID)
	if err != nil {
		t.Fatalf("RankReviewers: %v", err)
	}
	second, err := h.svc.RankReviewers(ctx, m.ID)
	if err != nil {
		t.Fatalf("RankReviewers: %v", err)
	}
	if len(first) != 2 || first[0].ReviewerID != a.ID || first[1].ReviewerID != b.ID {
		t.Fatalf("unexpected ranking %+v", first)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("ranking not deterministic: %+v vs %+v", first, second)
		}
	}
}
