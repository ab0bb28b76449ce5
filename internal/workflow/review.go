package workflow

import (
	"context"
	"fmt"
	"time"

	"editorial/internal/journal"
	"editorial/internal/statemachine"
)

type reviewTarget struct {
	manuscript *journal.Manuscript
	revision   *journal.Revision
	review     *journal.Review
	reviewer   *journal.User
}

func loadReviewTarget(ctx context.Context, repo Repository, reviewID int64) (*reviewTarget, error) {
	review, err := repo.GetReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	rev, err := repo.GetRevision(ctx, review.RevisionID)
	if err != nil {
		return nil, err
	}
	m, err := repo.GetManuscript(ctx, rev.ManuscriptID)
	if err != nil {
		return nil, err
	}
	reviewer, err := repo.GetUser(ctx, review.ReviewerID)
	if err != nil {
		return nil, err
	}
	// Share the instance held by the revision so cascades and guards see
	// one copy.
	if held := rev.Review(review.ReviewerID); held != nil {
		review = held
	}
	return &reviewTarget{manuscript: m, revision: rev, review: review, reviewer: reviewer}, nil
}

func (s *Service) reviewTable() []statemachine.Transition[*reviewTarget, journal.ReviewStatus, *unit] {
	type row = statemachine.Transition[*reviewTarget, journal.ReviewStatus, *unit]
	return []row{
		{From: journal.ReviewAssigned, To: journal.ReviewSubmitted, Handler: s.reviewSubmitted(reviewSubmitted)},
		{From: journal.ReviewAssigned, To: journal.ReviewExpired, Handler: s.reviewClosed(reviewExpired)},
		{From: journal.ReviewAssigned, To: journal.ReviewWithdrawn, Handler: s.reviewClosed(reviewWithdrawn)},
		{From: journal.ReviewAssigned, To: journal.ReviewNotNeeded, Handler: s.reviewClosed(reviewNotNeeded)},
		{From: journal.ReviewSubmitted, To: journal.ReviewComplete, Handler: s.submittedToComplete},
		{From: journal.ReviewSubmitted, To: journal.ReviewEditRequested, Handler: s.submittedToEditRequested},
		{From: journal.ReviewExpired, To: journal.ReviewAssigned, Handler: s.expiredToAssigned},
		{From: journal.ReviewEditRequested, To: journal.ReviewSubmitted, Handler: s.reviewSubmitted(reviewResubmitted)},
		{From: journal.ReviewEditRequested, To: journal.ReviewExpired, Handler: s.reviewClosed(reviewEditExpired)},
		// Reached only when a decision arrives before the edit window closes.
		{From: journal.ReviewEditRequested, To: journal.ReviewNotNeeded, Handler: s.reviewClosed(reviewNotNeeded)},
	}
}

// saveReview persists the review, flashes the actor when they are the
// reviewer, and queues the reviewer's notification.
func (s *Service) saveReview(ctx context.Context, u *unit, t *reviewTarget, to journal.ReviewStatus, kind reviewerMessage) error {
	t.review.Status = to
	if err := u.repo.UpdateReview(ctx, t.review); err != nil {
		return fmt.Errorf("save review %d: %w", t.review.ID, err)
	}
	note := reviewerNotes[kind]
	if u.actor != nil && u.actor.ID == t.review.ReviewerID {
		u.flash(note.flash)
	}
	if t.reviewer != nil {
		u.notify(s.reviewerMessage(kind, t))
	}
	return nil
}

type reviewHandler = statemachine.Handler[*reviewTarget, journal.ReviewStatus, *unit]

func (s *Service) reviewSubmitted(kind reviewerMessage) reviewHandler {
	return func(ctx context.Context, u *unit, t *reviewTarget, _, to journal.ReviewStatus) error {
		now := u.now
		t.review.SubmittedAt = &now
		return s.saveReview(ctx, u, t, to, kind)
	}
}

func (s *Service) reviewClosed(kind reviewerMessage) reviewHandler {
	return func(ctx context.Context, u *unit, t *reviewTarget, _, to journal.ReviewStatus) error {
		now := u.now
		t.review.ClosedAt = &now
		return s.saveReview(ctx, u, t, to, kind)
	}
}

func (s *Service) submittedToComplete(ctx context.Context, u *unit, t *reviewTarget, _, to journal.ReviewStatus) error {
	return s.saveReview(ctx, u, t, to, reviewCompleted)
}

func (s *Service) submittedToEditRequested(ctx context.Context, u *unit, t *reviewTarget, _, to journal.ReviewStatus) error {
	t.review.DueAt = u.now.Add(days(s.cfg.Review.DaysToEditReview))
	return s.saveReview(ctx, u, t, to, reviewEditRequested)
}

func (s *Service) expiredToAssigned(ctx context.Context, u *unit, t *reviewTarget, _, to journal.ReviewStatus) error {
	t.review.DueAt = u.now.Add(days(s.cfg.Review.DaysOnExtension))
	t.review.ClosedAt = nil
	return s.saveReview(ctx, u, t, to, reviewExtended)
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
