package workflow

import (
	"context"
	"fmt"

	"editorial/internal/journal"
	"editorial/internal/logging"
	"editorial/internal/ranking"
	"editorial/internal/statemachine"
)

type revisionTarget struct {
	manuscript *journal.Manuscript
	revision   *journal.Revision
}

func loadRevisionTarget(ctx context.Context, repo Repository, revisionID int64) (*revisionTarget, error) {
	rev, err := repo.GetRevision(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	m, err := repo.GetManuscript(ctx, rev.ManuscriptID)
	if err != nil {
		return nil, err
	}
	return &revisionTarget{manuscript: m, revision: rev}, nil
}

func (s *Service) revisionTable() []statemachine.Transition[*revisionTarget, journal.RevisionStatus, *unit] {
	type row = statemachine.Transition[*revisionTarget, journal.RevisionStatus, *unit]
	return []row{
		{From: journal.RevisionUnsubmitted, To: journal.RevisionWaitingForAuthors, Handler: s.unsubmittedToWaitingForAuthors},
		{From: journal.RevisionUnsubmitted, To: journal.RevisionPending, Handler: s.unsubmittedToPending},
		{From: journal.RevisionWaitingForAuthors, To: journal.RevisionUnsubmitted, Handler: s.waitingForAuthorsToUnsubmitted},
		{From: journal.RevisionPending, To: journal.RevisionWithdrawn, Handler: s.pendingToWithdrawn},
		{From: journal.RevisionPending, To: journal.RevisionAccept, Handler: s.decision},
		{From: journal.RevisionPending, To: journal.RevisionMinorRevision, Handler: s.decision},
		{From: journal.RevisionPending, To: journal.RevisionMajorRevision, Handler: s.decision},
		{From: journal.RevisionPending, To: journal.RevisionReject, Handler: s.decision},
		{From: journal.RevisionAccept, To: journal.RevisionPublished, Handler: s.acceptToPublished},
	}
}

// flashAuthors addresses the acting user when they are an author of the
// manuscript or an editor.
func (s *Service) flashAuthors(u *unit, t *revisionTarget, msg string) {
	if u.actor == nil {
		return
	}
	if u.actor.IsEditor || t.manuscript.IsAuthor(u.actor.ID) {
		u.flash(msg)
	}
}

func (s *Service) saveRevision(ctx context.Context, u *unit, t *revisionTarget, to journal.RevisionStatus) error {
	t.revision.Status = to
	if err := u.repo.UpdateRevision(ctx, t.revision); err != nil {
		return fmt.Errorf("save revision %d: %w", t.revision.ID, err)
	}
	return nil
}

func (s *Service) notifyAuthors(u *unit, t *revisionTarget, kind authorMessage) {
	for _, author := range t.manuscript.Authors() {
		u.notify(s.authorMessage(kind, author, t))
	}
}

func (s *Service) unsubmittedToWaitingForAuthors(ctx context.Context, u *unit, t *revisionTarget, _, to journal.RevisionStatus) error {
	if err := s.saveRevision(ctx, u, t, to); err != nil {
		return err
	}
	for _, author := range t.manuscript.UnacknowledgedAuthors() {
		u.notify(s.authorMessage(authorAcknowledgementRequested, author, t))
	}
	return nil
}

func (s *Service) unsubmittedToPending(ctx context.Context, u *unit, t *revisionTarget, _, to journal.RevisionStatus) error {
	resubmission := t.manuscript.HasPriorDecision(t.revision)
	if resubmission {
		s.flashAuthors(u, t, fmt.Sprintf("%q has been resubmitted. You will be notified once reviewers provide new feedback.", t.revision.Title))
	} else {
		s.flashAuthors(u, t, fmt.Sprintf("%q has been submitted. You will be notified once reviewers provide feedback.", t.revision.Title))
	}

	if t.revision.SubmittedAt == nil {
		now := u.now
		t.revision.SubmittedAt = &now
	}
	if err := s.saveRevision(ctx, u, t, to); err != nil {
		return err
	}
	if resubmission {
		s.notifyAuthors(u, t, authorResubmitted)
	} else {
		s.notifyAuthors(u, t, authorSubmitted)
	}

	if s.cfg.Review.AutomaticallyAssignReviewers {
		if err := s.assignRankedReviewers(ctx, u, t); err != nil {
			return err
		}
	}
	return s.createMissingReviews(ctx, u, t)
}

// assignRankedReviewers tops the manuscript's reviewer set up to the
// configured panel size. With too few candidates nobody is added and a
// warning is recorded.
func (s *Service) assignRankedReviewers(ctx context.Context, u *unit, t *revisionTarget) error {
	needed := max(0, s.cfg.Review.NumberOfReviewers-len(t.manuscript.ReviewerIDs))
	if needed == 0 {
		return nil
	}
	authors := t.manuscript.AuthorIDs()
	candidates, err := u.repo.ReviewerCandidates(ctx, authors)
	if err != nil {
		return fmt.Errorf("load reviewer candidates: %w", err)
	}
	ranked := ranking.Rank(candidates, authors, t.manuscript.ReviewerIDs)
	ids, ok := ranking.Top(ranked, needed)
	if !ok {
		warning := fmt.Errorf("manuscript %d needs %d more reviewers but only %d are available: %w",
			t.manuscript.ID, needed, len(ranked), ErrInsufficientReviewers)
		u.warnings = append(u.warnings, warning)
		s.metrics.ObserveInsufficientReviewers()
		logging.WarnWithContext(s.logger, "not enough reviewers", "insufficient_reviewers",
			logging.Int64("manuscript_id", t.manuscript.ID),
			logging.Int("needed", needed),
			logging.Int("available", len(ranked)),
			logging.String(logging.FieldUnitID, u.id),
			logging.String(logging.FieldErrorHint, "add reviewers with editorial user add --reviewer or assign one manually"),
			logging.String(logging.FieldImpact, "submission proceeds without automatically assigned reviewers"),
		)
		return nil
	}
	if err := u.repo.AddReviewers(ctx, t.manuscript.ID, u.now, ids...); err != nil {
		return err
	}
	t.manuscript.ReviewerIDs = append(t.manuscript.ReviewerIDs, ids...)
	return nil
}

// createMissingReviews gives every attached reviewer without a review on
// this revision a fresh assignment.
func (s *Service) createMissingReviews(ctx context.Context, u *unit, t *revisionTarget) error {
	var missing []int64
	for _, id := range t.manuscript.ReviewerIDs {
		if t.revision.Review(id) == nil {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	reviewers, err := u.repo.UsersByID(ctx, missing)
	if err != nil {
		return err
	}
	for _, id := range missing {
		if err := s.createReview(ctx, u, t, reviewers[id], id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) createReview(ctx context.Context, u *unit, t *revisionTarget, reviewer *journal.User, reviewerID int64) error {
	review := &journal.Review{
		RevisionID: t.revision.ID,
		ReviewerID: reviewerID,
		Status:     journal.ReviewAssigned,
		DueAt:      DueDate(u.now, s.cfg.Review.DaysToReview, s.cfg.Review.DueDateHour),
		CreatedAt:  u.now,
	}
	if err := u.repo.CreateReview(ctx, review); err != nil {
		return err
	}
	t.revision.Reviews = append(t.revision.Reviews, review)
	if reviewer != nil {
		u.notify(s.reviewAssignedMessage(reviewer, review))
	}
	return nil
}

func (s *Service) waitingForAuthorsToUnsubmitted(ctx context.Context, u *unit, t *revisionTarget, _, to journal.RevisionStatus) error {
	s.flashAuthors(u, t, fmt.Sprintf("All authors have now acknowledged authorship of %s.", t.revision.Title))
	if err := s.saveRevision(ctx, u, t, to); err != nil {
		return err
	}
	s.notifyAuthors(u, t, authorAllAcknowledged)
	return nil
}

func (s *Service) pendingToWithdrawn(ctx context.Context, u *unit, t *revisionTarget, _, to journal.RevisionStatus) error {
	s.flashAuthors(u, t, fmt.Sprintf("%s has been withdrawn and will not be reviewed.", t.revision.Title))
	s.markDecided(u, t)
	if err := s.saveRevision(ctx, u, t, to); err != nil {
		return err
	}
	s.notifyAuthors(u, t, authorWithdrawn)

	return s.cascadeReviews(ctx, u, t, func(r *journal.Review) (journal.ReviewStatus, bool) {
		return journal.ReviewWithdrawn, r.Status == journal.ReviewAssigned
	})
}

// decision handles PENDING to ACCEPT, MINOR_REVISION, MAJOR_REVISION and
// REJECT. Owed reviews close as EXPIRED when overdue and NOT_NEEDED
// otherwise; submitted reviews complete. Authors are told after the cascade.
func (s *Service) decision(ctx context.Context, u *unit, t *revisionTarget, _, to journal.RevisionStatus) error {
	s.flashAuthors(u, t, fmt.Sprintf("%s has reviews and a decision.", t.revision.Title))
	s.markDecided(u, t)
	if err := s.saveRevision(ctx, u, t, to); err != nil {
		return err
	}

	err := s.cascadeReviews(ctx, u, t, func(r *journal.Review) (journal.ReviewStatus, bool) {
		switch r.Status {
		case journal.ReviewAssigned, journal.ReviewEditRequested:
			if r.DueAt.Before(u.now) {
				return journal.ReviewExpired, true
			}
			return journal.ReviewNotNeeded, true
		case journal.ReviewSubmitted:
			return journal.ReviewComplete, true
		}
		return "", false
	})
	if err != nil {
		return err
	}
	s.notifyAuthors(u, t, authorDecision)
	return nil
}

func (s *Service) acceptToPublished(ctx context.Context, u *unit, t *revisionTarget, _, to journal.RevisionStatus) error {
	s.flashAuthors(u, t, fmt.Sprintf("%s has been published!", t.revision.Title))
	if t.revision.PublishedAt == nil {
		now := u.now
		t.revision.PublishedAt = &now
	}
	if err := s.saveRevision(ctx, u, t, to); err != nil {
		return err
	}
	s.notifyAuthors(u, t, authorPublished)
	return nil
}

func (s *Service) markDecided(u *unit, t *revisionTarget) {
	if t.revision.DecidedAt == nil {
		now := u.now
		t.revision.DecidedAt = &now
	}
}

// cascadeReviews transitions each review on the revision for which pick
// returns a target.
func (s *Service) cascadeReviews(ctx context.Context, u *unit, t *revisionTarget, pick func(*journal.Review) (journal.ReviewStatus, bool)) error {
	type move struct {
		review *journal.Review
		to     journal.ReviewStatus
	}
	var moves []move
	var reviewerIDs []int64
	for _, review := range t.revision.Reviews {
		if to, ok := pick(review); ok {
			moves = append(moves, move{review: review, to: to})
			reviewerIDs = append(reviewerIDs, review.ReviewerID)
		}
	}
	if len(moves) == 0 {
		return nil
	}
	reviewers, err := u.repo.UsersByID(ctx, reviewerIDs)
	if err != nil {
		return err
	}
	for _, mv := range moves {
		rt := &reviewTarget{
			manuscript: t.manuscript,
			revision:   t.revision,
			review:     mv.review,
			reviewer:   reviewers[mv.review.ReviewerID],
		}
		if err := s.applyReview(ctx, u, rt, mv.to, true); err != nil {
			return fmt.Errorf("cascade review %d to %s: %w", mv.review.ID, mv.to, err)
		}
	}
	return nil
}
