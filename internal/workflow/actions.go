package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"editorial/internal/journal"
	"editorial/internal/logging"
)

// Draft is the content of a new manuscript.
type Draft struct {
	Title       string
	Text        string
	CoauthorIDs []int64
}

// CreateManuscript creates a manuscript whose creator is an acknowledged
// author, plus revision 0. With co-authors the revision starts
// WAITING_FOR_AUTHORS and each co-author is asked to acknowledge.
func (s *Service) CreateManuscript(ctx context.Context, creatorID int64, draft Draft) (Result, error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return Result{}, fmt.Errorf("%w: title is required", ErrActionNotAllowed)
	}
	if creatorID == 0 {
		return Result{}, fmt.Errorf("%w: a creating author is required", ErrActionNotAllowed)
	}

	return s.run(ctx, "create_manuscript", creatorID, func(ctx context.Context, u *unit) (Result, error) {
		coauthors := dedupeIDs(draft.CoauthorIDs, creatorID)
		if len(coauthors) > 0 {
			users, err := u.repo.UsersByID(ctx, coauthors)
			if err != nil {
				return Result{}, err
			}
			for _, id := range coauthors {
				if users[id] == nil {
					return Result{}, fmt.Errorf("co-author %d: %w", id, journal.ErrNotFound)
				}
			}
		}

		m := &journal.Manuscript{CreatedAt: u.now}
		if err := u.repo.CreateManuscript(ctx, m); err != nil {
			return Result{}, err
		}
		if err := u.repo.AddAuthorship(ctx, m.ID, creatorID, true); err != nil {
			return Result{}, err
		}
		for _, id := range coauthors {
			if err := u.repo.AddAuthorship(ctx, m.ID, id, false); err != nil {
				return Result{}, err
			}
		}

		m, err := u.repo.GetManuscript(ctx, m.ID)
		if err != nil {
			return Result{}, err
		}
		first := &journal.Revision{ManuscriptID: m.ID, Title: title, Text: draft.Text, Number: -1}
		rev := m.NextRevision(first, u.now)
		if err := s.insertRevision(ctx, u, m, rev); err != nil {
			return Result{}, err
		}
		return Result{EntityID: m.ID, State: string(rev.Status)}, nil
	})
}

// insertRevision stores a new revision and, when it waits for authors, asks
// the unacknowledged ones to respond.
func (s *Service) insertRevision(ctx context.Context, u *unit, m *journal.Manuscript, rev *journal.Revision) error {
	if err := u.repo.CreateRevision(ctx, rev); err != nil {
		return err
	}
	m.Revisions = append(m.Revisions, rev)
	if rev.Status == journal.RevisionWaitingForAuthors {
		t := &revisionTarget{manuscript: m, revision: rev}
		for _, author := range m.UnacknowledgedAuthors() {
			u.notify(s.authorMessage(authorAcknowledgementRequested, author, t))
		}
	}
	return nil
}

// AcknowledgeAuthorship records the author's consent. Once nobody is left
// unacknowledged, a revision waiting for authors returns to UNSUBMITTED in
// the same unit of work.
func (s *Service) AcknowledgeAuthorship(ctx context.Context, authorID, manuscriptID int64) (Result, error) {
	return s.run(ctx, "acknowledge_authorship", authorID, func(ctx context.Context, u *unit) (Result, error) {
		if err := u.repo.AcknowledgeAuthorship(ctx, manuscriptID, authorID); err != nil {
			return Result{}, err
		}
		m, err := u.repo.GetManuscript(ctx, manuscriptID)
		if err != nil {
			return Result{}, err
		}
		current := m.Current()
		if current == nil {
			return Result{EntityID: manuscriptID}, nil
		}
		u.flash("Thank you for acknowledging authorship.")
		if m.HasUnacknowledgedAuthors() || current.Status != journal.RevisionWaitingForAuthors {
			return Result{EntityID: manuscriptID, State: string(current.Status)}, nil
		}
		t, err := loadRevisionTarget(ctx, u.repo, current.ID)
		if err != nil {
			return Result{}, err
		}
		if err := s.applyRevision(ctx, u, t, journal.RevisionUnsubmitted); err != nil {
			return Result{}, err
		}
		return Result{EntityID: manuscriptID, State: string(t.revision.Status)}, nil
	})
}

// Submit sends a revision for review. A non-empty note replaces the
// revision note first; resubmissions after a decision require one.
func (s *Service) Submit(ctx context.Context, actorID, revisionID int64, note string) (Result, error) {
	return s.run(ctx, "submit", actorID, func(ctx context.Context, u *unit) (Result, error) {
		t, err := loadRevisionTarget(ctx, u.repo, revisionID)
		if err != nil {
			return Result{}, err
		}
		if err := s.revisionEdge(t, journal.RevisionPending); err != nil {
			return Result{}, err
		}
		if note = strings.TrimSpace(note); note != "" && t.revision.CanEdit() {
			t.revision.RevisionNote = note
		}
		if !t.manuscript.CanSubmit(t.revision) {
			return Result{}, fmt.Errorf("%w: revision %d cannot be submitted while %s", ErrActionNotAllowed, revisionID, t.revision.Status)
		}
		if err := s.applyRevision(ctx, u, t, journal.RevisionPending); err != nil {
			return Result{}, err
		}
		return Result{EntityID: revisionID, State: string(t.revision.Status)}, nil
	})
}

// Withdraw pulls a pending revision before any review work has started.
func (s *Service) Withdraw(ctx context.Context, actorID, revisionID int64) (Result, error) {
	return s.run(ctx, "withdraw", actorID, func(ctx context.Context, u *unit) (Result, error) {
		t, err := loadRevisionTarget(ctx, u.repo, revisionID)
		if err != nil {
			return Result{}, err
		}
		if err := s.revisionEdge(t, journal.RevisionWithdrawn); err != nil {
			return Result{}, err
		}
		if !t.revision.CanWithdraw() {
			return Result{}, fmt.Errorf("%w: revision %d has reviews underway or is not pending", ErrActionNotAllowed, revisionID)
		}
		if err := s.applyRevision(ctx, u, t, journal.RevisionWithdrawn); err != nil {
			return Result{}, err
		}
		return Result{EntityID: revisionID, State: string(t.revision.Status)}, nil
	})
}

// Decide records an editor decision with optional editorial comments.
func (s *Service) Decide(ctx context.Context, editorID, revisionID int64, decision journal.RevisionStatus, editorialReview string) (Result, error) {
	if !decision.IsDecision() {
		return Result{}, fmt.Errorf("%w: %s is not a decision", ErrActionNotAllowed, decision)
	}
	return s.run(ctx, "decide", editorID, func(ctx context.Context, u *unit) (Result, error) {
		t, err := loadRevisionTarget(ctx, u.repo, revisionID)
		if err != nil {
			return Result{}, err
		}
		if review := strings.TrimSpace(editorialReview); review != "" {
			t.revision.EditorialReview = review
		}
		if err := s.applyRevision(ctx, u, t, decision); err != nil {
			return Result{}, err
		}
		return Result{EntityID: revisionID, State: string(t.revision.Status)}, nil
	})
}

// CreateNewRevision starts the next revision after a withdrawal or a
// revise decision.
func (s *Service) CreateNewRevision(ctx context.Context, actorID, revisionID int64) (Result, error) {
	return s.run(ctx, "create_revision", actorID, func(ctx context.Context, u *unit) (Result, error) {
		t, err := loadRevisionTarget(ctx, u.repo, revisionID)
		if err != nil {
			return Result{}, err
		}
		if !t.manuscript.CanCreateNewRevision(t.revision) {
			return Result{}, fmt.Errorf("%w: revision %d cannot be followed by a new revision", ErrActionNotAllowed, revisionID)
		}
		next := t.manuscript.NextRevision(t.revision, u.now)
		if err := s.insertRevision(ctx, u, t.manuscript, next); err != nil {
			return Result{}, err
		}
		u.flash(fmt.Sprintf("Revision %d of %s was created.", next.Number, next.Title))
		return Result{EntityID: next.ID, State: string(next.Status)}, nil
	})
}

// AssignReviewer adds a reviewer to a manuscript under review and creates
// their review on the current revision.
func (s *Service) AssignReviewer(ctx context.Context, editorID, manuscriptID, reviewerID int64) (Result, error) {
	return s.run(ctx, "assign_reviewer", editorID, func(ctx context.Context, u *unit) (Result, error) {
		m, err := u.repo.GetManuscript(ctx, manuscriptID)
		if err != nil {
			return Result{}, err
		}
		if !m.CanAssignReviewer() {
			return Result{}, fmt.Errorf("%w: manuscript %d is not under review", ErrActionNotAllowed, manuscriptID)
		}
		reviewer, err := u.repo.GetUser(ctx, reviewerID)
		if err != nil {
			return Result{}, err
		}
		if !reviewer.IsReviewer {
			return Result{}, fmt.Errorf("%w: user %d is not a reviewer", ErrActionNotAllowed, reviewerID)
		}
		if m.IsAuthor(reviewerID) {
			return Result{}, fmt.Errorf("%w: user %d is an author of manuscript %d", ErrActionNotAllowed, reviewerID, manuscriptID)
		}

		t, err := loadRevisionTarget(ctx, u.repo, m.Current().ID)
		if err != nil {
			return Result{}, err
		}
		if err := u.repo.AddReviewers(ctx, manuscriptID, u.now, reviewerID); err != nil {
			return Result{}, err
		}
		if existing := t.revision.Review(reviewerID); existing != nil {
			return Result{EntityID: existing.ID, State: string(existing.Status)}, nil
		}
		if err := s.createReview(ctx, u, t, reviewer, reviewerID); err != nil {
			return Result{}, err
		}
		review := t.revision.Review(reviewerID)
		u.flash(fmt.Sprintf("%s was assigned to review %s.", reviewer.DisplayName(), t.revision.Title))
		return Result{EntityID: review.ID, State: string(review.Status)}, nil
	})
}

// SubmitReview stores the reviewer's text and recommendation and moves the
// review to SUBMITTED.
func (s *Service) SubmitReview(ctx context.Context, reviewerID, reviewID int64, text string, recommendation journal.Recommendation) (Result, error) {
	return s.run(ctx, "submit_review", reviewerID, func(ctx context.Context, u *unit) (Result, error) {
		t, err := loadReviewTarget(ctx, u.repo, reviewID)
		if err != nil {
			return Result{}, err
		}
		if !t.review.CanSubmit() {
			return Result{}, fmt.Errorf("%w: review %d is %s", ErrActionNotAllowed, reviewID, t.review.Status)
		}
		if strings.TrimSpace(text) == "" {
			return Result{}, fmt.Errorf("%w: review text is required", ErrActionNotAllowed)
		}
		t.review.Text = text
		t.review.Recommendation = recommendation
		if err := s.applyReview(ctx, u, t, journal.ReviewSubmitted, false); err != nil {
			return Result{}, err
		}
		return Result{EntityID: reviewID, State: string(t.review.Status)}, nil
	})
}

// RequestReviewEdit sends a submitted review back to its reviewer.
func (s *Service) RequestReviewEdit(ctx context.Context, editorID, reviewID int64, feedback string) (Result, error) {
	return s.run(ctx, "request_review_edit", editorID, func(ctx context.Context, u *unit) (Result, error) {
		t, err := loadReviewTarget(ctx, u.repo, reviewID)
		if err != nil {
			return Result{}, err
		}
		if feedback = strings.TrimSpace(feedback); feedback != "" {
			t.review.EditorFeedback = feedback
		}
		if err := s.applyReview(ctx, u, t, journal.ReviewEditRequested, false); err != nil {
			return Result{}, err
		}
		return Result{EntityID: reviewID, State: string(t.review.Status)}, nil
	})
}

// ExtendReview reopens an expired review.
func (s *Service) ExtendReview(ctx context.Context, editorID, reviewID int64) (Result, error) {
	return s.TransitionReview(ctx, editorID, reviewID, journal.ReviewAssigned)
}

// ExpireOverdueReviews expires every owed review past its due date, one
// unit of work per review. A review that changed since it was listed is
// skipped.
func (s *Service) ExpireOverdueReviews(ctx context.Context) ([]Result, error) {
	overdue, err := s.store.OverdueReviews(ctx, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("list overdue reviews: %w", err)
	}

	var (
		results []Result
		errs    []error
	)
	for _, candidate := range overdue {
		reviewID := candidate.ID
		res, err := s.run(ctx, "expire_review", 0, func(ctx context.Context, u *unit) (Result, error) {
			t, err := loadReviewTarget(ctx, u.repo, reviewID)
			if err != nil {
				return Result{}, err
			}
			if !t.review.Overdue(u.now) {
				return Result{EntityID: reviewID, State: string(t.review.Status)}, nil
			}
			if err := s.applyReview(ctx, u, t, journal.ReviewExpired, false); err != nil {
				return Result{}, err
			}
			return Result{EntityID: reviewID, State: string(t.review.Status)}, nil
		})
		if err != nil {
			logging.ErrorWithContext(s.logger, "expire review failed", "review_expiry_failed",
				logging.Int64(logging.FieldEntityID, reviewID),
				logging.Error(err),
			)
			errs = append(errs, fmt.Errorf("review %d: %w", reviewID, err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

func dedupeIDs(ids []int64, skip int64) []int64 {
	seen := map[int64]struct{}{skip: {}}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// MoveRevision requests a move to any revision status, routing PENDING,
// WITHDRAWN and decisions through their guarded actions. note applies to
// submissions and editorialReview to decisions.
func (s *Service) MoveRevision(ctx context.Context, actorID, revisionID int64, to journal.RevisionStatus, note, editorialReview string) (Result, error) {
	switch {
	case to == journal.RevisionPending:
		return s.Submit(ctx, actorID, revisionID, note)
	case to == journal.RevisionWithdrawn:
		return s.Withdraw(ctx, actorID, revisionID)
	case to.IsDecision():
		return s.Decide(ctx, actorID, revisionID, to, editorialReview)
	default:
		return s.TransitionRevision(ctx, actorID, revisionID, to)
	}
}

// MoveReview requests a move to any review status. EDIT_REQUESTED carries
// the editor's feedback.
func (s *Service) MoveReview(ctx context.Context, actorID, reviewID int64, to journal.ReviewStatus, feedback string) (Result, error) {
	if to == journal.ReviewEditRequested {
		return s.RequestReviewEdit(ctx, actorID, reviewID, feedback)
	}
	return s.TransitionReview(ctx, actorID, reviewID, to)
}
