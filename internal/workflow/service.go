package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"editorial/internal/audit"
	"editorial/internal/config"
	"editorial/internal/journal"
	"editorial/internal/logging"
	"editorial/internal/notifications"
	"editorial/internal/ranking"
	"editorial/internal/statemachine"
)

// Repository is the persistence a unit of work needs. *journal.Tx and
// *journal.Store both satisfy it.
type Repository interface {
	GetUser(ctx context.Context, id int64) (*journal.User, error)
	UsersByID(ctx context.Context, ids []int64) (map[int64]*journal.User, error)
	ReviewerCandidates(ctx context.Context, authorIDs []int64) ([]ranking.Candidate, error)

	CreateManuscript(ctx context.Context, m *journal.Manuscript) error
	GetManuscript(ctx context.Context, id int64) (*journal.Manuscript, error)
	AddAuthorship(ctx context.Context, manuscriptID, authorID int64, acknowledged bool) error
	AcknowledgeAuthorship(ctx context.Context, manuscriptID, authorID int64) error
	AddReviewers(ctx context.Context, manuscriptID int64, now time.Time, reviewerIDs ...int64) error

	CreateRevision(ctx context.Context, r *journal.Revision) error
	GetRevision(ctx context.Context, id int64) (*journal.Revision, error)
	UpdateRevision(ctx context.Context, r *journal.Revision) error

	CreateReview(ctx context.Context, r *journal.Review) error
	GetReview(ctx context.Context, id int64) (*journal.Review, error)
	UpdateReview(ctx context.Context, r *journal.Review) error
	OverdueReviews(ctx context.Context, now time.Time) ([]*journal.Review, error)

	RecordTransition(ctx context.Context, entry *journal.HistoryEntry) error
}

// Store opens units of work and serves reads outside of them.
type Store interface {
	Repository
	WithTx(ctx context.Context, fn func(*journal.Tx) error) error
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Result reports what a unit of work did.
type Result struct {
	UnitID string
	// EntityID is the entity the action targeted or created.
	EntityID int64
	// State is the entity's state after the action.
	State string
	// Messages are flash messages addressed to the acting user.
	Messages []string
	// Warnings are non-fatal problems, such as ErrInsufficientReviewers.
	Warnings []error
	// Notified counts messages handed to the notification service.
	Notified int
}

type revisionMachine = statemachine.Machine[*revisionTarget, journal.RevisionStatus, *unit]
type reviewMachine = statemachine.Machine[*reviewTarget, journal.ReviewStatus, *unit]

// Service runs revision and review transitions.
type Service struct {
	cfg      *config.Config
	store    Store
	logger   *slog.Logger
	notifier notifications.Service
	recorder audit.Recorder
	metrics  *audit.Metrics
	clock    Clock

	revisions *revisionMachine
	reviews   *reviewMachine
}

// Option customizes a Service.
type Option func(*Service)

// WithNotifier sets the notification service. The default discards messages.
func WithNotifier(n notifications.Service) Option {
	return func(s *Service) { s.notifier = n }
}

// WithRecorder sets where audit records go. The default logs them through
// the service logger.
func WithRecorder(r audit.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *audit.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// New builds a Service and validates both transition tables.
func New(cfg *config.Config, store Store, logger *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("workflow: config is required")
	}
	if store == nil {
		return nil, errors.New("workflow: store is required")
	}
	s := &Service{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "workflow"),
		clock:  systemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = notifications.NewService(nil, s.logger)
	}
	if s.recorder == nil {
		s.recorder = audit.NewLogger(s.logger)
	}

	var err error
	s.revisions, err = statemachine.New("revision",
		func(t *revisionTarget) journal.RevisionStatus { return t.revision.Status },
		journal.RevisionStatuses,
		s.revisionTable(),
		statemachine.WithObserver(func(_ context.Context, u *unit, t *revisionTarget, from, to journal.RevisionStatus, err error) {
			u.observe("revision", t.revision.ID, string(from), string(to), err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("workflow: %w", err)
	}
	s.reviews, err = statemachine.New("review",
		func(t *reviewTarget) journal.ReviewStatus { return t.review.Status },
		journal.ReviewStatuses,
		s.reviewTable(),
		statemachine.WithObserver(func(_ context.Context, u *unit, t *reviewTarget, from, to journal.ReviewStatus, err error) {
			u.observe("review", t.review.ID, string(from), string(to), err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("workflow: %w", err)
	}
	return s, nil
}

// RevisionTable enumerates the revision transition table.
func (s *Service) RevisionTable() []statemachine.Edge[journal.RevisionStatus] {
	return s.revisions.Transitions()
}

// ReviewTable enumerates the review transition table.
func (s *Service) ReviewTable() []statemachine.Edge[journal.ReviewStatus] {
	return s.reviews.Transitions()
}

// unit is the invocation context threaded through every handler of one
// top-level request.
type unit struct {
	id    string
	repo  Repository
	actor *journal.User
	now   time.Time

	outbox    []notifications.Message
	messages  []string
	warnings  []error
	records   []audit.Record
	cascading bool
}

func (u *unit) actorID() *int64 {
	if u.actor == nil {
		return nil
	}
	id := u.actor.ID
	return &id
}

func (u *unit) flash(msg string) {
	u.messages = append(u.messages, msg)
}

func (u *unit) notify(msg notifications.Message) {
	if len(msg.Recipients) == 0 {
		return
	}
	u.outbox = append(u.outbox, msg)
}

func (u *unit) observe(entity string, id int64, from, to string, err error) {
	u.records = append(u.records, audit.Record{
		UnitID:   u.id,
		Entity:   entity,
		EntityID: id,
		From:     from,
		To:       to,
		ActorID:  u.actorID(),
		Cascade:  u.cascading,
		Err:      err,
		At:       u.now,
	})
}

// history persists the transition that just succeeded.
func (u *unit) history(ctx context.Context, entity string, id int64, from, to string) error {
	return u.repo.RecordTransition(ctx, &journal.HistoryEntry{
		UnitID:    u.id,
		Entity:    entity,
		EntityID:  id,
		From:      from,
		To:        to,
		ActorID:   u.actorID(),
		CreatedAt: u.now,
	})
}

// run executes fn as one unit of work. actorID 0 means no acting user.
// After the transaction ends, buffered audit records are flushed with the
// commit outcome; notifications are sent only when it committed.
func (s *Service) run(ctx context.Context, action string, actorID int64, fn func(ctx context.Context, u *unit) (Result, error)) (Result, error) {
	started := time.Now()
	u := &unit{id: uuid.NewString(), now: s.clock.Now()}

	var res Result
	err := s.store.WithTx(ctx, func(tx *journal.Tx) error {
		u.repo = tx
		if actorID != 0 {
			actor, err := tx.GetUser(ctx, actorID)
			if err != nil {
				return fmt.Errorf("acting user: %w", err)
			}
			u.actor = actor
		}
		var err error
		res, err = fn(ctx, u)
		return err
	})

	committed := err == nil
	for _, rec := range u.records {
		rec.Committed = committed
		s.recorder.RecordTransition(ctx, rec)
	}
	s.metrics.ObserveUnit(action, time.Since(started), err)

	if err != nil {
		s.logger.Debug("unit of work rolled back",
			logging.String(logging.FieldUnitID, u.id),
			logging.String("action", action),
			logging.Error(err),
		)
		return Result{UnitID: u.id}, err
	}

	res.UnitID = u.id
	res.Messages = u.messages
	res.Warnings = u.warnings
	res.Notified = s.dispatch(ctx, u)
	return res, nil
}

// dispatch sends the outbox. Failures are logged by the notification
// service and counted, never returned.
func (s *Service) dispatch(ctx context.Context, u *unit) int {
	sent := 0
	for _, msg := range u.outbox {
		err := s.notifier.Send(ctx, msg)
		s.metrics.ObserveNotification(err)
		if err != nil {
			s.logger.Debug("notification not delivered",
				logging.String(logging.FieldUnitID, u.id),
				logging.String("subject", msg.Subject),
				logging.Error(err),
			)
			continue
		}
		sent++
	}
	return sent
}

// TransitionRevision moves a revision to the requested status.
func (s *Service) TransitionRevision(ctx context.Context, actorID, revisionID int64, to journal.RevisionStatus) (Result, error) {
	return s.run(ctx, "revision_transition", actorID, func(ctx context.Context, u *unit) (Result, error) {
		t, err := loadRevisionTarget(ctx, u.repo, revisionID)
		if err != nil {
			return Result{}, err
		}
		if err := s.applyRevision(ctx, u, t, to); err != nil {
			return Result{}, err
		}
		return Result{EntityID: revisionID, State: string(t.revision.Status)}, nil
	})
}

// TransitionReview moves a review to the requested status.
func (s *Service) TransitionReview(ctx context.Context, actorID, reviewID int64, to journal.ReviewStatus) (Result, error) {
	return s.run(ctx, "review_transition", actorID, func(ctx context.Context, u *unit) (Result, error) {
		t, err := loadReviewTarget(ctx, u.repo, reviewID)
		if err != nil {
			return Result{}, err
		}
		if err := s.applyReview(ctx, u, t, to, false); err != nil {
			return Result{}, err
		}
		return Result{EntityID: reviewID, State: string(t.review.Status)}, nil
	})
}

// AllowedRevisionTransitions lists the statuses the revision may move to.
func (s *Service) AllowedRevisionTransitions(ctx context.Context, revisionID int64) ([]journal.RevisionStatus, error) {
	rev, err := s.store.GetRevision(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	return s.revisions.Allowed(&revisionTarget{revision: rev}), nil
}

// AllowedReviewTransitions lists the statuses the review may move to.
func (s *Service) AllowedReviewTransitions(ctx context.Context, reviewID int64) ([]journal.ReviewStatus, error) {
	review, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	return s.reviews.Allowed(&reviewTarget{review: review}), nil
}

// RankReviewers orders the reviewer pool for a manuscript, excluding its
// authors and already-assigned reviewers.
func (s *Service) RankReviewers(ctx context.Context, manuscriptID int64) ([]ranking.Ranked, error) {
	m, err := s.store.GetManuscript(ctx, manuscriptID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.store.ReviewerCandidates(ctx, m.AuthorIDs())
	if err != nil {
		return nil, err
	}
	return ranking.Rank(candidates, m.AuthorIDs(), m.ReviewerIDs), nil
}

// revisionEdge rejects pairs missing from the revision table before any
// action-specific guard runs.
func (s *Service) revisionEdge(t *revisionTarget, to journal.RevisionStatus) error {
	if s.revisions.Can(t, to) {
		return nil
	}
	return &statemachine.IllegalTransitionError{Entity: s.revisions.Name(), From: t.revision.Status, To: to}
}

func (s *Service) applyRevision(ctx context.Context, u *unit, t *revisionTarget, to journal.RevisionStatus) error {
	from := t.revision.Status
	if err := s.revisions.Transition(ctx, u, t, to); err != nil {
		return err
	}
	return u.history(ctx, "revision", t.revision.ID, string(from), string(to))
}

func (s *Service) applyReview(ctx context.Context, u *unit, t *reviewTarget, to journal.ReviewStatus, cascade bool) error {
	from := t.review.Status
	prev := u.cascading
	u.cascading = cascade
	err := s.reviews.Transition(ctx, u, t, to)
	u.cascading = prev
	if err != nil {
		return err
	}
	return u.history(ctx, "review", t.review.ID, string(from), string(to))
}
