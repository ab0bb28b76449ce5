package workflow

import (
	"errors"

	"editorial/internal/statemachine"
)

var (
	// ErrIllegalTransition is returned when the requested state is not
	// reachable from the entity's current state. Nothing is changed.
	ErrIllegalTransition = statemachine.ErrIllegalTransition

	// ErrInsufficientReviewers is reported as a Result warning when automatic
	// assignment finds fewer candidates than needed. The submission still
	// succeeds with no reviewers added.
	ErrInsufficientReviewers = errors.New("insufficient reviewers")

	// ErrActionNotAllowed is returned when a guarded action's precondition
	// fails, for example submitting a revision that needs a revision note.
	ErrActionNotAllowed = errors.New("action not allowed")
)
