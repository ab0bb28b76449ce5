// Package workflow drives manuscript revisions and reviews through their
// lifecycles.
//
// Two table-driven state machines live here: one for revisions (authors'
// side) and one for reviews (reviewers' side). A request to move an entity
// runs as one unit of work: a single SQLite transaction that applies the
// top-level transition, any cascaded review transitions, reviewer assignment
// and review creation. Notifications raised along the way wait in an outbox
// and are sent only after the transaction commits; delivery failures are
// logged and never undo state. Every transition that reaches a handler yields
// exactly one audit record and, when applied, one transition_history row.
//
// Revision decisions cascade into reviews; reviews never cascade back.
//
// actions.go holds the guarded operations callers normally use (submit,
// withdraw, acknowledge authorship, assign a reviewer, submit a review) on top
// of the raw Transition* entry points.
package workflow
