// Package statemachine provides a table-driven transition engine.
//
// A Machine is built once from a static slice of (from, to, handler) rows and
// dispatches transition requests to the matching handler. The machine never
// mutates an entity itself; handlers persist changes and run any cascades.
// Requests for pairs missing from the table fail with ErrIllegalTransition
// before any handler runs.
package statemachine
