// Package preflight provides readiness checks for the filesystem paths,
// database, and notification backend the editorial service depends on.
//
// These checks run in two contexts:
//   - `editorial serve` calls RunAll before it starts listening and refuses
//     to start when a required check fails.
//   - `editorial doctor` prints every result as a table.
//
// The notification check is skipped for the log and none backends.
package preflight
