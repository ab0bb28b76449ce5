// Package api serves the editorial workflow over JSON HTTP and defines the
// transport types the CLI and other consumers share.
//
// # Routes
//
// Reads go straight to the journal store. Writes go through workflow.Service
// so every change runs as one unit of work with its audit records and
// notifications. POST /revisions/{id}/transitions routes PENDING to Submit,
// WITHDRAWN to Withdraw and decisions to Decide, so guarded moves keep their
// preconditions; any other target uses the plain transition.
//
// The acting user is named by the X-Actor-ID header. It is an identity, not a
// credential.
//
// # Errors
//
// Handlers return errors and a single adapter maps them to status codes:
// illegal transitions and duplicates are 409, missing entities 404, failed
// action preconditions 422 and malformed input 400. Bodies are
// {"error": "..."}; internal failures report only the status text.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Statuses are exposed as their upper-case
// names. Timestamps use RFC3339 with milliseconds in UTC.
package api
