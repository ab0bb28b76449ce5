// Package logs reads the service and audit logs for `editorial logs`.
//
// Tail returns the last N lines of a file, or the lines written after a
// saved offset, and can wait for new lines in follow mode. Both logs are
// JSON lines, so a Filter narrows output to records whose fields match,
// for example model=review or unit_id=<uuid>. Lines that are not JSON never
// match a non-empty filter.
package logs
