// Package daemon coordinates the long-running `editorial serve` process.
//
// It wires configuration, the journal store, the workflow service and the
// HTTP API into a single lifecycle with flock-based locking to prevent two
// servers from sharing a data directory. While running it sweeps overdue
// reviews to EXPIRED on the configured interval.
//
// Keep orchestration here: transition rules live in workflow, persistence in
// journal, and the daemon only handles startup, shutdown and scheduling.
package daemon
