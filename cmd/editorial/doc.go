// Command editorial runs and administers the editorial workflow.
//
// `editorial serve` starts the HTTP API and the review expiry sweep. Every
// other command opens the journal database directly, so it works whether or
// not a server is running; SQLite WAL mode and busy retries keep the two
// from stepping on each other.
//
// Workflow commands act as the user named by --actor (an id or username),
// defaulting to EDITORIAL_ACTOR, which may come from a .env file.
package main
