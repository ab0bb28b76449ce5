// Package notifications delivers rendered workflow messages to users.
//
// Backends are selected by [notifications] backend in config.toml: smtp sends
// email through go-mail, ntfy posts to a topic, log only records the message,
// and none discards it. NewService wraps the backend so that every message
// carries the journal subject prefix and produces one log line with its
// recipients and delivery outcome.
//
// Workflow code depends only on the Service interface.
package notifications
