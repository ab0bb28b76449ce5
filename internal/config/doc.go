// Package config loads, normalizes, and validates editorial configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SMTP_HOST and EDITORIAL_BASE_URL. The Config type centralizes every knob the
// API server, CLI, and workflow engine need: review windows, the due-date hour,
// automatic reviewer assignment, and notification delivery.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
