// Package config loads, validates, and normalizes tubewatch configuration.
//
// Configuration lives in a TOML file (default ~/.config/tubewatch/config.toml)
// decoded over compiled-in defaults. Path fields are tilde-expanded during
// normalization so the rest of the system only ever sees absolute paths.
// Treat Load as the single entry point; constructing a Config by hand is for
// tests only.
package config
