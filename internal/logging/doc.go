// Package logging assembles the structured slog loggers used across
// tubewatch services.
//
// It centralizes level parsing, output plumbing, and attribute helpers so
// every component emits log data with the same shape. Prefer these
// constructors over hand-rolled slog setup.
package logging
