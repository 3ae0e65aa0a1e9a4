// Package daemon assembles the long-running process: store, job
// orchestration, channel polling, the event hub, and the HTTP surface. It
// enforces single-instance execution with a lock file.
package daemon
