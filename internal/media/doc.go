// Package media wraps the external extraction and transcoding binaries.
//
// Every operation spawns a fresh process; the package holds no cross-call
// state. Stdout and stderr are scanned line by line and forwarded to the
// caller as they arrive, and the most recent lines are attached to process
// failures for diagnostics. Input identifiers are normalized and validated
// before anything is spawned.
package media
