// Package reconcile maintains a session-local view of videos and activity
// flags by merging the broadcast event stream, one deterministic merge per
// event kind. The view survives reconnects because every merge is
// idempotent and keyed by video identifier.
package reconcile
