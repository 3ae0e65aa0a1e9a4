// Package store persists videos and tracked channels in SQLite.
//
// The Store owns the database connection, schema bootstrap, and every
// mutation the job pipeline performs. Videos are created on first metadata
// fetch and mutated in place by terminal job events; rows are never deleted
// by the pipeline. Treat this package as the single source of truth for
// repository semantics; schema changes bump schemaVersion in schema.go.
package store
