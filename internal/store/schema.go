package store

// Schema changes bump schemaVersion; the database is created fresh when the
// stored version does not match.
const schemaVersion = 1

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_info (
    version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS videos (
    id             TEXT PRIMARY KEY,
    channel_name   TEXT NOT NULL DEFAULT '',
    title          TEXT NOT NULL DEFAULT '',
    description    TEXT NOT NULL DEFAULT '',
    url            TEXT NOT NULL DEFAULT '',
    thumbnail      TEXT NOT NULL DEFAULT '',
    published_time TEXT NOT NULL DEFAULT '',
    published_at   TEXT,
    view_count     INTEGER NOT NULL DEFAULT 0,
    duration       TEXT NOT NULL DEFAULT '',
    downloaded     INTEGER NOT NULL DEFAULT 0,
    ignored        INTEGER NOT NULL DEFAULT 0,
    location       TEXT NOT NULL DEFAULT '',
    format         TEXT NOT NULL DEFAULT '',
    summary        TEXT NOT NULL DEFAULT '',
    transcript     TEXT NOT NULL DEFAULT '',
    created_at     TEXT NOT NULL,
    updated_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_videos_channel ON videos (channel_name, published_at DESC);

CREATE TABLE IF NOT EXISTS channels (
    name     TEXT PRIMARY KEY,
    added_at TEXT NOT NULL
);
`
