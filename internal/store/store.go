package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tubewatch/internal/config"
)

// ErrNotFound reports a lookup for a video the repository has never seen.
var ErrNotFound = errors.New("video not found")

// Store manages video and channel persistence backed by SQLite. It also
// carries the video settings the job pipeline reads, seeded from config.
type Store struct {
	db   *sql.DB
	path string

	videoQuality    int
	transcodeVideos bool
}

// Open initializes or connects to the database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:              db,
		path:            dbPath,
		videoQuality:    cfg.Videos.Quality,
		transcodeVideos: cfg.Videos.Transcode,
	}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) applySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	var version sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_info LIMIT 1`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_info (version) VALUES (?)`, schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version.Int64 != schemaVersion:
		return fmt.Errorf("database schema version %d does not match expected %d; remove %s to recreate", version.Int64, schemaVersion, s.path)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// VideoQuality returns the configured height ceiling for downloads.
func (s *Store) VideoQuality() int { return s.videoQuality }

// TranscodeVideos reports whether downloads get a transcode pass.
func (s *Store) TranscodeVideos() bool { return s.transcodeVideos }

const videoColumns = `id, channel_name, title, description, url, thumbnail,
    published_time, published_at, view_count, duration, downloaded, ignored,
    location, format, summary, transcript`

// GetVideo returns the video with the given identifier, or ErrNotFound.
func (s *Store) GetVideo(ctx context.Context, id string) (*Video, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get video %q: %w", id, err)
	}
	return video, nil
}

// UpsertVideos inserts the given videos, updating listing metadata for rows
// that already exist. Download and summary state of existing rows is kept.
func (s *Store) UpsertVideos(ctx context.Context, videos []Video) error {
	if len(videos) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC().Format(time.RFC3339Nano)
	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO videos (
            id, channel_name, title, description, url, thumbnail,
            published_time, published_at, view_count, duration,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            channel_name   = excluded.channel_name,
            title          = excluded.title,
            description    = excluded.description,
            url            = excluded.url,
            thumbnail      = excluded.thumbnail,
            published_time = excluded.published_time,
            published_at   = excluded.published_at,
            view_count     = excluded.view_count,
            duration       = excluded.duration,
            updated_at     = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, v := range videos {
		if strings.TrimSpace(v.ID) == "" {
			return errors.New("upsert video: empty identifier")
		}
		if _, err := stmt.ExecContext(ctx,
			v.ID, v.ChannelName, v.Title, v.Description, v.URL, v.Thumbnail,
			v.PublishedTime, nullableTime(v.PublishedAt), v.ViewCount, v.Duration,
			now, now,
		); err != nil {
			return fmt.Errorf("upsert video %q: %w", v.ID, err)
		}
	}
	return tx.Commit()
}

// UpdateVideo applies a partial update and returns the updated record.
func (s *Store) UpdateVideo(ctx context.Context, id string, patch Patch) (*Video, error) {
	sets := make([]string, 0, 7)
	args := make([]any, 0, 8)
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if patch.Location != nil {
		add("location", *patch.Location)
	}
	if patch.Format != nil {
		add("format", *patch.Format)
	}
	if patch.Downloaded != nil {
		add("downloaded", boolToInt(*patch.Downloaded))
	}
	if patch.Ignored != nil {
		add("ignored", boolToInt(*patch.Ignored))
	}
	if patch.Summary != nil {
		add("summary", *patch.Summary)
	}
	if patch.Transcript != nil {
		add("transcript", *patch.Transcript)
	}
	if len(sets) == 0 {
		return s.GetVideo(ctx, id)
	}
	add("updated_at", time.Now().UTC().Format(time.RFC3339Nano))
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, `UPDATE videos SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update video %q: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update video %q: %w", id, err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetVideo(ctx, id)
}

// ListVideos returns videos newest first, optionally filtered by channel.
func (s *Store) ListVideos(ctx context.Context, channel string) ([]*Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos`
	args := []any{}
	if strings.TrimSpace(channel) != "" {
		query += ` WHERE channel_name = ?`
		args = append(args, strings.TrimPrefix(channel, "@"))
	}
	query += ` ORDER BY published_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var videos []*Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}

// AddChannel records a tracked channel handle. Adding twice is a no-op.
func (s *Store) AddChannel(ctx context.Context, name string) error {
	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	if name == "" {
		return errors.New("add channel: empty name")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO channels (name, added_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("add channel %q: %w", name, err)
	}
	return nil
}

// RemoveChannel forgets a tracked channel. Videos already fetched are kept.
func (s *Store) RemoveChannel(ctx context.Context, name string) error {
	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	_, err := s.db.ExecContext(ctx, `DELETE FROM channels WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("remove channel %q: %w", name, err)
	}
	return nil
}

// ListChannels returns tracked channels in insertion order.
func (s *Store) ListChannels(ctx context.Context) ([]Channel, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, added_at FROM channels ORDER BY added_at, name`)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var channels []Channel
	for rows.Next() {
		var ch Channel
		var addedAt string
		if err := rows.Scan(&ch.Name, &addedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		ch.AddedAt = parseTime(addedAt)
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (*Video, error) {
	var v Video
	var publishedAt sql.NullString
	var downloaded, ignored int
	err := row.Scan(
		&v.ID, &v.ChannelName, &v.Title, &v.Description, &v.URL, &v.Thumbnail,
		&v.PublishedTime, &publishedAt, &v.ViewCount, &v.Duration,
		&downloaded, &ignored, &v.Location, &v.Format, &v.Summary, &v.Transcript,
	)
	if err != nil {
		return nil, err
	}
	if publishedAt.Valid {
		v.PublishedAt = parseTime(publishedAt.String)
	}
	v.Downloaded = downloaded != 0
	v.Ignored = ignored != 0
	return &v, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
