package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tubewatch/internal/store"
)

// Extractor invokes yt-dlp and ffmpeg for one operation at a time.
type Extractor struct {
	ytdlpBinary  string
	ffmpegBinary string
	videosDir    string
	cookiePaths  []string
	exec         Executor
}

// Option configures the extractor.
type Option func(*Extractor)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(e *Extractor) {
		if exec != nil {
			e.exec = exec
		}
	}
}

// WithYtdlpBinary overrides the yt-dlp executable name.
func WithYtdlpBinary(binary string) Option {
	return func(e *Extractor) {
		if binary != "" {
			e.ytdlpBinary = binary
		}
	}
}

// WithFFmpegBinary overrides the ffmpeg executable name.
func WithFFmpegBinary(binary string) Option {
	return func(e *Extractor) {
		if binary != "" {
			e.ffmpegBinary = binary
		}
	}
}

// WithCookiePaths overrides the cookie file candidates probed before each
// extraction.
func WithCookiePaths(paths []string) Option {
	return func(e *Extractor) {
		e.cookiePaths = paths
	}
}

// New constructs an extractor writing into videosDir.
func New(videosDir string, opts ...Option) *Extractor {
	e := &Extractor{
		ytdlpBinary:  "yt-dlp",
		ffmpegBinary: "ffmpeg",
		videosDir:    videosDir,
		cookiePaths:  defaultCookiePaths,
		exec:         commandExecutor{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ytdlpInfo is the subset of `yt-dlp -j` output the metadata fetch uses.
type ytdlpInfo struct {
	UploaderID     string `json:"uploader_id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	UploadDate     string `json:"upload_date"`
	Timestamp      int64  `json:"timestamp"`
	ViewCount      int64  `json:"view_count"`
	DurationString string `json:"duration_string"`
}

// FetchMetadata looks up a single video by identifier.
func (e *Extractor) FetchMetadata(ctx context.Context, id string) (*store.Video, error) {
	var jsonLine string
	err := e.exec.Run(ctx, e.ytdlpBinary, []string{"-j", "--", id}, func(line string) {
		if jsonLine == "" && strings.HasPrefix(line, "{") {
			jsonLine = line
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, id, err)
	}
	if jsonLine == "" {
		return nil, fmt.Errorf("%w: %s: no metadata in output", ErrNotFound, id)
	}

	var info ytdlpInfo
	if err := json.Unmarshal([]byte(jsonLine), &info); err != nil {
		return nil, fmt.Errorf("%w: %s: decode metadata: %v", ErrNotFound, id, err)
	}

	video := &store.Video{
		ID:          id,
		ChannelName: strings.TrimPrefix(info.UploaderID, "@"),
		Title:       info.Title,
		Description: info.Description,
		URL:         WatchURL(id),
		Thumbnail:   ThumbnailURL(id),
		ViewCount:   info.ViewCount,
		Duration:    info.DurationString,
	}
	if len(info.UploadDate) == 8 {
		video.PublishedTime = info.UploadDate[:4] + "-" + info.UploadDate[4:6] + "-" + info.UploadDate[6:8]
	}
	if info.Timestamp > 0 {
		video.PublishedAt = time.Unix(info.Timestamp, 0).UTC()
	}
	return video, nil
}

// DownloadMedia fetches the video media, forwarding every output line as it
// is produced, and returns the location and format of the merged file.
func (e *Extractor) DownloadMedia(ctx context.Context, id string, qualityCeiling int, onLine func(string)) (string, string, error) {
	args := []string{"-o", filepath.Join(e.videosDir, id+".%(ext)s")}
	if cookies := resolveCookiePath(e.cookiePaths); cookies != "" {
		args = append(args, "--cookies", cookies)
	}
	args = append(args,
		"--concurrent-fragments", "10",
		"--newline",
		"--progress",
		"--progress-delta", "1",
		"--sponsorblock-remove", "all,-filler",
		"--merge-output-format", "mp4",
		"-f", fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best", qualityCeiling),
		"--check-formats",
		"--verbose",
		"--", id,
	)

	tail := &lineTail{}
	err := e.exec.Run(ctx, e.ytdlpBinary, args, func(line string) {
		tail.add(line)
		if onLine != nil {
			onLine(line)
		}
	})
	if err != nil {
		return "", "", &ProcessError{Kind: ErrExtractionFailed, Op: "download media", Lines: tail.lines, Err: err}
	}

	location, format, err := e.locateDownload(id)
	if err != nil {
		return "", "", &ProcessError{Kind: ErrExtractionFailed, Op: "download media", Lines: tail.lines, Err: err}
	}
	return location, format, nil
}

// DownloadSubtitles fetches subtitle files next to the media, forwarding
// output lines as produced.
func (e *Extractor) DownloadSubtitles(ctx context.Context, id string, onLine func(string)) error {
	args := []string{"-o", filepath.Join(e.videosDir, id), "--skip-download"}
	if cookies := resolveCookiePath(e.cookiePaths); cookies != "" {
		args = append(args, "--cookies", cookies)
	}
	args = append(args,
		"--write-subs",
		"--write-auto-subs",
		"--sub-format", "vtt",
		"--convert-subs", "srt",
		"-k",
		"--verbose",
		"--", id,
	)

	tail := &lineTail{}
	err := e.exec.Run(ctx, e.ytdlpBinary, args, func(line string) {
		tail.add(line)
		if onLine != nil {
			onLine(line)
		}
	})
	if err != nil {
		return &ProcessError{Kind: ErrExtractionFailed, Op: "download subtitles", Lines: tail.lines, Err: err}
	}
	return nil
}

var subtitleExtensions = map[string]struct{}{
	".srt": {},
	".vtt": {},
}

// locateDownload finds the merged media file for id in the videos directory.
func (e *Extractor) locateDownload(id string) (string, string, error) {
	entries, err := os.ReadDir(e.videosDir)
	if err != nil {
		return "", "", fmt.Errorf("inspect downloads: %w", err)
	}

	var bestPath, bestExt string
	var bestSize int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, id+".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if _, skip := subtitleExtensions[ext]; skip {
			continue
		}
		if ext == ".part" || ext == ".ytdl" || strings.Contains(name, ".tmp.") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Size() >= bestSize {
			bestPath = filepath.Join(e.videosDir, name)
			bestExt = strings.TrimPrefix(ext, ".")
			bestSize = info.Size()
		}
	}
	if bestPath == "" {
		return "", "", fmt.Errorf("no media file produced for %s", id)
	}
	return bestPath, bestExt, nil
}
