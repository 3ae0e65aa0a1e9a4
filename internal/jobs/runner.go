package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"tubewatch/internal/fileutil"
	"tubewatch/internal/logging"
	"tubewatch/internal/media"
	"tubewatch/internal/store"
)

const summarySystemPrompt = "You summarize YouTube video transcripts. " +
	"Write a concise summary of the key points in a few short paragraphs. " +
	"Do not add commentary or opinions beyond what the transcript supports."

// Repository is the persistence surface a job needs. *store.Store
// satisfies it.
type Repository interface {
	GetVideo(ctx context.Context, id string) (*store.Video, error)
	UpsertVideos(ctx context.Context, videos []store.Video) error
	UpdateVideo(ctx context.Context, id string, patch store.Patch) (*store.Video, error)
	VideoQuality() int
	TranscodeVideos() bool
}

// Extractor is the media tool surface a job needs. *media.Extractor
// satisfies it.
type Extractor interface {
	FetchMetadata(ctx context.Context, id string) (*store.Video, error)
	DownloadMedia(ctx context.Context, id string, qualityCeiling int, onLine func(string)) (string, string, error)
	DownloadSubtitles(ctx context.Context, id string, onLine func(string)) error
	Transcode(ctx context.Context, location, format string, onLine func(string)) (string, error)
}

// Summarizer generates a summary from a transcript.
type Summarizer interface {
	Summarize(ctx context.Context, system, prompt string) (string, error)
}

// Replacer atomically swaps the downloaded media file for its transcoded
// sibling.
type Replacer func(src, dest string) error

// Runner executes one job at a time for one video. It holds no cross-job
// state; the orchestrator creates the concurrency around it.
type Runner struct {
	repo       Repository
	extractor  Extractor
	summarizer Summarizer
	videosDir  string
	replace    Replacer
	logger     *slog.Logger
}

// NewRunner builds a runner. summarizer may be nil when summarization is
// not configured; Summarize then fails cleanly.
func NewRunner(repo Repository, extractor Extractor, summarizer Summarizer, videosDir string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		repo:       repo,
		extractor:  extractor,
		summarizer: summarizer,
		videosDir:  videosDir,
		replace:    fileutil.Replace,
		logger:     logging.WithComponent(logger, "runner"),
	}
}

// ensureVideo returns the repository record for id, fetching and inserting
// metadata when the video is unseen.
func (r *Runner) ensureVideo(ctx context.Context, id string) (*store.Video, error) {
	video, err := r.repo.GetVideo(ctx, id)
	if err == nil {
		return video, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	fetched, err := r.extractor.FetchMetadata(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.repo.UpsertVideos(ctx, []store.Video{*fetched}); err != nil {
		return nil, err
	}
	return r.repo.GetVideo(ctx, id)
}

// Download acquires the video's media: fetch metadata if unseen, download,
// optionally transcode, mark downloaded, and normalize subtitle names.
// Every progress line goes to onLine as it is produced. The returned video
// reflects the final repository state.
func (r *Runner) Download(ctx context.Context, id string, onLine func(string)) (*store.Video, error) {
	if onLine == nil {
		onLine = func(string) {}
	}

	if _, err := r.ensureVideo(ctx, id); err != nil {
		return nil, fmt.Errorf("ensure video %s: %w", id, err)
	}

	location, format, err := r.extractor.DownloadMedia(ctx, id, r.repo.VideoQuality(), onLine)
	if err != nil {
		return nil, err
	}

	video, err := r.repo.UpdateVideo(ctx, id, store.Patch{
		Location: store.StringPtr(location),
		Format:   store.StringPtr(format),
	})
	if err != nil {
		return nil, fmt.Errorf("record download result for %s: %w", id, err)
	}

	if r.repo.TranscodeVideos() && video.Location != "" && video.Format != "" {
		if err := r.transcode(ctx, video, onLine); err != nil {
			// The plain download succeeded and stays in place; the video
			// still counts as downloaded.
			r.logger.Warn("transcode failed, keeping original file",
				logging.String("video_id", id),
				logging.Error(err))
			onLine(fmt.Sprintf("transcode failed for %s: %v", id, err))
		} else {
			onLine(fmt.Sprintf("successfully transcoded video %s", video.Location))
		}
	}

	video, err = r.repo.UpdateVideo(ctx, id, store.Patch{Downloaded: store.BoolPtr(true)})
	if err != nil {
		return nil, fmt.Errorf("mark %s downloaded: %w", id, err)
	}

	if err := media.NormalizeSubtitleFiles(r.videosDir, id); err != nil {
		r.logger.Warn("subtitle normalization failed",
			logging.String("video_id", id),
			logging.Error(err))
	}
	return video, nil
}

func (r *Runner) transcode(ctx context.Context, video *store.Video, onLine func(string)) error {
	target, err := r.extractor.Transcode(ctx, video.Location, video.Format, onLine)
	if err != nil {
		return err
	}
	// The original is only replaced once the transcode fully succeeded, so
	// a partial file is never observable at the video's location.
	if err := r.replace(target, video.Location); err != nil {
		return fmt.Errorf("replace %s with transcoded file: %w", video.Location, err)
	}
	return nil
}

// Summarize ensures a transcript exists on disk (fetching subtitles when
// absent), requests a summary from the backend, and attaches both to the
// video. The transcript is cached as a file so repeat summarization skips
// extraction.
func (r *Runner) Summarize(ctx context.Context, id string, onLine func(string)) (*store.Video, error) {
	if onLine == nil {
		onLine = func(string) {}
	}
	if r.summarizer == nil {
		return nil, fmt.Errorf("summarization is not configured")
	}

	if _, err := r.ensureVideo(ctx, id); err != nil {
		return nil, fmt.Errorf("ensure video %s: %w", id, err)
	}

	transcript, err := r.transcript(ctx, id, onLine)
	if err != nil {
		return nil, err
	}

	summary, err := r.summarizer.Summarize(ctx, summarySystemPrompt, transcript)
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", id, err)
	}

	video, err := r.repo.UpdateVideo(ctx, id, store.Patch{
		Summary:    store.StringPtr(summary),
		Transcript: store.StringPtr(transcript),
	})
	if err != nil {
		return nil, fmt.Errorf("record summary for %s: %w", id, err)
	}
	return video, nil
}

func (r *Runner) transcript(ctx context.Context, id string, onLine func(string)) (string, error) {
	path := media.TranscriptPath(r.videosDir, id)
	if _, err := os.Stat(path); err != nil {
		if err := r.extractor.DownloadSubtitles(ctx, id, onLine); err != nil {
			return "", err
		}
		if err := media.NormalizeSubtitleFiles(r.videosDir, id); err != nil {
			return "", fmt.Errorf("normalize subtitles for %s: %w", id, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read transcript for %s: %w", id, err)
	}
	return string(data), nil
}
