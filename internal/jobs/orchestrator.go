package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"tubewatch/internal/events"
	"tubewatch/internal/logging"
	"tubewatch/internal/media"
	"tubewatch/internal/notifications"
	"tubewatch/internal/store"
)

// ErrAlreadyRunning rejects a second job of the same kind for a video that
// already has one in flight.
var ErrAlreadyRunning = errors.New("job already running for this video")

type jobKind string

const (
	kindDownload  jobKind = "download"
	kindSummarize jobKind = "summarize"
)

// Orchestrator owns the activity state and runs accepted jobs, each in its
// own goroutine. Admission and completion are the only mutations of the
// activity mappings.
type Orchestrator struct {
	runner   *Runner
	hub      *events.Hub
	notifier notifications.Service
	logger   *slog.Logger

	// baseCtx bounds job lifetimes to the daemon, not to the request that
	// started the job.
	baseCtx context.Context

	mu          sync.Mutex
	downloading map[string]bool
	summarizing map[string]bool

	wg sync.WaitGroup
}

// NewOrchestrator builds an orchestrator with empty activity mappings.
// Jobs started later are bound to ctx.
func NewOrchestrator(ctx context.Context, runner *Runner, hub *events.Hub, notifier notifications.Service, logger *slog.Logger) *Orchestrator {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		runner:      runner,
		hub:         hub,
		notifier:    notifier,
		logger:      logging.WithComponent(logger, "orchestrator"),
		baseCtx:     ctx,
		downloading: make(map[string]bool),
		summarizing: make(map[string]bool),
	}
}

// Snapshot returns a copy of the current activity state.
func (o *Orchestrator) Snapshot() events.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	snapshot := events.Snapshot{
		Downloading: make(map[string]bool, len(o.downloading)),
		Summarizing: make(map[string]bool, len(o.summarizing)),
	}
	for id := range o.downloading {
		snapshot.Downloading[id] = true
	}
	for id := range o.summarizing {
		snapshot.Summarizing[id] = true
	}
	return snapshot
}

// admit atomically checks and sets the activity entry for (id, kind).
func (o *Orchestrator) admit(id string, kind jobKind) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	mapping := o.mapping(kind)
	if mapping[id] {
		return ErrAlreadyRunning
	}
	mapping[id] = true
	return nil
}

// release clears the activity entry. It is idempotent.
func (o *Orchestrator) release(id string, kind jobKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.mapping(kind), id)
}

func (o *Orchestrator) mapping(kind jobKind) map[string]bool {
	if kind == kindDownload {
		return o.downloading
	}
	return o.summarizing
}

// StartDownload normalizes the input to a video id, admits a download job
// for it, and runs the job asynchronously. Unsupported input and duplicate
// admission are rejected synchronously without broadcasting anything.
func (o *Orchestrator) StartDownload(input string) (string, error) {
	id, err := media.CanonicalID(input)
	if err != nil {
		return "", err
	}
	if err := o.admit(id, kindDownload); err != nil {
		return "", err
	}

	o.hub.Publish(events.StateEvent(o.Snapshot()))
	o.logger.Info("download job started", logging.String("video_id", id))

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.runDownload(id)
	}()
	return id, nil
}

func (o *Orchestrator) runDownload(id string) {
	var (
		video *store.Video
		err   error
	)
	func() {
		defer o.recoverPanic(id, kindDownload, &err)
		video, err = o.runner.Download(o.baseCtx, id, func(line string) {
			o.hub.Publish(events.LogLineEvent(line))
		})
	}()

	// Clear the activity entry before the terminal event so a snapshot
	// taken right after the event no longer lists the job.
	o.release(id, kindDownload)

	if err != nil {
		o.logger.Error("download job failed", logging.String("video_id", id), logging.Error(err))
		o.hub.Publish(events.LogLineEvent(fmt.Sprintf("download failed for %s: %v", id, err)))
		o.hub.Publish(events.StateEvent(o.Snapshot()))
		if o.notifier != nil {
			_ = o.notifier.NotifyError(o.baseCtx, err, "download "+id)
		}
		return
	}

	o.logger.Info("download job finished", logging.String("video_id", id), logging.String("location", video.Location))
	o.hub.Publish(events.DownloadedEvent(*video))
	if o.notifier != nil {
		_ = o.notifier.NotifyDownloadCompleted(o.baseCtx, video.Title)
	}
}

// StartSummarize admits a summarize job for the id and runs it
// asynchronously.
func (o *Orchestrator) StartSummarize(input string) (string, error) {
	id, err := media.CanonicalID(input)
	if err != nil {
		return "", err
	}
	if err := o.admit(id, kindSummarize); err != nil {
		return "", err
	}

	o.hub.Publish(events.StateEvent(o.Snapshot()))
	o.logger.Info("summarize job started", logging.String("video_id", id))

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.runSummarize(id)
	}()
	return id, nil
}

func (o *Orchestrator) runSummarize(id string) {
	var (
		video *store.Video
		err   error
	)
	func() {
		defer o.recoverPanic(id, kindSummarize, &err)
		video, err = o.runner.Summarize(o.baseCtx, id, func(line string) {
			o.hub.Publish(events.LogLineEvent(line))
		})
	}()

	o.release(id, kindSummarize)

	if err != nil {
		o.logger.Error("summarize job failed", logging.String("video_id", id), logging.Error(err))
		o.hub.Publish(events.SummaryErrorEvent(id))
		if o.notifier != nil {
			_ = o.notifier.NotifyError(o.baseCtx, err, "summarize "+id)
		}
		return
	}

	o.logger.Info("summarize job finished", logging.String("video_id", id))
	o.hub.Publish(events.SummaryEvent(id, video.Summary, video.Transcript))
	if o.notifier != nil {
		_ = o.notifier.NotifySummaryCompleted(o.baseCtx, video.Title)
	}
}

// recoverPanic converts a job goroutine panic into an ordinary job error
// so one job's fault never takes down the process.
func (o *Orchestrator) recoverPanic(id string, kind jobKind, errOut *error) {
	r := recover()
	if r == nil {
		return
	}
	o.logger.Error("job panicked",
		logging.String("video_id", id),
		logging.String("kind", string(kind)),
		logging.Any("panic", r),
		logging.String("stack", string(debug.Stack())))
	*errOut = fmt.Errorf("%s job for %s panicked: %v", kind, id, r)
}

// Ignore flips the video's ignored flag in the repository and broadcasts
// the change. It is synchronous; no job is involved.
func (o *Orchestrator) Ignore(ctx context.Context, id string, flag bool) (*store.Video, error) {
	canonical, err := media.CanonicalID(id)
	if err != nil {
		return nil, err
	}
	video, err := o.runner.repo.UpdateVideo(ctx, canonical, store.Patch{Ignored: store.BoolPtr(flag)})
	if err != nil {
		return nil, err
	}
	o.hub.Publish(events.IgnoredEvent(canonical, video.Ignored))
	return video, nil
}

// Wait blocks until every in-flight job has finished. Intended for
// shutdown and tests.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}
