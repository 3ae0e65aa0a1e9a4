package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tubewatch/internal/events"
	"tubewatch/internal/media"
	"tubewatch/internal/store"
	"tubewatch/internal/testsupport"
)

// blockingExtractor parks DownloadMedia and DownloadSubtitles until
// released so tests can observe in-flight state.
type blockingExtractor struct {
	fakeExtractor
	block   chan struct{}
	started chan string
}

func newBlockingExtractor() *blockingExtractor {
	return &blockingExtractor{
		block:   make(chan struct{}),
		started: make(chan string, 8),
	}
}

func (b *blockingExtractor) DownloadMedia(ctx context.Context, id string, quality int, onLine func(string)) (string, string, error) {
	b.started <- id
	<-b.block
	return b.fakeExtractor.DownloadMedia(ctx, id, quality, onLine)
}

func (b *blockingExtractor) DownloadSubtitles(ctx context.Context, id string, onLine func(string)) error {
	b.started <- id
	<-b.block
	return b.fakeExtractor.DownloadSubtitles(ctx, id, onLine)
}

type panickyExtractor struct {
	fakeExtractor
}

func (p *panickyExtractor) DownloadMedia(context.Context, string, int, func(string)) (string, string, error) {
	panic("extractor blew up")
}

func newTestOrchestrator(t *testing.T, extractor Extractor, summarizer Summarizer) (*Orchestrator, *events.Hub, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	switch e := extractor.(type) {
	case *fakeExtractor:
		e.videosDir = cfg.VideosDir()
	case *blockingExtractor:
		e.videosDir = cfg.VideosDir()
	case *panickyExtractor:
		e.videosDir = cfg.VideosDir()
	}
	runner := NewRunner(st, extractor, summarizer, cfg.VideosDir(), nil)
	var orch *Orchestrator
	hub := events.NewHub(nil, func() events.Snapshot { return orch.Snapshot() })
	orch = NewOrchestrator(context.Background(), runner, hub, nil, nil)
	t.Cleanup(hub.Close)
	return orch, hub, st
}

func waitForEvent(t *testing.T, ch <-chan events.Event, eventType events.Type) events.Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case event := <-ch:
			if event.Type == eventType {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q event", eventType)
		}
	}
}

func TestStartDownloadRejectsDuplicate(t *testing.T) {
	extractor := newBlockingExtractor()
	orch, hub, _ := newTestOrchestrator(t, extractor, nil)

	_, ch := hub.Attach()
	<-ch

	id, err := orch.StartDownload("vid00000001")
	if err != nil {
		t.Fatalf("StartDownload: %v", err)
	}
	if id != "vid00000001" {
		t.Fatalf("id = %q", id)
	}
	<-extractor.started

	if _, err := orch.StartDownload("vid00000001"); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("duplicate admission error = %v, want ErrAlreadyRunning", err)
	}

	close(extractor.block)
	event := waitForEvent(t, ch, events.TypeDownloaded)
	if event.VideoID != "vid00000001" || event.Downloaded == nil || !*event.Downloaded {
		t.Fatalf("terminal event = %+v", event)
	}
	orch.Wait()

	if len(orch.Snapshot().Downloading) != 0 {
		t.Fatal("activity entry not cleared after terminal event")
	}
	if _, err := orch.StartDownload("vid00000001"); err != nil {
		t.Fatalf("re-trigger after completion rejected: %v", err)
	}
	orch.Wait()
}

func TestStartDownloadNormalizesURLs(t *testing.T) {
	extractor := &fakeExtractor{}
	orch, _, _ := newTestOrchestrator(t, extractor, nil)

	id, err := orch.StartDownload("https://www.youtube.com/watch?v=vid00000001")
	if err != nil {
		t.Fatalf("StartDownload: %v", err)
	}
	if id != "vid00000001" {
		t.Fatalf("id = %q", id)
	}
	orch.Wait()
}

func TestStartDownloadRejectsUnsupportedInput(t *testing.T) {
	orch, hub, _ := newTestOrchestrator(t, &fakeExtractor{}, nil)

	_, ch := hub.Attach()
	<-ch

	if _, err := orch.StartDownload("not a url"); !errors.Is(err, media.ErrUnsupportedInput) {
		t.Fatalf("error = %v, want ErrUnsupportedInput", err)
	}

	select {
	case event := <-ch:
		t.Fatalf("unexpected broadcast after rejection: %+v", event)
	default:
	}
	if len(orch.Snapshot().Downloading) != 0 {
		t.Fatal("rejected input touched the activity mapping")
	}
}

func TestSnapshotListsInFlightJobs(t *testing.T) {
	extractor := newBlockingExtractor()
	summarizer := &fakeSummarizer{summary: "s"}
	orch, hub, _ := newTestOrchestrator(t, extractor, summarizer)

	if _, err := orch.StartDownload("vid00000001"); err != nil {
		t.Fatal(err)
	}
	if _, err := orch.StartSummarize("vid00000002"); err != nil {
		t.Fatal(err)
	}
	<-extractor.started
	<-extractor.started

	// A session attaching mid-job learns the in-flight set immediately.
	_, ch := hub.Attach()
	event := <-ch
	if event.Type != events.TypeState {
		t.Fatalf("first event = %q", event.Type)
	}
	if !event.State.Downloading["vid00000001"] || !event.State.Summarizing["vid00000002"] {
		t.Fatalf("snapshot = %+v", event.State)
	}

	close(extractor.block)
	orch.Wait()
}

func TestDownloadFailureClearsEntryAndLogsLine(t *testing.T) {
	extractor := &fakeExtractor{downloadErr: errors.New("yt-dlp exited with 1")}
	orch, hub, st := newTestOrchestrator(t, extractor, nil)

	_, ch := hub.Attach()
	<-ch

	if _, err := orch.StartDownload("vid00000001"); err != nil {
		t.Fatal(err)
	}
	orch.Wait()

	failureLine := false
	drained := false
	for !drained {
		select {
		case event := <-ch:
			if event.Type == events.TypeDownloaded {
				t.Fatalf("downloaded event after failure: %+v", event)
			}
			if event.Type == events.TypeDownloadLogLine && strings.Contains(event.Line, "download failed") {
				failureLine = true
			}
		default:
			drained = true
		}
	}
	if !failureLine {
		t.Fatal("failure not surfaced as a log line")
	}
	if len(orch.Snapshot().Downloading) != 0 {
		t.Fatal("failed job left its activity entry")
	}

	video, err := st.GetVideo(context.Background(), "vid00000001")
	if err != nil {
		t.Fatal(err)
	}
	if video.Downloaded {
		t.Fatal("failed download marked the video downloaded")
	}
}

func TestJobPanicIsContained(t *testing.T) {
	orch, hub, _ := newTestOrchestrator(t, &panickyExtractor{}, nil)

	_, ch := hub.Attach()
	<-ch

	if _, err := orch.StartDownload("vid00000001"); err != nil {
		t.Fatal(err)
	}
	orch.Wait()

	if len(orch.Snapshot().Downloading) != 0 {
		t.Fatal("panicked job left its activity entry")
	}
	// Admission still works afterwards.
	if _, err := orch.StartDownload("vid00000002"); err != nil {
		t.Fatalf("admission after panic: %v", err)
	}
	orch.Wait()
}

func TestSummarizeLifecycle(t *testing.T) {
	extractor := &fakeExtractor{}
	summarizer := &fakeSummarizer{summary: "the key points"}
	orch, hub, _ := newTestOrchestrator(t, extractor, summarizer)

	_, ch := hub.Attach()
	<-ch

	if _, err := orch.StartSummarize("vid00000001"); err != nil {
		t.Fatal(err)
	}
	event := waitForEvent(t, ch, events.TypeSummary)
	if event.VideoID != "vid00000001" || event.Summary != "the key points" || event.Transcript == "" {
		t.Fatalf("summary event = %+v", event)
	}
	orch.Wait()

	if len(orch.Snapshot().Summarizing) != 0 {
		t.Fatal("summarize entry not cleared")
	}
}

func TestSummarizeFailureEmitsSummaryError(t *testing.T) {
	extractor := &fakeExtractor{}
	summarizer := &fakeSummarizer{err: errors.New("quota exceeded")}
	orch, hub, st := newTestOrchestrator(t, extractor, summarizer)

	_, ch := hub.Attach()
	<-ch

	if _, err := orch.StartSummarize("vid00000001"); err != nil {
		t.Fatal(err)
	}
	event := waitForEvent(t, ch, events.TypeSummaryError)
	if event.VideoID != "vid00000001" {
		t.Fatalf("summary-error event = %+v", event)
	}
	orch.Wait()

	video, err := st.GetVideo(context.Background(), "vid00000001")
	if err != nil {
		t.Fatal(err)
	}
	if video.Downloaded || video.Ignored {
		t.Fatalf("summary failure mutated unrelated flags: %+v", video)
	}
}

func TestDownloadAndSummarizeRunConcurrentlyForOneVideo(t *testing.T) {
	extractor := newBlockingExtractor()
	summarizer := &fakeSummarizer{summary: "s"}
	orch, _, st := newTestOrchestrator(t, extractor, summarizer)

	if err := st.UpsertVideos(context.Background(), []store.Video{{ID: "vid00000001", ChannelName: "chan", Title: "T"}}); err != nil {
		t.Fatal(err)
	}

	if _, err := orch.StartDownload("vid00000001"); err != nil {
		t.Fatalf("download admission: %v", err)
	}
	if _, err := orch.StartSummarize("vid00000001"); err != nil {
		t.Fatalf("summarize admission alongside download: %v", err)
	}
	<-extractor.started
	<-extractor.started

	snapshot := orch.Snapshot()
	if !snapshot.Downloading["vid00000001"] || !snapshot.Summarizing["vid00000001"] {
		t.Fatalf("snapshot = %+v", snapshot)
	}

	close(extractor.block)
	orch.Wait()
}

func TestIgnoreBroadcasts(t *testing.T) {
	orch, hub, st := newTestOrchestrator(t, &fakeExtractor{}, nil)

	if err := st.UpsertVideos(context.Background(), []store.Video{{ID: "vid00000001", ChannelName: "chan", Title: "T"}}); err != nil {
		t.Fatal(err)
	}

	_, ch := hub.Attach()
	<-ch

	video, err := orch.Ignore(context.Background(), "vid00000001", true)
	if err != nil {
		t.Fatalf("Ignore: %v", err)
	}
	if !video.Ignored {
		t.Fatal("ignored flag not set")
	}

	event := waitForEvent(t, ch, events.TypeIgnored)
	if event.VideoID != "vid00000001" || event.Ignored == nil || !*event.Ignored {
		t.Fatalf("ignored event = %+v", event)
	}
}

func TestProgressLinesArriveInOrder(t *testing.T) {
	extractor := &fakeExtractor{downloadLines: []string{"line 1", "line 2", "line 3"}}
	orch, hub, _ := newTestOrchestrator(t, extractor, nil)

	_, ch := hub.Attach()
	<-ch

	if _, err := orch.StartDownload("vid00000001"); err != nil {
		t.Fatal(err)
	}

	var got []string
	for len(got) < 3 {
		event := waitForEvent(t, ch, events.TypeDownloadLogLine)
		got = append(got, event.Line)
	}
	for i, line := range []string{"line 1", "line 2", "line 3"} {
		if got[i] != line {
			t.Fatalf("lines out of order: %v", got)
		}
	}
	orch.Wait()
}
