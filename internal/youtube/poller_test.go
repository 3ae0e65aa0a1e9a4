package youtube

import (
	"context"
	"errors"
	"testing"
	"time"

	"tubewatch/internal/events"
	"tubewatch/internal/store"
	"tubewatch/internal/testsupport"
)

type fakeLister struct {
	videos map[string][]store.Video
	err    error
	calls  []string
}

func (f *fakeLister) FetchChannelVideos(_ context.Context, channelName string) ([]store.Video, error) {
	f.calls = append(f.calls, channelName)
	if f.err != nil {
		return nil, f.err
	}
	return f.videos[channelName], nil
}

type recordingNotifier struct {
	channels []string
	counts   []int
}

func (r *recordingNotifier) NotifyNewVideos(_ context.Context, channelName string, count int) error {
	r.channels = append(r.channels, channelName)
	r.counts = append(r.counts, count)
	return nil
}

func (r *recordingNotifier) NotifyDownloadCompleted(context.Context, string) error { return nil }
func (r *recordingNotifier) NotifySummaryCompleted(context.Context, string) error  { return nil }
func (r *recordingNotifier) NotifyError(context.Context, error, string) error      { return nil }
func (r *recordingNotifier) TestNotification(context.Context) error                { return nil }

func TestSweepBroadcastsUnseenVideos(t *testing.T) {
	st := testsupport.MustOpenStore(t, nil)
	if err := st.AddChannel(context.Background(), "techchan"); err != nil {
		t.Fatal(err)
	}

	lister := &fakeLister{videos: map[string][]store.Video{
		"techchan": {
			{ID: "vid00000001", ChannelName: "techchan", Title: "First", PublishedAt: time.Now()},
			{ID: "vid00000002", ChannelName: "techchan", Title: "Second", PublishedAt: time.Now()},
		},
	}}
	hub := events.NewHub(nil, nil)
	defer hub.Close()
	notifier := &recordingNotifier{}

	poller := NewPoller(st, lister, hub, notifier, nil, time.Minute)

	_, ch := hub.Attach()
	<-ch

	poller.Sweep(context.Background())

	event := <-ch
	if event.Type != events.TypeNewVideos {
		t.Fatalf("event type = %q", event.Type)
	}
	if len(event.Videos) != 2 {
		t.Fatalf("videos = %d, want 2", len(event.Videos))
	}
	if len(notifier.channels) != 1 || notifier.channels[0] != "techchan" || notifier.counts[0] != 2 {
		t.Fatalf("notifier calls: %+v %+v", notifier.channels, notifier.counts)
	}

	if _, err := st.GetVideo(context.Background(), "vid00000001"); err != nil {
		t.Fatalf("video not persisted: %v", err)
	}

	// A second sweep over the same listing finds nothing new.
	poller.Sweep(context.Background())
	select {
	case event := <-ch:
		t.Fatalf("unexpected event after repeat sweep: %+v", event)
	default:
	}
	if len(notifier.channels) != 1 {
		t.Fatalf("notifier called again: %+v", notifier.channels)
	}
}

func TestSweepKeepsJobStateForKnownVideos(t *testing.T) {
	st := testsupport.MustOpenStore(t, nil)
	if err := st.AddChannel(context.Background(), "techchan"); err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertVideos(context.Background(), []store.Video{{ID: "vid00000001", ChannelName: "techchan", Title: "First"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.UpdateVideo(context.Background(), "vid00000001", store.Patch{Downloaded: store.BoolPtr(true)}); err != nil {
		t.Fatal(err)
	}

	lister := &fakeLister{videos: map[string][]store.Video{
		"techchan": {{ID: "vid00000001", ChannelName: "techchan", Title: "First (updated)", ViewCount: 99}},
	}}
	hub := events.NewHub(nil, nil)
	defer hub.Close()

	poller := NewPoller(st, lister, hub, nil, nil, time.Minute)
	poller.Sweep(context.Background())

	video, err := st.GetVideo(context.Background(), "vid00000001")
	if err != nil {
		t.Fatal(err)
	}
	if !video.Downloaded {
		t.Fatal("sweep cleared downloaded flag")
	}
	if video.Title != "First (updated)" || video.ViewCount != 99 {
		t.Fatalf("listing metadata not refreshed: %+v", video)
	}
}

func TestSweepContinuesPastFailingChannel(t *testing.T) {
	st := testsupport.MustOpenStore(t, nil)
	for _, name := range []string{"badchan", "goodchan"} {
		if err := st.AddChannel(context.Background(), name); err != nil {
			t.Fatal(err)
		}
	}

	lister := &fakeLister{err: errors.New("fetch failed")}
	hub := events.NewHub(nil, nil)
	defer hub.Close()

	poller := NewPoller(st, lister, hub, nil, nil, time.Minute)
	poller.Sweep(context.Background())

	if len(lister.calls) != 2 {
		t.Fatalf("calls = %v, want both channels attempted", lister.calls)
	}
}

func TestPollerStartStop(t *testing.T) {
	st := testsupport.MustOpenStore(t, nil)
	lister := &fakeLister{}
	hub := events.NewHub(nil, nil)
	defer hub.Close()

	poller := NewPoller(st, lister, hub, nil, nil, time.Hour)
	poller.Start(context.Background())
	poller.Start(context.Background())
	poller.Stop()
	poller.Stop()
}
