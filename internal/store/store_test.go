package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tubewatch/internal/store"
	"tubewatch/internal/testsupport"
)

func TestGetVideoMissingReturnsNotFound(t *testing.T) {
	s := testsupport.MustOpenStore(t, nil)
	_, err := s.GetVideo(context.Background(), "nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertThenGetRoundTrips(t *testing.T) {
	s := testsupport.MustOpenStore(t, nil)
	ctx := context.Background()

	published := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	video := store.Video{
		ID:            "dQw4w9WgXcQ",
		ChannelName:   "RickAstley",
		Title:         "Never Gonna Give You Up",
		Description:   "Official video",
		URL:           "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Thumbnail:     "https://img.youtube.com/vi/dQw4w9WgXcQ/mq2.jpg",
		PublishedTime: "17 years ago",
		PublishedAt:   published,
		ViewCount:     1500000000,
		Duration:      "3:33",
	}
	if err := s.UpsertVideos(ctx, []store.Video{video}); err != nil {
		t.Fatalf("UpsertVideos: %v", err)
	}

	got, err := s.GetVideo(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	if got.Title != video.Title || got.ChannelName != video.ChannelName {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !got.PublishedAt.Equal(published) {
		t.Fatalf("published at = %v, want %v", got.PublishedAt, published)
	}
	if got.Downloaded || got.Ignored {
		t.Fatal("fresh video should not be downloaded or ignored")
	}
}

func TestUpsertrefreshesListingButKeepsJobState(t *testing.T) {
	s := testsupport.MustOpenStore(t, nil)
	ctx := context.Background()

	if err := s.UpsertVideos(ctx, []store.Video{{ID: "abc", Title: "old title"}}); err != nil {
		t.Fatalf("UpsertVideos: %v", err)
	}
	if _, err := s.UpdateVideo(ctx, "abc", store.Patch{
		Downloaded: store.BoolPtr(true),
		Location:   store.StringPtr("/x.mp4"),
		Format:     store.StringPtr("mp4"),
	}); err != nil {
		t.Fatalf("UpdateVideo: %v", err)
	}

	if err := s.UpsertVideos(ctx, []store.Video{{ID: "abc", Title: "new title", ViewCount: 42}}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, err := s.GetVideo(ctx, "abc")
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	if got.Title != "new title" || got.ViewCount != 42 {
		t.Fatalf("listing metadata not refreshed: %+v", got)
	}
	if !got.Downloaded || got.Location != "/x.mp4" || got.Format != "mp4" {
		t.Fatalf("job state lost on upsert: %+v", got)
	}
}

func TestUpdateVideoAppliesOnlyPatchedFields(t *testing.T) {
	s := testsupport.MustOpenStore(t, nil)
	ctx := context.Background()

	if err := s.UpsertVideos(ctx, []store.Video{{ID: "abc", Title: "T"}}); err != nil {
		t.Fatalf("UpsertVideos: %v", err)
	}
	got, err := s.UpdateVideo(ctx, "abc", store.Patch{
		Summary:    store.StringPtr("short summary"),
		Transcript: store.StringPtr("full transcript"),
	})
	if err != nil {
		t.Fatalf("UpdateVideo: %v", err)
	}
	if got.Summary != "short summary" || got.Transcript != "full transcript" {
		t.Fatalf("patch not applied: %+v", got)
	}
	if got.Title != "T" || got.Downloaded {
		t.Fatalf("unrelated fields touched: %+v", got)
	}

	if _, err := s.UpdateVideo(ctx, "missing", store.Patch{Downloaded: store.BoolPtr(true)}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing id, got %v", err)
	}
}

func TestListVideosFiltersByChannel(t *testing.T) {
	s := testsupport.MustOpenStore(t, nil)
	ctx := context.Background()

	now := time.Now().UTC()
	videos := []store.Video{
		{ID: "a1", ChannelName: "alpha", PublishedAt: now.Add(-time.Hour)},
		{ID: "a2", ChannelName: "alpha", PublishedAt: now},
		{ID: "b1", ChannelName: "beta", PublishedAt: now},
	}
	if err := s.UpsertVideos(ctx, videos); err != nil {
		t.Fatalf("UpsertVideos: %v", err)
	}

	alpha, err := s.ListVideos(ctx, "@alpha")
	if err != nil {
		t.Fatalf("ListVideos: %v", err)
	}
	if len(alpha) != 2 {
		t.Fatalf("expected 2 alpha videos, got %d", len(alpha))
	}
	if alpha[0].ID != "a2" {
		t.Fatalf("expected newest first, got %s", alpha[0].ID)
	}

	all, err := s.ListVideos(ctx, "")
	if err != nil {
		t.Fatalf("ListVideos all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 videos, got %d", len(all))
	}
}

func TestChannelLifecycle(t *testing.T) {
	s := testsupport.MustOpenStore(t, nil)
	ctx := context.Background()

	if err := s.AddChannel(ctx, "@veritasium"); err != nil {
		t.Fatalf("AddChannel: %v", err)
	}
	if err := s.AddChannel(ctx, "veritasium"); err != nil {
		t.Fatalf("duplicate AddChannel: %v", err)
	}
	channels, err := s.ListChannels(ctx)
	if err != nil {
		t.Fatalf("ListChannels: %v", err)
	}
	if len(channels) != 1 || channels[0].Name != "veritasium" {
		t.Fatalf("unexpected channels: %+v", channels)
	}

	if err := s.RemoveChannel(ctx, "veritasium"); err != nil {
		t.Fatalf("RemoveChannel: %v", err)
	}
	channels, err = s.ListChannels(ctx)
	if err != nil {
		t.Fatalf("ListChannels after remove: %v", err)
	}
	if len(channels) != 0 {
		t.Fatalf("expected no channels, got %+v", channels)
	}
}

func TestSettingsComeFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Videos.Quality = 480
	cfg.Videos.Transcode = true
	s := testsupport.MustOpenStore(t, cfg)

	if got := s.VideoQuality(); got != 480 {
		t.Fatalf("VideoQuality = %d", got)
	}
	if !s.TranscodeVideos() {
		t.Fatal("TranscodeVideos should be true")
	}
}
