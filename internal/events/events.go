// Package events defines the broadcast wire protocol and the process-wide
// fan-out hub delivering it to attached client sessions.
package events

import "tubewatch/internal/store"

// Type tags a broadcast payload.
type Type string

const (
	TypeState           Type = "state"
	TypeDownloadLogLine Type = "download-log-line"
	TypeNewVideos       Type = "new-videos"
	TypeSummaryError    Type = "summary-error"
	TypeSummary         Type = "summary"
	TypeDownloaded      Type = "downloaded"
	TypeIgnored         Type = "ignored"
)

// Snapshot is the process-wide activity state: which videos currently have
// a download or summarize job running.
type Snapshot struct {
	Downloading map[string]bool `json:"downloading"`
	Summarizing map[string]bool `json:"summarizing"`
}

// Event is the tagged union broadcast to every attached session. Only the
// fields relevant to the Type are populated; each event carries enough for
// clients to merge without a follow-up fetch.
type Event struct {
	Type       Type          `json:"type"`
	State      *Snapshot     `json:"state,omitempty"`
	Line       string        `json:"line,omitempty"`
	Videos     []store.Video `json:"videos,omitempty"`
	VideoID    string        `json:"videoId,omitempty"`
	Summary    string        `json:"summary,omitempty"`
	Transcript string        `json:"transcript,omitempty"`
	Downloaded *bool         `json:"downloaded,omitempty"`
	Ignored    *bool         `json:"ignored,omitempty"`
	Video      *store.Video  `json:"video,omitempty"`
}

// StateEvent builds a state event from a snapshot.
func StateEvent(snapshot Snapshot) Event {
	return Event{Type: TypeState, State: &snapshot}
}

// LogLineEvent builds a download-log-line event.
func LogLineEvent(line string) Event {
	return Event{Type: TypeDownloadLogLine, Line: line}
}

// NewVideosEvent builds a new-videos event.
func NewVideosEvent(videos []store.Video) Event {
	return Event{Type: TypeNewVideos, Videos: videos}
}

// DownloadedEvent builds a terminal downloaded event carrying the updated
// video fields.
func DownloadedEvent(video store.Video) Event {
	downloaded := video.Downloaded
	return Event{Type: TypeDownloaded, VideoID: video.ID, Downloaded: &downloaded, Video: &video}
}

// SummaryEvent builds a terminal summary event.
func SummaryEvent(videoID, summary, transcript string) Event {
	return Event{Type: TypeSummary, VideoID: videoID, Summary: summary, Transcript: transcript}
}

// SummaryErrorEvent builds a summarize failure event.
func SummaryErrorEvent(videoID string) Event {
	return Event{Type: TypeSummaryError, VideoID: videoID}
}

// IgnoredEvent builds an ignored event.
func IgnoredEvent(videoID string, ignored bool) Event {
	return Event{Type: TypeIgnored, VideoID: videoID, Ignored: &ignored}
}
