package reconcile

import (
	"log/slog"
	"sync"

	"tubewatch/internal/events"
	"tubewatch/internal/logging"
	"tubewatch/internal/store"
)

const defaultLogCapacity = 200

// Record is one video as the session sees it: the cached fields plus the
// session-local activity flags.
type Record struct {
	store.Video
	Downloading bool
	Summarizing bool
}

// Session holds the reconciled state for one consumer of the event
// stream. All methods are safe for concurrent use.
type Session struct {
	logger *slog.Logger

	mu      sync.Mutex
	order   []string
	records map[string]*Record
	log     []string
	logCap  int
}

// NewSession builds an empty session view.
func NewSession(logger *slog.Logger) *Session {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Session{
		logger:  logging.WithComponent(logger, "reconcile"),
		records: make(map[string]*Record),
		logCap:  defaultLogCapacity,
	}
}

// Seed loads an initial video list, newest first, as a fetch from the API
// would return it.
func (s *Session) Seed(videos []store.Video) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, video := range videos {
		s.upsertLocked(video, false)
	}
}

// upsertLocked merges a full video into the cache, appending or
// prepending unseen identifiers to the ordering. Known identifiers keep
// their position and any fields the incoming copy does not carry.
func (s *Session) upsertLocked(video store.Video, prepend bool) {
	if record, ok := s.records[video.ID]; ok {
		mergeVideo(&record.Video, video)
		return
	}
	s.records[video.ID] = &Record{Video: video}
	if prepend {
		s.order = append([]string{video.ID}, s.order...)
	} else {
		s.order = append(s.order, video.ID)
	}
}

// Apply merges one event into the session view. Unknown event kinds are
// logged and ignored.
func (s *Session) Apply(event events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Type {
	case events.TypeState:
		if event.State == nil {
			return
		}
		// Additive only. Terminal events are the authoritative
		// flag-clearing mechanism; a snapshot never clears flags.
		for id := range event.State.Downloading {
			if record, ok := s.records[id]; ok {
				record.Downloading = true
			}
		}
		for id := range event.State.Summarizing {
			if record, ok := s.records[id]; ok {
				record.Summarizing = true
			}
		}

	case events.TypeDownloadLogLine:
		if event.Line == "" {
			return
		}
		s.log = append(s.log, event.Line)
		if len(s.log) > s.logCap {
			s.log = s.log[len(s.log)-s.logCap:]
		}

	case events.TypeNewVideos:
		// Prepend in reverse so the incoming batch keeps its order at the
		// head of the list. Known identifiers only refresh their fields.
		for i := len(event.Videos) - 1; i >= 0; i-- {
			s.upsertLocked(event.Videos[i], true)
		}

	case events.TypeDownloaded:
		record, ok := s.records[event.VideoID]
		if !ok {
			return
		}
		if event.Downloaded != nil {
			record.Video.Downloaded = *event.Downloaded
		}
		if event.Video != nil {
			mergeVideo(&record.Video, *event.Video)
		}
		record.Downloading = false

	case events.TypeSummary:
		record, ok := s.records[event.VideoID]
		if !ok {
			return
		}
		record.Video.Summary = event.Summary
		record.Video.Transcript = event.Transcript
		record.Summarizing = false

	case events.TypeSummaryError:
		if record, ok := s.records[event.VideoID]; ok {
			record.Summarizing = false
		}

	case events.TypeIgnored:
		record, ok := s.records[event.VideoID]
		if !ok {
			return
		}
		if event.Ignored != nil {
			record.Video.Ignored = *event.Ignored
		}

	default:
		s.logger.Warn("unhandled event kind", logging.String("type", string(event.Type)))
	}
}

// mergeVideo shallow-merges the carried fields of src into dest, leaving
// zero-valued src fields untouched.
func mergeVideo(dest *store.Video, src store.Video) {
	if src.ChannelName != "" {
		dest.ChannelName = src.ChannelName
	}
	if src.Title != "" {
		dest.Title = src.Title
	}
	if src.Description != "" {
		dest.Description = src.Description
	}
	if src.URL != "" {
		dest.URL = src.URL
	}
	if src.Thumbnail != "" {
		dest.Thumbnail = src.Thumbnail
	}
	if src.PublishedTime != "" {
		dest.PublishedTime = src.PublishedTime
	}
	if !src.PublishedAt.IsZero() {
		dest.PublishedAt = src.PublishedAt
	}
	if src.ViewCount != 0 {
		dest.ViewCount = src.ViewCount
	}
	if src.Duration != "" {
		dest.Duration = src.Duration
	}
	if src.Location != "" {
		dest.Location = src.Location
	}
	if src.Format != "" {
		dest.Format = src.Format
	}
	if src.Summary != "" {
		dest.Summary = src.Summary
	}
	if src.Transcript != "" {
		dest.Transcript = src.Transcript
	}
}

// Get returns a copy of the record for id.
func (s *Session) Get(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return *record, true
}

// Videos returns copies of all records in list order.
func (s *Session) Videos() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.records[id])
	}
	return out
}

// Log returns a copy of the bounded progress log.
func (s *Session) Log() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.log...)
}
