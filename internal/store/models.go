package store

import "time"

// Video is the repository record for one YouTube video. JSON field names
// match the event wire protocol so broadcast payloads can embed the struct
// directly.
type Video struct {
	ID            string    `json:"id"`
	ChannelName   string    `json:"channelName"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	URL           string    `json:"url,omitempty"`
	Thumbnail     string    `json:"thumbnail,omitempty"`
	PublishedTime string    `json:"publishedTime,omitempty"`
	PublishedAt   time.Time `json:"publishedAt,omitempty"`
	ViewCount     int64     `json:"viewCount,omitempty"`
	Duration      string    `json:"duration,omitempty"`
	Downloaded    bool      `json:"downloaded"`
	Ignored       bool      `json:"ignored"`
	Location      string    `json:"location,omitempty"`
	Format        string    `json:"format,omitempty"`
	Summary       string    `json:"summary,omitempty"`
	Transcript    string    `json:"transcript,omitempty"`
}

// Channel is one tracked channel handle.
type Channel struct {
	Name    string    `json:"name"`
	AddedAt time.Time `json:"addedAt"`
}

// Patch describes a partial video update. Nil fields are left untouched.
type Patch struct {
	Location   *string
	Format     *string
	Downloaded *bool
	Ignored    *bool
	Summary    *string
	Transcript *string
}

// StringPtr returns a pointer to v, for building patches inline.
func StringPtr(v string) *string { return &v }

// BoolPtr returns a pointer to v, for building patches inline.
func BoolPtr(v bool) *bool { return &v }
