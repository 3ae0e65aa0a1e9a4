package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tubewatch/internal/media"
	"tubewatch/internal/store"
)

const (
	defaultBaseURL = "https://www.youtube.com"
	userAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/134.0.0.0 Safari/537.36"

	// Listings routinely contain months-old uploads; anything older than
	// this window is noise for a tracker.
	recentWindow = 6 * 31 * 24 * time.Hour
)

var initialDataPattern = regexp.MustCompile(`var ytInitialData = (.+?);</script>`)

// Client fetches channel video listings.
type Client struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// Option customises client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithBaseURL points the client at a different host, primarily for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithClock overrides the time source used for relative timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds a listing client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ytInitialData mirrors the slice of the page payload the listing needs.
type ytInitialData struct {
	Contents struct {
		TwoColumnBrowseResultsRenderer struct {
			Tabs []struct {
				TabRenderer *struct {
					Title   string `json:"title"`
					Content struct {
						RichGridRenderer struct {
							Contents []richItem `json:"contents"`
						} `json:"richGridRenderer"`
					} `json:"content"`
				} `json:"tabRenderer"`
			} `json:"tabs"`
		} `json:"twoColumnBrowseResultsRenderer"`
	} `json:"contents"`
}

type richItem struct {
	RichItemRenderer *struct {
		Content struct {
			VideoRenderer *videoRenderer `json:"videoRenderer"`
		} `json:"content"`
	} `json:"richItemRenderer"`
}

type videoRenderer struct {
	VideoID            string    `json:"videoId"`
	Title              textRuns  `json:"title"`
	DescriptionSnippet textRuns  `json:"descriptionSnippet"`
	PublishedTimeText  plainText `json:"publishedTimeText"`
	ViewCountText      plainText `json:"viewCountText"`
	LengthText         plainText `json:"lengthText"`
}

type textRuns struct {
	Runs []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

func (t textRuns) first() string {
	if len(t.Runs) == 0 {
		return ""
	}
	return t.Runs[0].Text
}

type plainText struct {
	SimpleText string `json:"simpleText"`
}

// FetchChannelVideos scrapes the channel's videos tab and returns the
// recent uploads, newest first as the page lists them. Entries without a
// view count (upcoming premieres, live streams) are skipped, as is
// anything older than six months.
func (c *Client) FetchChannelVideos(ctx context.Context, channelName string) ([]store.Video, error) {
	url := fmt.Sprintf("%s/%s/videos", c.baseURL, channelWithAt(channelName))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build channel request: %w", err)
	}
	req.Header.Set("Accept-Language", "en")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch channel %s: %w", channelName, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch channel %s: status %d", channelName, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read channel page: %w", err)
	}

	match := initialDataPattern.FindSubmatch(body)
	if match == nil {
		return nil, fmt.Errorf("channel %s: page carried no initial data", channelName)
	}

	var data ytInitialData
	if err := json.Unmarshal(match[1], &data); err != nil {
		return nil, fmt.Errorf("channel %s: decode initial data: %w", channelName, err)
	}

	items, err := videoItems(data)
	if err != nil {
		return nil, fmt.Errorf("channel %s: %w", channelName, err)
	}

	now := c.now()
	cutoff := now.Add(-recentWindow)
	videos := make([]store.Video, 0, len(items))
	for _, item := range items {
		if item.RichItemRenderer == nil {
			continue
		}
		renderer := item.RichItemRenderer.Content.VideoRenderer
		if renderer == nil || renderer.ViewCountText.SimpleText == "" {
			continue
		}
		publishedAt, ok := parseRelativeTime(now, renderer.PublishedTimeText.SimpleText)
		if !ok || !publishedAt.After(cutoff) {
			continue
		}
		videos = append(videos, store.Video{
			ID:            renderer.VideoID,
			ChannelName:   strings.TrimPrefix(channelName, "@"),
			Title:         renderer.Title.first(),
			Description:   renderer.DescriptionSnippet.first(),
			URL:           media.WatchURL(renderer.VideoID),
			Thumbnail:     media.ThumbnailURL(renderer.VideoID),
			PublishedTime: renderer.PublishedTimeText.SimpleText,
			PublishedAt:   publishedAt,
			ViewCount:     parseViewCount(renderer.ViewCountText.SimpleText),
			Duration:      renderer.LengthText.SimpleText,
		})
	}
	return videos, nil
}

func videoItems(data ytInitialData) ([]richItem, error) {
	for _, tab := range data.Contents.TwoColumnBrowseResultsRenderer.Tabs {
		if tab.TabRenderer != nil && tab.TabRenderer.Title == "Videos" {
			return tab.TabRenderer.Content.RichGridRenderer.Contents, nil
		}
	}
	return nil, fmt.Errorf("page carried no videos tab")
}

func channelWithAt(channelName string) string {
	if strings.HasPrefix(channelName, "@") {
		return channelName
	}
	return "@" + channelName
}

// parseViewCount turns listing view text like "12,345 views" or
// "1.2M views" into a count. Unparseable text yields zero.
func parseViewCount(text string) int64 {
	text = strings.TrimSuffix(strings.TrimSpace(text), " views")
	text = strings.TrimSuffix(text, " view")
	text = strings.ReplaceAll(text, ",", "")
	if text == "" || strings.EqualFold(text, "No") {
		return 0
	}

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(text, "K"):
		multiplier = 1_000
		text = strings.TrimSuffix(text, "K")
	case strings.HasSuffix(text, "M"):
		multiplier = 1_000_000
		text = strings.TrimSuffix(text, "M")
	case strings.HasSuffix(text, "B"):
		multiplier = 1_000_000_000
		text = strings.TrimSuffix(text, "B")
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0
	}
	return int64(value * float64(multiplier))
}
