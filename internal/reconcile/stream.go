package reconcile

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tubewatch/internal/events"
)

const (
	reconnectDelay = 2 * time.Second
	maxLineSize    = 1024 * 1024
)

// StreamClient consumes a server-sent event stream and feeds each decoded
// event to a session.
type StreamClient struct {
	url     string
	client  *http.Client
	session *Session
	onEvent func(events.Event)
}

// NewStreamClient builds a client for the given stream URL. onEvent, when
// non-nil, observes every event after the session has merged it.
func NewStreamClient(url string, session *Session, onEvent func(events.Event)) *StreamClient {
	return &StreamClient{
		url:     url,
		client:  &http.Client{},
		session: session,
		onEvent: onEvent,
	}
}

// Run consumes the stream until ctx ends, reconnecting after transient
// failures. The session view survives reconnects; each new connection
// starts with a state snapshot that re-marks in-flight work.
func (c *StreamClient) Run(ctx context.Context) error {
	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(reconnectDelay):
			}
		}
	}
}

func (c *StreamClient) consume(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event events.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			continue
		}
		c.session.Apply(event)
		if c.onEvent != nil {
			c.onEvent(event)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}
