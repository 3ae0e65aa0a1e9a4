package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tubewatch/internal/server"
	"tubewatch/internal/store"
)

// apiClient talks to the daemon's JSON API.
type apiClient struct {
	baseURL string
	client  *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func (c *apiClient) status(ctx context.Context) (server.StatusResponse, error) {
	var status server.StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &status)
	return status, err
}

func (c *apiClient) videos(ctx context.Context, channel string) ([]*store.Video, error) {
	path := "/api/videos"
	if channel != "" {
		path += "?channel=" + url.QueryEscape(channel)
	}
	var resp server.VideosResponse
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp.Videos, err
}

func (c *apiClient) channels(ctx context.Context) ([]store.Channel, error) {
	var resp server.ChannelsResponse
	err := c.do(ctx, http.MethodGet, "/api/channels", nil, &resp)
	return resp.Channels, err
}

func (c *apiClient) addChannel(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/api/channels", map[string]string{"name": name}, nil)
}

func (c *apiClient) removeChannel(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/api/channels/"+url.PathEscape(strings.TrimPrefix(name, "@")), nil, nil)
}

func (c *apiClient) startDownload(ctx context.Context, id string) (server.JobResponse, error) {
	var resp server.JobResponse
	err := c.do(ctx, http.MethodPost, "/api/download", map[string]string{"id": id}, &resp)
	return resp, err
}

func (c *apiClient) startSummarize(ctx context.Context, id string) (server.JobResponse, error) {
	var resp server.JobResponse
	err := c.do(ctx, http.MethodPost, "/api/summarize", map[string]string{"id": id}, &resp)
	return resp, err
}

func (c *apiClient) ignore(ctx context.Context, id string, flag bool) (store.Video, error) {
	var video store.Video
	err := c.do(ctx, http.MethodPost, "/api/ignore", map[string]any{"id": id, "ignored": flag}, &video)
	return video, err
}
