package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tubewatch/internal/config"
)

const (
	maxPromptChars   = 10000
	defaultMaxTokens = 1024
	userAgent        = "tubewatch/0.1.0"

	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 2 * time.Second
	defaultRetryMaxDelay  = 30 * time.Second
)

// backend shapes requests and parses responses for a specific provider wire
// format.
type backend interface {
	newRequest(ctx context.Context, cfg config.LLM, system, prompt string) (*http.Request, error)
	parseResponse(body []byte) (string, error)
}

// Client issues summarization requests to the configured backend.
type Client struct {
	cfg     config.LLM
	client  *http.Client
	backend backend

	retryAttempts  int
	retryBaseDelay time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

// Option customises client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, primarily for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithRetryAttempts overrides how many times a transient failure is retried.
func WithRetryAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.retryAttempts = attempts
		}
	}
}

// WithSleeper overrides how retry sleeps are performed, for tests.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// New builds a client for the configured host. The wire format is selected
// by host substring: api.anthropic.com speaks the Anthropic messages API,
// generativelanguage.googleapis.com speaks Gemini generateContent, and any
// other host is assumed to be OpenAI-compatible.
func New(cfg config.LLM, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("llm host is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("llm api key is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	c := &Client{
		cfg:            cfg,
		client:         &http.Client{Timeout: timeout},
		retryAttempts:  defaultRetryAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
		sleep:          sleepContext,
	}
	switch {
	case strings.Contains(cfg.Host, "api.anthropic.com"):
		c.backend = anthropicBackend{}
	case strings.Contains(cfg.Host, "generativelanguage.googleapis.com"):
		c.backend = geminiBackend{}
	default:
		c.backend = openAIBackend{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Summarize sends the system instruction and prompt to the backend and
// returns the generated text. Prompts longer than the provider limit are
// truncated before sending. Rate limits, server errors, and request
// timeouts are retried with exponential backoff, honoring Retry-After.
func (c *Client) Summarize(ctx context.Context, system, prompt string) (string, error) {
	if len(prompt) > maxPromptChars {
		prompt = prompt[:maxPromptChars]
	}

	attempts := c.retryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		summary, err := c.summarizeOnce(ctx, system, prompt)
		if err == nil {
			return summary, nil
		}
		lastErr = err

		delay, retry := retryDelay(err, attempt, c.retryBaseDelay)
		if !retry || attempt == attempts || ctx.Err() != nil {
			return "", err
		}
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("summarize failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) summarizeOnce(ctx context.Context, system, prompt string) (string, error) {
	req, err := c.backend.newRequest(ctx, c.cfg, system, prompt)
	if err != nil {
		return "", fmt.Errorf("build summarize request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send summarize request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read summarize response: %w", err)
	}
	if resp.StatusCode >= 300 {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return "", &statusError{
			Code:       resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}

	summary, err := c.backend.parseResponse(body)
	if err != nil {
		return "", err
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", fmt.Errorf("llm backend returned an empty completion")
	}
	return summary, nil
}

// statusError carries a non-2xx backend response.
type statusError struct {
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("llm backend returned %d: %s", e.Code, e.Body)
}

func retryDelay(err error, attempt int, base time.Duration) (time.Duration, bool) {
	var statusErr *statusError
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	switch {
	case statusErr.Code == http.StatusRequestTimeout,
		statusErr.Code == http.StatusTooManyRequests,
		statusErr.Code >= http.StatusInternalServerError:
	default:
		return 0, false
	}
	if statusErr.RetryAfter > 0 {
		return min(statusErr.RetryAfter, defaultRetryMaxDelay), true
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return min(delay, defaultRetryMaxDelay), true
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d, true
		}
	}
	return 0, false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func jsonRequest(ctx context.Context, url string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}
