package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"tubewatch/internal/config"
)

const anthropicVersion = "2023-06-01"

// anthropicBackend speaks the Anthropic messages API. The system
// instruction rides in its own top-level field rather than the message
// list.
type anthropicBackend struct{}

type anthropicRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (anthropicBackend) newRequest(ctx context.Context, cfg config.LLM, system, prompt string) (*http.Request, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:       cfg.Model,
		System:      system,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	req, err := jsonRequest(ctx, cfg.Host+cfg.Endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	return req, nil
}

func (anthropicBackend) parseResponse(body []byte) (string, error) {
	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode anthropic response: %w", err)
	}
	for _, block := range parsed.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("anthropic response carried no text block")
}
