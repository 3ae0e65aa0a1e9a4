package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"tubewatch/internal/config"
)

// openAIBackend speaks the chat completions format shared by OpenAI,
// OpenRouter, and most self-hosted gateways.
type openAIBackend struct{}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (openAIBackend) newRequest(ctx context.Context, cfg config.LLM, system, prompt string) (*http.Request, error) {
	body, err := json.Marshal(chatRequest{
		Model: cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
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
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	return req, nil
}

func (openAIBackend) parseResponse(body []byte) (string, error) {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode chat completion: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completion carried no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
