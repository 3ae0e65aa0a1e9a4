package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"tubewatch/internal/config"
)

// geminiBackend speaks the generateContent API. Gemini has no system role,
// so the system instruction is prepended to the prompt, and the API key
// travels as a query parameter instead of a header.
type geminiBackend struct{}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (geminiBackend) newRequest(ctx context.Context, cfg config.LLM, system, prompt string) (*http.Request, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: system + "\n\n" + prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxTokens,
		},
	})
	if err != nil {
		return nil, err
	}
	return jsonRequest(ctx, cfg.Host+cfg.Endpoint+"?key="+url.QueryEscape(cfg.APIKey), body)
}

func (geminiBackend) parseResponse(body []byte) (string, error) {
	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response carried no candidates")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
