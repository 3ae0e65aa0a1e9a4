// Package llm produces video summaries through a configurable chat
// completion backend. The backend wire format is chosen from the configured
// host: Anthropic and Google Gemini get their native request shapes, and
// everything else is treated as OpenAI-compatible.
package llm
