package llm

import (
	"context"
	"errors"
	"fmt"
)

// Provider represents an LLM provider.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Request represents a chat completion request.
type Request struct {
	Model       string // overrides the client default when non-empty
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Usage holds token counters reported by the provider, when available.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Response represents a chat completion response.
type Response struct {
	Content string // trimmed
	Model   string
	Usage   Usage
}

// Client is the interface for LLM providers.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Provider() Provider
	Model() string
}

// StatusError reports a non-2xx reply from a completion endpoint. The body
// snippet is bounded so it can be logged without leaking full upstream
// payloads; it is never returned to API callers.
type StatusError struct {
	StatusCode int
	Snippet    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion endpoint returned %d: %s", e.StatusCode, e.Snippet)
}

// ErrInvalidResponse indicates the provider returned a well-formed reply
// with no usable content.
var ErrInvalidResponse = errors.New("invalid LLM response")

const snippetLimit = 200

func snippet(body []byte) string {
	if len(body) > snippetLimit {
		body = body[:snippetLimit]
	}
	return string(body)
}
