package llm

import "context"

// MockClient is a scripted LLM client for testing. Responses are consumed in
// order; the last one repeats once the script runs out.
type MockClient struct {
	Responses []string
	Err       error
	CallCount int
	Requests  []Request
}

// NewMockClient creates a mock that always replies with response.
func NewMockClient(response string) *MockClient {
	return &MockClient{Responses: []string{response}}
}

// Complete returns the next scripted response.
func (c *MockClient) Complete(ctx context.Context, req Request) (*Response, error) {
	c.CallCount++
	c.Requests = append(c.Requests, req)

	if c.Err != nil {
		return nil, c.Err
	}
	if len(c.Responses) == 0 {
		return nil, ErrInvalidResponse
	}

	idx := c.CallCount - 1
	if idx >= len(c.Responses) {
		idx = len(c.Responses) - 1
	}
	return &Response{
		Content: c.Responses[idx],
		Model:   "mock-model",
		Usage:   Usage{PromptTokens: 10, CompletionTokens: 20},
	}, nil
}

// Provider returns the mock provider.
func (c *MockClient) Provider() Provider { return "mock" }

// Model returns the mock model name.
func (c *MockClient) Model() string { return "mock-model" }

// Ensure MockClient implements Client
var _ Client = (*MockClient)(nil)
