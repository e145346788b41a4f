package feed

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sparkthread/backend/internal/llm"
)

// needsWebGrounding asks the fast model whether the query needs live web
// information, steering the pipeline to the search-augmented model. Grounding
// is an optimization, not a correctness requirement: any failure fails closed
// to the cheaper path.
func (s *Service) needsWebGrounding(ctx context.Context, query string) bool {
	prompt, err := llm.LoadPrompt("grounding", s.promptVersion)
	if err != nil {
		return false
	}

	resp, err := s.client.Complete(ctx, llm.Request{
		Model:       s.models.Fast,
		Messages:    []llm.Message{{Role: "user", Content: prompt.Render(map[string]string{"QUERY": query})}},
		Temperature: 0,
		MaxTokens:   8,
	})
	if err != nil {
		s.log.Debug("grounding classifier failed, defaulting to ungrounded", zap.Error(err))
		return false
	}

	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(resp.Content)), "YES")
}

// pickModel is the model-selection policy: a pure two-way branch between the
// default model and the search-augmented variant.
func (s *Service) pickModel(grounded bool) string {
	if grounded {
		return s.models.Search
	}
	return s.models.Default
}
