// Package feed implements the structured generation pipeline shared by every
// AI-backed endpoint: sanitize input, classify the grounding need, run the
// completion with the selected model, recover structured data from the reply,
// and persist the result.
package feed

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.uber.org/zap"

	"github.com/sparkthread/backend/internal/auth"
	"github.com/sparkthread/backend/internal/domain"
	"github.com/sparkthread/backend/internal/genjson"
	"github.com/sparkthread/backend/internal/llm"
	"github.com/sparkthread/backend/internal/repository"
	"github.com/sparkthread/backend/internal/sanitize"
)

//go:embed schemas/*.json
var schemasFS embed.FS

const (
	// Generation shape.
	threadsPerFeed   = 6
	repliesPerThread = 5
	expandReplies    = 3

	// Hard ceilings applied after recovery, independent of what the model
	// was asked for.
	maxThreads          = 6
	maxRepliesPerThread = 8

	// Input bounds.
	maxQueryPromptLen    = 300
	maxQueryStoreLen     = 500
	maxQuestionPromptLen = 400
	maxQuestionStoreLen  = 500
	maxAnswerStoreLen    = 1000
	maxReplyStoreLen     = 500
	maxInterestTags      = 20

	// Home suggestion bounds. The total cap is the retention bound for the
	// union-merged stored list.
	suggestionsPerBatch  = 10
	maxSuggestionLen     = 120
	maxStoredSuggestions = 60
)

// Service runs the generation pipeline against a completion client and a
// repository.
type Service struct {
	repo          repository.Repository
	client        llm.Client
	models        llm.ModelSet
	log           *zap.Logger
	feedSchema    *jsonschema.Schema
	promptVersion llm.PromptVersion
}

// NewService creates the feed service and compiles the embedded feed schema.
func NewService(repo repository.Repository, client llm.Client, models llm.ModelSet, log *zap.Logger) (*Service, error) {
	schemaData, err := schemasFS.ReadFile("schemas/feed.schema.json")
	if err != nil {
		return nil, fmt.Errorf("read feed schema: %w", err)
	}
	var schemaDoc any
	if err := json.Unmarshal(schemaData, &schemaDoc); err != nil {
		return nil, fmt.Errorf("unmarshal feed schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("feed.json", schemaDoc); err != nil {
		return nil, fmt.Errorf("add feed schema resource: %w", err)
	}
	schema, err := c.Compile("feed.json")
	if err != nil {
		return nil, fmt.Errorf("compile feed schema: %w", err)
	}
	return &Service{
		repo:          repo,
		client:        client,
		models:        models,
		log:           log,
		feedSchema:    schema,
		promptVersion: llm.PromptVersionV1,
	}, nil
}

// feedPayload mirrors the documented model output shape. Replies stay
// untyped so one malformed element cannot sink the whole parse; filtering
// happens afterwards.
type feedPayload struct {
	Threads []struct {
		Main    string `json:"main"`
		Replies []any  `json:"replies"`
	} `json:"threads"`
}

// GenerateFeed turns a user topic into a persisted Topic with its generated
// threads. Zero usable threads after recovery is a soft failure
// (domain.ErrEmptyGeneration), not a crash.
func (s *Service) GenerateFeed(ctx context.Context, ident auth.Identity, query string) (*domain.Topic, []*domain.Thread, error) {
	q := sanitize.ForPrompt(query, maxQueryPromptLen)
	if q == "" {
		return nil, nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}

	grounded := s.needsWebGrounding(ctx, q)

	prompt, err := llm.LoadPrompt("feed", s.promptVersion)
	if err != nil {
		return nil, nil, fmt.Errorf("load prompt: %w", err)
	}
	rendered := prompt.Render(map[string]string{
		"TOPIC":        q,
		"THREAD_COUNT": fmt.Sprintf("%d", threadsPerFeed),
		"REPLY_COUNT":  fmt.Sprintf("%d", repliesPerThread),
	})

	resp, err := s.complete(ctx, llm.Request{
		Model:       s.pickModel(grounded),
		Messages:    []llm.Message{{Role: "user", Content: rendered}},
		Temperature: 0.8,
		MaxTokens:   4000,
	})
	if err != nil {
		return nil, nil, err
	}

	payload, ok := s.recoverFeed(resp.Content)
	if !ok || len(payload.Threads) == 0 {
		s.log.Warn("feed generation yielded no usable threads", zap.String("model", resp.Model))
		return nil, nil, domain.ErrEmptyGeneration
	}

	now := time.Now().UTC()
	topic := &domain.Topic{
		ID:        uuid.New(),
		OwnerID:   ident.UserID,
		Query:     sanitize.ForStorage(query, maxQueryStoreLen),
		CreatedAt: now,
	}
	if err := s.repo.CreateTopic(ctx, topic); err != nil {
		return nil, nil, fmt.Errorf("create topic: %w", err)
	}

	threads := make([]*domain.Thread, 0, len(payload.Threads))
	for i, t := range payload.Threads {
		if i >= maxThreads {
			break
		}
		main := sanitize.ForStorage(t.Main, maxReplyStoreLen)
		if main == "" {
			continue
		}
		replies := make([]domain.Reply, 0, maxRepliesPerThread)
		for _, r := range genjson.StringItems(t.Replies, maxRepliesPerThread) {
			replies = append(replies, domain.Original(sanitize.ForStorage(r, maxReplyStoreLen)))
		}
		thread := &domain.Thread{
			ID:        uuid.New(),
			TopicID:   topic.ID,
			MainPost:  main,
			Replies:   replies,
			CreatedAt: now,
		}
		if err := s.repo.CreateThread(ctx, thread); err != nil {
			return nil, nil, fmt.Errorf("create thread: %w", err)
		}
		threads = append(threads, thread)
	}
	if len(threads) == 0 {
		return nil, nil, domain.ErrEmptyGeneration
	}

	s.log.Info("feed generated",
		zap.String("topic_id", topic.ID.String()),
		zap.Int("threads", len(threads)),
		zap.Bool("grounded", grounded),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))
	return topic, threads, nil
}

// recoverFeed runs the recovery parser plus schema validation over a raw
// model reply. Schema rejection degrades to the same soft failure as
// unparseable output.
func (s *Service) recoverFeed(raw string) (*feedPayload, bool) {
	var doc any
	if !genjson.Object(raw, &doc) {
		return nil, false
	}
	if err := s.feedSchema.Validate(doc); err != nil {
		s.log.Warn("generated feed failed schema validation", zap.Error(err))
		return nil, false
	}
	var payload feedPayload
	if !genjson.Object(raw, &payload) {
		return nil, false
	}
	return &payload, true
}

// ExpandThread asks the model for additional replies to one thread and
// appends them to the reply sequence.
func (s *Service) ExpandThread(ctx context.Context, ident auth.Identity, threadID uuid.UUID) (*domain.Thread, error) {
	thread, err := s.repo.GetThread(ctx, ident.UserID, threadID)
	if err != nil {
		return nil, err
	}

	grounded := s.needsWebGrounding(ctx, sanitize.ForPrompt(thread.MainPost, maxQueryPromptLen))

	prompt, err := llm.LoadPrompt("expand", s.promptVersion)
	if err != nil {
		return nil, fmt.Errorf("load prompt: %w", err)
	}
	rendered := prompt.Render(map[string]string{
		"MAIN_POST":   sanitize.ForPrompt(thread.MainPost, maxQueryPromptLen),
		"REPLIES":     renderReplies(thread.Replies),
		"REPLY_COUNT": fmt.Sprintf("%d", expandReplies),
	})

	resp, err := s.complete(ctx, llm.Request{
		Model:       s.pickModel(grounded),
		Messages:    []llm.Message{{Role: "user", Content: rendered}},
		Temperature: 0.8,
		MaxTokens:   1000,
	})
	if err != nil {
		return nil, err
	}

	fresh := genjson.Strings(resp.Content, expandReplies)
	if len(fresh) == 0 {
		return nil, domain.ErrEmptyGeneration
	}
	for _, r := range fresh {
		thread.Replies = append(thread.Replies, domain.Original(sanitize.ForStorage(r, maxReplyStoreLen)))
	}
	if err := s.repo.UpdateThreadReplies(ctx, ident.UserID, thread.ID, thread.Replies); err != nil {
		return nil, fmt.Errorf("update replies: %w", err)
	}
	return thread, nil
}

// AnswerFollowUp answers a reader question about a thread and splices the
// question/answer pair into the reply sequence immediately after replyIndex
// (or at the end when replyIndex is out of range).
func (s *Service) AnswerFollowUp(ctx context.Context, ident auth.Identity, threadID uuid.UUID, question string, replyIndex int) (*domain.Thread, error) {
	q := sanitize.ForPrompt(question, maxQuestionPromptLen)
	if q == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}

	thread, err := s.repo.GetThread(ctx, ident.UserID, threadID)
	if err != nil {
		return nil, err
	}

	grounded := s.needsWebGrounding(ctx, q)

	prompt, err := llm.LoadPrompt("followup", s.promptVersion)
	if err != nil {
		return nil, fmt.Errorf("load prompt: %w", err)
	}
	rendered := prompt.Render(map[string]string{
		"MAIN_POST": sanitize.ForPrompt(thread.MainPost, maxQueryPromptLen),
		"REPLIES":   renderReplies(thread.Replies),
		"QUESTION":  q,
	})

	resp, err := s.complete(ctx, llm.Request{
		Model:       s.pickModel(grounded),
		Messages:    []llm.Message{{Role: "user", Content: rendered}},
		Temperature: 0.4,
		MaxTokens:   500,
	})
	if err != nil {
		return nil, err
	}

	answer := sanitize.ForStorage(resp.Content, maxAnswerStoreLen)
	if answer == "" {
		return nil, domain.ErrEmptyGeneration
	}

	thread.SpliceFollowUp(replyIndex, sanitize.ForStorage(question, maxQuestionStoreLen), answer)
	if err := s.repo.UpdateThreadReplies(ctx, ident.UserID, thread.ID, thread.Replies); err != nil {
		return nil, fmt.Errorf("update replies: %w", err)
	}
	return thread, nil
}

// HomeSuggestions returns the stored suggestion list, empty when the user
// has none yet.
func (s *Service) HomeSuggestions(ctx context.Context, ident auth.Identity) (*domain.HomeSuggestion, error) {
	stored, err := s.repo.GetHomeSuggestions(ctx, ident.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.HomeSuggestion{UserID: ident.UserID, Suggestions: []string{}}, nil
	}
	return stored, err
}

// RefreshHomeSuggestions generates a fresh batch of post ideas from the
// user's interests and set-union merges it into the stored list so repeat
// generations never show duplicates.
func (s *Service) RefreshHomeSuggestions(ctx context.Context, ident auth.Identity) (*domain.HomeSuggestion, error) {
	interests := []string{}
	if stored, err := s.repo.GetInterests(ctx, ident.UserID); err == nil {
		interests = stored.Tags
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get interests: %w", err)
	}

	existing := []string{}
	if stored, err := s.repo.GetHomeSuggestions(ctx, ident.UserID); err == nil {
		existing = stored.Suggestions
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get suggestions: %w", err)
	}

	interestLine := strings.Join(interests, ", ")
	if interestLine == "" {
		interestLine = "broadly popular science, technology, history, and culture topics"
	}

	grounded := s.needsWebGrounding(ctx, interestLine)

	prompt, err := llm.LoadPrompt("suggestions", s.promptVersion)
	if err != nil {
		return nil, fmt.Errorf("load prompt: %w", err)
	}
	rendered := prompt.Render(map[string]string{
		"INTERESTS": interestLine,
		"EXISTING":  strings.Join(existing, "; "),
		"COUNT":     fmt.Sprintf("%d", suggestionsPerBatch),
	})

	resp, err := s.complete(ctx, llm.Request{
		Model:       s.pickModel(grounded),
		Messages:    []llm.Message{{Role: "user", Content: rendered}},
		Temperature: 0.9,
		MaxTokens:   800,
	})
	if err != nil {
		return nil, err
	}

	fresh := make([]string, 0, suggestionsPerBatch)
	for _, raw := range genjson.Strings(resp.Content, suggestionsPerBatch) {
		if cleaned := sanitize.ForStorage(raw, maxSuggestionLen); cleaned != "" {
			fresh = append(fresh, cleaned)
		}
	}
	if len(fresh) == 0 {
		return nil, domain.ErrEmptyGeneration
	}

	merged := &domain.HomeSuggestion{
		UserID:      ident.UserID,
		Suggestions: domain.MergeSuggestions(existing, fresh, maxStoredSuggestions),
	}
	if err := s.repo.UpsertHomeSuggestions(ctx, merged); err != nil {
		return nil, fmt.Errorf("upsert suggestions: %w", err)
	}
	return merged, nil
}

// Interests returns the stored interest tags, empty when unset.
func (s *Service) Interests(ctx context.Context, ident auth.Identity) (*domain.UserInterest, error) {
	stored, err := s.repo.GetInterests(ctx, ident.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.UserInterest{UserID: ident.UserID, Tags: []string{}}, nil
	}
	return stored, err
}

// UpdateInterests sanitizes and stores a wholesale replacement of the user's
// interest tags, and resets the stored home suggestions — the only path that
// ever shrinks them.
func (s *Service) UpdateInterests(ctx context.Context, ident auth.Identity, tags []string) (*domain.UserInterest, error) {
	seen := make(map[string]bool, len(tags))
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		tag := sanitize.Tag(t)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		cleaned = append(cleaned, tag)
		if len(cleaned) >= maxInterestTags {
			break
		}
	}

	interest := &domain.UserInterest{UserID: ident.UserID, Tags: cleaned}
	if err := s.repo.UpsertInterests(ctx, interest); err != nil {
		return nil, fmt.Errorf("upsert interests: %w", err)
	}
	reset := &domain.HomeSuggestion{UserID: ident.UserID, Suggestions: []string{}}
	if err := s.repo.UpsertHomeSuggestions(ctx, reset); err != nil {
		return nil, fmt.Errorf("reset suggestions: %w", err)
	}
	return interest, nil
}

// complete wraps the client call so every transport failure carries the
// domain.ErrUpstream sentinel the entrypoint retry and the 502 mapping key on.
func (s *Service) complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	resp, err := s.client.Complete(ctx, req)
	if err != nil {
		s.log.Warn("completion call failed", zap.String("model", req.Model), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
	return resp, nil
}

func renderReplies(replies []domain.Reply) string {
	var b strings.Builder
	for i, r := range replies {
		label := "reply"
		switch r.Kind {
		case domain.ReplyKindUser:
			label = "reader question"
		case domain.ReplyKindAI:
			label = "author answer"
		}
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, label, sanitize.ForPrompt(r.Content, maxReplyStoreLen))
	}
	return b.String()
}
