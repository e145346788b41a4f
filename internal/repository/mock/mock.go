// Package mock provides an in-memory repository for tests.
package mock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/sparkthread/backend/internal/domain"
	"github.com/sparkthread/backend/internal/repository"
)

// Repository is a thread-safe in-memory implementation of
// repository.Repository. The zero value is not usable; call New.
type Repository struct {
	mu          sync.RWMutex
	topics      map[uuid.UUID]*domain.Topic
	threads     map[uuid.UUID]*domain.Thread
	interests   map[uuid.UUID]*domain.UserInterest
	suggestions map[uuid.UUID]*domain.HomeSuggestion

	// Err, when set, is returned by every operation. Lets tests force
	// storage failures.
	Err error
}

var _ repository.Repository = (*Repository)(nil)

func New() *Repository {
	return &Repository{
		topics:      make(map[uuid.UUID]*domain.Topic),
		threads:     make(map[uuid.UUID]*domain.Thread),
		interests:   make(map[uuid.UUID]*domain.UserInterest),
		suggestions: make(map[uuid.UUID]*domain.HomeSuggestion),
	}
}

func (r *Repository) Close() error { return nil }

// Topics

func (r *Repository) CreateTopic(_ context.Context, t *domain.Topic) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.topics[t.ID] = &cp
	return nil
}

func (r *Repository) GetTopic(_ context.Context, ownerID, id uuid.UUID) (*domain.Topic, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.topics[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if t.OwnerID != ownerID {
		return nil, domain.ErrForbidden
	}
	cp := *t
	return &cp, nil
}

func (r *Repository) ListTopics(_ context.Context, ownerID uuid.UUID) ([]*domain.Topic, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Topic
	for _, t := range r.topics {
		if t.OwnerID == ownerID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Threads

func (r *Repository) CreateThread(_ context.Context, t *domain.Thread) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	cp.Replies = append([]domain.Reply(nil), t.Replies...)
	r.threads[t.ID] = &cp
	return nil
}

func (r *Repository) GetThread(_ context.Context, ownerID, id uuid.UUID) (*domain.Thread, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getThreadLocked(ownerID, id)
}

func (r *Repository) getThreadLocked(ownerID, id uuid.UUID) (*domain.Thread, error) {
	t, ok := r.threads[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	topic, ok := r.topics[t.TopicID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if topic.OwnerID != ownerID {
		return nil, domain.ErrForbidden
	}
	cp := *t
	cp.Replies = append([]domain.Reply(nil), t.Replies...)
	return &cp, nil
}

func (r *Repository) ListThreadsByTopic(_ context.Context, ownerID, topicID uuid.UUID) ([]*domain.Thread, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	topic, ok := r.topics[topicID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if topic.OwnerID != ownerID {
		return nil, domain.ErrForbidden
	}
	var out []*domain.Thread
	for _, t := range r.threads {
		if t.TopicID == topicID {
			cp := *t
			cp.Replies = append([]domain.Reply(nil), t.Replies...)
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *Repository) UpdateThreadReplies(_ context.Context, ownerID, id uuid.UUID, replies []domain.Reply) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.getThreadLocked(ownerID, id); err != nil {
		return err
	}
	r.threads[id].Replies = append([]domain.Reply(nil), replies...)
	return nil
}

// Interests

func (r *Repository) GetInterests(_ context.Context, userID uuid.UUID) (*domain.UserInterest, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.interests[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *i
	cp.Tags = append([]string(nil), i.Tags...)
	return &cp, nil
}

func (r *Repository) UpsertInterests(_ context.Context, interest *domain.UserInterest) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *interest
	cp.Tags = append([]string(nil), interest.Tags...)
	r.interests[interest.UserID] = &cp
	return nil
}

// Home suggestions

func (r *Repository) GetHomeSuggestions(_ context.Context, userID uuid.UUID) (*domain.HomeSuggestion, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.suggestions[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	cp.Suggestions = append([]string(nil), s.Suggestions...)
	return &cp, nil
}

func (r *Repository) UpsertHomeSuggestions(_ context.Context, suggestion *domain.HomeSuggestion) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *suggestion
	cp.Suggestions = append([]string(nil), suggestion.Suggestions...)
	r.suggestions[suggestion.UserID] = &cp
	return nil
}
