package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/sparkthread/backend/internal/domain"
)

// Repository defines the interface for persistent storage. Read operations
// take the owner so the data layer can enforce row ownership; writes that
// touch existing rows verify ownership before mutating.
//
// Replies updates are whole-column overwrites: two concurrent follow-ups
// against the same thread race last-write-wins. That is the documented
// consistency model, not an oversight to fix here.
type Repository interface {
	// Topics
	CreateTopic(ctx context.Context, topic *domain.Topic) error
	GetTopic(ctx context.Context, ownerID, id uuid.UUID) (*domain.Topic, error)
	ListTopics(ctx context.Context, ownerID uuid.UUID) ([]*domain.Topic, error)

	// Threads
	CreateThread(ctx context.Context, thread *domain.Thread) error
	// GetThread resolves a thread together with its owning topic's owner
	// check: domain.ErrNotFound when missing, domain.ErrForbidden when the
	// topic belongs to someone else.
	GetThread(ctx context.Context, ownerID, id uuid.UUID) (*domain.Thread, error)
	ListThreadsByTopic(ctx context.Context, ownerID, topicID uuid.UUID) ([]*domain.Thread, error)
	UpdateThreadReplies(ctx context.Context, ownerID, id uuid.UUID, replies []domain.Reply) error

	// Interests
	GetInterests(ctx context.Context, userID uuid.UUID) (*domain.UserInterest, error)
	UpsertInterests(ctx context.Context, interest *domain.UserInterest) error

	// Home suggestions
	GetHomeSuggestions(ctx context.Context, userID uuid.UUID) (*domain.HomeSuggestion, error)
	UpsertHomeSuggestions(ctx context.Context, suggestion *domain.HomeSuggestion) error

	// Lifecycle
	Close() error
}
