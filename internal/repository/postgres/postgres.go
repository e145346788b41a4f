// Package postgres implements the repository on PostgreSQL via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sparkthread/backend/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS topics (
    id UUID PRIMARY KEY,
    owner_id UUID NOT NULL,
    query TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_topics_owner ON topics(owner_id, created_at DESC);

CREATE TABLE IF NOT EXISTS threads (
    id UUID PRIMARY KEY,
    topic_id UUID NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
    main_post TEXT NOT NULL,
    replies JSONB NOT NULL DEFAULT '[]',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_threads_topic ON threads(topic_id, created_at ASC);

CREATE TABLE IF NOT EXISTS user_interests (
    user_id UUID PRIMARY KEY,
    tags TEXT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS home_suggestions (
    user_id UUID PRIMARY KEY,
    suggestions JSONB NOT NULL DEFAULT '[]'
);
`

// Repository implements repository.Repository on a pgx connection pool.
type Repository struct {
	pool *pgxpool.Pool
}

// New connects to the database and creates missing tables.
func New(ctx context.Context, connString string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// Topics

func (r *Repository) CreateTopic(ctx context.Context, t *domain.Topic) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO topics (id, owner_id, query, created_at) VALUES ($1, $2, $3, $4)`,
		t.ID, t.OwnerID, t.Query, t.CreatedAt)
	return err
}

func (r *Repository) GetTopic(ctx context.Context, ownerID, id uuid.UUID) (*domain.Topic, error) {
	var t domain.Topic
	err := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, query, created_at FROM topics WHERE id = $1`, id).
		Scan(&t.ID, &t.OwnerID, &t.Query, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if t.OwnerID != ownerID {
		return nil, domain.ErrForbidden
	}
	return &t, nil
}

func (r *Repository) ListTopics(ctx context.Context, ownerID uuid.UUID) ([]*domain.Topic, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, owner_id, query, created_at FROM topics WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []*domain.Topic
	for rows.Next() {
		var t domain.Topic
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Query, &t.CreatedAt); err != nil {
			return nil, err
		}
		topics = append(topics, &t)
	}
	return topics, rows.Err()
}

// Threads

func (r *Repository) CreateThread(ctx context.Context, t *domain.Thread) error {
	repliesJSON, err := json.Marshal(t.Replies)
	if err != nil {
		return fmt.Errorf("marshal replies: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO threads (id, topic_id, main_post, replies, created_at) VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.TopicID, t.MainPost, repliesJSON, t.CreatedAt)
	return err
}

func (r *Repository) GetThread(ctx context.Context, ownerID, id uuid.UUID) (*domain.Thread, error) {
	var (
		t           domain.Thread
		topicOwner  uuid.UUID
		repliesJSON []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT t.id, t.topic_id, t.main_post, t.replies, t.created_at, p.owner_id
		 FROM threads t JOIN topics p ON p.id = t.topic_id
		 WHERE t.id = $1`, id).
		Scan(&t.ID, &t.TopicID, &t.MainPost, &repliesJSON, &t.CreatedAt, &topicOwner)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if topicOwner != ownerID {
		return nil, domain.ErrForbidden
	}
	if err := json.Unmarshal(repliesJSON, &t.Replies); err != nil {
		return nil, fmt.Errorf("unmarshal replies: %w", err)
	}
	return &t, nil
}

func (r *Repository) ListThreadsByTopic(ctx context.Context, ownerID, topicID uuid.UUID) ([]*domain.Thread, error) {
	if _, err := r.GetTopic(ctx, ownerID, topicID); err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, topic_id, main_post, replies, created_at FROM threads
		 WHERE topic_id = $1 ORDER BY created_at ASC`, topicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []*domain.Thread
	for rows.Next() {
		var (
			t           domain.Thread
			repliesJSON []byte
		)
		if err := rows.Scan(&t.ID, &t.TopicID, &t.MainPost, &repliesJSON, &t.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(repliesJSON, &t.Replies); err != nil {
			return nil, fmt.Errorf("unmarshal replies: %w", err)
		}
		threads = append(threads, &t)
	}
	return threads, rows.Err()
}

// UpdateThreadReplies overwrites the whole replies column. Concurrent
// updates race last-write-wins.
func (r *Repository) UpdateThreadReplies(ctx context.Context, ownerID, id uuid.UUID, replies []domain.Reply) error {
	if _, err := r.GetThread(ctx, ownerID, id); err != nil {
		return err
	}
	repliesJSON, err := json.Marshal(replies)
	if err != nil {
		return fmt.Errorf("marshal replies: %w", err)
	}
	_, err = r.pool.Exec(ctx, `UPDATE threads SET replies = $1 WHERE id = $2`, repliesJSON, id)
	return err
}

// Interests

func (r *Repository) GetInterests(ctx context.Context, userID uuid.UUID) (*domain.UserInterest, error) {
	i := domain.UserInterest{UserID: userID}
	err := r.pool.QueryRow(ctx,
		`SELECT tags FROM user_interests WHERE user_id = $1`, userID).Scan(&i.Tags)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *Repository) UpsertInterests(ctx context.Context, interest *domain.UserInterest) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_interests (user_id, tags) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET tags = EXCLUDED.tags`,
		interest.UserID, interest.Tags)
	return err
}

// Home suggestions

func (r *Repository) GetHomeSuggestions(ctx context.Context, userID uuid.UUID) (*domain.HomeSuggestion, error) {
	s := domain.HomeSuggestion{UserID: userID}
	var suggestionsJSON []byte
	err := r.pool.QueryRow(ctx,
		`SELECT suggestions FROM home_suggestions WHERE user_id = $1`, userID).Scan(&suggestionsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(suggestionsJSON, &s.Suggestions); err != nil {
		return nil, fmt.Errorf("unmarshal suggestions: %w", err)
	}
	return &s, nil
}

func (r *Repository) UpsertHomeSuggestions(ctx context.Context, suggestion *domain.HomeSuggestion) error {
	suggestionsJSON, err := json.Marshal(suggestion.Suggestions)
	if err != nil {
		return fmt.Errorf("marshal suggestions: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO home_suggestions (user_id, suggestions) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET suggestions = EXCLUDED.suggestions`,
		suggestion.UserID, suggestionsJSON)
	return err
}
