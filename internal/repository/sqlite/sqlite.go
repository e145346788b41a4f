// Package sqlite implements the repository on a local SQLite database,
// suitable for development and single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sparkthread/backend/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS topics (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    query TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_topics_owner ON topics(owner_id, created_at DESC);

CREATE TABLE IF NOT EXISTS threads (
    id TEXT PRIMARY KEY,
    topic_id TEXT NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
    main_post TEXT NOT NULL,
    replies TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_threads_topic ON threads(topic_id, created_at ASC);

CREATE TABLE IF NOT EXISTS user_interests (
    user_id TEXT PRIMARY KEY,
    tags TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS home_suggestions (
    user_id TEXT PRIMARY KEY,
    suggestions TEXT NOT NULL DEFAULT '[]'
);
`

// Repository implements repository.Repository on SQLite.
type Repository struct {
	db *sql.DB
}

// New opens (creating if needed) the database at path and runs migrations.
func New(path string) (*Repository, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Topics

func (r *Repository) CreateTopic(ctx context.Context, t *domain.Topic) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO topics (id, owner_id, query, created_at) VALUES (?, ?, ?, ?)`,
		t.ID.String(), t.OwnerID.String(), t.Query, t.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (r *Repository) GetTopic(ctx context.Context, ownerID, id uuid.UUID) (*domain.Topic, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, query, created_at FROM topics WHERE id = ?`, id.String())
	t, err := scanTopic(row)
	if err != nil {
		return nil, err
	}
	if t.OwnerID != ownerID {
		return nil, domain.ErrForbidden
	}
	return t, nil
}

func (r *Repository) ListTopics(ctx context.Context, ownerID uuid.UUID) ([]*domain.Topic, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, query, created_at FROM topics WHERE owner_id = ? ORDER BY created_at DESC`,
		ownerID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []*domain.Topic
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// Threads

func (r *Repository) CreateThread(ctx context.Context, t *domain.Thread) error {
	replies, err := json.Marshal(t.Replies)
	if err != nil {
		return fmt.Errorf("marshal replies: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO threads (id, topic_id, main_post, replies, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.ID.String(), t.TopicID.String(), t.MainPost, string(replies),
		t.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (r *Repository) GetThread(ctx context.Context, ownerID, id uuid.UUID) (*domain.Thread, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT t.id, t.topic_id, t.main_post, t.replies, t.created_at, p.owner_id
		 FROM threads t JOIN topics p ON p.id = t.topic_id
		 WHERE t.id = ?`, id.String())

	var (
		idStr, topicIDStr, mainPost, repliesJSON, createdAt, ownerStr string
	)
	if err := row.Scan(&idStr, &topicIDStr, &mainPost, &repliesJSON, &createdAt, &ownerStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if ownerStr != ownerID.String() {
		return nil, domain.ErrForbidden
	}
	return buildThread(idStr, topicIDStr, mainPost, repliesJSON, createdAt)
}

func (r *Repository) ListThreadsByTopic(ctx context.Context, ownerID, topicID uuid.UUID) ([]*domain.Thread, error) {
	if _, err := r.GetTopic(ctx, ownerID, topicID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, topic_id, main_post, replies, created_at FROM threads
		 WHERE topic_id = ? ORDER BY created_at ASC`, topicID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []*domain.Thread
	for rows.Next() {
		var idStr, topicIDStr, mainPost, repliesJSON, createdAt string
		if err := rows.Scan(&idStr, &topicIDStr, &mainPost, &repliesJSON, &createdAt); err != nil {
			return nil, err
		}
		t, err := buildThread(idStr, topicIDStr, mainPost, repliesJSON, createdAt)
		if err != nil {
			return nil, err
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

func (r *Repository) UpdateThreadReplies(ctx context.Context, ownerID, id uuid.UUID, replies []domain.Reply) error {
	if _, err := r.GetThread(ctx, ownerID, id); err != nil {
		return err
	}
	repliesJSON, err := json.Marshal(replies)
	if err != nil {
		return fmt.Errorf("marshal replies: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE threads SET replies = ? WHERE id = ?`, string(repliesJSON), id.String())
	return err
}

// Interests

func (r *Repository) GetInterests(ctx context.Context, userID uuid.UUID) (*domain.UserInterest, error) {
	var tagsJSON string
	err := r.db.QueryRowContext(ctx,
		`SELECT tags FROM user_interests WHERE user_id = ?`, userID.String()).Scan(&tagsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	i := domain.UserInterest{UserID: userID}
	if err := json.Unmarshal([]byte(tagsJSON), &i.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return &i, nil
}

func (r *Repository) UpsertInterests(ctx context.Context, interest *domain.UserInterest) error {
	tagsJSON, err := json.Marshal(interest.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO user_interests (user_id, tags) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET tags = excluded.tags`,
		interest.UserID.String(), string(tagsJSON))
	return err
}

// Home suggestions

func (r *Repository) GetHomeSuggestions(ctx context.Context, userID uuid.UUID) (*domain.HomeSuggestion, error) {
	var suggestionsJSON string
	err := r.db.QueryRowContext(ctx,
		`SELECT suggestions FROM home_suggestions WHERE user_id = ?`, userID.String()).Scan(&suggestionsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s := domain.HomeSuggestion{UserID: userID}
	if err := json.Unmarshal([]byte(suggestionsJSON), &s.Suggestions); err != nil {
		return nil, fmt.Errorf("unmarshal suggestions: %w", err)
	}
	return &s, nil
}

func (r *Repository) UpsertHomeSuggestions(ctx context.Context, suggestion *domain.HomeSuggestion) error {
	suggestionsJSON, err := json.Marshal(suggestion.Suggestions)
	if err != nil {
		return fmt.Errorf("marshal suggestions: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO home_suggestions (user_id, suggestions) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET suggestions = excluded.suggestions`,
		suggestion.UserID.String(), string(suggestionsJSON))
	return err
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTopic(s scanner) (*domain.Topic, error) {
	var idStr, ownerStr, query, createdAt string
	if err := s.Scan(&idStr, &ownerStr, &query, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse topic id: %w", err)
	}
	owner, err := uuid.Parse(ownerStr)
	if err != nil {
		return nil, fmt.Errorf("parse owner id: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &domain.Topic{ID: id, OwnerID: owner, Query: query, CreatedAt: ts}, nil
}

func buildThread(idStr, topicIDStr, mainPost, repliesJSON, createdAt string) (*domain.Thread, error) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse thread id: %w", err)
	}
	topicID, err := uuid.Parse(topicIDStr)
	if err != nil {
		return nil, fmt.Errorf("parse topic id: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	t := &domain.Thread{ID: id, TopicID: topicID, MainPost: mainPost, CreatedAt: ts}
	if err := json.Unmarshal([]byte(repliesJSON), &t.Replies); err != nil {
		return nil, fmt.Errorf("unmarshal replies: %w", err)
	}
	return t, nil
}
