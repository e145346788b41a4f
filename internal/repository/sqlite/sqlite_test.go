package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkthread/backend/internal/domain"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedTopic(t *testing.T, repo *Repository, ownerID uuid.UUID) *domain.Topic {
	t.Helper()
	topic := &domain.Topic{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Query:     "test topic",
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, repo.CreateTopic(context.Background(), topic))
	return topic
}

func TestTopicRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ownerID := uuid.New()
	topic := seedTopic(t, repo, ownerID)

	got, err := repo.GetTopic(context.Background(), ownerID, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, topic.ID, got.ID)
	assert.Equal(t, topic.Query, got.Query)
	assert.True(t, topic.CreatedAt.Equal(got.CreatedAt))
}

func TestGetTopicOwnership(t *testing.T) {
	repo := newTestRepo(t)
	topic := seedTopic(t, repo, uuid.New())

	_, err := repo.GetTopic(context.Background(), uuid.New(), topic.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = repo.GetTopic(context.Background(), topic.OwnerID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListTopicsNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ownerID := uuid.New()

	older := &domain.Topic{ID: uuid.New(), OwnerID: ownerID, Query: "older",
		CreatedAt: time.Now().UTC().Add(-time.Hour)}
	newer := &domain.Topic{ID: uuid.New(), OwnerID: ownerID, Query: "newer",
		CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateTopic(context.Background(), older))
	require.NoError(t, repo.CreateTopic(context.Background(), newer))
	seedTopic(t, repo, uuid.New()) // someone else's

	got, err := repo.ListTopics(context.Background(), ownerID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "newer", got[0].Query)
	assert.Equal(t, "older", got[1].Query)
}

func TestThreadRoundTripWithReplies(t *testing.T) {
	repo := newTestRepo(t)
	ownerID := uuid.New()
	topic := seedTopic(t, repo, ownerID)

	thread := &domain.Thread{
		ID:       uuid.New(),
		TopicID:  topic.ID,
		MainPost: "main post",
		Replies: []domain.Reply{
			domain.Original("r0"),
			{Kind: domain.ReplyKindUser, Content: "q"},
			{Kind: domain.ReplyKindAI, Content: "a"},
		},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.CreateThread(context.Background(), thread))

	got, err := repo.GetThread(context.Background(), ownerID, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, thread.MainPost, got.MainPost)
	require.Len(t, got.Replies, 3)
	assert.Equal(t, domain.ReplyKindOriginal, got.Replies[0].Kind)
	assert.Equal(t, domain.ReplyKindUser, got.Replies[1].Kind)
	assert.Equal(t, domain.ReplyKindAI, got.Replies[2].Kind)
}

func TestGetThreadOwnershipViaTopic(t *testing.T) {
	repo := newTestRepo(t)
	topic := seedTopic(t, repo, uuid.New())
	thread := &domain.Thread{ID: uuid.New(), TopicID: topic.ID, MainPost: "m",
		Replies: []domain.Reply{}, CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateThread(context.Background(), thread))

	_, err := repo.GetThread(context.Background(), uuid.New(), thread.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = repo.GetThread(context.Background(), topic.OwnerID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListThreadsByTopicOldestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ownerID := uuid.New()
	topic := seedTopic(t, repo, ownerID)

	base := time.Now().UTC()
	for i, main := range []string{"first", "second", "third"} {
		thread := &domain.Thread{ID: uuid.New(), TopicID: topic.ID, MainPost: main,
			Replies: []domain.Reply{}, CreatedAt: base.Add(time.Duration(i) * time.Second)}
		require.NoError(t, repo.CreateThread(context.Background(), thread))
	}

	got, err := repo.ListThreadsByTopic(context.Background(), ownerID, topic.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].MainPost)
	assert.Equal(t, "third", got[2].MainPost)
}

func TestUpdateThreadReplies(t *testing.T) {
	repo := newTestRepo(t)
	ownerID := uuid.New()
	topic := seedTopic(t, repo, ownerID)
	thread := &domain.Thread{ID: uuid.New(), TopicID: topic.ID, MainPost: "m",
		Replies: []domain.Reply{domain.Original("r0")}, CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateThread(context.Background(), thread))

	updated := append(thread.Replies,
		domain.Reply{Kind: domain.ReplyKindUser, Content: "q"},
		domain.Reply{Kind: domain.ReplyKindAI, Content: "a"})
	require.NoError(t, repo.UpdateThreadReplies(context.Background(), ownerID, thread.ID, updated))

	got, err := repo.GetThread(context.Background(), ownerID, thread.ID)
	require.NoError(t, err)
	require.Len(t, got.Replies, 3)
	assert.Equal(t, "a", got.Replies[2].Content)

	err = repo.UpdateThreadReplies(context.Background(), uuid.New(), thread.ID, updated)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestInterestsUpsert(t *testing.T) {
	repo := newTestRepo(t)
	userID := uuid.New()

	_, err := repo.GetInterests(context.Background(), userID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.UpsertInterests(context.Background(),
		&domain.UserInterest{UserID: userID, Tags: []string{"a", "b"}}))
	got, err := repo.GetInterests(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Tags)

	// Second upsert replaces wholesale.
	require.NoError(t, repo.UpsertInterests(context.Background(),
		&domain.UserInterest{UserID: userID, Tags: []string{"c"}}))
	got, err = repo.GetInterests(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, got.Tags)
}

func TestHomeSuggestionsUpsert(t *testing.T) {
	repo := newTestRepo(t)
	userID := uuid.New()

	_, err := repo.GetHomeSuggestions(context.Background(), userID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.UpsertHomeSuggestions(context.Background(),
		&domain.HomeSuggestion{UserID: userID, Suggestions: []string{"s1", "s2"}}))
	got, err := repo.GetHomeSuggestions(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, got.Suggestions)

	require.NoError(t, repo.UpsertHomeSuggestions(context.Background(),
		&domain.HomeSuggestion{UserID: userID, Suggestions: []string{}}))
	got, err = repo.GetHomeSuggestions(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, got.Suggestions)
}
