package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReplyKind distinguishes the variants of a thread reply.
type ReplyKind string

const (
	// ReplyKindOriginal is a reply produced during feed generation or expansion.
	ReplyKindOriginal ReplyKind = "original"
	// ReplyKindUser is a follow-up question asked by the owning user.
	ReplyKindUser ReplyKind = "user"
	// ReplyKindAI is the model's answer to the immediately preceding user reply.
	ReplyKindAI ReplyKind = "ai"
)

// Reply is one element of a thread's ordered reply sequence. Order is
// conversation order; a user/ai follow-up pair is always adjacent.
type Reply struct {
	Kind    ReplyKind `json:"kind"`
	Content string    `json:"content"`
}

// Original builds a generated-content reply.
func Original(text string) Reply {
	return Reply{Kind: ReplyKindOriginal, Content: text}
}

type taggedReply struct {
	Kind    ReplyKind `json:"kind"`
	Content string    `json:"content"`
}

// MarshalJSON always serializes the tagged form, even for original replies
// that may have been decoded from a bare string.
func (r Reply) MarshalJSON() ([]byte, error) {
	return json.Marshal(taggedReply{Kind: r.Kind, Content: r.Content})
}

// UnmarshalJSON accepts either a bare string (an original reply, the form
// older rows were stored in) or a tagged record.
func (r *Reply) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.Kind = ReplyKindOriginal
		r.Content = s
		return nil
	}
	var t taggedReply
	if err := json.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	if t.Kind == "" {
		t.Kind = ReplyKindOriginal
	}
	r.Kind = t.Kind
	r.Content = t.Content
	return nil
}

// Topic is a user-submitted subject that produced one batch of threads.
type Topic struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Query     string    `json:"query"`
	CreatedAt time.Time `json:"created_at"`
}

// Thread is one generated unit of content: a main post plus an ordered list
// of replies and follow-up exchanges.
type Thread struct {
	ID        uuid.UUID `json:"id"`
	TopicID   uuid.UUID `json:"topic_id"`
	MainPost  string    `json:"main_post"`
	Replies   []Reply   `json:"replies"`
	CreatedAt time.Time `json:"created_at"`
}

// SpliceFollowUp inserts a user question and its AI answer as an adjacent
// pair immediately after afterIndex. An afterIndex outside [0, len) appends
// the pair at the end. All other elements keep their relative order.
func (t *Thread) SpliceFollowUp(afterIndex int, question, answer string) {
	pair := []Reply{
		{Kind: ReplyKindUser, Content: question},
		{Kind: ReplyKindAI, Content: answer},
	}
	if afterIndex < 0 || afterIndex >= len(t.Replies) {
		t.Replies = append(t.Replies, pair...)
		return
	}
	at := afterIndex + 1
	out := make([]Reply, 0, len(t.Replies)+2)
	out = append(out, t.Replies[:at]...)
	out = append(out, pair...)
	out = append(out, t.Replies[at:]...)
	t.Replies = out
}

// UserInterest holds a user's interest tags, upserted wholesale on every edit.
type UserInterest struct {
	UserID uuid.UUID `json:"user_id"`
	Tags   []string  `json:"tags"`
}

// HomeSuggestion holds the accumulated post ideas for a user's home feed.
// The list grows by set union across generations and is reset only when the
// user's interests change.
type HomeSuggestion struct {
	UserID      uuid.UUID `json:"user_id"`
	Suggestions []string  `json:"suggestions"`
}

// MergeSuggestions unions existing and fresh suggestions, preserving the
// order of first appearance, and caps the result at max.
func MergeSuggestions(existing, fresh []string, max int) []string {
	seen := make(map[string]bool, len(existing)+len(fresh))
	out := make([]string, 0, len(existing)+len(fresh))
	for _, list := range [][]string{existing, fresh} {
		for _, s := range list {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
			if len(out) >= max {
				return out
			}
		}
	}
	return out
}
