package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyUnmarshalBareString(t *testing.T) {
	var r Reply
	require.NoError(t, json.Unmarshal([]byte(`"just text"`), &r))
	assert.Equal(t, ReplyKindOriginal, r.Kind)
	assert.Equal(t, "just text", r.Content)
}

func TestReplyUnmarshalTagged(t *testing.T) {
	var r Reply
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"user","content":"why?"}`), &r))
	assert.Equal(t, ReplyKindUser, r.Kind)
	assert.Equal(t, "why?", r.Content)
}

func TestReplyUnmarshalMissingKindDefaultsToOriginal(t *testing.T) {
	var r Reply
	require.NoError(t, json.Unmarshal([]byte(`{"content":"untagged"}`), &r))
	assert.Equal(t, ReplyKindOriginal, r.Kind)
}

func TestReplyMarshalAlwaysTagged(t *testing.T) {
	// A bare-string reply re-marshals in the tagged form.
	var r Reply
	require.NoError(t, json.Unmarshal([]byte(`"legacy"`), &r))
	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"original","content":"legacy"}`, string(out))
}

func TestReplySequenceMixedForms(t *testing.T) {
	data := `["plain", {"kind":"user","content":"q"}, {"kind":"ai","content":"a"}]`
	var replies []Reply
	require.NoError(t, json.Unmarshal([]byte(data), &replies))
	require.Len(t, replies, 3)
	assert.Equal(t, ReplyKindOriginal, replies[0].Kind)
	assert.Equal(t, ReplyKindUser, replies[1].Kind)
	assert.Equal(t, ReplyKindAI, replies[2].Kind)
}

func TestSpliceFollowUpMidSequence(t *testing.T) {
	th := &Thread{Replies: []Reply{
		Original("r0"), Original("r1"), Original("r2"), Original("r3"), Original("r4"),
	}}

	th.SpliceFollowUp(1, "what about this?", "here is the answer")

	require.Len(t, th.Replies, 7)
	assert.Equal(t, "r1", th.Replies[1].Content)
	assert.Equal(t, ReplyKindUser, th.Replies[2].Kind)
	assert.Equal(t, "what about this?", th.Replies[2].Content)
	assert.Equal(t, ReplyKindAI, th.Replies[3].Kind)
	assert.Equal(t, "here is the answer", th.Replies[3].Content)
	assert.Equal(t, "r2", th.Replies[4].Content)
	assert.Equal(t, "r4", th.Replies[6].Content)
}

func TestSpliceFollowUpOutOfRangeAppends(t *testing.T) {
	for _, idx := range []int{-1, 2, 99} {
		th := &Thread{Replies: []Reply{Original("a"), Original("b")}}
		th.SpliceFollowUp(idx, "q", "ans")
		require.Len(t, th.Replies, 4)
		assert.Equal(t, ReplyKindUser, th.Replies[2].Kind)
		assert.Equal(t, ReplyKindAI, th.Replies[3].Kind)
	}
}

func TestSpliceFollowUpEmptyThread(t *testing.T) {
	th := &Thread{}
	th.SpliceFollowUp(0, "q", "ans")
	require.Len(t, th.Replies, 2)
}

func TestMergeSuggestions(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		fresh    []string
		max      int
		want     []string
	}{
		{"dedupes preserving first appearance", []string{"a", "b"}, []string{"b", "c"}, 10, []string{"a", "b", "c"}},
		{"existing order wins", []string{"x", "y"}, []string{"y", "x", "z"}, 10, []string{"x", "y", "z"}},
		{"caps at max", []string{"a", "b"}, []string{"c", "d"}, 3, []string{"a", "b", "c"}},
		{"empty strings skipped", []string{"", "a"}, []string{""}, 10, []string{"a"}},
		{"both empty", nil, nil, 10, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeSuggestions(tt.existing, tt.fresh, tt.max))
		})
	}
}
