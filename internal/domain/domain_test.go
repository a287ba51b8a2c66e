package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyDerivation(t *testing.T) {
	assert.Equal(t, "user_42", UserKey(42))
	assert.Equal(t, "comment_9001", CommentKey(9001))
	assert.Equal(t, "issue_7", IssueKey(7))
	assert.Equal(t, "event_1234567890", EventKey("1234567890"))
}

func TestTraitsFor(t *testing.T) {
	testCases := []struct {
		eventType string
		expected  EventTraits
		known     bool
	}{
		{"PushEvent", EventTraits{Weight: WeightPush}, true},
		{"WatchEvent", EventTraits{Weight: WeightSocial}, true},
		{"ForkEvent", EventTraits{Weight: WeightCode}, true},
		{"IssueCommentEvent", EventTraits{HasComment: true, HasIssue: true, Weight: WeightSocial}, true},
		{"IssuesEvent", EventTraits{HasIssue: true, Weight: WeightCode}, true},
		{"PullRequestReviewCommentEvent", EventTraits{HasComment: true, Weight: WeightSocial}, true},
		// Subtypes added to the API after this table was written land in
		// the default bucket: full weight, no linkage.
		{"SponsorshipEvent", EventTraits{}, false},
		{"", EventTraits{}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.eventType, func(t *testing.T) {
			assert.Equal(t, tc.expected, TraitsFor(tc.eventType))
			assert.Equal(t, tc.known, KnownType(tc.eventType))
		})
	}
}

func TestDecodePush(t *testing.T) {
	raw := []byte(`{"commits": [
		{"sha": "aaa", "message": "first", "distinct": true},
		{"sha": "bbb", "message": "merged", "distinct": false},
		{"sha": "ccc", "message": "second", "distinct": true}
	]}`)
	p, ok := DecodePush(raw)
	assert.True(t, ok)
	assert.Len(t, p.Commits, 3)
	assert.True(t, p.Commits[0].Distinct)
	assert.False(t, p.Commits[1].Distinct)

	_, ok = DecodePush(nil)
	assert.False(t, ok)
	_, ok = DecodePush([]byte(`not json`))
	assert.False(t, ok)
}

func TestDecodeCommentAndIssue(t *testing.T) {
	raw := []byte(`{
		"comment": {"id": 11, "body": "looks good"},
		"issue": {"id": 22, "title": "crash on start", "number": 5}
	}`)

	c, ok := DecodeComment(raw)
	assert.True(t, ok)
	assert.Equal(t, int64(11), c.ID)
	assert.Equal(t, "looks good", c.Body)

	i, ok := DecodeIssue(raw)
	assert.True(t, ok)
	assert.Equal(t, int64(22), i.ID)
	assert.Equal(t, "crash on start", i.Title)
	assert.Equal(t, 5, i.Number)

	// A payload without the nested objects is not an error, just absent.
	_, ok = DecodeComment([]byte(`{"action": "opened"}`))
	assert.False(t, ok)
	_, ok = DecodeIssue([]byte(`{}`))
	assert.False(t, ok)
}
