package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-github/v84/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/qalthos/infoboard/internal/domain"
	"github.com/qalthos/infoboard/internal/gateway"
	"github.com/qalthos/infoboard/internal/store"
)

func newTestNormalizer(t *testing.T, fetcher gateway.Fetcher) (*Normalizer, *store.Store) {
	t.Helper()
	st := newTestStore(t)
	return NewNormalizer(st, fetcher, &gateway.RateTracker{}, testLogger()), st
}

func TestUserRefresh(t *testing.T) {
	norm, st := newTestNormalizer(t, nil)

	// First sighting without a display name falls back to the login.
	_, err := norm.User(&github.User{ID: github.Int64(1), Login: github.String("qalthos")})
	require.NoError(t, err)
	cached, err := st.GetUser("user_1")
	require.NoError(t, err)
	assert.Equal(t, "qalthos", cached.Name)

	// A later sighting with a display name refreshes the record.
	_, err = norm.User(&github.User{ID: github.Int64(1), Login: github.String("qalthos"), Name: github.String("Nathaniel Case")})
	require.NoError(t, err)
	cached, err = st.GetUser("user_1")
	require.NoError(t, err)
	assert.Equal(t, "Nathaniel Case", cached.Name)

	// And a sighting that dropped the name falls back again: mutable refresh.
	_, err = norm.User(&github.User{ID: github.Int64(1), Login: github.String("qalthos")})
	require.NoError(t, err)
	cached, err = st.GetUser("user_1")
	require.NoError(t, err)
	assert.Equal(t, "qalthos", cached.Name)
}

func TestUserRequiresID(t *testing.T) {
	norm, _ := newTestNormalizer(t, nil)
	_, err := norm.User(nil)
	assert.Error(t, err)
	_, err = norm.User(&github.User{Login: github.String("ghost")})
	assert.Error(t, err)
}

func TestRepoNormalization(t *testing.T) {
	norm, st := newTestNormalizer(t, nil)

	// Absent repositories are not an error, just nothing.
	repo, err := norm.Repo(nil)
	require.NoError(t, err)
	assert.Nil(t, repo)

	repo, err = norm.Repo(testRepository("fossrit/infoboard"))
	require.NoError(t, err)
	require.NotNil(t, repo)
	assert.Equal(t, "fossrit/infoboard", repo.Key)
	assert.Equal(t, "user_7", repo.OwnerKey)

	// Missing description normalizes to the empty string.
	raw := testRepository("fossrit/lemonade-stand")
	raw.Description = nil
	repo, err = norm.Repo(raw)
	require.NoError(t, err)
	assert.Equal(t, "", repo.Description)

	// The owner was cached as a side effect.
	ok, err := st.Exists("user_7")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCommentAndIssueIdempotence(t *testing.T) {
	norm, st := newTestNormalizer(t, nil)

	_, err := norm.Comment(domain.CommentRef{ID: 11, Body: "first body"})
	require.NoError(t, err)
	// A second sighting with a different body is a no-op: write-once.
	_, err = norm.Comment(domain.CommentRef{ID: 11, Body: "changed body"})
	require.NoError(t, err)
	cached, err := st.GetComment("comment_11")
	require.NoError(t, err)
	assert.Equal(t, "first body", cached.Body)

	_, err = norm.Issue(domain.IssueRef{ID: 22, Title: "first title", Number: 4})
	require.NoError(t, err)
	_, err = norm.Issue(domain.IssueRef{ID: 22, Title: "changed title", Number: 4})
	require.NoError(t, err)
	issue, err := st.GetIssue("issue_22")
	require.NoError(t, err)
	assert.Equal(t, "first title", issue.Title)
}

func TestEventIdempotence(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("RepoInfo", mock.Anything, "fossrit", "infoboard").
		Return(testRepository("fossrit/infoboard"), domain.RateLimit{Remaining: 10, Limit: 60}, nil).Once()
	norm, _ := newTestNormalizer(t, fetcher)

	ev := rawEvent("100", "ForkEvent", testActor(), "fossrit/infoboard", time.Now().UTC().Truncate(time.Second), "")
	created, err := norm.Event(context.Background(), ev)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = norm.Event(context.Background(), ev)
	require.NoError(t, err)
	assert.False(t, created)

	// Repo metadata was fetched exactly once; the cached entity satisfies
	// the second call.
	fetcher.AssertExpectations(t)
}

func TestEventSoftReferenceDegradation(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("RepoInfo", mock.Anything, "gone", "repo").
		Return(nil, domain.RateLimit{}, errors.New("404 not found")).Once()
	norm, st := newTestNormalizer(t, fetcher)

	when := time.Now().UTC().Truncate(time.Second)
	created, err := norm.Event(context.Background(), rawEvent("200", "PushEvent", testActor(), "gone/repo", when, `{"commits":[]}`))
	require.NoError(t, err)
	assert.True(t, created)

	// The event cached with the raw slug even though resolution failed.
	cached, err := st.GetEvent("event_200")
	require.NoError(t, err)
	assert.Equal(t, "gone/repo", cached.RepoKey)
	ok, err := st.Exists("gone/repo")
	require.NoError(t, err)
	assert.False(t, ok)

	// The failing slug is remembered: a second event on the same repo does
	// not retry the lookup (the mock would fail on a second call).
	created, err = norm.Event(context.Background(), rawEvent("201", "WatchEvent", testActor(), "gone/repo", when.Add(time.Second), ""))
	require.NoError(t, err)
	assert.True(t, created)
	fetcher.AssertExpectations(t)
}

func TestEventLinksCommentAndIssue(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("RepoInfo", mock.Anything, "fossrit", "infoboard").
		Return(testRepository("fossrit/infoboard"), domain.RateLimit{}, nil)
	norm, st := newTestNormalizer(t, fetcher)

	payload := `{"comment":{"id":11,"body":"nice"},"issue":{"id":22,"title":"crash","number":5}}`
	ev := rawEvent("300", "IssueCommentEvent", testActor(), "fossrit/infoboard", time.Now().UTC().Truncate(time.Second), payload)
	created, err := norm.Event(context.Background(), ev)
	require.NoError(t, err)
	assert.True(t, created)

	cached, err := st.GetEvent("event_300")
	require.NoError(t, err)
	assert.Equal(t, "comment_11", cached.CommentKey)
	assert.Equal(t, "issue_22", cached.IssueKey)

	comment, err := st.GetComment("comment_11")
	require.NoError(t, err)
	assert.Equal(t, "nice", comment.Body)
	issue, err := st.GetIssue("issue_22")
	require.NoError(t, err)
	assert.Equal(t, "crash", issue.Title)
	assert.Equal(t, 5, issue.Number)
}

func TestEventWithoutLinkedObjects(t *testing.T) {
	// A comment-bearing type whose payload carries no comment caches fine
	// with no linkage: partial API data must not abort caching.
	fetcher := new(mockFetcher)
	fetcher.On("RepoInfo", mock.Anything, mock.Anything, mock.Anything).
		Return(testRepository("fossrit/infoboard"), domain.RateLimit{}, nil)
	norm, st := newTestNormalizer(t, fetcher)

	ev := rawEvent("400", "CommitCommentEvent", testActor(), "fossrit/infoboard", time.Now().UTC().Truncate(time.Second), `{}`)
	created, err := norm.Event(context.Background(), ev)
	require.NoError(t, err)
	assert.True(t, created)

	cached, err := st.GetEvent("event_400")
	require.NoError(t, err)
	assert.Equal(t, "", cached.CommentKey)
}

func TestEventRequiresTimestampAndActor(t *testing.T) {
	norm, _ := newTestNormalizer(t, nil)

	// Missing created_at means the upstream contract changed: propagate.
	ev := rawEvent("500", "PushEvent", testActor(), "", time.Time{}, "")
	ev.CreatedAt = nil
	_, err := norm.Event(context.Background(), ev)
	assert.ErrorContains(t, err, "created_at")

	// The actor is a required reference.
	_, err = norm.Event(context.Background(), rawEvent("501", "PushEvent", nil, "", time.Now(), ""))
	assert.ErrorContains(t, err, "actor")
}
