package usecase

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-github/v84/github"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/qalthos/infoboard/internal/domain"
	"github.com/qalthos/infoboard/internal/store"
)

// mockFetcher is a mock implementation of the gateway.Fetcher interface.
// It lets the tests simulate the GitHub gateway without real API calls.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) OrgMembers(ctx context.Context, org string) ([]*github.User, domain.RateLimit, error) {
	args := m.Called(ctx, org)
	users, _ := args.Get(0).([]*github.User)
	return users, args.Get(1).(domain.RateLimit), args.Error(2)
}

func (m *mockFetcher) UserEvents(ctx context.Context, login string, perPage int) ([]*github.Event, domain.RateLimit, error) {
	args := m.Called(ctx, login, perPage)
	events, _ := args.Get(0).([]*github.Event)
	return events, args.Get(1).(domain.RateLimit), args.Error(2)
}

func (m *mockFetcher) RepoInfo(ctx context.Context, owner, repo string) (*github.Repository, domain.RateLimit, error) {
	args := m.Called(ctx, owner, repo)
	repository, _ := args.Get(0).(*github.Repository)
	return repository, args.Get(1).(domain.RateLimit), args.Error(2)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "infoboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// rawEvent builds a feed event the way the events API delivers it.
func rawEvent(id, eventType string, actor *github.User, repoSlug string, createdAt time.Time, payload string) *github.Event {
	ev := &github.Event{
		ID:        github.String(id),
		Type:      github.String(eventType),
		Actor:     actor,
		CreatedAt: &github.Timestamp{Time: createdAt},
	}
	if repoSlug != "" {
		ev.Repo = &github.Repository{Name: github.String(repoSlug)}
	}
	if payload != "" {
		raw := json.RawMessage(payload)
		ev.RawPayload = &raw
	}
	return ev
}

func testActor() *github.User {
	return &github.User{
		ID:        github.Int64(1),
		Login:     github.String("qalthos"),
		AvatarURL: github.String("https://example.org/a.png"),
	}
}

func testRepository(slug string) *github.Repository {
	return &github.Repository{
		FullName:    github.String(slug),
		HTMLURL:     github.String("https://github.com/" + slug),
		Description: github.String("a test repository"),
		Owner:       &github.User{ID: github.Int64(7), Login: github.String("fossrit")},
	}
}
