// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v84/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/qalthos/infoboard/internal/domain"
)

// Fetcher defines the behavior of a gateway for fetching information from
// GitHub. Every call returns the rate-limit metadata observed on its
// response, so callers can throttle themselves without the client holding
// shared mutable counters.
type Fetcher interface {
	OrgMembers(ctx context.Context, org string) ([]*github.User, domain.RateLimit, error)
	UserEvents(ctx context.Context, login string, perPage int) ([]*github.Event, domain.RateLimit, error)
	RepoInfo(ctx context.Context, owner, repo string) (*github.Repository, domain.RateLimit, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
// The GraphQL client is only available when a token was supplied; member
// listing falls back to the REST API for anonymous use.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        *log.Logger
}

// membersQuery pages through an organization's membership. The rateLimit
// block carries quota metadata in the response body, since GraphQL calls
// share the same hourly budget.
type membersQuery struct {
	Organization struct {
		MembersWithRole struct {
			PageInfo struct {
				HasNextPage bool
				EndCursor   githubv4.String
			}
			Nodes []struct {
				DatabaseID int64  `graphql:"databaseId"`
				Login      string `graphql:"login"`
				Name       string `graphql:"name"`
				AvatarURL  string `graphql:"avatarUrl"`
			}
		} `graphql:"membersWithRole(first: 100, after: $cursor)"`
	} `graphql:"organization(login: $org)"`
	RateLimit struct {
		Remaining int
		Limit     int
	} `graphql:"rateLimit"`
}

// NewGitHubGateway is a constructor that creates a new instance of
// GitHubGateway. An empty token yields an unauthenticated client, which the
// API serves with a much smaller hourly quota.
func NewGitHubGateway(token string, logger *log.Logger) (Fetcher, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}

	if token == "" {
		httpClient := &http.Client{Transport: rateLimitWaiter}
		return &GitHubGateway{
			restClient: github.NewClient(httpClient),
			logger:     logger,
		}, nil
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	return &GitHubGateway{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		logger:        logger,
	}, nil
}

// OrgMembers lists the members of an organization. With a token the listing
// runs over GraphQL; without one it pages the public REST endpoint.
func (g *GitHubGateway) OrgMembers(ctx context.Context, org string) ([]*github.User, domain.RateLimit, error) {
	if g.graphqlClient == nil {
		return g.orgMembersREST(ctx, org)
	}

	variables := map[string]interface{}{
		"org":    githubv4.String(org),
		"cursor": (*githubv4.String)(nil),
	}
	var members []*github.User
	var rate domain.RateLimit
	for {
		var q membersQuery
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, rate, fmt.Errorf("failed to list members of %s: %w", org, err)
		}
		rate = domain.RateLimit{Remaining: q.RateLimit.Remaining, Limit: q.RateLimit.Limit}
		for _, node := range q.Organization.MembersWithRole.Nodes {
			user := &github.User{
				ID:        github.Int64(node.DatabaseID),
				Login:     github.String(node.Login),
				AvatarURL: github.String(node.AvatarURL),
			}
			if node.Name != "" {
				user.Name = github.String(node.Name)
			}
			members = append(members, user)
		}
		if !q.Organization.MembersWithRole.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(q.Organization.MembersWithRole.PageInfo.EndCursor)
		g.logger.Printf("  Fetching next page of %s members...", org)
	}
	return members, rate, nil
}

// orgMembersREST is the anonymous fallback for member listing.
func (g *GitHubGateway) orgMembersREST(ctx context.Context, org string) ([]*github.User, domain.RateLimit, error) {
	opts := &github.ListMembersOptions{ListOptions: github.ListOptions{PerPage: 100}}
	var members []*github.User
	var rate domain.RateLimit
	for {
		page, resp, err := g.restClient.Organizations.ListMembers(ctx, org, opts)
		if err != nil {
			return nil, rate, fmt.Errorf("failed to list members of %s: %w", org, err)
		}
		rate = rateFromResponse(resp)
		members = append(members, page...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Printf("  Fetching next page of %s members...", org)
	}
	return members, rate, nil
}

// UserEvents fetches the most recent page of a user's public activity feed,
// newest first. perPage bounds the page size; the caller's watermark logic
// keeps one page sufficient between polls.
func (g *GitHubGateway) UserEvents(ctx context.Context, login string, perPage int) ([]*github.Event, domain.RateLimit, error) {
	if perPage <= 0 {
		perPage = 5
	}
	opts := &github.ListOptions{PerPage: perPage}
	events, resp, err := g.restClient.Activity.ListEventsPerformedByUser(ctx, login, false, opts)
	rate := rateFromResponse(resp)
	if err != nil {
		return nil, rate, fmt.Errorf("failed to fetch activity of %s: %w", login, err)
	}
	return events, rate, nil
}

// RepoInfo fetches repository metadata. Deleted or private repositories
// surface as errors; the caller degrades those to a raw-name reference.
func (g *GitHubGateway) RepoInfo(ctx context.Context, owner, repo string) (*github.Repository, domain.RateLimit, error) {
	repository, resp, err := g.restClient.Repositories.Get(ctx, owner, repo)
	rate := rateFromResponse(resp)
	if err != nil {
		return nil, rate, fmt.Errorf("failed to fetch repository %s/%s: %w", owner, repo, err)
	}
	return repository, rate, nil
}

// SplitSlug splits a full "owner/name" repository slug.
func SplitSlug(slug string) (owner, name string, ok bool) {
	owner, name, ok = strings.Cut(slug, "/")
	if owner == "" || name == "" {
		return "", "", false
	}
	return owner, name, ok
}

func rateFromResponse(resp *github.Response) domain.RateLimit {
	if resp == nil {
		return domain.RateLimit{}
	}
	return domain.RateLimit{Remaining: resp.Rate.Remaining, Limit: resp.Rate.Limit}
}
