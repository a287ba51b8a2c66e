// Package usecase contains the business logic of the application: the
// normalization pipeline, the event cache, and the contribution aggregator.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/go-github/v84/github"

	"github.com/qalthos/infoboard/internal/domain"
	"github.com/qalthos/infoboard/internal/gateway"
	"github.com/qalthos/infoboard/internal/store"
)

// Normalizer maps raw API payload fragments into canonical entity records
// and upserts them into the store. It retains nothing between calls; the
// store owns all entity lifetime.
//
// Users and repositories are refreshed on every sighting, since profile data
// changes. Events, comments and issues are write-once: a key that already
// exists short-circuits all work.
type Normalizer struct {
	store   *store.Store
	fetcher gateway.Fetcher
	rate    *gateway.RateTracker
	logger  *log.Logger

	// broken remembers repository slugs whose metadata lookup failed, so a
	// run does not waste calls retrying deleted or private repositories.
	broken map[string]bool
}

// NewNormalizer creates a Normalizer writing through to the given store.
// The fetcher is only used to resolve repository soft references; a nil
// fetcher disables resolution, which read-only consumers rely on.
func NewNormalizer(st *store.Store, fetcher gateway.Fetcher, rate *gateway.RateTracker, logger *log.Logger) *Normalizer {
	return &Normalizer{
		store:   st,
		fetcher: fetcher,
		rate:    rate,
		logger:  logger,
		broken:  make(map[string]bool),
	}
}

// ResetBroken clears the failed-repository memo at the start of an
// ingestion cycle. A repository that was private last cycle may be public
// now.
func (n *Normalizer) ResetBroken() {
	n.broken = make(map[string]bool)
}

// User upserts a user record. Refresh semantics: login, avatar and display
// name are overwritten on every sighting. A missing display name falls back
// to the login, so Name is never empty.
func (n *Normalizer) User(raw *github.User) (domain.User, error) {
	if raw == nil || raw.GetID() == 0 {
		return domain.User{}, errors.New("user payload has no id")
	}
	key := domain.UserKey(raw.GetID())
	user := domain.User{
		Key:        key,
		Login:      raw.GetLogin(),
		Name:       raw.GetName(),
		AvatarURL:  raw.GetAvatarURL(),
		AvatarFile: key + ".png",
	}
	// Not everyone has set a name for their account.
	if user.Name == "" {
		user.Name = user.Login
	}
	if err := n.store.PutUser(user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Repo upserts a repository record keyed by its full slug. A nil raw
// repository is not an error: some events carry no repo. A missing
// description is normalized to the empty string, and an owner that cannot
// be resolved degrades to an empty owner reference rather than failing.
func (n *Normalizer) Repo(raw *github.Repository) (*domain.Repo, error) {
	if raw == nil {
		return nil, nil
	}
	slug := raw.GetFullName()
	if slug == "" {
		if raw.GetOwner().GetLogin() == "" || raw.GetName() == "" {
			return nil, errors.New("repository payload has no usable slug")
		}
		slug = raw.GetOwner().GetLogin() + "/" + raw.GetName()
	}
	repo := domain.Repo{
		Key:         slug,
		Name:        slug,
		Description: raw.GetDescription(),
		URL:         raw.GetHTMLURL(),
	}
	if owner, err := n.User(raw.GetOwner()); err != nil {
		n.logger.Printf("repository %s: owner unresolved: %v", slug, err)
	} else {
		repo.OwnerKey = owner.Key
	}
	if err := n.store.PutRepo(repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// Comment caches a comment record. Write-once: an existing key skips all
// work, the main cost-saving measure since comment bodies never change
// from the feed's point of view.
func (n *Normalizer) Comment(raw domain.CommentRef) (domain.Comment, error) {
	key := domain.CommentKey(raw.ID)
	if ok, err := n.store.Exists(key); err != nil {
		return domain.Comment{}, err
	} else if ok {
		return domain.Comment{Key: key}, nil
	}
	comment := domain.Comment{Key: key, Body: raw.Body}
	if err := n.store.PutComment(comment); err != nil {
		return domain.Comment{}, err
	}
	n.logger.Printf("caching new comment %s", key)
	return comment, nil
}

// Issue caches an issue record. Write-once, same as Comment.
func (n *Normalizer) Issue(raw domain.IssueRef) (domain.Issue, error) {
	key := domain.IssueKey(raw.ID)
	if ok, err := n.store.Exists(key); err != nil {
		return domain.Issue{}, err
	} else if ok {
		return domain.Issue{Key: key}, nil
	}
	issue := domain.Issue{Key: key, Title: raw.Title, Number: raw.Number}
	if err := n.store.PutIssue(issue); err != nil {
		return domain.Issue{}, err
	}
	n.logger.Printf("caching new issue %s", key)
	return issue, nil
}

// Event caches an event record, returning whether it was newly cached.
// Write-once: an already-cached key returns (false, nil) immediately.
//
// The actor is required. The repository is a soft reference: the record
// always stores the raw slug from the feed, and a failed metadata lookup
// merely leaves no Repo entity behind — it never aborts event caching. A
// missing or unparseable created_at is an error, since it means the
// upstream contract changed and coercing it would corrupt window filtering.
func (n *Normalizer) Event(ctx context.Context, raw *github.Event) (bool, error) {
	if raw == nil || raw.GetID() == "" {
		return false, errors.New("event payload has no id")
	}
	key := domain.EventKey(raw.GetID())
	if ok, err := n.store.Exists(key); err != nil {
		return false, err
	} else if ok {
		return false, nil
	}

	actor, err := n.User(raw.GetActor())
	if err != nil {
		return false, fmt.Errorf("event %s has no usable actor: %w", key, err)
	}
	if raw.CreatedAt == nil || raw.GetCreatedAt().Time.IsZero() {
		return false, fmt.Errorf("event %s has no parseable created_at", key)
	}

	slug := raw.GetRepo().GetName()
	n.resolveRepo(ctx, slug)

	event := domain.Event{
		Key:        key,
		Type:       raw.GetType(),
		ActorKey:   actor.Key,
		RepoKey:    slug,
		RawPayload: append([]byte(nil), raw.GetRawPayload()...),
		CreatedAt:  raw.GetCreatedAt().Time.UTC(),
	}

	traits := domain.TraitsFor(event.Type)
	if traits.HasComment {
		if ref, ok := domain.DecodeComment(event.RawPayload); ok {
			comment, err := n.Comment(ref)
			if err != nil {
				return false, err
			}
			event.CommentKey = comment.Key
		} else {
			n.logger.Printf("event %s: %s payload carries no comment", key, event.Type)
		}
	}
	if traits.HasIssue {
		if ref, ok := domain.DecodeIssue(event.RawPayload); ok {
			issue, err := n.Issue(ref)
			if err != nil {
				return false, err
			}
			event.IssueKey = issue.Key
		} else {
			n.logger.Printf("event %s: %s payload carries no issue", key, event.Type)
		}
	}

	if err := n.store.PutEvent(event); err != nil {
		return false, err
	}
	n.logger.Printf("caching new event %s", key)
	return true, nil
}

// resolveRepo makes sure a Repo entity exists for the slug, fetching
// metadata at most once per run per slug. Failures are remembered and
// logged, never propagated: repositories get deleted or made private and
// event caching must stay resilient to that.
func (n *Normalizer) resolveRepo(ctx context.Context, slug string) {
	if slug == "" || n.fetcher == nil || n.broken[slug] {
		return
	}
	if ok, err := n.store.Exists(slug); err == nil && ok {
		return
	}
	owner, name, ok := gateway.SplitSlug(slug)
	if !ok {
		n.broken[slug] = true
		return
	}
	raw, rate, err := n.fetcher.RepoInfo(ctx, owner, name)
	n.rate.Observe(rate)
	if err != nil {
		n.logger.Printf("repository %s unresolved, keeping raw reference: %v", slug, err)
		n.broken[slug] = true
		return
	}
	if _, err := n.Repo(raw); err != nil {
		n.logger.Printf("repository %s not cached: %v", slug, err)
		n.broken[slug] = true
	}
}
