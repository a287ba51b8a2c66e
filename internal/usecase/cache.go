package usecase

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/go-github/v84/github"
	"github.com/qalthos/infoboard/internal/domain"
	"github.com/qalthos/infoboard/internal/gateway"
	"github.com/qalthos/infoboard/internal/store"
)

// DefaultFeedPage bounds how many events one activity-feed call returns.
const DefaultFeedPage = 5

// Cache orchestrates event ingestion: it drives the gateway across an
// organization's membership, feeds results through the Normalizer, and
// answers the read-side queries over the cached event namespace.
type Cache struct {
	store   *store.Store
	fetcher gateway.Fetcher
	norm    *Normalizer
	rate    *gateway.RateTracker
	logger  *log.Logger
	perPage int
}

// NewCache creates an event cache over the given store and gateway. A nil
// fetcher yields a read-only cache, which the presentation commands use.
func NewCache(st *store.Store, fetcher gateway.Fetcher, logger *log.Logger, perPage int) *Cache {
	if perPage <= 0 {
		perPage = DefaultFeedPage
	}
	rate := &gateway.RateTracker{}
	return &Cache{
		store:   st,
		fetcher: fetcher,
		norm:    NewNormalizer(st, fetcher, rate, logger),
		rate:    rate,
		logger:  logger,
		perPage: perPage,
	}
}

// RefreshMembers upserts the user record of every organization member and
// returns the normalized users. Members whose payload cannot be normalized
// are logged and left out; the rest of the roster still refreshes.
func (c *Cache) RefreshMembers(members []*github.User) []domain.User {
	users := make([]domain.User, 0, len(members))
	for _, member := range members {
		user, err := c.norm.User(member)
		if err != nil {
			c.logger.Printf("skipping member %s: %v", member.GetLogin(), err)
			continue
		}
		users = append(users, user)
	}
	return users
}

// Ingest pulls the recent activity feed of every given member login and
// caches the events not yet seen, returning how many were newly cached.
//
// Feeds arrive newest-first, so iteration per user stops as soon as an
// event is no older than the watermark — the timestamp of the most recent
// previously-cached event. That bounds API work to the new-since-last-run
// delta. Any per-user failure is logged and skipped; it never aborts
// ingestion for the other members.
func (c *Cache) Ingest(ctx context.Context, logins []string) (int, error) {
	watermark, err := c.watermark()
	if err != nil {
		return 0, fmt.Errorf("failed to compute watermark: %w", err)
	}
	c.norm.ResetBroken()

	var cached int
	for _, login := range logins {
		count, err := c.ingestUser(ctx, login, watermark)
		cached += count
		if err != nil {
			c.logger.Printf("skipping the rest of %s's feed: %v", login, err)
		}
	}
	return cached, nil
}

// ingestUser consumes one user's feed down to the watermark. Errors cut the
// rest of this user's feed only.
func (c *Cache) ingestUser(ctx context.Context, login string, watermark time.Time) (int, error) {
	events, rate, err := c.fetcher.UserEvents(ctx, login, c.perPage)
	c.rate.Observe(rate)
	if err != nil {
		return 0, err
	}

	var cached int
	for _, raw := range events {
		when := raw.GetCreatedAt().Time
		if when.IsZero() {
			return cached, fmt.Errorf("event %s has no parseable created_at", raw.GetID())
		}
		if !when.After(watermark) {
			break
		}
		created, err := c.norm.Event(ctx, raw)
		if err != nil {
			return cached, fmt.Errorf("caching event %s: %w", raw.GetID(), err)
		}
		if created {
			cached++
		}
	}
	return cached, nil
}

// watermark returns the creation time of the most recently cached event,
// or the zero time for an empty store.
func (c *Cache) watermark() (time.Time, error) {
	events, err := c.store.Events()
	if err != nil {
		return time.Time{}, err
	}
	var latest time.Time
	for _, ev := range events {
		if ev.CreatedAt.After(latest) {
			latest = ev.CreatedAt
		}
	}
	return latest, nil
}

// RecentEvents returns cached events newest first. sinceDays > 0 restricts
// the result to events strictly newer than now minus that many days;
// limit > 0 truncates the result.
func (c *Cache) RecentEvents(sinceDays, limit int) ([]domain.Event, error) {
	events, err := c.store.Events()
	if err != nil {
		return nil, err
	}
	if sinceDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -sinceDays)
		recent := make([]domain.Event, 0, len(events))
		for _, ev := range events {
			if ev.CreatedAt.After(cutoff) {
				recent = append(recent, ev)
			}
		}
		events = recent
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// HasEntity reports whether any entity is cached under the given name.
// Lookup failures read as absent.
func (c *Cache) HasEntity(name string) bool {
	ok, err := c.store.Exists(name)
	if err != nil {
		c.logger.Printf("entity lookup %q failed: %v", name, err)
		return false
	}
	return ok
}

// RateLimit returns the most recently observed remaining-quota metadata,
// for the ingestion loop to report or throttle on.
func (c *Cache) RateLimit() domain.RateLimit {
	return c.rate.Last()
}
