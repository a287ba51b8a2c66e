package store

import (
	"fmt"
	"strconv"
	"time"

	"github.com/qalthos/infoboard/internal/domain"
)

// Fact keys per entity kind. Attribute bags are flat string-keyed maps; the
// typed accessors below are the only code that knows which keys exist.
const (
	factLogin       = "login"
	factName        = "name"
	factAvatar      = "avatar"
	factAvatarFile  = "avatar_file"
	factDescription = "description"
	factURL         = "url"
	factOwner       = "owner"
	factBody        = "body"
	factTitle       = "title"
	factNumber      = "number"
	factType        = "type"
	factActor       = "actor"
	factRepo        = "repo"
	factPayload     = "payload"
	factCreatedAt   = "created_at"
	factComment     = "comment"
	factIssue       = "issue"
)

// PutUser creates or refreshes a user entity.
func (s *Store) PutUser(u domain.User) error {
	return s.Put(u.Key, Attrs{
		factLogin:      []byte(u.Login),
		factName:       []byte(u.Name),
		factAvatar:     []byte(u.AvatarURL),
		factAvatarFile: []byte(u.AvatarFile),
	})
}

// GetUser reads a user entity by key.
func (s *Store) GetUser(name string) (domain.User, error) {
	attrs, err := s.Get(name)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		Key:        name,
		Login:      string(attrs[factLogin]),
		Name:       string(attrs[factName]),
		AvatarURL:  string(attrs[factAvatar]),
		AvatarFile: string(attrs[factAvatarFile]),
	}, nil
}

// PutRepo creates or refreshes a repository entity.
func (s *Store) PutRepo(r domain.Repo) error {
	return s.Put(r.Key, Attrs{
		factName:        []byte(r.Name),
		factDescription: []byte(r.Description),
		factURL:         []byte(r.URL),
		factOwner:       []byte(r.OwnerKey),
	})
}

// GetRepo reads a repository entity by its slug.
func (s *Store) GetRepo(name string) (domain.Repo, error) {
	attrs, err := s.Get(name)
	if err != nil {
		return domain.Repo{}, err
	}
	return domain.Repo{
		Key:         name,
		Name:        string(attrs[factName]),
		Description: string(attrs[factDescription]),
		URL:         string(attrs[factURL]),
		OwnerKey:    string(attrs[factOwner]),
	}, nil
}

// PutComment caches a comment entity.
func (s *Store) PutComment(c domain.Comment) error {
	return s.Put(c.Key, Attrs{factBody: []byte(c.Body)})
}

// GetComment reads a comment entity by key.
func (s *Store) GetComment(name string) (domain.Comment, error) {
	attrs, err := s.Get(name)
	if err != nil {
		return domain.Comment{}, err
	}
	return domain.Comment{Key: name, Body: string(attrs[factBody])}, nil
}

// PutIssue caches an issue entity.
func (s *Store) PutIssue(i domain.Issue) error {
	return s.Put(i.Key, Attrs{
		factTitle:  []byte(i.Title),
		factNumber: []byte(strconv.Itoa(i.Number)),
	})
}

// GetIssue reads an issue entity by key.
func (s *Store) GetIssue(name string) (domain.Issue, error) {
	attrs, err := s.Get(name)
	if err != nil {
		return domain.Issue{}, err
	}
	number, err := strconv.Atoi(string(attrs[factNumber]))
	if err != nil {
		return domain.Issue{}, fmt.Errorf("issue %q has malformed number %q: %w", name, attrs[factNumber], err)
	}
	return domain.Issue{Key: name, Title: string(attrs[factTitle]), Number: number}, nil
}

// PutEvent caches an event entity. The timestamp is stored in the fixed
// layout the events API uses.
func (s *Store) PutEvent(ev domain.Event) error {
	attrs := Attrs{
		factType:      []byte(ev.Type),
		factActor:     []byte(ev.ActorKey),
		factRepo:      []byte(ev.RepoKey),
		factPayload:   ev.RawPayload,
		factCreatedAt: []byte(ev.CreatedAt.UTC().Format(domain.TimeLayout)),
	}
	if ev.RawPayload == nil {
		attrs[factPayload] = []byte{}
	}
	if ev.CommentKey != "" {
		attrs[factComment] = []byte(ev.CommentKey)
	}
	if ev.IssueKey != "" {
		attrs[factIssue] = []byte(ev.IssueKey)
	}
	return s.Put(ev.Key, attrs)
}

// GetEvent reads an event entity by key.
func (s *Store) GetEvent(name string) (domain.Event, error) {
	attrs, err := s.Get(name)
	if err != nil {
		return domain.Event{}, err
	}
	return eventFromAttrs(name, attrs)
}

// Events returns all cached events, in no particular order.
func (s *Store) Events() ([]domain.Event, error) {
	bags, err := s.ScanPrefix(domain.EventPrefix)
	if err != nil {
		return nil, err
	}
	events := make([]domain.Event, 0, len(bags))
	for name, attrs := range bags {
		ev, err := eventFromAttrs(name, attrs)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// eventFromAttrs rebuilds an event record from its attribute bag. A
// timestamp that does not match the fixed layout is an error: silently
// coercing it would corrupt the aggregation window.
func eventFromAttrs(name string, attrs Attrs) (domain.Event, error) {
	createdAt, err := time.Parse(domain.TimeLayout, string(attrs[factCreatedAt]))
	if err != nil {
		return domain.Event{}, fmt.Errorf("event %q has malformed created_at %q: %w", name, attrs[factCreatedAt], err)
	}
	return domain.Event{
		Key:        name,
		Type:       string(attrs[factType]),
		ActorKey:   string(attrs[factActor]),
		RepoKey:    string(attrs[factRepo]),
		RawPayload: attrs[factPayload],
		CreatedAt:  createdAt,
		CommentKey: string(attrs[factComment]),
		IssueKey:   string(attrs[factIssue]),
	}, nil
}
