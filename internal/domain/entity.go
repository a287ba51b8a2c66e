// Package domain contains the canonical entity records cached by the
// scraper and the core data structures shared across the application.
package domain

import (
	"fmt"
	"time"
)

// TimeLayout is the fixed timestamp format events are persisted with.
// It matches the format the events API reports in created_at.
const TimeLayout = "2006-01-02T15:04:05Z"

// Entity key namespaces. Repositories use their full slug as the key and
// carry no prefix.
const (
	UserPrefix    = "user_"
	EventPrefix   = "event_"
	CommentPrefix = "comment_"
	IssuePrefix   = "issue_"
)

// User is a cached GitHub account. Users are refreshed on every sighting
// since display names and avatars change over time.
type User struct {
	Key        string `json:"key"`
	Login      string `json:"login"`
	Name       string `json:"name"` // falls back to Login, never empty
	AvatarURL  string `json:"avatar_url"`
	AvatarFile string `json:"avatar_file"` // filename in the local image cache
}

// Repo is a cached repository, keyed by its full "owner/name" slug.
type Repo struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"` // "" when the API reports null
	URL         string `json:"url"`
	OwnerKey    string `json:"owner"` // User key, "" when the owner could not be resolved
}

// Comment is a cached comment body. Write-once.
type Comment struct {
	Key  string `json:"key"`
	Body string `json:"body"`
}

// Issue is a cached issue reference. Write-once.
type Issue struct {
	Key    string `json:"key"`
	Title  string `json:"title"`
	Number int    `json:"number"`
}

// Event is a cached activity record. Write-once.
//
// RepoKey always holds the repository slug as reported by the feed; whether
// a Repo entity exists under that key depends on whether metadata lookup
// succeeded. CommentKey and IssueKey are set only for event types that link
// those objects.
type Event struct {
	Key        string    `json:"key"`
	Type       string    `json:"type"`
	ActorKey   string    `json:"actor"`
	RepoKey    string    `json:"repo,omitempty"`
	RawPayload []byte    `json:"payload,omitempty"` // type-specific blob, copied verbatim
	CreatedAt  time.Time `json:"created_at"`
	CommentKey string    `json:"comment,omitempty"`
	IssueKey   string    `json:"issue,omitempty"`
}

// RateLimit is the remaining-quota metadata read from API response headers.
// It is returned alongside every gateway call instead of being mutated into
// shared client state.
type RateLimit struct {
	Remaining int
	Limit     int
}

// UserKey derives the store key for a source user id.
func UserKey(id int64) string { return fmt.Sprintf("%s%d", UserPrefix, id) }

// CommentKey derives the store key for a source comment id.
func CommentKey(id int64) string { return fmt.Sprintf("%s%d", CommentPrefix, id) }

// IssueKey derives the store key for a source issue id.
func IssueKey(id int64) string { return fmt.Sprintf("%s%d", IssuePrefix, id) }

// EventKey derives the store key for a source event id. Event ids arrive as
// strings from the API and are kept as such.
func EventKey(id string) string { return EventPrefix + id }
