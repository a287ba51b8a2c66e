// Package board assembles the read-side views of the cached entities:
// human-readable event phrasing and the local avatar image cache. It only
// ever reads the store; the scraper process owns all writes.
package board

import (
	"fmt"
	"strings"

	"github.com/qalthos/infoboard/internal/domain"
)

// Reader is the subset of store lookups phrasing needs.
type Reader interface {
	GetUser(name string) (domain.User, error)
	GetComment(name string) (domain.Comment, error)
}

// Describe renders one event as a short human-readable line. Unrecognized
// event types fall back to a generic phrasing so new API subtypes still
// show up on the board.
func Describe(ev domain.Event, r Reader) string {
	who := ev.ActorKey
	if user, err := r.GetUser(ev.ActorKey); err == nil && user.Name != "" {
		who = user.Name
	}

	switch ev.Type {
	case "CreateEvent":
		payload, ok := domain.DecodeCreate(ev.RawPayload)
		if !ok {
			break
		}
		var b strings.Builder
		if payload.RefType == "repository" {
			fmt.Fprintf(&b, "%s created a new %s, %s.", who, payload.RefType, ev.RepoKey)
		} else {
			fmt.Fprintf(&b, "%s created a new %s in %s.", who, payload.RefType, ev.RepoKey)
		}
		if payload.Description != "" {
			fmt.Fprintf(&b, "\n  %s", payload.Description)
		}
		return b.String()
	case "IssueCommentEvent":
		line := fmt.Sprintf("%s commented on an issue in %s.", who, ev.RepoKey)
		if ev.CommentKey != "" {
			if comment, err := r.GetComment(ev.CommentKey); err == nil && comment.Body != "" {
				line += "\n  " + comment.Body
			}
		}
		return line
	case "PushEvent":
		payload, ok := domain.DecodePush(ev.RawPayload)
		if !ok {
			break
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%s pushed %d commit(s) to %s.", who, len(payload.Commits), ev.RepoKey)
		for _, commit := range payload.Commits {
			fmt.Fprintf(&b, "\n  %s", commit.Message)
		}
		return b.String()
	case "WatchEvent":
		return fmt.Sprintf("%s is now watching %s", who, ev.RepoKey)
	case "ForkEvent":
		return fmt.Sprintf("%s forked %s", who, ev.RepoKey)
	}

	if ev.RepoKey != "" {
		return fmt.Sprintf("%s: %s in %s", who, ev.Type, ev.RepoKey)
	}
	return fmt.Sprintf("%s: %s", who, ev.Type)
}
