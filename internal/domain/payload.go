package domain

import "encoding/json"

// Commit is a single commit entry in a PushEvent payload. Distinct is
// GitHub's own marker for commits that have not been seen in another push
// (merges replay commits with distinct=false).
type Commit struct {
	SHA      string `json:"sha"`
	Message  string `json:"message"`
	Distinct bool   `json:"distinct"`
}

// PushPayload is the fragment of a PushEvent payload the aggregator needs.
type PushPayload struct {
	Commits []Commit `json:"commits"`
}

// CommentRef is the nested comment object carried by comment-bearing events.
type CommentRef struct {
	ID   int64  `json:"id"`
	Body string `json:"body"`
}

// IssueRef is the nested issue object carried by issue-bearing events.
type IssueRef struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Number int    `json:"number"`
}

// CreatePayload is the fragment of a CreateEvent payload used for phrasing.
type CreatePayload struct {
	RefType     string `json:"ref_type"`
	Description string `json:"description"`
}

// DecodePush extracts the commit list from a raw PushEvent payload.
func DecodePush(raw []byte) (PushPayload, bool) {
	var p PushPayload
	if len(raw) == 0 || json.Unmarshal(raw, &p) != nil {
		return PushPayload{}, false
	}
	return p, true
}

// DecodeComment extracts the nested comment from a raw event payload.
// It reports false when the payload carries no usable comment.
func DecodeComment(raw []byte) (CommentRef, bool) {
	var p struct {
		Comment *CommentRef `json:"comment"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &p) != nil || p.Comment == nil || p.Comment.ID == 0 {
		return CommentRef{}, false
	}
	return *p.Comment, true
}

// DecodeIssue extracts the nested issue from a raw event payload.
func DecodeIssue(raw []byte) (IssueRef, bool) {
	var p struct {
		Issue *IssueRef `json:"issue"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &p) != nil || p.Issue == nil || p.Issue.ID == 0 {
		return IssueRef{}, false
	}
	return *p.Issue, true
}

// DecodeCreate extracts the ref type and description from a raw CreateEvent
// payload.
func DecodeCreate(raw []byte) (CreatePayload, bool) {
	var p CreatePayload
	if len(raw) == 0 || json.Unmarshal(raw, &p) != nil {
		return CreatePayload{}, false
	}
	return p, true
}
