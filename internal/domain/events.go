package domain

// WeightClass determines how an event type scores in contribution rankings.
type WeightClass int

const (
	// WeightCode is the default: one point per event.
	WeightCode WeightClass = iota
	// WeightSocial marks low-signal activity (comments, stars, follows).
	// Social events score 0.1 per-user so they register without drowning
	// out code contributions. Repo-level attribution still counts them at
	// full weight, since repo rankings measure activity volume.
	WeightSocial
	// WeightPush scores by the number of distinct commits in the payload.
	WeightPush
)

// EventTraits classifies a known event type: whether its payload links a
// comment or an issue, and how it weighs in rankings.
type EventTraits struct {
	HasComment bool
	HasIssue   bool
	Weight     WeightClass
}

// eventTraits covers the event subtypes the events API emits. The upstream
// source dispatched comment/issue linkage on a substring match over the type
// name; this table makes that classification explicit per type.
var eventTraits = map[string]EventTraits{
	"CommitCommentEvent":            {HasComment: true, Weight: WeightSocial},
	"CreateEvent":                   {},
	"DeleteEvent":                   {},
	"DownloadEvent":                 {},
	"FollowEvent":                   {Weight: WeightSocial},
	"ForkEvent":                     {},
	"ForkApplyEvent":                {},
	"GistEvent":                     {},
	"GollumEvent":                   {},
	"IssueCommentEvent":             {HasComment: true, HasIssue: true, Weight: WeightSocial},
	"IssuesEvent":                   {HasIssue: true},
	"MemberEvent":                   {},
	"PublicEvent":                   {},
	"PullRequestEvent":              {},
	"PullRequestReviewCommentEvent": {HasComment: true, Weight: WeightSocial},
	"PushEvent":                     {Weight: WeightPush},
	"TeamAddEvent":                  {},
	"WatchEvent":                    {Weight: WeightSocial},
}

// TraitsFor returns the classification for an event type. Unrecognized types
// fall back to the default bucket: no linkage, weight one, so new API
// subtypes still register in rankings rather than vanishing.
func TraitsFor(eventType string) EventTraits {
	return eventTraits[eventType]
}

// KnownType reports whether the event type is in the classification table.
func KnownType(eventType string) bool {
	_, ok := eventTraits[eventType]
	return ok
}
