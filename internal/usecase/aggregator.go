package usecase

import (
	"log"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/qalthos/infoboard/internal/domain"
)

// countKey is the rollup column every activity map carries alongside its
// per-category scores. Event type names and entity keys never collide with
// it.
const countKey = "count"

// Activity maps an entity key to its per-category scores plus the "count"
// total. For user activity the categories are event types; for repository
// activity they are the contributing actors' user keys.
type Activity map[string]map[string]float64

// Source is the read surface the aggregator consumes, implemented by Cache.
type Source interface {
	RecentEvents(sinceDays, limit int) ([]domain.Event, error)
	HasEntity(name string) bool
}

// Aggregator computes ranked contribution scores from cached events over a
// trailing window.
type Aggregator struct {
	source Source
	logger *log.Logger
}

// NewAggregator creates a new Aggregator instance.
func NewAggregator(source Source, logger *log.Logger) *Aggregator {
	return &Aggregator{source: source, logger: logger}
}

// TopContributions scores every event in the trailing window and returns
// per-user and per-repository activity.
//
// Weighting: a PushEvent counts its distinct commits, so merges replaying
// old commits do not double-count; social event types count 0.1 per user so
// they register without dominating code contributions; everything else
// counts 1. Repository attribution counts social events at full weight —
// repo-level ranking measures activity volume — and only credits
// repositories that resolved to a cached entity.
func (a *Aggregator) TopContributions(windowDays int) (userActivity, repoActivity Activity, err error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	events, err := a.source.RecentEvents(windowDays, 0)
	if err != nil {
		return nil, nil, err
	}
	a.logger.Printf("aggregating %d events over the last %d days", len(events), windowDays)

	userActivity = make(Activity)
	repoActivity = make(Activity)
	for _, ev := range events {
		traits := domain.TraitsFor(ev.Type)
		weight := 1.0
		switch traits.Weight {
		case domain.WeightPush:
			weight = float64(distinctCommits(ev))
		case domain.WeightSocial:
			weight = 0.1
		}

		bump(userActivity, ev.ActorKey, countKey, weight)
		bump(userActivity, ev.ActorKey, ev.Type, weight)

		if ev.RepoKey != "" && a.source.HasEntity(ev.RepoKey) {
			repoWeight := weight
			if traits.Weight == domain.WeightSocial {
				repoWeight = 1
			}
			bump(repoActivity, ev.RepoKey, countKey, repoWeight)
			bump(repoActivity, ev.RepoKey, ev.ActorKey, repoWeight)
		}
	}
	return userActivity, repoActivity, nil
}

func bump(a Activity, entity, category string, weight float64) {
	scores, ok := a[entity]
	if !ok {
		scores = make(map[string]float64)
		a[entity] = scores
	}
	scores[category] += weight
}

// distinctCommits counts the distinct commits in a PushEvent payload. A
// payload without a readable commit list counts as a single change.
func distinctCommits(ev domain.Event) int {
	payload, ok := domain.DecodePush(ev.RawPayload)
	if !ok {
		return 1
	}
	var count int
	for _, commit := range payload.Commits {
		if commit.Distinct {
			count++
		}
	}
	return count
}

// Ranked is one entry of a ranked activity view.
type Ranked struct {
	Key   string
	Count float64
}

// Rank orders an activity map descending by total count, breaking ties by
// key for deterministic output, and truncates to the top n (n <= 0 keeps
// everything).
func Rank(a Activity, n int) []Ranked {
	ranked := make([]Ranked, 0, len(a))
	for key, scores := range a {
		ranked = append(ranked, Ranked{Key: key, Count: scores[countKey]})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Key < ranked[j].Key
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// ScoreSummary describes the distribution of total scores in a view.
type ScoreSummary struct {
	Mean   float64
	Median float64
	P90    float64
}

// Summarize computes summary statistics over the count totals of an
// activity map. An empty map yields a zero summary.
func Summarize(a Activity) (ScoreSummary, error) {
	if len(a) == 0 {
		return ScoreSummary{}, nil
	}
	counts := make([]float64, 0, len(a))
	for _, scores := range a {
		counts = append(counts, scores[countKey])
	}
	mean, err := stats.Mean(counts)
	if err != nil {
		return ScoreSummary{}, err
	}
	median, err := stats.Median(counts)
	if err != nil {
		return ScoreSummary{}, err
	}
	p90, err := stats.Percentile(counts, 90)
	if err != nil {
		return ScoreSummary{}, err
	}
	return ScoreSummary{Mean: mean, Median: median, P90: p90}, nil
}
