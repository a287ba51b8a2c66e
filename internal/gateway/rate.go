package gateway

import (
	"sync"

	"github.com/qalthos/infoboard/internal/domain"
)

// RateTracker remembers the most recently observed rate-limit metadata so
// the ingestion loop can report and throttle on the remaining quota. The
// core never backs off on its own; it only surfaces the signal.
type RateTracker struct {
	mu   sync.Mutex
	last domain.RateLimit
}

// Observe records rate-limit metadata. Calls with no metadata (zero Limit,
// as returned by failed requests) are ignored.
func (t *RateTracker) Observe(rate domain.RateLimit) {
	if rate.Limit == 0 {
		return
	}
	t.mu.Lock()
	t.last = rate
	t.mu.Unlock()
}

// Last returns the most recently observed rate-limit metadata.
func (t *RateTracker) Last() domain.RateLimit {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}
