package workflow

import (
	"maps"
	"sync"

	"github.com/joescharf/mergeq/internal/conflict"
	"github.com/joescharf/mergeq/internal/models"
)

// RunStatistics accumulates counters for one run. It is safe for concurrent
// use; no lock is held across I/O.
type RunStatistics struct {
	mu sync.Mutex
	s  models.RunStats
}

func (r *RunStatistics) update(fn func(s *models.RunStats)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.s)
}

func (r *RunStatistics) recordResolution(a conflict.Attempt) {
	r.update(func(s *models.RunStats) {
		s.TotalConflicts++
		if a.Succeeded {
			s.ResolvedConflicts++
		} else {
			s.FailedConflicts++
		}
		// Attempts that never reached a strategy are not counted per strategy.
		if a.StrategyUsed == "" {
			return
		}
		if s.Strategies == nil {
			s.Strategies = map[string]int{}
		}
		s.Strategies[string(a.StrategyUsed)]++
	})
}

// Snapshot returns a copy of the current counters.
func (r *RunStatistics) Snapshot() models.RunStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.s
	out.Strategies = maps.Clone(r.s.Strategies)
	return out
}

// Reset zeroes every counter.
func (r *RunStatistics) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.s = models.RunStats{}
}
