package workflow

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joescharf/mergeq/internal/conflict"
	"github.com/joescharf/mergeq/internal/models"
)

func TestRunStatistics(t *testing.T) {
	var rs RunStatistics

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rs.update(func(s *models.RunStats) { s.TotalPRs++ })
			rs.recordResolution(conflict.Attempt{StrategyUsed: conflict.StrategyAI, Succeeded: i%2 == 0})
		}()
	}
	wg.Wait()

	snap := rs.Snapshot()
	assert.Equal(t, 20, snap.TotalPRs)
	assert.Equal(t, 20, snap.TotalConflicts)
	assert.Equal(t, 10, snap.ResolvedConflicts)
	assert.Equal(t, 10, snap.FailedConflicts)
	assert.Equal(t, 20, snap.Strategies["AI"])

	snap.Strategies["AI"] = 0
	assert.Equal(t, 20, rs.Snapshot().Strategies["AI"], "snapshot must not alias")

	rs.Reset()
	assert.Equal(t, models.RunStats{}, rs.Snapshot())
}

func TestRecordResolution_NoStrategy(t *testing.T) {
	var rs RunStatistics
	rs.recordResolution(conflict.Attempt{Path: "a.go", StrategyRequested: conflict.StrategyAI, Error: "read failed"})

	snap := rs.Snapshot()
	assert.Equal(t, 1, snap.TotalConflicts)
	assert.Equal(t, 1, snap.FailedConflicts)
	assert.Empty(t, snap.Strategies)
}
