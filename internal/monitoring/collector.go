package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/visibility-cli/internal/store"
)

// Snapshot holds a point-in-time view of run health over the lookback
// window.
type Snapshot struct {
	RunsTotal    int            `json:"runs_total"`
	RunsByStatus map[string]int `json:"runs_by_status"`
	RunsComplete int            `json:"runs_complete"`
	RunsFailed   int            `json:"runs_failed"`
	InFlight     int            `json:"in_flight"`
	FailRate     float64        `json:"fail_rate"`
	AvgScore     float64        `json:"avg_score"`
	Reports      int            `json:"reports"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Finished is the number of runs that reached a terminal status.
func (s *Snapshot) Finished() int {
	return s.RunsComplete + s.RunsFailed
}

// Collector gathers run statistics from the store.
type Collector struct {
	store store.Store
	now   func() time.Time
}

// NewCollector creates a new collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st, now: time.Now}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	if lookbackHours <= 0 {
		lookbackHours = 24
	}
	now := c.now().UTC()
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	stats, err := c.store.RunStats(ctx, cutoff)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: run stats")
	}

	snap := &Snapshot{
		RunsTotal:     stats.Total,
		RunsByStatus:  stats.ByStatus,
		RunsComplete:  stats.Complete,
		RunsFailed:    stats.Failed,
		InFlight:      stats.Total - stats.Complete - stats.Failed,
		AvgScore:      stats.AvgScore,
		Reports:       stats.ReportsTotal,
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	if snap.RunsByStatus == nil {
		snap.RunsByStatus = map[string]int{}
	}
	if finished := snap.Finished(); finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	return snap, nil
}
