// Package costs aggregates the price of provider calls over a run
// and renders the spend report printed at the end.
package costs

import (
	"sync"
	"time"

	"github.com/Aariz1001/carpulse-data/pkg/provider"
	"github.com/google/uuid"
)

// Record is one priced call as seen by the tracker.
type Record struct {
	Category  provider.Category
	Subject   string
	Usage     provider.Usage
	Failed    bool
	Timestamp time.Time
}

// CategoryTotals holds the aggregate for one category.
type CategoryTotals struct {
	Calls  int
	Failed int
	Usage  provider.Usage
}

// Summary is a point-in-time snapshot of a run's spend.
type Summary struct {
	RunID      string
	Model      string
	Started    time.Time
	Calls      int
	Failed     int
	Usage      provider.Usage
	ByCategory map[provider.Category]CategoryTotals
}

// SuccessCalls returns the number of calls that completed.
func (s *Summary) SuccessCalls() int { return s.Calls - s.Failed }

// AvgCostPerCall returns average spend per successful call, zero
// when every call failed. Failed calls still add their spend to the
// numerator, so retried work shows up in the average.
func (s *Summary) AvgCostPerCall() float64 {
	n := s.SuccessCalls()
	if n == 0 {
		return 0
	}
	return s.Usage.CostUSD / float64(n)
}

// Tracker accumulates usage records. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	runID   string
	model   string
	started time.Time
	records []Record
}

// NewTracker creates a tracker for one run against the given model.
func NewTracker(model string) *Tracker {
	return &Tracker{
		runID:   uuid.NewString(),
		model:   model,
		started: time.Now(),
	}
}

// RunID returns the run's identifier, shared by all usage rows the
// run persists.
func (t *Tracker) RunID() string { return t.runID }

// Add records one call. Failed calls still count their usage, spend
// on errors is real spend.
func (t *Tracker) Add(
	category provider.Category, subject string,
	usage provider.Usage, failed bool,
) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, Record{
		Category:  category,
		Subject:   subject,
		Usage:     usage,
		Failed:    failed,
		Timestamp: time.Now(),
	})
}

// Records returns a copy of all records so far, oldest first.
func (t *Tracker) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	res := make([]Record, len(t.records))
	copy(res, t.records)
	return res
}

// Summary computes the aggregate of all records so far.
func (t *Tracker) Summary() *Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &Summary{
		RunID:      t.runID,
		Model:      t.model,
		Started:    t.started,
		ByCategory: make(map[provider.Category]CategoryTotals),
	}
	for _, r := range t.records {
		s.Calls++
		if r.Failed {
			s.Failed++
		}
		s.Usage.Add(r.Usage)

		ct := s.ByCategory[r.Category]
		ct.Calls++
		if r.Failed {
			ct.Failed++
		}
		ct.Usage.Add(r.Usage)
		s.ByCategory[r.Category] = ct
	}
	return s
}
