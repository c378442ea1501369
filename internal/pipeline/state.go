package pipeline

import (
	"time"

	"github.com/dshills/codeaudit/internal/analysis"
	"github.com/dshills/codeaudit/internal/source"
)

// RunState holds the counters for one run. It is owned by the Runner and
// handed to progress reporting by value.
type RunState struct {
	RunID   string
	Started time.Time
	// Total is the number of eligible files, capped at max_files.
	Total int
	// Processed counts files whose analysis finished, whatever the outcome.
	Processed int
	Metrics   int
	Issues    int
	// Failed counts files that produced no reply after every retry.
	Failed int
	// Skipped counts files that could not be read.
	Skipped int
	Cached  int
}

// Aggregator accumulates records across files. Records are appended in the
// order they arrive and never deduplicated.
type Aggregator struct {
	state   *RunState
	metrics []analysis.MetricRecord
	issues  []analysis.IssueRecord
}

// NewAggregator returns an Aggregator that keeps state's record counters
// current.
func NewAggregator(state *RunState) *Aggregator {
	if state == nil {
		state = &RunState{}
	}
	return &Aggregator{state: state}
}

// Add stamps the unit's absolute path into every record's FullPath and
// appends them. The backend-reported Filename is left as is. The stamped
// records are returned.
func (a *Aggregator) Add(u source.Unit, res analysis.Result) analysis.Result {
	out := analysis.Result{
		Metrics: make([]analysis.MetricRecord, len(res.Metrics)),
		Issues:  make([]analysis.IssueRecord, len(res.Issues)),
	}
	for i, m := range res.Metrics {
		m.FullPath = u.Path
		out.Metrics[i] = m
	}
	for i, is := range res.Issues {
		is.FullPath = u.Path
		out.Issues[i] = is
	}
	a.metrics = append(a.metrics, out.Metrics...)
	a.issues = append(a.issues, out.Issues...)
	a.state.Metrics += len(out.Metrics)
	a.state.Issues += len(out.Issues)
	return out
}

// Metrics returns every metric record added so far.
func (a *Aggregator) Metrics() []analysis.MetricRecord { return a.metrics }

// Issues returns every issue record added so far.
func (a *Aggregator) Issues() []analysis.IssueRecord { return a.issues }
