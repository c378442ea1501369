package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/dshills/codeaudit/internal/analysis"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// ScoreStat is the mean of one score column over rows that had a value.
type ScoreStat struct {
	Name   string
	Mean   float64
	Scored int
}

// Summary condenses a run's tables.
type Summary struct {
	Metrics    int
	Issues     int
	Scores     []ScoreStat
	BySeverity map[string]int
}

// Summarize computes per-column score means and issue counts by severity.
// Unknown scores are left out of the means.
func Summarize(metrics []analysis.MetricRecord, issues []analysis.IssueRecord) Summary {
	s := Summary{
		Metrics:    len(metrics),
		Issues:     len(issues),
		BySeverity: make(map[string]int),
	}
	var sums [5]int
	var counts [5]int
	for _, m := range metrics {
		for i, sc := range m.Scores() {
			if sc.Valid() {
				sums[i] += int(sc)
				counts[i]++
			}
		}
	}
	for i, name := range MetricColumns[1:6] {
		stat := ScoreStat{Name: name, Scored: counts[i]}
		if counts[i] > 0 {
			stat.Mean = float64(sums[i]) / float64(counts[i])
		}
		s.Scores = append(s.Scores, stat)
	}
	for _, is := range issues {
		s.BySeverity[analysis.NormalizeSeverity(is.Severity)]++
	}
	return s
}

// WriteSummary renders the summary as two tables.
func WriteSummary(w io.Writer, s Summary) error {
	scores := tablewriter.NewWriter(w)
	scores.Header([]string{"Metric", "Mean", "Scored"})
	scores.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	var data [][]string
	for _, st := range s.Scores {
		mean := analysis.Unknown
		if st.Scored > 0 {
			mean = strconv.FormatFloat(st.Mean, 'f', 2, 64)
		}
		data = append(data, []string{st.Name, mean, fmt.Sprintf("%d/%d", st.Scored, s.Metrics)})
	}
	if err := scores.Bulk(data); err != nil {
		return err
	}
	if err := scores.Render(); err != nil {
		return err
	}

	severities := tablewriter.NewWriter(w)
	severities.Header([]string{"Severity", "Issues"})
	severities.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	names := make([]string, 0, len(s.BySeverity))
	for name := range s.BySeverity {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := analysis.SeverityRank(names[i]), analysis.SeverityRank(names[j])
		if ri != rj {
			return ri > rj
		}
		return names[i] < names[j]
	})
	var counts [][]string
	for _, name := range names {
		counts = append(counts, []string{name, strconv.Itoa(s.BySeverity[name])})
	}
	counts = append(counts, []string{"Total", strconv.Itoa(s.Issues)})
	if err := severities.Bulk(counts); err != nil {
		return err
	}
	return severities.Render()
}
