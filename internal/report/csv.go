package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/dshills/codeaudit/internal/analysis"
)

// CSVEncoder writes comma-separated tables with a header row.
type CSVEncoder struct{}

func (CSVEncoder) Ext() string { return "csv" }

func (CSVEncoder) EncodeMetrics(w io.Writer, rows []analysis.MetricRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(MetricColumns); err != nil {
		return err
	}
	for _, m := range rows {
		record := make([]string, 0, len(MetricColumns))
		record = append(record, m.Filename)
		for _, s := range m.Scores() {
			record = append(record, s.String())
		}
		record = append(record, m.FullPath)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (CSVEncoder) EncodeIssues(w io.Writer, rows []analysis.IssueRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(IssueColumns); err != nil {
		return err
	}
	for _, is := range rows {
		if err := cw.Write([]string{
			is.Filename,
			strconv.Itoa(is.Line),
			is.Category,
			is.Severity,
			is.Description,
			is.Suggestion,
			is.FullPath,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
