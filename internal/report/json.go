package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/codeaudit/internal/analysis"
)

// JSONEncoder writes each table as an indented JSON array. Keys follow the
// column names and Unknown scores are written as the string "Unknown".
type JSONEncoder struct{}

func (JSONEncoder) Ext() string { return "json" }

func (JSONEncoder) EncodeMetrics(w io.Writer, rows []analysis.MetricRecord) error {
	if rows == nil {
		rows = []analysis.MetricRecord{}
	}
	return writeJSON(w, rows)
}

func (JSONEncoder) EncodeIssues(w io.Writer, rows []analysis.IssueRecord) error {
	if rows == nil {
		rows = []analysis.IssueRecord{}
	}
	return writeJSON(w, rows)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w)
	return err
}
