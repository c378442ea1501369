package report

import (
	"io"

	"github.com/dshills/codeaudit/internal/analysis"
	"github.com/parquet-go/parquet-go"
)

// MetricRow is the parquet layout of a metrics row. Unknown scores are null.
type MetricRow struct {
	File            string `parquet:"File,snappy"`
	Maintainability *int32 `parquet:"Manutenibilità,optional,snappy"`
	Readability     *int32 `parquet:"Leggibilità,optional,snappy"`
	Performance     *int32 `parquet:"Performance,optional,snappy"`
	Security        *int32 `parquet:"Sicurezza,optional,snappy"`
	Modularity      *int32 `parquet:"Modularità,optional,snappy"`
	FullPath        string `parquet:"FullPath,snappy"`
}

// IssueRow is the parquet layout of an issues row.
type IssueRow struct {
	File        string `parquet:"File,snappy"`
	Line        int32  `parquet:"Riga,snappy"`
	Category    string `parquet:"Tipo,snappy"`
	Severity    string `parquet:"Severità,snappy"`
	Description string `parquet:"Descrizione,snappy"`
	Suggestion  string `parquet:"Suggerimento,snappy"`
	FullPath    string `parquet:"FullPath,snappy"`
}

// ParquetEncoder writes snappy-compressed parquet files.
type ParquetEncoder struct{}

func (ParquetEncoder) Ext() string { return "parquet" }

func (ParquetEncoder) EncodeMetrics(w io.Writer, rows []analysis.MetricRecord) error {
	out := make([]MetricRow, len(rows))
	for i, m := range rows {
		out[i] = MetricRow{
			File:            m.Filename,
			Maintainability: scorePtr(m.Maintainability),
			Readability:     scorePtr(m.Readability),
			Performance:     scorePtr(m.Performance),
			Security:        scorePtr(m.Security),
			Modularity:      scorePtr(m.Modularity),
			FullPath:        m.FullPath,
		}
	}
	return writeParquet(w, out)
}

func (ParquetEncoder) EncodeIssues(w io.Writer, rows []analysis.IssueRecord) error {
	out := make([]IssueRow, len(rows))
	for i, is := range rows {
		out[i] = IssueRow{
			File:        is.Filename,
			Line:        int32(is.Line),
			Category:    is.Category,
			Severity:    is.Severity,
			Description: is.Description,
			Suggestion:  is.Suggestion,
			FullPath:    is.FullPath,
		}
	}
	return writeParquet(w, out)
}

func writeParquet[T any](w io.Writer, rows []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			writer.Close()
			return err
		}
	}
	return writer.Close()
}

func scorePtr(s analysis.Score) *int32 {
	if !s.Valid() {
		return nil
	}
	v := int32(s)
	return &v
}
