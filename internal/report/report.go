package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/codeaudit/internal/analysis"
)

// Column headers, in output order.
var (
	MetricColumns = []string{"File", "Manutenibilità", "Leggibilità", "Performance", "Sicurezza", "Modularità", "FullPath"}
	IssueColumns  = []string{"File", "Riga", "Tipo", "Severità", "Descrizione", "Suggerimento", "FullPath"}
)

// Encoder renders the two tables in one format.
type Encoder interface {
	Ext() string
	EncodeMetrics(w io.Writer, rows []analysis.MetricRecord) error
	EncodeIssues(w io.Writer, rows []analysis.IssueRecord) error
}

// Formats lists the supported output formats.
func Formats() []string { return []string{"csv", "json", "parquet"} }

// GetEncoder returns the encoder for format.
func GetEncoder(format string) (Encoder, error) {
	switch strings.ToLower(format) {
	case "", "csv":
		return CSVEncoder{}, nil
	case "json":
		return JSONEncoder{}, nil
	case "parquet":
		return ParquetEncoder{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (want one of %s)", format, strings.Join(Formats(), ", "))
	}
}

// Paths are the artifacts a Write produced.
type Paths struct {
	Metrics string
	Issues  string
}

// Writer writes the metrics and issues tables into a directory.
type Writer struct {
	enc Encoder
}

// NewWriter returns a Writer for format.
func NewWriter(format string) (*Writer, error) {
	enc, err := GetEncoder(format)
	if err != nil {
		return nil, err
	}
	return &Writer{enc: enc}, nil
}

// Label builds the file name suffix for a provider and model.
func Label(provider, model string) string {
	label := provider
	if model != "" {
		label += "-" + model
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, label)
}

// Write creates dir if needed and writes Valutazioni_<label> and
// Issues_<label>. Empty tables still get their header.
func (w *Writer) Write(dir, label string, metrics []analysis.MetricRecord, issues []analysis.IssueRecord) (Paths, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("creating output directory: %w", err)
	}
	paths := Paths{
		Metrics: filepath.Join(dir, "Valutazioni_"+label+"."+w.enc.Ext()),
		Issues:  filepath.Join(dir, "Issues_"+label+"."+w.enc.Ext()),
	}
	if err := writeFile(paths.Metrics, func(f io.Writer) error { return w.enc.EncodeMetrics(f, metrics) }); err != nil {
		return Paths{}, err
	}
	if err := writeFile(paths.Issues, func(f io.Writer) error { return w.enc.EncodeIssues(f, issues) }); err != nil {
		return Paths{}, err
	}
	return paths, nil
}

func writeFile(path string, encode func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", filepath.Base(path), err)
	}
	return nil
}
