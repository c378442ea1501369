package analysis

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Unknown is written wherever a score could not be read.
const Unknown = "Unknown"

// NotAvailable is written for missing issue text fields.
const NotAvailable = "N/A"

// Score is a quality score in [1,5]. The zero value means Unknown.
type Score int

// Valid reports whether s is a real score.
func (s Score) Valid() bool { return s >= 1 && s <= 5 }

func (s Score) String() string {
	if !s.Valid() {
		return Unknown
	}
	return strconv.Itoa(int(s))
}

// MarshalJSON writes valid scores as numbers and Unknown as a string.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return json.Marshal(Unknown)
	}
	return []byte(strconv.Itoa(int(s))), nil
}

// UnmarshalJSON accepts the forms MarshalJSON produces.
func (s *Score) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*s = Score(n)
		if !s.Valid() {
			*s = 0
		}
		return nil
	}
	*s = 0
	return nil
}

// MetricRecord holds the five scores the backend gave one file. Filename is
// what the backend reported; FullPath is the path that was actually
// analyzed.
type MetricRecord struct {
	Filename        string `json:"File"`
	Maintainability Score  `json:"Manutenibilità"`
	Readability     Score  `json:"Leggibilità"`
	Performance     Score  `json:"Performance"`
	Security        Score  `json:"Sicurezza"`
	Modularity      Score  `json:"Modularità"`
	FullPath        string `json:"FullPath"`
}

// Scores returns the five scores in column order.
func (m MetricRecord) Scores() [5]Score {
	return [5]Score{m.Maintainability, m.Readability, m.Performance, m.Security, m.Modularity}
}

// IssueRecord is one finding reported by the backend.
type IssueRecord struct {
	Filename string `json:"File"`
	// Line is 0 when the backend gave no usable line number.
	Line        int    `json:"Riga"`
	Category    string `json:"Tipo"`
	Severity    string `json:"Severità"`
	Description string `json:"Descrizione"`
	Suggestion  string `json:"Suggerimento"`
	FullPath    string `json:"FullPath"`
}

// Result is everything extracted from one response.
type Result struct {
	Metrics []MetricRecord
	Issues  []IssueRecord
}

// Empty reports whether nothing was extracted.
func (r Result) Empty() bool { return len(r.Metrics) == 0 && len(r.Issues) == 0 }

// Canonical severities.
const (
	SeverityLow    = "Low"
	SeverityMedium = "Medium"
	SeverityHigh   = "High"
)

// NormalizeSeverity maps the spellings backends use (English or Italian,
// any case) onto Low, Medium or High. Anything else is returned unchanged.
func NormalizeSeverity(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "bassa", "basso", "minor":
		return SeverityLow
	case "medium", "media", "medio", "moderate":
		return SeverityMedium
	case "high", "alta", "alto", "critical", "critica", "major":
		return SeverityHigh
	default:
		return s
	}
}

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s string) int {
	switch NormalizeSeverity(s) {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}
