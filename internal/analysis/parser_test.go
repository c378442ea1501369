package analysis

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dshills/codeaudit/internal/providers"
)

const sampleReply = `{
    "Metriche": [
        {"Filename": "main.py", "Manutenibilità": 4, "Leggibilità": 3, "Performance": 5, "Sicurezza": 2, "Modularità": 4}
    ],
    "Issue": [
        {"Filename": "main.py", "Line": 32, "Tipo": "Bad practice", "Severità": "High",
         "Descrizione": "Uninitialized variable", "Suggestion": "Initialize it."},
        {"Filename": "main.py", "Riga": "7", "Tipo": "Bug", "Severità": "Low",
         "Descrizione": "Off by one", "Suggerimento": "Use <=."}
    ]
}`

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestParse_Bare(t *testing.T) {
	logger, logs := observed()
	res := Parse(sampleReply, providers.FramingBare, logger)

	wantMetrics := []MetricRecord{{
		Filename:        "main.py",
		Maintainability: 4,
		Readability:     3,
		Performance:     5,
		Security:        2,
		Modularity:      4,
	}}
	wantIssues := []IssueRecord{
		{Filename: "main.py", Line: 32, Category: "Bad practice", Severity: "High", Description: "Uninitialized variable", Suggestion: "Initialize it."},
		{Filename: "main.py", Line: 7, Category: "Bug", Severity: "Low", Description: "Off by one", Suggestion: "Use <=."},
	}
	if diff := cmp.Diff(wantMetrics, res.Metrics); diff != "" {
		t.Errorf("metrics mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantIssues, res.Issues); diff != "" {
		t.Errorf("issues mismatch (-want +got):\n%s", diff)
	}
	assert.Zero(t, logs.Len())
}

func TestParse_Fenced(t *testing.T) {
	raw := "```json\n" + sampleReply + "\n```\n"
	res := Parse(raw, providers.FramingFenced, nil)
	assert.Len(t, res.Metrics, 1)
	assert.Len(t, res.Issues, 2)
}

func TestParse_FencedReplyWithBareFraming(t *testing.T) {
	logger, logs := observed()
	res := Parse("```json\n"+sampleReply+"\n```", providers.FramingBare, logger)
	assert.True(t, res.Empty())
	assert.Equal(t, 1, logs.FilterMessage("response is not a valid JSON object").Len())
}

func TestParse_NotJSON(t *testing.T) {
	logger, logs := observed()
	res := Parse("not json", providers.FramingBare, logger)

	assert.True(t, res.Empty())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}

func TestParse_MissingScore(t *testing.T) {
	raw := `{"Metriche": [{"Filename": "a.py", "Manutenibilità": 4, "Leggibilità": 3, "Performance": 5, "Modularità": 4}]}`
	res := Parse(raw, providers.FramingBare, nil)

	require.Len(t, res.Metrics, 1)
	m := res.Metrics[0]
	assert.Equal(t, Unknown, m.Security.String())
	assert.Equal(t, "4", m.Maintainability.String())
	assert.Empty(t, res.Issues)
}

func TestParse_Sentinels(t *testing.T) {
	raw := `{
		"Metriche": [{"Manutenibilità": "5", "Leggibilità": 9, "Performance": 2.5, "Sicurezza": "high", "Modularità": null}],
		"Issue": [{"Line": -3}, {"Line": "twelve", "Tipo": 3}]
	}`
	res := Parse(raw, providers.FramingBare, nil)

	want := Result{
		Metrics: []MetricRecord{{Filename: Unknown, Maintainability: 5}},
		Issues: []IssueRecord{
			{Filename: Unknown, Line: 0, Category: NotAvailable, Severity: NotAvailable, Description: NotAvailable, Suggestion: NotAvailable},
			{Filename: Unknown, Line: 0, Category: "3", Severity: NotAvailable, Description: NotAvailable, Suggestion: NotAvailable},
		},
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_SkipsNonObjectEntries(t *testing.T) {
	logger, logs := observed()
	raw := `{"Metriche": ["oops", {"Filename": "b.js", "Sicurezza": 1}], "Issue": "none"}`
	res := Parse(raw, providers.FramingBare, logger)

	require.Len(t, res.Metrics, 1)
	assert.Equal(t, "b.js", res.Metrics[0].Filename)
	assert.Equal(t, Score(1), res.Metrics[0].Security)
	assert.Empty(t, res.Issues)
	assert.Equal(t, 1, logs.FilterMessage("skipping non-object entry").Len())
	assert.Equal(t, 1, logs.FilterMessage("unexpected value type").Len())
}

func TestParse_SingleObjectSections(t *testing.T) {
	raw := `{"Metriche": {"Filename": "c.c", "Performance": 3}, "Issue": {"Line": 4}}`
	res := Parse(raw, providers.FramingBare, nil)
	require.Len(t, res.Metrics, 1)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, 4, res.Issues[0].Line)
}

func TestParse_TopLevelArray(t *testing.T) {
	res := Parse(`[{"Filename": "x"}]`, providers.FramingBare, nil)
	assert.True(t, res.Empty())
}

func TestParse_EmptyDocument(t *testing.T) {
	res := Parse(`{}`, providers.FramingBare, nil)
	assert.True(t, res.Empty())
}

func TestStripWrapper(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		framing providers.Framing
		want    string
	}{
		{"bare untouched", "  {\"a\":1}\n", providers.FramingBare, "  {\"a\":1}\n"},
		{"fenced three lines", "```json\n{\"a\":1}\n```", providers.FramingFenced, "{\"a\":1}"},
		{"fenced surrounding space", "\n\n```json\n{\n}\n```\n\n", providers.FramingFenced, "{\n}"},
		{"fenced two lines kept", "```json\n{}", providers.FramingFenced, "```json\n{}"},
		{"fenced single line", "  {}  ", providers.FramingFenced, "{}"},
		{"fenced without fence still drops lines", "{\n\"a\": 1\n}", providers.FramingFenced, "\"a\": 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripWrapper(tt.raw, tt.framing))
		})
	}
}

func TestNormalizeSeverity(t *testing.T) {
	tests := map[string]string{
		"Alta":     SeverityHigh,
		"high":     SeverityHigh,
		" media ":  SeverityMedium,
		"BASSA":    SeverityLow,
		"Critical": SeverityHigh,
		"N/A":      "N/A",
	}
	for in, want := range tests {
		if got := NormalizeSeverity(in); got != want {
			t.Errorf("NormalizeSeverity(%q) = %q, want %q", in, got, want)
		}
	}
	if SeverityRank("alta") <= SeverityRank("Media") {
		t.Error("expected alta to outrank media")
	}
}

func TestScoreJSON(t *testing.T) {
	data, err := Score(3).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "3", string(data))

	data, err = Score(0).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"Unknown"`, string(data))

	var s Score
	require.NoError(t, s.UnmarshalJSON([]byte(`"Unknown"`)))
	assert.False(t, s.Valid())
	require.NoError(t, s.UnmarshalJSON([]byte(`5`)))
	assert.Equal(t, Score(5), s)
}
