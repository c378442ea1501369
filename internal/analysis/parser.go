package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/codeaudit/internal/providers"
)

// Keys of the response document.
const (
	keyMetrics = "Metriche"
	keyIssues  = "Issue"

	keyFilename        = "Filename"
	keyMaintainability = "Manutenibilità"
	keyReadability     = "Leggibilità"
	keyPerformance     = "Performance"
	keySecurity        = "Sicurezza"
	keyModularity      = "Modularità"

	keyLine        = "Line"
	keyLineAlt     = "Riga"
	keyCategory    = "Tipo"
	keySeverity    = "Severità"
	keyDescription = "Descrizione"
	keySuggestion  = "Suggestion"
	keySuggestAlt  = "Suggerimento"
)

// StripWrapper removes the backend's framing around the JSON document.
// Fenced replies lose their first and last line when there are more than
// two lines; shorter replies are kept whole. Bare replies are returned
// unchanged.
func StripWrapper(raw string, framing providers.Framing) string {
	if framing != providers.FramingFenced {
		return raw
	}
	trimmed := strings.TrimSpace(raw)
	lines := strings.Split(trimmed, "\n")
	if len(lines) > 2 {
		return strings.Join(lines[1:len(lines)-1], "\n")
	}
	return trimmed
}

// Parse extracts metric and issue records from a raw backend reply. It never
// fails: undecodable input, unexpected shapes and panics during extraction
// are logged and produce an empty Result. Missing or invalid fields get
// sentinel values instead of dropping the record.
func Parse(raw string, framing providers.Framing, logger *zap.Logger) (res Result) {
	if logger == nil {
		logger = zap.NewNop()
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("unexpected failure extracting records", zap.Any("panic", r))
			res = Result{}
		}
	}()

	body := StripWrapper(raw, framing)

	var doc map[string]any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		logger.Warn("response is not a valid JSON object",
			zap.String("framing", framing.String()),
			zap.Int("bytes", len(raw)),
			zap.Error(err))
		return Result{}
	}

	for _, entry := range entries(doc[keyMetrics], keyMetrics, logger) {
		res.Metrics = append(res.Metrics, MetricRecord{
			Filename:        text(entry, Unknown, keyFilename),
			Maintainability: score(entry[keyMaintainability]),
			Readability:     score(entry[keyReadability]),
			Performance:     score(entry[keyPerformance]),
			Security:        score(entry[keySecurity]),
			Modularity:      score(entry[keyModularity]),
		})
	}
	for _, entry := range entries(doc[keyIssues], keyIssues, logger) {
		res.Issues = append(res.Issues, IssueRecord{
			Filename:    text(entry, Unknown, keyFilename),
			Line:        line(entry),
			Category:    text(entry, NotAvailable, keyCategory),
			Severity:    text(entry, NotAvailable, keySeverity),
			Description: text(entry, NotAvailable, keyDescription),
			Suggestion:  text(entry, NotAvailable, keySuggestion, keySuggestAlt),
		})
	}
	return res
}

// entries returns the object entries of a list. A single object is treated
// as a list of one; anything else yields nothing.
func entries(v any, key string, logger *zap.Logger) []map[string]any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return []map[string]any{t}
	case []any:
		out := make([]map[string]any, 0, len(t))
		for i, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				logger.Debug("skipping non-object entry", zap.String("key", key), zap.Int("index", i))
				continue
			}
			out = append(out, m)
		}
		return out
	default:
		logger.Warn("unexpected value type", zap.String("key", key), zap.String("type", fmt.Sprintf("%T", v)))
		return nil
	}
}

// text returns the first present key as a string, or def.
func text(m map[string]any, def string, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			return t
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(t)
		default:
			data, err := json.Marshal(t)
			if err != nil {
				return def
			}
			return string(data)
		}
	}
	return def
}

// integer reads a whole number from a JSON number or a numeric string.
func integer(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) || t > math.MaxInt32 || t < math.MinInt32 {
			return 0, false
		}
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func score(v any) Score {
	n, ok := integer(v)
	if !ok || n < 1 || n > 5 {
		return 0
	}
	return Score(n)
}

func line(m map[string]any) int {
	for _, k := range []string{keyLine, keyLineAlt} {
		v, present := m[k]
		if !present || v == nil {
			continue
		}
		if n, ok := integer(v); ok && n > 0 {
			return n
		}
		return 0
	}
	return 0
}
