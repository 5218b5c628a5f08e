package ranking

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/spigell/finn-ranker/internal/utils"
)

const previewLength = 300

var codeFence = regexp.MustCompile("```(?:json)?\\s*")

type score struct {
	Index   int
	Score   float64
	Summary string
}

// parseResponse reads the scored array out of a model answer. Surrounding prose
// and code fences are ignored. A truncated array is cut back to its last
// complete object.
func parseResponse(raw string) ([]score, error) {
	text := codeFence.ReplaceAllString(raw, "")

	items, ok := decodeArray(text)
	if !ok {
		preview := utils.TruncateForLog(utils.OneLine(text), previewLength)
		return nil, fmt.Errorf("%w: model said: %s", ErrUnparseable, preview)
	}

	scores := make([]score, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}

		index := coerceFloat(obj["job_index"])
		value := coerceFloat(obj["match_score"])
		if math.IsNaN(index) || math.IsNaN(value) || math.IsInf(value, 0) || index != math.Trunc(index) {
			continue
		}

		scores = append(scores, score{
			Index:   int(index),
			Score:   value,
			Summary: coerceString(obj["summary"]),
		})
	}

	return scores, nil
}

func decodeArray(text string) ([]any, bool) {
	start := strings.Index(text, "[")
	if start == -1 {
		return nil, false
	}

	var items []any
	if end := strings.LastIndex(text, "]"); end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &items); err == nil {
			return items, true
		}
	}

	for _, marker := range []string{"},", "}"} {
		last := strings.LastIndex(text, marker)
		if last <= start {
			continue
		}
		if err := json.Unmarshal([]byte(text[start:last+1]+"]"), &items); err == nil {
			return items, true
		}
	}

	return nil, false
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsInf(f, 0) {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
