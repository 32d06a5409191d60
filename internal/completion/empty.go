// Package completion decides which answers count as filled and aggregates
// that into per-section completion flags and a weighted global percentage.
// Every function here is total: absent schema, absent documents and malformed
// values resolve to "empty"/false/0 instead of errors, so callers never need
// an error path when rendering progress.
package completion

import (
	"math"
	"reflect"
	"strings"

	"github.com/Authority98/feedo-sub000/internal/models"
)

// noneOption is the placeholder value select-style controls submit when the
// user has not picked anything.
const noneOption = "none"

// IsEmpty reports whether a single answer value counts as unfilled under the
// rules for the given question type. Unknown types and malformed shapes are
// treated as empty rather than rejected.
func IsEmpty(value any, questionType string) bool {
	switch questionType {
	case models.QuestionText, models.QuestionTextarea:
		if value == nil {
			return true
		}
		if s, ok := value.(string); ok {
			return strings.TrimSpace(s) == ""
		}
		return false

	case models.QuestionMultipleChoice, models.QuestionCheckbox:
		n, ok := sliceLen(value)
		return !ok || n == 0

	case models.QuestionDropdown, models.QuestionSingleChoice, models.QuestionSelect, models.QuestionDate:
		if isFalsy(value) {
			return true
		}
		if s, ok := value.(string); ok {
			trimmed := strings.TrimSpace(s)
			return trimmed == "" || trimmed == noneOption
		}
		return false

	case models.QuestionPhone:
		switch v := value.(type) {
		case map[string]any:
			if isFalsy(v["countryCode"]) {
				return true
			}
			num, _ := v["number"].(string)
			return strings.TrimSpace(num) == ""
		case models.PhoneAnswer:
			return v.CountryCode == "" || strings.TrimSpace(v.Number) == ""
		case *models.PhoneAnswer:
			return v == nil || v.CountryCode == "" || strings.TrimSpace(v.Number) == ""
		default:
			return true
		}

	case models.QuestionFile:
		if isFalsy(value) {
			return true
		}
		switch v := value.(type) {
		case map[string]any:
			u, _ := v["url"].(string)
			return u == ""
		case models.FileAnswer:
			return v.URL == ""
		case *models.FileAnswer:
			return v == nil || v.URL == ""
		default:
			// a bare non-empty string is accepted as a url
			return false
		}

	default:
		// Covers repeater payloads reaching here directly and any unknown
		// type an older client may have stored.
		if isFalsy(value) {
			return true
		}
		if s, ok := value.(string); ok {
			return strings.TrimSpace(s) == ""
		}
		if n, ok := sliceLen(value); ok {
			return n == 0
		}
		return false
	}
}

// isFalsy mirrors the loose falsiness stored documents rely on: nil, false,
// numeric zero and the empty string.
func isFalsy(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case bool:
		return !v
	case string:
		return v == ""
	case float64:
		return v == 0 || math.IsNaN(v)
	case float32:
		return v == 0
	case int:
		return v == 0
	case int64:
		return v == 0
	default:
		return false
	}
}

func sliceLen(value any) (int, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case []any:
		return len(v), true
	case []string:
		return len(v), true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return rv.Len(), true
	}
	return 0, false
}

// groupList normalises a repeater answer into its group maps. Non-array
// answers and non-object entries yield ok=false / nil entries respectively.
func groupList(value any) ([]map[string]any, bool) {
	switch v := value.(type) {
	case []map[string]any:
		return v, true
	case []any:
		out := make([]map[string]any, len(v))
		for i, item := range v {
			m, _ := item.(map[string]any)
			out[i] = m
		}
		return out, true
	default:
		return nil, false
	}
}
