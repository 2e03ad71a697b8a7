// pkg/report/values.go
package report

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"
)

// NormalizeValue converts a raw database value into a JSON-safe primitive.
// Temporal and binary values become deterministic strings so that a saved
// document reads back exactly as it was written.
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		if utf8.Valid(x) {
			return string(x)
		}
		return "<binary data>"
	case time.Time:
		return FormatTime(x)
	case int64, float64, bool, string:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// NormalizeRow normalizes every value of a scanned row in place
func NormalizeRow(m map[string]any) Row {
	row := make(Row, len(m))
	for k, v := range m {
		row[k] = NormalizeValue(v)
	}
	return row
}

// Stringify renders a raw database value as a plain string, or "" for NULL.
func Stringify(v any) string {
	switch x := NormalizeValue(v).(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// FormatTime renders a timestamp the way the server would: date-only when
// there is no time component, full datetime otherwise.
func FormatTime(t time.Time) string {
	if h, m, s := t.Clock(); h == 0 && m == 0 && s == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}
