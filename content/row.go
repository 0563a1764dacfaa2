package content

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eringen/orgsite/backend"
)

// Backends disagree on scalar types: SQLite hands back int64 for booleans and
// text for timestamps, JSON decoding gives float64 and RFC 3339 strings.

func str(r backend.Row, key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func boolean(r backend.Row, key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case float64:
		return v != 0
	case json.Number:
		n, _ := v.Int64()
		return n != 0
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05",
	DayLayout,
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func timestamp(r backend.Row, key string) time.Time {
	if t, ok := r[key].(time.Time); ok {
		return t
	}
	return parseTimestamp(str(r, key))
}

// day reads a calendar date, dropping any time part.
func day(r backend.Row, key string) time.Time {
	s := str(r, key)
	if len(s) >= len(DayLayout) {
		if t, err := time.Parse(DayLayout, s[:len(DayLayout)]); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ParseDay parses a YYYY-MM-DD form value. Empty input gives the zero time.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(DayLayout, s)
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
