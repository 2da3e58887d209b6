package contracts

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date layouts seen across backends.
const (
	CompactDate = "20060102"
	ISODate     = "2006-01-02"
	CompactTime = "20060102150405"
)

// Day truncates t to midnight UTC. All dates flowing through the module are days.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a day from its parts.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts time.Time, YYYYMMDD / YYYY-MM-DD strings (optionally with a
// time suffix), integers such as 20200102, and epoch milliseconds as written
// by serialized frames.
func ParseDate(v interface{}) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return Day(x), nil
	case *time.Time:
		if x == nil {
			return time.Time{}, fmt.Errorf("parse date: nil")
		}
		return Day(*x), nil
	case string:
		return parseDateString(x)
	case []byte:
		return parseDateString(string(x))
	case int:
		return parseDateNumber(int64(x))
	case int32:
		return parseDateNumber(int64(x))
	case int64:
		return parseDateNumber(x)
	case uint32:
		return parseDateNumber(int64(x))
	case float64:
		return parseDateNumber(int64(x))
	case nil:
		return time.Time{}, fmt.Errorf("parse date: nil")
	}
	return time.Time{}, fmt.Errorf("parse date: unsupported type %T", v)
}

// epochMillisFloor: anything above 99991231 cannot be a YYYYMMDD integer.
const epochMillisFloor = 1e10

func parseDateNumber(n int64) (time.Time, error) {
	if n >= epochMillisFloor {
		return Day(time.UnixMilli(n).UTC()), nil
	}
	return parseDateString(strconv.FormatInt(n, 10))
}

func parseDateString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch {
	case len(s) == 8:
		t, err := time.Parse(CompactDate, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
		}
		return t, nil
	case len(s) >= 10 && s[4] == '-':
		t, err := time.Parse(ISODate, s[:10])
		if err != nil {
			return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("parse date %q: unrecognized layout", s)
}

// ParseTimestamp accepts time.Time, YYYYMMDDhhmmss strings or integers, and RFC3339.
func ParseTimestamp(v interface{}) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case int64:
		return ParseTimestamp(strconv.FormatInt(x, 10))
	case int:
		return ParseTimestamp(strconv.Itoa(x))
	case float64:
		return ParseTimestamp(strconv.FormatInt(int64(x), 10))
	case []byte:
		return ParseTimestamp(string(x))
	case string:
		s := strings.TrimSpace(x)
		if len(s) == len(CompactTime) {
			return time.Parse(CompactTime, s)
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC(), nil
		}
		if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
			return t, nil
		}
		return time.Time{}, fmt.Errorf("parse timestamp %q: unrecognized layout", s)
	}
	return time.Time{}, fmt.Errorf("parse timestamp: unsupported type %T", v)
}

// FormatDate renders d with layout, defaulting to YYYYMMDD.
func FormatDate(d time.Time, layout string) string {
	if layout == "" {
		layout = CompactDate
	}
	return Day(d).Format(layout)
}
