package store

import (
	"fmt"
	"time"
)

// Timestamps are stored as fixed-width UTC text so that ORDER BY and MAX()
// compare them chronologically.
const timeLayout = "2006-01-02 15:04:05.000000000Z07:00"

var timeLayouts = []string{
	timeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

func dbTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// timeValue scans either a driver-parsed time or its text form.
type timeValue struct {
	t *time.Time
}

func (v timeValue) Scan(src interface{}) error {
	switch x := src.(type) {
	case time.Time:
		*v.t = x.UTC()
		return nil
	case string:
		return v.parse(x)
	case []byte:
		return v.parse(string(x))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (v timeValue) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*v.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", s)
}

func ts(t *time.Time) timeValue {
	return timeValue{t: t}
}
