package resume

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01",
	"2006",
	"Jan 2006",
	"January 2006",
}

// ParseDate accepts the date shapes found in stored records and model output.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatMonthYear renders a date as "Jan 2006". Unparseable values are returned unchanged.
func FormatMonthYear(value string) string {
	t, ok := ParseDate(value)
	if !ok {
		return strings.TrimSpace(value)
	}
	return t.Format("Jan 2006")
}

// ISODate formats a time for storage in Content.
func ISODate(t time.Time) string {
	return t.Format("2006-01-02")
}

// ISODatePtr formats an optional time; nil yields "".
func ISODatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return ISODate(*t)
}
