package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"resumate/internal/resume"
)

// flexDate accepts ISO dates, RFC 3339 timestamps, "2006-01" and similar shapes.
type flexDate struct {
	time.Time
}

func (d *flexDate) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	t, ok := resume.ParseDate(raw)
	if !ok {
		return fmt.Errorf("invalid date %q", raw)
	}
	d.Time = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return nil
}

func (d *flexDate) ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

func (d *flexDate) value() time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}

func isoPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := resume.ISODate(*t)
	return &s
}

// checkRange rejects an end date before the start date.
func checkRange(start time.Time, end *time.Time) error {
	if end != nil && end.Before(start) {
		return invalidField("endDate", "must not be before startDate")
	}
	return nil
}
