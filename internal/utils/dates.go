package utils

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidDate is returned for input that is neither RFC3339 nor YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid date")

// ParseTimeInput accepts RFC3339 timestamps or plain dates (midnight UTC).
func ParseTimeInput(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, ErrInvalidDate
}

// ParseDateRange parses optional from/to query values. A plain "to" date is
// inclusive, so it is moved to the start of the following day.
func ParseDateRange(from, to string) (*time.Time, *time.Time, error) {
	var start, end *time.Time

	if strings.TrimSpace(from) != "" {
		t, err := ParseTimeInput(from)
		if err != nil {
			return nil, nil, err
		}
		start = &t
	}

	if strings.TrimSpace(to) != "" {
		t, err := ParseTimeInput(to)
		if err != nil {
			return nil, nil, err
		}
		if len(strings.TrimSpace(to)) == len("2006-01-02") {
			t = t.AddDate(0, 0, 1)
		}
		end = &t
	}

	if start != nil && end != nil && !start.Before(*end) {
		return nil, nil, ErrInvalidDate
	}

	return start, end, nil
}
