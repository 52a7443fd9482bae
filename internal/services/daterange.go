package services

import (
	"strings"
	"time"

	"github.com/AnshRaj112/visitor-backend/internal/apperrors"
)

const dateLayout = "2006-01-02"

// ParseDateRange parses inclusive export bounds. A bare date covers the whole
// day in loc: start is its midnight, end is its last nanosecond.
func ParseDateRange(startRaw, endRaw string, loc *time.Location) (time.Time, time.Time, error) {
	startRaw, endRaw = strings.TrimSpace(startRaw), strings.TrimSpace(endRaw)
	if startRaw == "" || endRaw == "" {
		return time.Time{}, time.Time{}, apperrors.Validation("start and end dates are required")
	}

	start, err := parseBound(startRaw, loc, false)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.Validation("invalid start date %q", startRaw)
	}
	end, err := parseBound(endRaw, loc, true)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.Validation("invalid end date %q", endRaw)
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, apperrors.Validation("start date must not be after end date")
	}
	return start, end, nil
}

func parseBound(raw string, loc *time.Location, endOfDay bool) (time.Time, error) {
	if t, err := time.ParseInLocation(dateLayout, raw, loc); err == nil {
		if endOfDay {
			return t.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
		}
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// dayBounds returns the first and last instant of the calendar day containing t in loc.
func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}
