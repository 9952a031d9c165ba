package action

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Heuristic datetime extraction. This intentionally recognizes only a small
// set of shorthands; anything unrecognized falls back at the call site.
var timePatterns = []*regexp.Regexp{
	regexp.MustCompile(`at\s+(\d{1,2}):?(\d{2})?\s*(pm|am)?`),
	regexp.MustCompile(`a\s+las\s+(\d{1,2}):?(\d{2})?`),
}

// extractDateTime parses a start time out of free text. Day shorthands and
// a time of day combine, so "tomorrow at 3pm" lands on tomorrow 15:00. It
// returns the zero time when nothing matches.
func extractDateTime(text string, now time.Time) time.Time {
	lower := strings.ToLower(text)

	dayOffset := -1
	switch {
	case strings.Contains(lower, "tomorrow") || strings.Contains(lower, "mañana"):
		dayOffset = 1
	case strings.Contains(lower, "next week") || strings.Contains(lower, "próxima semana"):
		dayOffset = 7
	case strings.Contains(lower, "today") || strings.Contains(lower, "hoy"):
		dayOffset = 0
	}

	hour, minute, hasClock := extractClockTime(lower)

	switch {
	case dayOffset >= 0 && hasClock:
		day := now.AddDate(0, 0, dayOffset)
		return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())
	case dayOffset > 0:
		return now.Add(time.Duration(dayOffset) * 24 * time.Hour)
	case dayOffset == 0:
		return now.Add(time.Hour)
	case hasClock:
		target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if target.Before(now) {
			target = target.Add(24 * time.Hour)
		}
		return target
	}

	return time.Time{}
}

// extractClockTime pulls an "at H[:MM][am|pm]" or "a las H[:MM]" time of
// day out of lowercased text.
func extractClockTime(lower string) (hour, minute int, ok bool) {
	for _, p := range timePatterns {
		sub := p.FindStringSubmatch(lower)
		if sub == nil {
			continue
		}

		hour, _ = strconv.Atoi(sub[1])
		if sub[2] != "" {
			minute, _ = strconv.Atoi(sub[2])
		}
		if len(sub) > 3 && sub[3] == "pm" && hour < 12 {
			hour += 12
		}
		return hour, minute, true
	}
	return 0, 0, false
}

// extractReminderTime parses reminder shorthands, deferring to the shared
// datetime heuristic when none apply. Zero time means no match.
func extractReminderTime(text string, now time.Time) time.Time {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "in 1 hour") || strings.Contains(lower, "en 1 hora"):
		return now.Add(time.Hour)
	case strings.Contains(lower, "in 30 minutes") || strings.Contains(lower, "en 30 minutos"):
		return now.Add(30 * time.Minute)
	case strings.Contains(lower, "tomorrow") || strings.Contains(lower, "mañana"):
		return now.Add(24 * time.Hour)
	}

	return extractDateTime(text, now)
}

// nextFullHour returns the start of the next hour.
func nextFullHour(now time.Time) time.Time {
	return now.Truncate(time.Hour).Add(time.Hour)
}
