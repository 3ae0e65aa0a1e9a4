package youtube

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativeTimePattern = regexp.MustCompile(`(?i)^(?:Streamed\s+)?(\d+)\s+(second|minute|hour|day|week|month|year)s?\s+ago$`)

// parseRelativeTime converts listing text like "3 weeks ago" into an
// absolute timestamp relative to now. The second return is false when the
// text does not look like a relative timestamp.
func parseRelativeTime(now time.Time, text string) (time.Time, bool) {
	match := relativeTimePattern.FindStringSubmatch(text)
	if match == nil {
		return time.Time{}, false
	}
	amount, err := strconv.Atoi(match[1])
	if err != nil {
		return time.Time{}, false
	}

	switch strings.ToLower(match[2]) {
	case "second":
		return now.Add(-time.Duration(amount) * time.Second), true
	case "minute":
		return now.Add(-time.Duration(amount) * time.Minute), true
	case "hour":
		return now.Add(-time.Duration(amount) * time.Hour), true
	case "day":
		return now.AddDate(0, 0, -amount), true
	case "week":
		return now.AddDate(0, 0, -amount*7), true
	case "month":
		return now.AddDate(0, -amount, 0), true
	case "year":
		return now.AddDate(-amount, 0, 0), true
	}
	return time.Time{}, false
}
