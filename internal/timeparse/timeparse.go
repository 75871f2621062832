// Package timeparse resolves free-text pickup-time preferences ("this Friday
// at 3 pm") to a concrete instant in the lead's timezone. It is deliberately
// rule-based and pure: no network, no locale state beyond the token tables.
package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// partOfDayHour anchors a bare "morning"/"afternoon"/"evening" mention when
// no explicit clock time is present.
var partOfDayHour = map[string]int{
	"morning":   9,
	"noon":      12,
	"midday":    12,
	"afternoon": 14,
	"evening":   17,
	"tonight":   18,
}

var timeRe = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?\b`)

// Resolve parses text into an instant on the wall clock of loc, anchored at
// now. The bool is false when nothing date- or time-like was found. The
// result may lie in the past (e.g. "monday morning" said Monday night);
// rolling forward is the caller's policy, not the parser's.
func Resolve(text string, loc *time.Location, now time.Time) (time.Time, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return time.Time{}, false
	}

	local := now.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	dayFound := false

	switch {
	case containsWord(t, "today"):
		dayFound = true
	case containsWord(t, "tomorrow"), containsWord(t, "tonight"):
		if containsWord(t, "tomorrow") {
			day = day.AddDate(0, 0, 1)
		}
		dayFound = true
	default:
		for tok, wd := range weekdays {
			if !containsWord(t, tok) {
				continue
			}
			ahead := (int(wd) - int(local.Weekday()) + 7) % 7
			if ahead == 0 && containsWord(t, "next") {
				ahead = 7
			}
			day = day.AddDate(0, 0, ahead)
			dayFound = true
			break
		}
	}

	hour, minute, timeFound := clockFrom(t)
	if !timeFound {
		for tok, h := range partOfDayHour {
			if containsWord(t, tok) {
				hour, minute, timeFound = h, 0, true
				break
			}
		}
	}

	if !dayFound && !timeFound {
		return time.Time{}, false
	}
	if !timeFound {
		hour, minute = 9, 0
	}

	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), true
}

func clockFrom(t string) (hour, minute int, ok bool) {
	if containsWord(t, "noon") {
		return 12, 0, true
	}
	if containsWord(t, "midnight") {
		return 0, 0, true
	}
	m := timeRe.FindStringSubmatch(t)
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	switch {
	case strings.HasPrefix(m[3], "p") && hour < 12:
		hour += 12
	case strings.HasPrefix(m[3], "a") && hour == 12:
		hour = 0
	case m[3] == "" && hour >= 1 && hour <= 7:
		// "around 3" almost always means mid-afternoon for a pickup.
		hour += 12
	}
	return hour, minute, true
}

func containsWord(s, w string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], w)
		if i < 0 {
			return false
		}
		i += idx
		before := i == 0 || !isWordByte(s[i-1])
		after := i+len(w) == len(s) || !isWordByte(s[i+len(w)])
		if before && after {
			return true
		}
		idx = i + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
