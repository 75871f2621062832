// Package slots generates candidate pickup windows for a lead and resolves
// free-text replies back to one of them.
package slots

import (
	"fmt"
	"strings"
	"time"
)

// Slot is a candidate or confirmed pickup window. IDs are positional
// ("slot-1"..) and stable for the lifetime of one proposed set; the set is
// superseded wholesale by the next generation.
type Slot struct {
	ID    string    `json:"id"`
	Label string    `json:"label"`
	Start time.Time `json:"windowStart"`
	End   time.Time `json:"windowEnd"`
}

// Label renders "Mon 8–9:30 AM" / "Mon 2:30–4 PM" style labels; the shared
// meridiem is written once when start and end fall on the same side of noon.
func Label(start, end time.Time, loc *time.Location) string {
	s, e := start.In(loc), end.In(loc)
	sm, em := meridiem(s), meridiem(e)
	if sm == em {
		return fmt.Sprintf("%s %s–%s %s", s.Format("Mon"), clock(s), clock(e), em)
	}
	return fmt.Sprintf("%s %s %s–%s %s", s.Format("Mon"), clock(s), sm, clock(e), em)
}

func clock(t time.Time) string {
	h := t.Hour() % 12
	if h == 0 {
		h = 12
	}
	if t.Minute() == 0 {
		return fmt.Sprintf("%d", h)
	}
	return fmt.Sprintf("%d:%02d", h, t.Minute())
}

func meridiem(t time.Time) string {
	if t.Hour() < 12 {
		return "AM"
	}
	return "PM"
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
