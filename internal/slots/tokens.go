package slots

import (
	"fmt"
	"time"
)

// TokenTable holds the locale-specific vocabulary the matcher works from.
// The matching algorithm itself is pure; swapping tables swaps the locale.
type TokenTable struct {
	Weekdays map[time.Weekday][]string
	Months   map[time.Month][]string

	Ordinals map[string]int // zero-based index into the proposed list
	First    []string       // positional synonyms for the first slot
	Last     []string       // positional synonyms for the last slot

	PartsOfDay []PartOfDay
}

// PartOfDay is a half-open hour bucket [FromHour, ToHour).
type PartOfDay struct {
	Name     string
	FromHour int
	ToHour   int
}

func DefaultTokens() TokenTable {
	return TokenTable{
		Weekdays: map[time.Weekday][]string{
			time.Sunday:    {"sunday", "sun"},
			time.Monday:    {"monday", "mon"},
			time.Tuesday:   {"tuesday", "tue", "tues"},
			time.Wednesday: {"wednesday", "wed"},
			time.Thursday:  {"thursday", "thu", "thurs"},
			time.Friday:    {"friday", "fri"},
			time.Saturday:  {"saturday", "sat"},
		},
		Months: map[time.Month][]string{
			time.January: {"january", "jan"}, time.February: {"february", "feb"},
			time.March: {"march", "mar"}, time.April: {"april", "apr"},
			time.May: {"may"}, time.June: {"june", "jun"},
			time.July: {"july", "jul"}, time.August: {"august", "aug"},
			time.September: {"september", "sep", "sept"}, time.October: {"october", "oct"},
			time.November: {"november", "nov"}, time.December: {"december", "dec"},
		},
		Ordinals: map[string]int{
			"first": 0, "1st": 0,
			"second": 1, "2nd": 1,
			"third": 2, "3rd": 2,
			"fourth": 3, "4th": 3,
		},
		First: []string{"earlier", "earliest", "soonest"},
		Last:  []string{"later", "latest", "last"},
		PartsOfDay: []PartOfDay{
			{Name: "morning", FromHour: 0, ToHour: 12},
			{Name: "afternoon", FromHour: 12, ToHour: 17},
			{Name: "evening", FromHour: 17, ToHour: 24},
		},
	}
}

// PartOf returns the bucket name for a local time.
func (tt TokenTable) PartOf(t time.Time) string {
	for _, p := range tt.PartsOfDay {
		if t.Hour() >= p.FromHour && t.Hour() < p.ToHour {
			return p.Name
		}
	}
	return ""
}

// dayTokens are the weekday/date spellings a customer might echo back.
func (tt TokenTable) dayTokens(t time.Time) []string {
	var out []string
	out = append(out, tt.Weekdays[t.Weekday()]...)
	for _, m := range tt.Months[t.Month()] {
		out = append(out, fmt.Sprintf("%s %d", m, t.Day()))
	}
	out = append(out, fmt.Sprintf("%d/%d", int(t.Month()), t.Day()))
	return out
}

// timeTokens are clock spellings for a local time: with/without space and
// colon, and abbreviated meridiems.
func (tt TokenTable) timeTokens(t time.Time) []string {
	h12 := t.Hour() % 12
	if h12 == 0 {
		h12 = 12
	}
	mer := "am"
	if t.Hour() >= 12 {
		mer = "pm"
	}

	var bases []string
	if t.Minute() == 0 {
		bases = []string{fmt.Sprintf("%d", h12), fmt.Sprintf("%d:00", h12)}
	} else {
		bases = []string{fmt.Sprintf("%d:%02d", h12, t.Minute()), fmt.Sprintf("%d%02d", h12, t.Minute())}
	}

	var out []string
	for _, b := range bases {
		for _, m := range []string{mer, mer[:1] + "." + mer[1:] + "."} {
			out = append(out, b+m, b+" "+m)
		}
	}
	// Bare clock with a colon is specific enough to match without a meridiem.
	out = append(out, fmt.Sprintf("%d:%02d", h12, t.Minute()))
	return out
}
