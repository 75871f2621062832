package slots

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/pickup-scheduler/internal/calendar"
	"github.com/example/pickup-scheduler/internal/leads"
	"github.com/example/pickup-scheduler/internal/timeparse"
)

type LeadSource interface {
	Get(ctx context.Context, id int64) (leads.Lead, error)
}

// ProposalCache persists the generated set as the lead's working state so
// the matcher can resolve the customer's reply against it later.
type ProposalCache interface {
	SaveProposals(ctx context.Context, leadID int64, proposed []Slot) error
}

type Availability interface {
	FreeBusy(ctx context.Context, calendarID string, from, to time.Time) ([]calendar.BusyWindow, error)
}

// Options carry the business-hours policy for slot generation.
type Options struct {
	OpenHour    int
	CloseHour   int
	Step        time.Duration
	Limit       int
	MinGap      time.Duration
	HorizonDays int
}

func (o Options) withDefaults() Options {
	if o.OpenHour == 0 && o.CloseHour == 0 {
		o.OpenHour, o.CloseHour = 8, 18
	}
	if o.Step <= 0 {
		o.Step = 15 * time.Minute
	}
	if o.Limit <= 0 {
		o.Limit = 4
	}
	if o.MinGap <= 0 {
		o.MinGap = 30 * time.Minute
	}
	if o.HorizonDays <= 0 {
		o.HorizonDays = 7
	}
	return o
}

// Generator produces a bounded, diversified set of candidate pickup windows.
// Avail is optional: without calendar integration slots are unfiltered, and
// a failing availability query degrades the same way with a logged warning.
type Generator struct {
	Leads      LeadSource
	Cache      ProposalCache
	Avail      Availability
	CalendarID string
	Opts       Options
	Log        *slog.Logger

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *Generator) logger() *slog.Logger {
	if g.Log != nil {
		return g.Log
	}
	return slog.Default()
}

// Generate builds up to Opts.Limit candidate windows for the lead, caches
// them as the lead's proposed set, and returns them. An unknown lead is
// fatal; calendar-provider failures are not.
func (g *Generator) Generate(ctx context.Context, leadID int64, preferredText string) ([]Slot, error) {
	opts := g.Opts.withDefaults()

	lead, err := g.Leads.Get(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("lead %d: %w", leadID, err)
	}
	loc := lead.Location()
	now := g.now()

	preferred := g.resolvePreferred(preferredText, loc, now)
	duration := EstimateDuration(lead)

	// Candidate days start on the preferred day, not today; the free/busy
	// query must cover that same range or far-out days come back unfiltered.
	first := candidateStart(now, preferred, loc)

	filtering := g.Avail != nil
	var busy []calendar.BusyWindow
	if filtering {
		to := first.AddDate(0, 0, opts.HorizonDays)
		busy, err = g.Avail.FreeBusy(ctx, g.CalendarID, first, to)
		if err != nil {
			// Fail open: offer unfiltered slots rather than nothing.
			g.logger().Warn("free/busy query failed, generating unfiltered slots",
				"lead", leadID, "err", err)
			busy = nil
		}
	}

	buckets := g.collect(now, preferred, first, duration, busy, loc, opts)
	picked := roundRobin(buckets, opts.Limit, filtering, opts.MinGap)

	out := make([]Slot, 0, len(picked))
	for i, w := range picked {
		out = append(out, Slot{
			ID:    fmt.Sprintf("slot-%d", i+1),
			Label: Label(w.start, w.end, loc),
			Start: w.start.UTC(),
			End:   w.end.UTC(),
		})
	}

	if err := g.Cache.SaveProposals(ctx, leadID, out); err != nil {
		return nil, fmt.Errorf("cache proposals: %w", err)
	}
	return out, nil
}

// resolvePreferred turns the free-text preference into an anchor instant.
// Past resolutions roll forward: to now when less than a day late, else to
// the same weekday next week.
func (g *Generator) resolvePreferred(text string, loc *time.Location, now time.Time) time.Time {
	t, ok := timeparse.Resolve(text, loc, now)
	if !ok {
		return now
	}
	if t.Before(now) {
		if now.Sub(t) <= 24*time.Hour {
			return now
		}
		for t.Before(now) {
			t = t.AddDate(0, 0, 7)
		}
	}
	return t
}

type window struct {
	start, end time.Time
}

// dayBuckets split one day's candidates into morning/midday/afternoon,
// each sorted by closeness to the preferred time of day.
type dayBuckets [3][]window

func bucketIndex(t time.Time) int {
	switch {
	case t.Hour() < 12:
		return 0
	case t.Hour() < 15:
		return 1
	default:
		return 2
	}
}

// candidateStart is the first day slots are drawn from: the preferred day,
// clamped to today for preferences already underway.
func candidateStart(now, preferred time.Time, loc *time.Location) time.Time {
	anchor := preferred
	if anchor.Before(now) {
		anchor = now
	}
	return startOfDay(anchor.In(loc))
}

func (g *Generator) collect(now, preferred, first time.Time, duration time.Duration, busy []calendar.BusyWindow, loc *time.Location, opts Options) []dayBuckets {
	prefMin := minutesOfDay(preferred.In(loc))

	var days []dayBuckets
	for d := 0; d < opts.HorizonDays; d++ {
		day := first.AddDate(0, 0, d)
		open := day.Add(time.Duration(opts.OpenHour) * time.Hour)
		closing := day.Add(time.Duration(opts.CloseHour) * time.Hour)

		var db dayBuckets
		for start := open; !start.Add(duration).After(closing); start = start.Add(opts.Step) {
			if start.Before(now) {
				continue
			}
			end := start.Add(duration)
			if overlapsBusy(start, end, busy) {
				continue
			}
			b := bucketIndex(start)
			db[b] = append(db[b], window{start: start, end: end})
		}
		for b := range db {
			sortByCloseness(db[b], prefMin)
		}
		days = append(days, db)
	}
	return days
}

// roundRobin interleaves morning/midday/afternoon buckets across days so
// the offered set is diversified, not four adjacent quarter-hours.
func roundRobin(days []dayBuckets, limit int, enforceGap bool, gap time.Duration) []window {
	var accepted []window
	idx := make([][3]int, len(days))

	for progress := true; progress && len(accepted) < limit; {
		progress = false
		for d := range days {
			for b := 0; b < 3 && len(accepted) < limit; b++ {
				for idx[d][b] < len(days[d][b]) {
					w := days[d][b][idx[d][b]]
					idx[d][b]++
					if enforceGap && tooClose(w, accepted, gap) {
						continue
					}
					accepted = append(accepted, w)
					progress = true
					break
				}
			}
			if len(accepted) >= limit {
				break
			}
		}
	}

	sortWindows(accepted)
	return accepted
}

// tooClose rejects a window that overlaps, or sits within gap of, an
// already accepted one.
func tooClose(w window, accepted []window, gap time.Duration) bool {
	for _, a := range accepted {
		if w.start.Before(a.end.Add(gap)) && a.start.Before(w.end.Add(gap)) {
			return true
		}
	}
	return false
}

func overlapsBusy(start, end time.Time, busy []calendar.BusyWindow) bool {
	for _, b := range busy {
		if b.Overlaps(start, end) {
			return true
		}
	}
	return false
}

func sortByCloseness(ws []window, prefMin int) {
	sort.SliceStable(ws, func(i, j int) bool {
		return closeness(ws[i], prefMin) < closeness(ws[j], prefMin)
	})
}

func closeness(w window, prefMin int) int {
	d := minutesOfDay(w.start) - prefMin
	if d < 0 {
		d = -d
	}
	return d
}

func sortWindows(ws []window) {
	sort.Slice(ws, func(i, j int) bool { return ws[i].start.Before(ws[j].start) })
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
