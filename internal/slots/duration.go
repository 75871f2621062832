package slots

import (
	"time"

	"github.com/example/pickup-scheduler/internal/leads"
)

const (
	baseDuration = 60 * time.Minute
	maxDuration  = 240 * time.Minute
)

// EstimateDuration sizes a pickup from the load characteristics captured
// during intake. Roughly: an hour for a small load, plus surcharges for
// volume, heavy items, stairs, and a long carry.
func EstimateDuration(l leads.Lead) time.Duration {
	d := baseDuration
	if l.VolumeCuYd >= 10 {
		d += 30 * time.Minute
	}
	if l.VolumeCuYd >= 20 {
		d += 30 * time.Minute
	}
	if l.HeavyItems {
		d += 15 * time.Minute
	}
	if l.FlightsOfStairs > 0 {
		d += 15 * time.Minute
	}
	if l.CarryDistanceM > 30 {
		d += 15 * time.Minute
	}
	if d > maxDuration {
		d = maxDuration
	}
	return d
}
