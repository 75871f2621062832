package slots

import (
	"testing"
	"time"
)

func TestLabel(t *testing.T) {
	loc := nyLoc(t)

	cases := []struct {
		start, end time.Time
		want       string
	}{
		{
			time.Date(2025, 11, 10, 13, 0, 0, 0, time.UTC),
			time.Date(2025, 11, 10, 14, 30, 0, 0, time.UTC),
			"Mon 8–9:30 AM",
		},
		{
			time.Date(2025, 11, 10, 19, 30, 0, 0, time.UTC),
			time.Date(2025, 11, 10, 21, 0, 0, 0, time.UTC),
			"Mon 2:30–4 PM",
		},
		{
			time.Date(2025, 11, 10, 16, 0, 0, 0, time.UTC),
			time.Date(2025, 11, 10, 17, 30, 0, 0, time.UTC),
			"Mon 11 AM–12:30 PM",
		},
	}

	for _, tc := range cases {
		if got := Label(tc.start, tc.end, loc); got != tc.want {
			t.Errorf("Label(%v, %v) = %q, want %q", tc.start, tc.end, got, tc.want)
		}
	}
}
