package timeparse

import (
	"testing"
	"time"
)

func TestResolve(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// Sunday noon EST.
	anchor := time.Date(2025, 11, 9, 12, 0, 0, 0, ny)

	cases := []struct {
		name string
		text string
		want string // RFC3339 in UTC; empty means no resolution
	}{
		{"friday 3pm", "this Friday at 3 pm", "2025-11-14T20:00:00Z"},
		{"tomorrow morning", "tomorrow morning works", "2025-11-10T14:00:00Z"},
		{"bare weekday", "Wednesday", "2025-11-12T14:00:00Z"},
		{"explicit clock", "monday at 10:30 am", "2025-11-10T15:30:00Z"},
		{"noon", "today around noon", "2025-11-09T17:00:00Z"},
		{"pm assumed for small hours", "tuesday at 3", "2025-11-11T20:00:00Z"},
		{"unparseable", "whenever you can swing by", ""},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Resolve(tc.text, ny, anchor)
			if tc.want == "" {
				if ok {
					t.Fatalf("Resolve(%q) = %v, want none", tc.text, got)
				}
				return
			}
			if !ok {
				t.Fatalf("Resolve(%q) returned none", tc.text)
			}
			if got.UTC().Format(time.RFC3339) != tc.want {
				t.Fatalf("Resolve(%q) = %s, want %s", tc.text, got.UTC().Format(time.RFC3339), tc.want)
			}
		})
	}
}

func TestResolveSameWeekdayIsToday(t *testing.T) {
	ny, _ := time.LoadLocation("America/New_York")
	anchor := time.Date(2025, 11, 9, 20, 0, 0, 0, ny) // Sunday evening

	got, ok := Resolve("sunday at 9 am", ny, anchor)
	if !ok {
		t.Fatal("expected a resolution")
	}
	// Resolves to today's 9 AM even though it already passed; roll-forward
	// is the slot generator's job.
	want := time.Date(2025, 11, 9, 9, 0, 0, 0, ny)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	got, ok = Resolve("next sunday at 9 am", ny, anchor)
	if !ok || got.Day() != 16 {
		t.Fatalf("next sunday: got %v, ok=%v", got, ok)
	}
}
