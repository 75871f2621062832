package slots

import (
	"testing"
	"time"
)

func nyLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

// The two-slot set from a Monday morning + Monday afternoon proposal:
// 8:00–9:30 AM and 2:30–4:00 PM Eastern.
func twoSlots() []Slot {
	return []Slot{
		{
			ID:    "slot-1",
			Label: "Mon 8–9:30 AM",
			Start: time.Date(2025, 11, 10, 13, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 11, 10, 14, 30, 0, 0, time.UTC),
		},
		{
			ID:    "slot-2",
			Label: "Mon 2:30–4 PM",
			Start: time.Date(2025, 11, 10, 19, 30, 0, 0, time.UTC),
			End:   time.Date(2025, 11, 10, 21, 0, 0, 0, time.UTC),
		},
	}
}

func TestMatchSlot(t *testing.T) {
	loc := nyLoc(t)
	tt := DefaultTokens()

	cases := []struct {
		name   string
		text   string
		wantID string
		reason string
	}{
		{"ordinal second", "I'll take the second option", "slot-2", ReasonOrdinal},
		{"ordinal first", "the first option please", "slot-1", ReasonOrdinal},
		{"option digit", "option 2 works for me", "slot-2", ReasonOrdinal},
		{"earlier", "earlier is better for us", "slot-1", ReasonOrdinal},
		{"later", "can you do the later one", "slot-2", ReasonOrdinal},
		{"bare part of day", "morning", "slot-1", ReasonOrdinal},
		{"label echo", "Mon 2:30–4 PM is perfect", "slot-2", ReasonLabel},
		{"day and time", "monday at 8 am", "slot-1", ReasonDayTime},
		{"unique time", "8am should work", "slot-1", ReasonTime},
		{"unique time with colon", "how about 2:30", "slot-2", ReasonTime},
		{"part of day keyword", "Book the afternoon window", "slot-2", ReasonPartOfDay},
		{"no match", "let me check with my wife", "", ""},
		{"empty", "   ", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, ok := MatchSlot(tc.text, twoSlots(), loc, tt)
			if tc.wantID == "" {
				if ok {
					t.Fatalf("MatchSlot(%q) = %s (%s), want none", tc.text, m.Slot.ID, m.Reason)
				}
				return
			}
			if !ok {
				t.Fatalf("MatchSlot(%q) returned none, want %s", tc.text, tc.wantID)
			}
			if m.Slot.ID != tc.wantID {
				t.Fatalf("MatchSlot(%q) = %s, want %s", tc.text, m.Slot.ID, tc.wantID)
			}
			if m.Reason != tc.reason {
				t.Fatalf("MatchSlot(%q) reason = %s, want %s", tc.text, m.Reason, tc.reason)
			}
		})
	}
}

// Ordinal matching is content-independent: "first" resolves to index 0
// whatever the slots contain.
func TestMatchSlotOrdinalIgnoresContent(t *testing.T) {
	loc := nyLoc(t)
	proposed := twoSlots()
	proposed[0], proposed[1] = proposed[1], proposed[0]

	m, ok := MatchSlot("the first option", proposed, loc, DefaultTokens())
	if !ok || m.Slot.ID != "slot-2" {
		t.Fatalf("got %+v ok=%v, want the slot now at index 0", m, ok)
	}
}

// Two slots on the same weekday at the same clock time are indistinguishable
// without an ordinal or a label; the matcher must not guess.
func TestMatchSlotAmbiguousReturnsNone(t *testing.T) {
	loc := nyLoc(t)
	proposed := []Slot{
		{
			ID:    "slot-1",
			Label: "Mon 8–9 AM",
			Start: time.Date(2025, 11, 10, 13, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 11, 10, 14, 0, 0, 0, time.UTC),
		},
		{
			ID:    "slot-2",
			Label: "Mon 8–9 AM (next week)",
			Start: time.Date(2025, 11, 17, 13, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 11, 17, 14, 0, 0, 0, time.UTC),
		},
	}

	if m, ok := MatchSlot("monday at 8 am", proposed, loc, DefaultTokens()); ok {
		t.Fatalf("expected no match, got %s (%s)", m.Slot.ID, m.Reason)
	}

	// Both slots are morning slots, so a part-of-day keyword is ambiguous too.
	if m, ok := MatchSlot("sometime in the morning please", proposed, loc, DefaultTokens()); ok {
		t.Fatalf("expected no match, got %s (%s)", m.Slot.ID, m.Reason)
	}

	// An ordinal still disambiguates.
	if m, ok := MatchSlot("the second one", proposed, loc, DefaultTokens()); !ok || m.Slot.ID != "slot-2" {
		t.Fatalf("ordinal should disambiguate, got %+v ok=%v", m, ok)
	}
}

func TestMatchSlotEmptyProposals(t *testing.T) {
	if _, ok := MatchSlot("first", nil, time.UTC, DefaultTokens()); ok {
		t.Fatal("expected no match with no proposals")
	}
}
