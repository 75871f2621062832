package slots

import (
	"regexp"
	"time"
)

// Match reasons, recorded for auditability.
const (
	ReasonOrdinal   = "ordinal"
	ReasonLabel     = "label"
	ReasonDayTime   = "day+time"
	ReasonTime      = "time"
	ReasonPartOfDay = "part-of-day"
)

type Match struct {
	Slot   Slot
	Reason string
}

var optionRe = regexp.MustCompile(`(?:option|choice|number|#)\s*([1-9])`)

// MatchSlot resolves free text against the currently proposed slots. Rules
// fire in strict precedence; the first rule that produces exactly one
// candidate wins, and a rule that fires ambiguously returns no match rather
// than guessing.
func MatchSlot(text string, proposed []Slot, loc *time.Location, tt TokenTable) (Match, bool) {
	if len(proposed) == 0 {
		return Match{}, false
	}
	t := normalize(text)
	if t == "" {
		return Match{}, false
	}

	if idx, ok, ambiguous := matchOrdinal(t, proposed, loc, tt); ambiguous {
		return Match{}, false
	} else if ok {
		return Match{Slot: proposed[idx], Reason: ReasonOrdinal}, true
	}

	if m, ok := uniqueHit(proposed, ReasonLabel, func(s Slot) bool {
		return containsToken(t, normalize(s.Label))
	}); ok != hitNone {
		return m, ok == hitOne
	}

	if m, ok := uniqueHit(proposed, ReasonDayTime, func(s Slot) bool {
		return hasDayToken(t, s, loc, tt) && hasTimeToken(t, s, loc, tt)
	}); ok != hitNone {
		return m, ok == hitOne
	}

	if m, ok := uniqueHit(proposed, ReasonTime, func(s Slot) bool {
		return hasTimeToken(t, s, loc, tt)
	}); ok != hitNone {
		return m, ok == hitOne
	}

	if m, ok := matchPartOfDay(t, proposed, loc, tt); ok != hitNone {
		return m, ok == hitOne
	}

	return Match{}, false
}

type hitCount int

const (
	hitNone hitCount = iota
	hitOne
	hitMany
)

func uniqueHit(proposed []Slot, reason string, pred func(Slot) bool) (Match, hitCount) {
	found := -1
	for i, s := range proposed {
		if !pred(s) {
			continue
		}
		if found >= 0 {
			return Match{}, hitMany
		}
		found = i
	}
	if found < 0 {
		return Match{}, hitNone
	}
	return Match{Slot: proposed[found], Reason: reason}, hitOne
}

// matchOrdinal handles positional phrases: "the second option", "option 2",
// "earlier"/"later", and a bare part-of-day word as a positional fallback
// ("morning" alone means the first morning slot).
func matchOrdinal(t string, proposed []Slot, loc *time.Location, tt TokenTable) (idx int, ok, ambiguous bool) {
	hits := map[int]bool{}

	for word, i := range tt.Ordinals {
		if containsToken(t, word) && i < len(proposed) {
			hits[i] = true
		}
	}
	if m := optionRe.FindStringSubmatch(t); m != nil {
		i := int(m[1][0]-'0') - 1
		if i < len(proposed) {
			hits[i] = true
		}
	}
	for _, word := range tt.First {
		if containsToken(t, word) {
			hits[0] = true
		}
	}
	for _, word := range tt.Last {
		if containsToken(t, word) {
			hits[len(proposed)-1] = true
		}
	}

	if len(hits) == 0 {
		// Bare part-of-day word: positional fallback to the first slot in
		// that bucket.
		if name, bare := barePartOfDay(t, tt); bare {
			for i, s := range proposed {
				if tt.PartOf(s.Start.In(loc)) == name {
					return i, true, false
				}
			}
		}
		return 0, false, false
	}
	if len(hits) > 1 {
		return 0, false, true
	}
	for i := range hits {
		return i, true, false
	}
	return 0, false, false
}

// barePartOfDay reports whether the text is nothing but a part-of-day word,
// allowing leading articles ("the morning").
func barePartOfDay(t string, tt TokenTable) (string, bool) {
	for _, p := range tt.PartsOfDay {
		if t == p.Name || t == "the "+p.Name {
			return p.Name, true
		}
	}
	return "", false
}

// matchPartOfDay fires on a part-of-day keyword anywhere in the text, valid
// only when exactly one slot occupies that bucket.
func matchPartOfDay(t string, proposed []Slot, loc *time.Location, tt TokenTable) (Match, hitCount) {
	for _, p := range tt.PartsOfDay {
		if !containsToken(t, p.Name) {
			continue
		}
		return uniqueHit(proposed, ReasonPartOfDay, func(s Slot) bool {
			return tt.PartOf(s.Start.In(loc)) == p.Name
		})
	}
	return Match{}, hitNone
}

func hasDayToken(t string, s Slot, loc *time.Location, tt TokenTable) bool {
	for _, tok := range tt.dayTokens(s.Start.In(loc)) {
		if containsToken(t, tok) {
			return true
		}
	}
	return false
}

func hasTimeToken(t string, s Slot, loc *time.Location, tt TokenTable) bool {
	for _, tok := range tt.timeTokens(s.Start.In(loc)) {
		if containsToken(t, tok) {
			return true
		}
	}
	return false
}

// containsToken is substring containment with word boundaries on both ends,
// so "8:00" does not match inside "18:00" and "sun" not inside "sunday".
func containsToken(s, token string) bool {
	if token == "" {
		return false
	}
	idx := 0
	for {
		i := indexFrom(s, token, idx)
		if i < 0 {
			return false
		}
		before := i == 0 || !isTokenByte(s[i-1])
		after := i+len(token) == len(s) || !isTokenByte(s[i+len(token)])
		if before && after {
			return true
		}
		idx = i + 1
	}
}

func indexFrom(s, sub string, from int) int {
	if from >= len(s) {
		return -1
	}
	for i := from; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func isTokenByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
