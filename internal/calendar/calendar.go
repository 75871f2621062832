// Package calendar talks to the external calendar provider: free/busy
// queries, incremental change listing with an opaque sync cursor, and
// idempotent event upserts keyed by a client-assigned id.
package calendar

import (
	"context"
	"errors"
	"time"
)

const (
	EventStatusConfirmed = "confirmed"
	EventStatusCancelled = "cancelled"
)

var (
	// ErrUnavailable wraps transport failures and provider 5xx responses.
	ErrUnavailable = errors.New("calendar provider unavailable")
	// ErrCursorExpired means the stored sync token is no longer valid and a
	// full-window resync is required.
	ErrCursorExpired = errors.New("calendar sync cursor expired")
)

type BusyWindow struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether [start, end) intersects the busy window.
func (b BusyWindow) Overlaps(start, end time.Time) bool {
	return start.Before(b.End) && b.Start.Before(end)
}

type Event struct {
	ID      string
	Status  string
	Etag    string
	ICalUID string
	Summary string
	Start   time.Time
	// End is zero when the provider omits it; callers default it.
	End time.Time
}

// ChangePage is one page of a change feed. NextSyncToken is only set on the
// final page of a traversal.
type ChangePage struct {
	Events        []Event
	NextPageToken string
	NextSyncToken string
}

// ChangeQuery selects either incremental listing (SyncToken set) or a
// bounded window scan (From/To set). PageToken continues either mode.
type ChangeQuery struct {
	SyncToken string
	PageToken string
	From      time.Time
	To        time.Time
}

type Provider interface {
	FreeBusy(ctx context.Context, calendarID string, from, to time.Time) ([]BusyWindow, error)
	Changes(ctx context.Context, calendarID string, q ChangeQuery) (ChangePage, error)
	UpsertEvent(ctx context.Context, calendarID string, ev Event) (Event, error)
}
