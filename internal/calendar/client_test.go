package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientFreeBusy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/calendars/primary/freeBusy" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth header = %q", got)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["timeMin"] == "" || body["timeMax"] == "" {
			t.Errorf("missing window bounds: %v", body)
		}
		_, _ = w.Write([]byte(`{"busy":[{"start":"2025-11-14T13:00:00Z","end":"2025-11-14T14:00:00Z"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	busy, err := c.FreeBusy(context.Background(), "primary",
		time.Date(2025, 11, 14, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("freeBusy: %v", err)
	}
	if len(busy) != 1 || busy[0].Start.Hour() != 13 {
		t.Fatalf("busy = %+v", busy)
	}
}

func TestClientChangesCursorExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("syncToken") == "stale" {
			w.WriteHeader(http.StatusGone)
			return
		}
		_, _ = w.Write([]byte(`{"items":[],"nextSyncToken":"fresh"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.Changes(context.Background(), "primary", ChangeQuery{SyncToken: "stale"})
	if !errors.Is(err, ErrCursorExpired) {
		t.Fatalf("got %v, want ErrCursorExpired", err)
	}

	page, err := c.Changes(context.Background(), "primary", ChangeQuery{
		From: time.Now().Add(-24 * time.Hour),
		To:   time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("window scan: %v", err)
	}
	if page.NextSyncToken != "fresh" {
		t.Fatalf("next sync token = %q", page.NextSyncToken)
	}
}

func TestClientChangesPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageToken") == "p2" {
			_, _ = w.Write([]byte(`{"items":[{"id":"ev-2","status":"cancelled"}],"nextSyncToken":"done"}`))
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"id":"ev-1","status":"confirmed",` +
			`"start":{"dateTime":"2025-11-14T13:00:00Z"},"end":{"dateTime":"2025-11-14T14:30:00Z"},` +
			`"etag":"e1","iCalUID":"ev-1@cal"}],"nextPageToken":"p2"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	q := ChangeQuery{SyncToken: "cur"}

	page1, err := c.Changes(context.Background(), "primary", q)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(page1.Events) != 1 || page1.Events[0].ID != "ev-1" || page1.NextPageToken != "p2" {
		t.Fatalf("page 1 = %+v", page1)
	}
	if got := page1.Events[0].End; got.Minute() != 30 {
		t.Fatalf("event end = %v", got)
	}

	q.PageToken = page1.NextPageToken
	page2, err := c.Changes(context.Background(), "primary", q)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if page2.NextSyncToken != "done" || !page2.Events[0].End.IsZero() {
		t.Fatalf("page 2 = %+v", page2)
	}
}

func TestClientUpsertEventIdempotentPath(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		var ev wireEvent
		_ = json.NewDecoder(r.Body).Decode(&ev)
		ev.Etag = "e1"
		ev.ICalUID = ev.ID + "@cal"
		_ = json.NewEncoder(w).Encode(ev)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	in := Event{
		ID:      "job-123",
		Status:  EventStatusConfirmed,
		Summary: "Pickup: Dana",
		Start:   time.Date(2025, 11, 14, 13, 0, 0, 0, time.UTC),
		End:     time.Date(2025, 11, 14, 14, 0, 0, 0, time.UTC),
	}

	for i := 0; i < 2; i++ {
		out, err := c.UpsertEvent(context.Background(), "primary", in)
		if err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
		if out.Etag != "e1" || out.ICalUID != "job-123@cal" {
			t.Fatalf("upsert %d = %+v", i, out)
		}
	}
	for _, p := range paths {
		if p != "PUT /calendars/primary/events/job-123" {
			t.Fatalf("unexpected request %q", p)
		}
	}
}

func TestClientServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"backend overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	if _, err := c.FreeBusy(context.Background(), "primary", time.Now(), time.Now().Add(time.Hour)); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
}
