package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/pickup-scheduler/internal/booking"
	"github.com/example/pickup-scheduler/internal/db"
	"github.com/example/pickup-scheduler/internal/jobs"
	"github.com/example/pickup-scheduler/internal/leads"
	"github.com/example/pickup-scheduler/internal/slots"
	"github.com/google/uuid"
)

type stubGen struct {
	out []slots.Slot
	err error
}

func (s *stubGen) Generate(ctx context.Context, leadID int64, preferredText string) ([]slots.Slot, error) {
	return s.out, s.err
}

type stubBook struct {
	job jobs.Job
	err error
}

func (s *stubBook) ConfirmSlot(ctx context.Context, leadID int64, slot slots.Slot, quoteID int64) (jobs.Job, error) {
	if s.err != nil {
		return jobs.Job{}, s.err
	}
	return s.job, nil
}

type stubLeads struct{ lead leads.Lead }

func (s *stubLeads) Get(ctx context.Context, id int64) (leads.Lead, error) {
	if id != s.lead.ID {
		return leads.Lead{}, db.ErrNotFound
	}
	return s.lead, nil
}

type stubConv struct{ proposed []slots.Slot }

func (s *stubConv) Proposals(ctx context.Context, leadID int64) ([]slots.Slot, error) {
	return s.proposed, nil
}

func proposedSet() []slots.Slot {
	start := time.Date(2025, 11, 10, 13, 0, 0, 0, time.UTC)
	return []slots.Slot{
		{ID: "slot-1", Label: "Mon 8–9 AM", Start: start, End: start.Add(time.Hour)},
		{ID: "slot-2", Label: "Mon 2:30–4 PM", Start: start.Add(6*time.Hour + 30*time.Minute), End: start.Add(8 * time.Hour)},
	}
}

func testServer() *Server {
	return &Server{
		Gen:    &stubGen{out: proposedSet()},
		Book:   &stubBook{job: jobs.Job{ID: uuid.New(), LeadID: 7, QuoteID: 301, Status: jobs.StatusBooked, WindowStart: time.Now(), WindowEnd: time.Now().Add(time.Hour)}},
		Conv:   &stubConv{proposed: proposedSet()},
		Leads:  &stubLeads{lead: leads.Lead{ID: 7, Timezone: "America/New_York"}},
		Tokens: slots.DefaultTokens(),
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGenerateEndpoint(t *testing.T) {
	rec := do(t, testServer().Routes(), http.MethodPost, "/v1/leads/7/slots", `{"preferredText":"friday"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var res struct {
		Slots []slots.Slot `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Slots) != 2 || res.Slots[0].ID != "slot-1" {
		t.Fatalf("slots = %+v", res.Slots)
	}
}

func TestMatchEndpoint(t *testing.T) {
	srv := testServer().Routes()

	rec := do(t, srv, http.MethodPost, "/v1/leads/7/slots/match", `{"text":"the second option"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var res struct {
		Matched bool       `json:"matched"`
		Slot    slots.Slot `json:"slot"`
		Reason  string     `json:"reason"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Matched || res.Slot.ID != "slot-2" || res.Reason != slots.ReasonOrdinal {
		t.Fatalf("match = %+v", res)
	}

	rec = do(t, srv, http.MethodPost, "/v1/leads/7/slots/match", `{"text":"hmm not sure yet"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil || res.Matched {
		t.Fatalf("expected matched=false, got %+v (err %v)", res, err)
	}

	rec = do(t, srv, http.MethodPost, "/v1/leads/7/slots/match", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing text: status = %d, want 400", rec.Code)
	}
}

func TestConfirmEndpointConflict(t *testing.T) {
	s := testServer()
	s.Book = &stubBook{err: booking.ErrConflict}

	rec := do(t, s.Routes(), http.MethodPost, "/v1/leads/7/confirm", `{"slotId":"slot-1"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "try another") {
		t.Fatalf("conflict body should re-prompt, got %s", rec.Body)
	}
}

func TestConfirmEndpointUnknownSlot(t *testing.T) {
	rec := do(t, testServer().Routes(), http.MethodPost, "/v1/leads/7/confirm", `{"slotId":"slot-9"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestUnknownLeadIs404(t *testing.T) {
	s := testServer()
	s.Gen = &stubGen{err: db.ErrNotFound}
	rec := do(t, s.Routes(), http.MethodPost, "/v1/leads/99/slots", `{}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestBearerTokenRequired(t *testing.T) {
	s := testServer()
	s.APIToken = "sekret"
	srv := s.Routes()

	rec := do(t, srv, http.MethodPost, "/v1/leads/7/slots", `{}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/leads/7/slots", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer sekret")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status with token = %d, want 200", rec.Code)
	}

	// Health stays open for probes.
	rec = do(t, srv, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
}
