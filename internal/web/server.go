// Package web exposes the scheduling core to the conversation-handling
// layer as a small JSON API.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/example/pickup-scheduler/internal/booking"
	"github.com/example/pickup-scheduler/internal/db"
	"github.com/example/pickup-scheduler/internal/jobs"
	"github.com/example/pickup-scheduler/internal/leads"
	"github.com/example/pickup-scheduler/internal/slots"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type SlotGenerator interface {
	Generate(ctx context.Context, leadID int64, preferredText string) ([]slots.Slot, error)
}

type SlotConfirmer interface {
	ConfirmSlot(ctx context.Context, leadID int64, slot slots.Slot, quoteID int64) (jobs.Job, error)
}

type LeadGetter interface {
	Get(ctx context.Context, id int64) (leads.Lead, error)
}

type ProposalSource interface {
	Proposals(ctx context.Context, leadID int64) ([]slots.Slot, error)
}

type Server struct {
	Gen    SlotGenerator
	Book   SlotConfirmer
	Conv   ProposalSource
	Leads  LeadGetter
	Tokens slots.TokenTable

	// APIToken, when set, is required as a bearer token on every call.
	APIToken string
	Log      *slog.Logger
}

func (s *Server) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.Handle("POST /v1/leads/{id}/slots", s.auth(s.handleGenerate))
	mux.Handle("POST /v1/leads/{id}/slots/match", s.auth(s.handleMatch))
	mux.Handle("POST /v1/leads/{id}/confirm", s.auth(s.handleConfirm))

	return mux
}

func (s *Server) auth(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.APIToken != "" {
			got := r.Header.Get("Authorization")
			want := "Bearer " + s.APIToken
			if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		h(w, r)
	})
}

type generateRequest struct {
	PreferredText string `json:"preferredText"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	leadID, ok := s.leadID(w, r)
	if !ok {
		return
	}
	var req generateRequest
	if !decode(w, r, &req) {
		return
	}

	out, err := s.Gen.Generate(r.Context(), leadID, req.PreferredText)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": out})
}

type matchRequest struct {
	Text string `json:"text" validate:"required"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	leadID, ok := s.leadID(w, r)
	if !ok {
		return
	}
	var req matchRequest
	if !decode(w, r, &req) {
		return
	}

	lead, err := s.Leads.Get(r.Context(), leadID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	proposed, err := s.Conv.Proposals(r.Context(), leadID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	m, matched := slots.MatchSlot(req.Text, proposed, lead.Location(), s.Tokens)
	if !matched {
		writeJSON(w, http.StatusOK, map[string]any{"matched": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"matched": true,
		"slot":    m.Slot,
		"reason":  m.Reason,
	})
}

type confirmRequest struct {
	SlotID  string `json:"slotId" validate:"required"`
	QuoteID int64  `json:"quoteId"`
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	leadID, ok := s.leadID(w, r)
	if !ok {
		return
	}
	var req confirmRequest
	if !decode(w, r, &req) {
		return
	}

	proposed, err := s.Conv.Proposals(r.Context(), leadID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var chosen *slots.Slot
	for i := range proposed {
		if proposed[i].ID == req.SlotID {
			chosen = &proposed[i]
			break
		}
	}
	if chosen == nil {
		writeError(w, http.StatusNotFound, "unknown slot id; re-generate slots")
		return
	}

	job, err := s.Book.ConfirmSlot(r.Context(), leadID, *chosen, req.QuoteID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job": map[string]any{
			"id":          job.ID,
			"leadId":      job.LeadID,
			"quoteId":     job.QuoteID,
			"windowStart": job.WindowStart.UTC().Format(time.RFC3339),
			"windowEnd":   job.WindowEnd.UTC().Format(time.RFC3339),
			"status":      job.Status,
		},
	})
}

func (s *Server) leadID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid lead id")
		return 0, false
	}
	return id, true
}

// writeDomainError maps domain failures to conversational responses; raw
// internals never reach the caller.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case db.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, booking.ErrConflict):
		writeError(w, http.StatusConflict, "that window just filled, try another")
	default:
		s.logger().Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong, try again shortly")
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	slog.Info("listening", "addr", addr)
	return srv.ListenAndServe()
}
