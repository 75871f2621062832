package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/pickup-scheduler/internal/audit"
	"github.com/example/pickup-scheduler/internal/calendar"
	"github.com/example/pickup-scheduler/internal/db"
	"github.com/example/pickup-scheduler/internal/jobs"
	"github.com/google/uuid"
)

// defaultEventLength fills in a missing event end.
const defaultEventLength = 90 * time.Minute

type ReconcileJobStore interface {
	GetByEventID(ctx context.Context, eventID string) (jobs.Job, error)
	UpdateWindow(ctx context.Context, id uuid.UUID, start, end time.Time, etag string) error
	Cancel(ctx context.Context, id uuid.UUID) error
}

type SyncStateStore interface {
	Token(ctx context.Context, calendarID string) (string, error)
	SetToken(ctx context.Context, calendarID, token string) error
	ClearToken(ctx context.Context, calendarID string) error
}

// Reconciler pulls external calendar changes back onto jobs, so a manual
// calendar edit or cancellation overrides what booking wrote. The calendar
// is the version of truth for a job's window once synced.
type Reconciler struct {
	Cal        calendar.Provider
	CalendarID string
	Sync       SyncStateStore
	Jobs       ReconcileJobStore
	Audit      Auditor

	// Window scanned when no sync cursor is stored.
	LookBack  time.Duration
	LookAhead time.Duration

	Log *slog.Logger
	Now func() time.Time
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Reconciler) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}

func NewReconcilerPoller(r *Reconciler, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return NewPoller("calendar-reconcile", interval, r.Log, r.Tick)
}

// Tick runs one reconciliation pass. Any failure aborts only this pass; the
// next tick starts over from the stored cursor.
func (r *Reconciler) Tick(ctx context.Context) {
	if err := r.reconcile(ctx, true); err != nil {
		r.logger().Error("reconciliation pass aborted", "calendar", r.CalendarID, "err", err)
	}
}

// reconcile traverses the full changeset before persisting the new cursor:
// a crash mid-page cannot advance the cursor past unapplied pages, and
// re-applying seen pages is safe because event application is idempotent.
// An expired cursor is cleared and retried exactly once as a full-window
// scan, never in a loop.
func (r *Reconciler) reconcile(ctx context.Context, retryOnExpiry bool) error {
	token, err := r.Sync.Token(ctx, r.CalendarID)
	if err != nil {
		return fmt.Errorf("sync state: %w", err)
	}

	q := calendar.ChangeQuery{SyncToken: token}
	if token == "" {
		now := r.now()
		q.From = now.Add(-r.lookBack())
		q.To = now.Add(r.lookAhead())
	}

	var nextToken string
	for {
		page, err := r.Cal.Changes(ctx, r.CalendarID, q)
		if errors.Is(err, calendar.ErrCursorExpired) {
			if cerr := r.Sync.ClearToken(ctx, r.CalendarID); cerr != nil {
				return fmt.Errorf("clear expired cursor: %w", cerr)
			}
			if !retryOnExpiry {
				return err
			}
			r.logger().Warn("sync cursor expired, full resync", "calendar", r.CalendarID)
			return r.reconcile(ctx, false)
		}
		if err != nil {
			return fmt.Errorf("list changes: %w", err)
		}

		for _, ev := range page.Events {
			if err := r.apply(ctx, ev); err != nil {
				return fmt.Errorf("apply event %s: %w", ev.ID, err)
			}
		}

		if page.NextPageToken == "" {
			nextToken = page.NextSyncToken
			break
		}
		q.PageToken = page.NextPageToken
	}

	if nextToken != "" {
		if err := r.Sync.SetToken(ctx, r.CalendarID, nextToken); err != nil {
			return fmt.Errorf("persist cursor: %w", err)
		}
	}
	return nil
}

// apply maps one external event onto its job. Events without a matching job
// (someone else's calendar entries) are skipped. Application is idempotent:
// the same event twice yields the same job state.
func (r *Reconciler) apply(ctx context.Context, ev calendar.Event) error {
	job, err := r.Jobs.GetByEventID(ctx, ev.ID)
	if db.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if ev.Status == calendar.EventStatusCancelled {
		if job.Status == jobs.StatusCancelled {
			return nil
		}
		if err := r.Jobs.Cancel(ctx, job.ID); err != nil {
			return err
		}
		if err := r.Audit.Record(ctx, job.LeadID, &job.ID, audit.KindJobCancelled, "cancelled on calendar"); err != nil {
			r.logger().Warn("audit write failed", "job", job.ID, "err", err)
		}
		return nil
	}

	start := ev.Start
	end := ev.End
	if end.IsZero() {
		end = start.Add(defaultEventLength)
	}
	if job.WindowStart.Equal(start) && job.WindowEnd.Equal(end) {
		return nil
	}
	if err := r.Jobs.UpdateWindow(ctx, job.ID, start, end, ev.Etag); err != nil {
		return err
	}
	detail := fmt.Sprintf("calendar moved window to %s – %s",
		start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
	if err := r.Audit.Record(ctx, job.LeadID, &job.ID, audit.KindJobRescheduled, detail); err != nil {
		r.logger().Warn("audit write failed", "job", job.ID, "err", err)
	}
	return nil
}

func (r *Reconciler) lookBack() time.Duration {
	if r.LookBack > 0 {
		return r.LookBack
	}
	return 30 * 24 * time.Hour
}

func (r *Reconciler) lookAhead() time.Duration {
	if r.LookAhead > 0 {
		return r.LookAhead
	}
	return 90 * 24 * time.Hour
}
