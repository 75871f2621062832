package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/pickup-scheduler/internal/audit"
	"github.com/example/pickup-scheduler/internal/jobs"
	"github.com/example/pickup-scheduler/internal/leads"
	"github.com/example/pickup-scheduler/internal/notify"
	"github.com/example/pickup-scheduler/internal/slots"
	"github.com/google/uuid"
)

const reminderBatch = 25

type ReminderJobStore interface {
	DueReminders(ctx context.Context, now time.Time, limit int) ([]jobs.Job, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error
}

type ReminderLeadStore interface {
	Get(ctx context.Context, id int64) (leads.Lead, error)
	SetStage(ctx context.Context, id int64, stage string) error
}

type Auditor interface {
	Record(ctx context.Context, leadID int64, jobID *uuid.UUID, kind, detail string) error
}

// Reminder dispatches pre-arrival reminders for due jobs. reminder_sent_at
// is the sole idempotency guard: a job is reminded at most once, and a
// crash between send and mark is an accepted at-most-once risk.
type Reminder struct {
	Jobs  ReminderJobStore
	Leads ReminderLeadStore
	Audit Auditor
	Chat  notify.Sender
	Mail  notify.Sender

	Log *slog.Logger
	Now func() time.Time
}

func (r *Reminder) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Reminder) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}

// NewReminderPoller wraps the dispatcher in a 60s-style interval poller.
func NewReminderPoller(r *Reminder, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	return NewPoller("reminder", interval, r.Log, r.Tick)
}

// Tick dispatches every due reminder. Per-job failures are logged and the
// poller simply continues next tick.
func (r *Reminder) Tick(ctx context.Context) {
	due, err := r.Jobs.DueReminders(ctx, r.now(), reminderBatch)
	if err != nil {
		r.logger().Error("due reminders query failed", "err", err)
		return
	}
	for _, j := range due {
		if err := r.remind(ctx, j); err != nil {
			r.logger().Error("reminder dispatch failed", "job", j.ID, "err", err)
		}
	}
}

func (r *Reminder) remind(ctx context.Context, j jobs.Job) error {
	lead, err := r.Leads.Get(ctx, j.LeadID)
	if err != nil {
		return fmt.Errorf("lead %d: %w", j.LeadID, err)
	}

	loc := lead.Location()
	text := fmt.Sprintf("Reminder: your pickup is %s. See you then!",
		slots.Label(j.WindowStart, j.WindowEnd, loc))

	// Primary channel. No chat handle means we skip silently; a send error
	// leaves the job unmarked so the next tick retries.
	if r.Chat != nil && lead.ChatHandle != "" {
		if err := r.Chat.Send(ctx, lead.ChatHandle, "", text); err != nil {
			if aerr := r.Audit.Record(ctx, lead.ID, &j.ID, audit.KindChatFailed, err.Error()); aerr != nil {
				r.logger().Warn("audit write failed", "job", j.ID, "err", aerr)
			}
			return fmt.Errorf("chat reminder: %w", err)
		}
	}

	// Secondary email attempt, isolated from the reminder itself.
	if r.Mail != nil && lead.Email != "" {
		if err := r.Mail.Send(ctx, lead.Email, "Pickup reminder", text); err != nil {
			r.logger().Warn("email reminder failed", "job", j.ID, "err", err)
			if aerr := r.Audit.Record(ctx, lead.ID, &j.ID, audit.KindEmailFailed, err.Error()); aerr != nil {
				r.logger().Warn("audit write failed", "job", j.ID, "err", aerr)
			}
		}
	}

	if err := r.Jobs.MarkReminderSent(ctx, j.ID, r.now()); err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	if err := r.Audit.Record(ctx, lead.ID, &j.ID, audit.KindReminderSent, ""); err != nil {
		r.logger().Warn("audit write failed", "job", j.ID, "err", err)
	}
	if err := r.Leads.SetStage(ctx, lead.ID, leads.StageReminding); err != nil {
		r.logger().Warn("stage advance failed", "lead", lead.ID, "err", err)
	}
	return nil
}
