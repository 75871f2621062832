// Package booking turns a chosen slot into a persisted job, guarding
// against the window having filled between proposal and confirmation.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/pickup-scheduler/internal/audit"
	"github.com/example/pickup-scheduler/internal/calendar"
	"github.com/example/pickup-scheduler/internal/jobs"
	"github.com/example/pickup-scheduler/internal/leads"
	"github.com/example/pickup-scheduler/internal/notify"
	"github.com/example/pickup-scheduler/internal/slots"
	"github.com/google/uuid"
)

// ErrConflict means the window is no longer free at confirmation time.
// No state was written; the caller must re-offer alternatives.
var ErrConflict = errors.New("slot no longer available")

type LeadStore interface {
	Get(ctx context.Context, id int64) (leads.Lead, error)
	SetStage(ctx context.Context, id int64, stage string) error
	GetQuote(ctx context.Context, id int64) (leads.Quote, error)
	LatestQuote(ctx context.Context, leadID int64) (leads.Quote, error)
}

type JobStore interface {
	UpsertByQuote(ctx context.Context, j jobs.Job) (jobs.Job, error)
	SetEventLink(ctx context.Context, id uuid.UUID, calendarID, eventID, etag, icalUID string) error
}

type Auditor interface {
	Record(ctx context.Context, leadID int64, jobID *uuid.UUID, kind, detail string) error
}

// Coordinator confirms slots into jobs. Cal, Chat, and Mail are optional;
// absent collaborators skip their side effect.
type Coordinator struct {
	Leads LeadStore
	Jobs  JobStore
	Audit Auditor

	Cal        calendar.Provider
	CalendarID string

	Chat notify.Sender
	Mail notify.Sender

	// ReminderLead is how far before the window the reminder fires.
	ReminderLead time.Duration

	Log *slog.Logger
	Now func() time.Time
}

func (c *Coordinator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Coordinator) logger() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}

// ConfirmSlot books the chosen slot for the lead's quote. quoteID 0 means
// the most recent quote. Confirming the same quote again updates the
// existing job rather than creating a second one.
//
// The free/busy recheck and the job write are not atomic with the provider's
// own event create; two truly concurrent confirmations for overlapping
// windows can still double-book if the provider read and write are not
// atomic. Known race, surfaced rather than patched.
func (c *Coordinator) ConfirmSlot(ctx context.Context, leadID int64, slot slots.Slot, quoteID int64) (jobs.Job, error) {
	lead, err := c.Leads.Get(ctx, leadID)
	if err != nil {
		return jobs.Job{}, fmt.Errorf("lead %d: %w", leadID, err)
	}

	quote, err := c.resolveQuote(ctx, leadID, quoteID)
	if err != nil {
		return jobs.Job{}, err
	}

	if c.Cal != nil {
		if err := c.recheck(ctx, leadID, slot); err != nil {
			return jobs.Job{}, err
		}
	}

	reminderLead := c.ReminderLead
	if reminderLead <= 0 {
		reminderLead = 24 * time.Hour
	}
	remindAt := slot.Start.Add(-reminderLead)

	job, err := c.Jobs.UpsertByQuote(ctx, jobs.Job{
		LeadID:              leadID,
		QuoteID:             quote.ID,
		WindowStart:         slot.Start,
		WindowEnd:           slot.End,
		Status:              jobs.StatusBooked,
		ReminderScheduledAt: &remindAt,
		CalendarID:          c.CalendarID,
	})
	if err != nil {
		return jobs.Job{}, fmt.Errorf("upsert job: %w", err)
	}

	// Side effects below are failure-isolated: the booking stands even when
	// any of them fail.
	c.placeHold(ctx, lead, &job)
	c.sendConfirmations(ctx, lead, job, slot)

	if err := c.Audit.Record(ctx, leadID, &job.ID, audit.KindJobBooked, slot.Label); err != nil {
		c.logger().Warn("audit write failed", "lead", leadID, "job", job.ID, "err", err)
	}
	if err := c.Leads.SetStage(ctx, leadID, leads.StageBooked); err != nil {
		c.logger().Warn("stage advance failed", "lead", leadID, "err", err)
	}

	return job, nil
}

func (c *Coordinator) resolveQuote(ctx context.Context, leadID, quoteID int64) (leads.Quote, error) {
	if quoteID != 0 {
		q, err := c.Leads.GetQuote(ctx, quoteID)
		if err != nil {
			return leads.Quote{}, fmt.Errorf("quote %d: %w", quoteID, err)
		}
		if q.LeadID != leadID {
			return leads.Quote{}, fmt.Errorf("quote %d: %w", quoteID, errQuoteMismatch)
		}
		return q, nil
	}
	q, err := c.Leads.LatestQuote(ctx, leadID)
	if err != nil {
		return leads.Quote{}, fmt.Errorf("latest quote for lead %d: %w", leadID, err)
	}
	return q, nil
}

var errQuoteMismatch = errors.New("quote belongs to a different lead")

// recheck closes the gap between proposal and confirmation: the slot was
// free when offered, possibly in a different message or conversation. A
// provider outage degrades to booking on the stale answer, with a warning.
func (c *Coordinator) recheck(ctx context.Context, leadID int64, slot slots.Slot) error {
	busy, err := c.Cal.FreeBusy(ctx, c.CalendarID, slot.Start, slot.End)
	if err != nil {
		c.logger().Warn("confirmation free/busy recheck failed, booking unverified",
			"lead", leadID, "err", err)
		if aerr := c.Audit.Record(ctx, leadID, nil, audit.KindCalendarDegraded, err.Error()); aerr != nil {
			c.logger().Warn("audit write failed", "lead", leadID, "err", aerr)
		}
		return nil
	}
	for _, b := range busy {
		if b.Overlaps(slot.Start, slot.End) {
			return fmt.Errorf("window %s: %w", slot.Label, ErrConflict)
		}
	}
	return nil
}

func (c *Coordinator) placeHold(ctx context.Context, lead leads.Lead, job *jobs.Job) {
	if c.Cal == nil {
		return
	}
	ev, err := c.Cal.UpsertEvent(ctx, c.CalendarID, calendar.Event{
		ID:      job.ID.String(),
		Status:  calendar.EventStatusConfirmed,
		Summary: fmt.Sprintf("Pickup: %s", lead.Name),
		Start:   job.WindowStart,
		End:     job.WindowEnd,
	})
	if err != nil {
		c.logger().Warn("calendar hold failed, job stands unlinked",
			"job", job.ID, "err", err)
		return
	}
	if err := c.Jobs.SetEventLink(ctx, job.ID, c.CalendarID, ev.ID, ev.Etag, ev.ICalUID); err != nil {
		c.logger().Warn("event link write failed", "job", job.ID, "err", err)
		return
	}
	job.EventID = ev.ID
	job.EventEtag = ev.Etag
	job.EventICalUID = ev.ICalUID
}

func (c *Coordinator) sendConfirmations(ctx context.Context, lead leads.Lead, job jobs.Job, slot slots.Slot) {
	text := fmt.Sprintf("You're booked! We'll be there %s. Reply here if anything changes.", slot.Label)

	if c.Chat != nil && lead.ChatHandle != "" {
		if err := c.Chat.Send(ctx, lead.ChatHandle, "", text); err != nil {
			c.logger().Warn("confirmation chat failed", "lead", lead.ID, "err", err)
			if aerr := c.Audit.Record(ctx, lead.ID, &job.ID, audit.KindChatFailed, err.Error()); aerr != nil {
				c.logger().Warn("audit write failed", "lead", lead.ID, "err", aerr)
			}
		}
	}

	if c.Mail != nil && lead.Email != "" {
		if err := c.Mail.Send(ctx, lead.Email, "Your pickup is booked", text); err != nil {
			c.logger().Warn("confirmation email failed", "lead", lead.ID, "err", err)
			if aerr := c.Audit.Record(ctx, lead.ID, &job.ID, audit.KindEmailFailed, err.Error()); aerr != nil {
				c.logger().Warn("audit write failed", "lead", lead.ID, "err", aerr)
			}
		}
	}
}
