package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/example/pickup-scheduler/internal/db"
	"github.com/google/uuid"
)

const (
	StatusTentative = "tentative"
	StatusBooked    = "booked"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Job is the authoritative scheduled-pickup record. One job per quote.
// Once synced, window_start/window_end reflect the calendar's version of
// truth; the booking write is advisory until reconciliation confirms it.
type Job struct {
	ID      uuid.UUID
	LeadID  int64
	QuoteID int64

	WindowStart time.Time
	WindowEnd   time.Time
	Status      string

	ReminderScheduledAt *time.Time
	// ReminderSentAt is the single source of truth for "already reminded".
	ReminderSentAt *time.Time

	CalendarID   string
	EventID      string
	EventEtag    string
	EventICalUID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (j Job) Validate() error {
	if j.LeadID == 0 {
		return fmt.Errorf("lead_id required")
	}
	if j.QuoteID == 0 {
		return fmt.Errorf("quote_id required")
	}
	if !j.WindowEnd.After(j.WindowStart) {
		return fmt.Errorf("window_end must be after window_start")
	}
	return nil
}

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

const jobColumns = `id,lead_id,quote_id,window_start,window_end,status,
reminder_scheduled_at,reminder_sent_at,calendar_id,event_id,event_etag,event_ical_uid,
created_at,updated_at`

func scanJob(row db.Row) (Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.LeadID, &j.QuoteID, &j.WindowStart, &j.WindowEnd, &j.Status,
		&j.ReminderScheduledAt, &j.ReminderSentAt, &j.CalendarID, &j.EventID, &j.EventEtag, &j.EventICalUID,
		&j.CreatedAt, &j.UpdatedAt)
	return j, err
}

// UpsertByQuote creates or rebooks the job for a quote. The quote_id unique
// constraint guarantees confirming the same quote twice updates in place.
func (r *Repo) UpsertByQuote(ctx context.Context, j Job) (Job, error) {
	if err := j.Validate(); err != nil {
		return Job{}, err
	}
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	row := r.db.QueryRow(ctx, `
INSERT INTO jobs(id,lead_id,quote_id,window_start,window_end,status,reminder_scheduled_at,calendar_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (quote_id) DO UPDATE SET
    window_start=EXCLUDED.window_start,
    window_end=EXCLUDED.window_end,
    status=EXCLUDED.status,
    reminder_scheduled_at=EXCLUDED.reminder_scheduled_at,
    reminder_sent_at=NULL,
    calendar_id=EXCLUDED.calendar_id,
    updated_at=now()
RETURNING `+jobColumns,
		j.ID, j.LeadID, j.QuoteID, j.WindowStart, j.WindowEnd, j.Status, j.ReminderScheduledAt, j.CalendarID)
	out, err := scanJob(row)
	if err != nil {
		return Job{}, db.WrapNotFound(err)
	}
	return out, nil
}

func (r *Repo) Get(ctx context.Context, id uuid.UUID) (Job, error) {
	j, err := scanJob(r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id=$1`, id))
	if err != nil {
		return Job{}, db.WrapNotFound(err)
	}
	return j, nil
}

// GetByEventID looks a job up by its calendar event linkage.
func (r *Repo) GetByEventID(ctx context.Context, eventID string) (Job, error) {
	j, err := scanJob(r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE event_id=$1`, eventID))
	if err != nil {
		return Job{}, db.WrapNotFound(err)
	}
	return j, nil
}

func (r *Repo) List(ctx context.Context, limit int) ([]Job, error) {
	rows, err := r.db.Query(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY window_start ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// DueReminders selects booked jobs whose reminder is due and unsent.
func (r *Repo) DueReminders(ctx context.Context, now time.Time, limit int) ([]Job, error) {
	rows, err := r.db.Query(ctx, `
SELECT `+jobColumns+`
FROM jobs
WHERE status=$1 AND reminder_sent_at IS NULL AND reminder_scheduled_at <= $2
ORDER BY reminder_scheduled_at ASC
LIMIT $3`, StatusBooked, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *Repo) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.Exec(ctx, `UPDATE jobs SET reminder_sent_at=$2, updated_at=now() WHERE id=$1`, id, at)
}

// SetEventLink records the calendar artifact written for a job.
func (r *Repo) SetEventLink(ctx context.Context, id uuid.UUID, calendarID, eventID, etag, icalUID string) error {
	return r.db.Exec(ctx, `
UPDATE jobs SET calendar_id=$2, event_id=$3, event_etag=$4, event_ical_uid=$5, updated_at=now()
WHERE id=$1`, id, calendarID, eventID, etag, icalUID)
}

// UpdateWindow applies the calendar's window onto the job; a manual calendar
// edit overrides whatever scheduling decided.
func (r *Repo) UpdateWindow(ctx context.Context, id uuid.UUID, start, end time.Time, etag string) error {
	if !end.After(start) {
		return fmt.Errorf("window_end must be after window_start")
	}
	return r.db.Exec(ctx, `
UPDATE jobs SET window_start=$2, window_end=$3, event_etag=$4, updated_at=now()
WHERE id=$1`, id, start, end, etag)
}

func (r *Repo) Cancel(ctx context.Context, id uuid.UUID) error {
	return r.db.Exec(ctx, `UPDATE jobs SET status=$2, updated_at=now() WHERE id=$1`, id, StatusCancelled)
}
