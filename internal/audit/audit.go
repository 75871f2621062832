package audit

import (
	"context"
	"time"

	"github.com/example/pickup-scheduler/internal/db"
	"github.com/google/uuid"
)

// Event kinds written by the scheduling core.
const (
	KindJobBooked        = "job_booked"
	KindJobCancelled     = "job_cancelled"
	KindJobRescheduled   = "job_rescheduled"
	KindReminderSent     = "reminder_sent"
	KindEmailFailed      = "email_failed"
	KindChatFailed       = "chat_failed"
	KindCalendarDegraded = "calendar_degraded"
)

type Entry struct {
	ID        int64
	LeadID    int64
	JobID     *uuid.UUID
	Kind      string
	Detail    string
	CreatedAt time.Time
}

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

func (r *Repo) Record(ctx context.Context, leadID int64, jobID *uuid.UUID, kind, detail string) error {
	return r.db.Exec(ctx, `
INSERT INTO audit_log(lead_id, job_id, kind, detail) VALUES ($1,$2,$3,$4)`,
		leadID, jobID, kind, detail)
}

func (r *Repo) ListByLead(ctx context.Context, leadID int64, limit int) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `
SELECT id,lead_id,job_id,kind,detail,created_at
FROM audit_log WHERE lead_id=$1
ORDER BY created_at DESC
LIMIT $2`, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.LeadID, &e.JobID, &e.Kind, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
