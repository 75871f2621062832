package leads

import (
	"context"
	"time"

	"github.com/example/pickup-scheduler/internal/db"
)

// Lead stages advance monotonically as the conversation progresses.
const (
	StageNew       = "new"
	StageQuoted    = "quoted"
	StageBooked    = "booked"
	StageReminding = "reminding"
	StageDone      = "done"
)

type Lead struct {
	ID         int64
	Name       string
	Phone      string
	Email      string
	Channel    string
	ChatHandle string
	Stage      string
	Timezone   string

	// Load characteristics captured during intake; drive duration estimates.
	VolumeCuYd      float64
	HeavyItems      bool
	FlightsOfStairs int
	CarryDistanceM  int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Location resolves the lead's timezone, falling back to UTC on a bad value.
func (l Lead) Location() *time.Location {
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type Quote struct {
	ID          int64
	LeadID      int64
	AmountCents int64
	CreatedAt   time.Time
}

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

func (r *Repo) Get(ctx context.Context, id int64) (Lead, error) {
	var l Lead
	err := r.db.QueryRow(ctx, `
SELECT id,name,phone,email,channel,chat_handle,stage,timezone,
       volume_cuyd,heavy_items,flights_of_stairs,carry_distance_m,created_at,updated_at
FROM leads WHERE id=$1`, id).
		Scan(&l.ID, &l.Name, &l.Phone, &l.Email, &l.Channel, &l.ChatHandle, &l.Stage, &l.Timezone,
			&l.VolumeCuYd, &l.HeavyItems, &l.FlightsOfStairs, &l.CarryDistanceM, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return Lead{}, db.WrapNotFound(err)
	}
	return l, nil
}

func (r *Repo) SetStage(ctx context.Context, id int64, stage string) error {
	return r.db.Exec(ctx, `UPDATE leads SET stage=$2, updated_at=now() WHERE id=$1`, id, stage)
}

func (r *Repo) GetQuote(ctx context.Context, id int64) (Quote, error) {
	var q Quote
	err := r.db.QueryRow(ctx, `
SELECT id,lead_id,amount_cents,created_at FROM quotes WHERE id=$1`, id).
		Scan(&q.ID, &q.LeadID, &q.AmountCents, &q.CreatedAt)
	if err != nil {
		return Quote{}, db.WrapNotFound(err)
	}
	return q, nil
}

// LatestQuote returns the most recent quote for a lead.
func (r *Repo) LatestQuote(ctx context.Context, leadID int64) (Quote, error) {
	var q Quote
	err := r.db.QueryRow(ctx, `
SELECT id,lead_id,amount_cents,created_at
FROM quotes WHERE lead_id=$1
ORDER BY created_at DESC, id DESC
LIMIT 1`, leadID).
		Scan(&q.ID, &q.LeadID, &q.AmountCents, &q.CreatedAt)
	if err != nil {
		return Quote{}, db.WrapNotFound(err)
	}
	return q, nil
}
