package calendar

import (
	"context"

	"github.com/example/pickup-scheduler/internal/db"
)

// SyncStateRepo stores one sync cursor per calendar. A missing row and a
// cleared cursor both mean "full window scan next pass".
type SyncStateRepo struct{ db *db.DB }

func NewSyncStateRepo(d *db.DB) *SyncStateRepo { return &SyncStateRepo{db: d} }

func (r *SyncStateRepo) Token(ctx context.Context, calendarID string) (string, error) {
	var token *string
	err := r.db.QueryRow(ctx,
		`SELECT sync_token FROM calendar_sync_state WHERE calendar_id=$1`, calendarID).Scan(&token)
	if err != nil {
		if db.IsNotFound(db.WrapNotFound(err)) {
			return "", nil
		}
		return "", db.WrapNotFound(err)
	}
	if token == nil {
		return "", nil
	}
	return *token, nil
}

func (r *SyncStateRepo) SetToken(ctx context.Context, calendarID, token string) error {
	return r.db.Exec(ctx, `
INSERT INTO calendar_sync_state(calendar_id, sync_token, updated_at)
VALUES ($1,$2,now())
ON CONFLICT (calendar_id) DO UPDATE SET sync_token=EXCLUDED.sync_token, updated_at=now()`,
		calendarID, token)
}

func (r *SyncStateRepo) ClearToken(ctx context.Context, calendarID string) error {
	return r.db.Exec(ctx,
		`UPDATE calendar_sync_state SET sync_token=NULL, updated_at=now() WHERE calendar_id=$1`, calendarID)
}
