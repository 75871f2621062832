// Package convstate holds a lead's conversation working state: the slots
// most recently proposed to them and any pending confirmation. The blob is
// versioned and strongly typed so its shape cannot drift silently between
// releases. Reads and writes are last-write-wins; two concurrent messages
// from the same lead can race and that is accepted.
package convstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/pickup-scheduler/internal/slots"
	"github.com/redis/go-redis/v9"
)

// Version is bumped whenever WorkingState changes shape incompatibly; stale
// blobs are discarded rather than misread.
const Version = 1

const defaultTTL = 7 * 24 * time.Hour

type WorkingState struct {
	Version        int          `json:"version"`
	ProposedSlots  []slots.Slot `json:"proposedSlots,omitempty"`
	PendingQuoteID *int64       `json:"pendingQuoteId,omitempty"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb, ttl: defaultTTL}
}

func key(leadID int64) string {
	return fmt.Sprintf("convstate:%d", leadID)
}

// Load returns the lead's working state, or an empty state when none is
// stored or the stored blob is from an incompatible version.
func (s *Store) Load(ctx context.Context, leadID int64) (WorkingState, error) {
	b, err := s.rdb.Get(ctx, key(leadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return WorkingState{Version: Version}, nil
	}
	if err != nil {
		return WorkingState{}, fmt.Errorf("convstate load: %w", err)
	}
	var ws WorkingState
	if err := json.Unmarshal(b, &ws); err != nil || ws.Version != Version {
		return WorkingState{Version: Version}, nil
	}
	return ws, nil
}

func (s *Store) Save(ctx context.Context, leadID int64, ws WorkingState) error {
	ws.Version = Version
	ws.UpdatedAt = time.Now().UTC()
	b, err := json.Marshal(ws)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, key(leadID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("convstate save: %w", err)
	}
	return nil
}

// SaveProposals supersedes the lead's proposed set wholesale.
func (s *Store) SaveProposals(ctx context.Context, leadID int64, proposed []slots.Slot) error {
	ws, err := s.Load(ctx, leadID)
	if err != nil {
		return err
	}
	ws.ProposedSlots = proposed
	return s.Save(ctx, leadID, ws)
}

func (s *Store) Proposals(ctx context.Context, leadID int64) ([]slots.Slot, error) {
	ws, err := s.Load(ctx, leadID)
	if err != nil {
		return nil, err
	}
	return ws.ProposedSlots, nil
}

func (s *Store) Clear(ctx context.Context, leadID int64) error {
	return s.rdb.Del(ctx, key(leadID)).Err()
}
