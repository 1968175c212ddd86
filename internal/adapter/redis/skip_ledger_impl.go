package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/election-scraper/internal/entity"
)

const (
	skippedKeyPrefix = "skipped:"
	defaultLedgerTTL = 7 * 24 * time.Hour
)

// SkipLedgerImpl provides a concrete implementation for the SkipLedgerRepository
// interface using one Redis hash per run, keyed by municipality code.
type SkipLedgerImpl struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSkipLedger creates a new instance of SkipLedgerImpl. Entries expire after
// ttl, or after a week when ttl is zero.
func NewSkipLedger(client *redis.Client, ttl time.Duration) *SkipLedgerImpl {
	if ttl <= 0 {
		ttl = defaultLedgerTTL
	}
	return &SkipLedgerImpl{client: client, ttl: ttl}
}

// generateKey creates the Redis key of a run's ledger.
func generateKey(runID string) string {
	return skippedKeyPrefix + runID
}

// Record stores a skipped entity and refreshes the expiry of the run's ledger.
func (r *SkipLedgerImpl) Record(ctx context.Context, runID string, skipped entity.SkippedEntity) error {
	payload, err := json.Marshal(skipped)
	if err != nil {
		return fmt.Errorf("failed to serialize skipped entity: %w", err)
	}

	key := generateKey(runID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, skipped.Code, payload)
	pipe.Expire(ctx, key, r.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// List returns the skipped entities of a run ordered by code. An unknown run
// yields an empty list.
func (r *SkipLedgerImpl) List(ctx context.Context, runID string) ([]entity.SkippedEntity, error) {
	fields, err := r.client.HGetAll(ctx, generateKey(runID)).Result()
	if err != nil {
		return nil, err
	}
	return decodeLedger(fields)
}

func decodeLedger(fields map[string]string) ([]entity.SkippedEntity, error) {
	out := make([]entity.SkippedEntity, 0, len(fields))
	for code, raw := range fields {
		var s entity.SkippedEntity
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, fmt.Errorf("corrupt ledger entry %s: %w", code, err)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
