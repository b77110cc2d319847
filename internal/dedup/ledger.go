// Package dedup tracks which provider message ids have already been
// ingested. Redis gives a fast advisory check; the unique constraint on
// messages.provider_message_id remains the source of truth, so losing the
// redis keys only costs a database round trip, never correctness.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultTTL is how long a seen message id stays cached. The mail
	// provider stops redelivering a notification long before this.
	DefaultTTL = 24 * time.Hour

	keyPrefix = "support-agent:seen:"
)

// MessageIndex is the durable view over persisted message ids.
type MessageIndex interface {
	ExistsByProviderID(ctx context.Context, providerID string) (bool, error)
}

// Ledger answers whether a provider message id was processed before.
type Ledger struct {
	rdb      *redis.Client
	messages MessageIndex
	logger   *zap.Logger
	ttl      time.Duration
}

// NewLedger creates a ledger over the message index with an optional
// redis fast path (rdb may be nil).
func NewLedger(rdb *redis.Client, messages MessageIndex, logger *zap.Logger) *Ledger {
	return &Ledger{
		rdb:      rdb,
		messages: messages,
		logger:   logger,
		ttl:      DefaultTTL,
	}
}

// IsDuplicate reports whether providerID was already ingested. The redis
// hit is advisory; a miss falls through to the persisted index.
func (l *Ledger) IsDuplicate(ctx context.Context, providerID string) (bool, error) {
	if l.rdb != nil {
		n, err := l.rdb.Exists(ctx, key(providerID)).Result()
		if err != nil {
			l.logger.Warn("dedup cache lookup failed, falling back to store", zap.Error(err))
		} else if n > 0 {
			return true, nil
		}
	}

	exists, err := l.messages.ExistsByProviderID(ctx, providerID)
	if err != nil {
		return false, fmt.Errorf("dedup index lookup: %w", err)
	}
	if exists {
		l.markSeenCache(ctx, providerID)
	}
	return exists, nil
}

// MarkSeen records providerID in the fast path after a successful ingest.
// It is deliberately not called before the insert commits, so a failed
// ingest can be retried by the push source.
func (l *Ledger) MarkSeen(ctx context.Context, providerID string) {
	l.markSeenCache(ctx, providerID)
}

func (l *Ledger) markSeenCache(ctx context.Context, providerID string) {
	if l.rdb == nil {
		return
	}
	if err := l.rdb.SetNX(ctx, key(providerID), 1, l.ttl).Err(); err != nil {
		l.logger.Warn("dedup cache write failed", zap.Error(err))
	}
}

func key(providerID string) string {
	return keyPrefix + providerID
}
