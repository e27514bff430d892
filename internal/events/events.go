// Package events broadcasts content-change notifications over Redis
// pub/sub so the marketing site and any open admin panels can refresh
// without polling. Publishing is best-effort: a dropped notification is a
// stale page, not a lost mutation.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// channelPrefix namespaces the pub/sub channels, one per table.
const channelPrefix = "civitas:changes:"

// Change describes one committed mutation.
type Change struct {
	Table    string    `json:"table"`
	Action   string    `json:"action"`
	RecordID string    `json:"record_id"`
	At       time.Time `json:"at"`
}

// Publisher is the change notification sink used by entity services.
type Publisher interface {
	Publish(ctx context.Context, change Change)
}

// RedisPublisher publishes changes on "civitas:changes:<table>".
type RedisPublisher struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewRedisPublisher creates a change publisher backed by Redis pub/sub.
func NewRedisPublisher(rdb *redis.Client, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, logger: logger.With("component", "events")}
}

// Publish sends the change. Failures are logged and swallowed.
func (p *RedisPublisher) Publish(ctx context.Context, change Change) {
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}

	payload, err := json.Marshal(change)
	if err != nil {
		p.logger.Warn("encoding change notification failed", "table", change.Table, "error", err)
		return
	}

	if err := p.rdb.Publish(ctx, channelPrefix+change.Table, payload).Err(); err != nil {
		p.logger.Warn("publishing change notification failed",
			"table", change.Table, "record_id", change.RecordID, "error", err)
	}
}

// NopPublisher discards all changes. Used in tests and when Redis is
// unavailable.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, change Change) {}
