package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"chatsphere/internal/config"
	"chatsphere/internal/domain"
)

// Cache key patterns:
// - history:{conversation_id} - full window snapshot, refreshed on every write
// - lastseen:{user_id} - RFC3339 stamp of the last offline transition

// HistoryCache stores conversation snapshots and last-seen stamps in Redis so
// a restarted daemon can show something while the remote service is down.
type HistoryCache struct {
	client *goredis.Client
	cfg    config.Redis
}

func NewHistoryCache(client *goredis.Client, cfg config.Redis) *HistoryCache {
	return &HistoryCache{client: client, cfg: cfg}
}

// Connect dials Redis with the configured address and verifies the
// connection. Returns nil when no address is configured; callers treat a nil
// cache as disabled.
func Connect(ctx context.Context, cfg config.Redis) (*HistoryCache, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return NewHistoryCache(client, cfg), nil
}

// GetHistory retrieves a cached window. A miss returns an empty slice and no
// error.
func (c *HistoryCache) GetHistory(ctx context.Context, conversationID string) ([]domain.Message, error) {
	key := fmt.Sprintf("history:%s", conversationID)
	data, err := c.client.Get(ctx, key).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var msgs []domain.Message
	if err := json.Unmarshal([]byte(data), &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SetHistory replaces the cached window for a conversation.
func (c *HistoryCache) SetHistory(ctx context.Context, conversationID string, msgs []domain.Message) error {
	key := fmt.Sprintf("history:%s", conversationID)
	data, err := json.Marshal(msgs)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.cfg.HistoryTTL).Err()
}

// GetLastSeen retrieves the persisted last-seen stamp for a user. The bool
// reports whether a stamp existed.
func (c *HistoryCache) GetLastSeen(ctx context.Context, userID string) (time.Time, bool, error) {
	key := fmt.Sprintf("lastseen:%s", userID)
	data, err := c.client.Get(ctx, key).Result()
	if err == goredis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	ts, err := time.Parse(time.RFC3339Nano, data)
	if err != nil {
		return time.Time{}, false, err
	}
	return ts, true, nil
}

// SetLastSeen persists the stamp taken when a user left the roster.
func (c *HistoryCache) SetLastSeen(ctx context.Context, userID string, ts time.Time) error {
	key := fmt.Sprintf("lastseen:%s", userID)
	return c.client.Set(ctx, key, ts.Format(time.RFC3339Nano), c.cfg.LastSeenTTL).Err()
}

// Ping checks if Redis is available.
func (c *HistoryCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *HistoryCache) Close() error {
	return c.client.Close()
}
