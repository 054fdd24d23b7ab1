package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/elevacare/libs/schedule"
	"github.com/md-rashed-zaman/elevacare/libs/schedulingv1"
	"github.com/redis/go-redis/v9"
)

const DefaultCacheTTL = 5 * time.Minute

// CachedProvider is a read-through Redis cache in front of another Provider.
// Experts without a schedule are cached too (as JSON null). Redis errors
// fall back to the upstream provider.
type CachedProvider struct {
	next   Provider
	redis  redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedProvider(next Provider, client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedProvider{next: next, redis: client, ttl: ttl, logger: logger}
}

func scheduleKey(ownerID string) string { return fmt.Sprintf("schedule:%s", ownerID) }
func eventKey(eventID string) string    { return fmt.Sprintf("event:%s", eventID) }

func (c *CachedProvider) GetSchedule(ctx context.Context, ownerID string) (*schedule.Schedule, error) {
	data, err := c.redis.Get(ctx, scheduleKey(ownerID)).Bytes()
	if err == nil {
		var s *schedule.Schedule
		if err := json.Unmarshal(data, &s); err == nil {
			return s, nil
		}
		c.logger.Warn("discarding corrupt cached schedule", "owner_id", ownerID)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("schedule cache read failed", "owner_id", ownerID, "err", err)
	}

	s, err := c.next.GetSchedule(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, scheduleKey(ownerID), s)
	return s, nil
}

func (c *CachedProvider) GetEvent(ctx context.Context, eventID string) (schedulingv1.Event, error) {
	data, err := c.redis.Get(ctx, eventKey(eventID)).Bytes()
	if err == nil {
		var evt schedulingv1.Event
		if err := json.Unmarshal(data, &evt); err == nil {
			return evt, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("event cache read failed", "event_id", eventID, "err", err)
	}

	evt, err := c.next.GetEvent(ctx, eventID)
	if err != nil {
		return schedulingv1.Event{}, err
	}
	c.store(ctx, eventKey(eventID), evt)
	return evt, nil
}

// Invalidate drops the cached schedule of ownerID.
func (c *CachedProvider) Invalidate(ctx context.Context, ownerID string) error {
	return c.redis.Del(ctx, scheduleKey(ownerID)).Err()
}

func (c *CachedProvider) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "err", err)
	}
}
