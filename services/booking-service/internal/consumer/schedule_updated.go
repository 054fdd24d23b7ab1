package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// Invalidator drops cached schedule data for an expert.
type Invalidator interface {
	Invalidate(ctx context.Context, ownerID string) error
}

// ScheduleUpdated returns a handler that evicts the cached schedule named in
// a schedule-updated event. The message key carries the owner id; the
// payload's owner_id is used when the key is empty.
func ScheduleUpdated(cache Invalidator, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		ownerID := string(msg.Key)
		if ownerID == "" {
			var payload struct {
				OwnerID string `json:"owner_id"`
			}
			if err := json.Unmarshal(msg.Value, &payload); err != nil {
				logger.Error("invalid schedule event payload", "err", err, "topic", msg.Topic)
				return nil
			}
			ownerID = payload.OwnerID
		}
		if ownerID == "" {
			logger.Error("schedule event without owner", "topic", msg.Topic)
			return nil
		}
		if err := cache.Invalidate(ctx, ownerID); err != nil {
			return err
		}
		logger.Debug("schedule cache invalidated", "owner_id", ownerID)
		return nil
	}
}
