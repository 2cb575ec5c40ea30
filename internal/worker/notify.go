package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"resumate/internal/tasks"
)

// Archive notification statuses.
const (
	NotifyCompleted = "completed"
	NotifyError     = "error"
)

// ArchiveNotifyMessage is relayed to the user's websocket through redis pub/sub.
type ArchiveNotifyMessage struct {
	Status        string `json:"status"`
	ResumeID      uint   `json:"resumeId"`
	CorrelationID string `json:"correlationId"`
	ErrorCode     int    `json:"errorCode"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
}

// Publisher is the part of the redis client used for notifications.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

func publishNotify(ctx context.Context, pub Publisher, userID uint, notify ArchiveNotifyMessage) error {
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := tasks.NotifyChannel(userID)
	if err := pub.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}
