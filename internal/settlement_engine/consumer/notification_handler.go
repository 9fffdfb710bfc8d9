package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/todaysales-settlement/internal/domain/shared"
	"github.com/todaysales-settlement/internal/platform/messaging/headers"
)

// NotificationHandler delivers operator notifications to the log.
type NotificationHandler struct {
	logger *slog.Logger
}

func NewNotificationHandler(logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{logger: logger}
}

func (h *NotificationHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	if eventType := headers.Get(msg.Headers, headers.EventType); eventType != shared.EventTypeNotification {
		return Poison("unexpected event type %q on notification queue", eventType)
	}

	var n shared.NotificationEvent
	if err := json.Unmarshal(msg.Value, &n); err != nil {
		return Poison("failed to decode notification: %v", err)
	}

	h.logger.Log(ctx, severityLevel(n.Severity), n.Subject,
		"severity", string(n.Severity),
		"message", n.Message,
		"settlement_date", n.SettlementDate,
	)
	return nil
}

func severityLevel(s shared.Severity) slog.Level {
	switch s {
	case shared.SeverityCritical:
		return slog.LevelError
	case shared.SeverityUrgent:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
