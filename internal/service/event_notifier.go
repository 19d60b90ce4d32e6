package service

import (
	"context"

	"docrag-be/internal/pkg/logger"
	"docrag-be/pkg/events"
)

// eventNotifier publishes best-effort domain events. A nil publisher disables it.
type eventNotifier struct {
	publisher events.Publisher
	logger    logger.ILogger
}

func newEventNotifier(publisher events.Publisher, log logger.ILogger) *eventNotifier {
	return &eventNotifier{publisher: publisher, logger: log}
}

func (n *eventNotifier) notify(ctx context.Context, eventType string, data map[string]interface{}) {
	if n == nil || n.publisher == nil {
		return
	}
	if err := n.publisher.Publish(ctx, events.New(eventType, data)); err != nil {
		n.logger.Warn("events", "Failed to publish event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}
