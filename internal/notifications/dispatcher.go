package notifications

import (
	"context"

	"ticketly/pkg/logger"
)

// Dispatcher hands notification intents to whatever transports them.
type Dispatcher interface {
	Dispatch(ctx context.Context, intent *Intent) error
	Close() error
}

// LogDispatcher writes intents to the structured log. Used when Kafka is
// disabled and in development.
type LogDispatcher struct {
	log *logger.Logger
}

func NewLogDispatcher(log *logger.Logger) *LogDispatcher {
	if log == nil {
		log = logger.GetDefault()
	}
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, intent *Intent) error {
	d.log.Info("notification intent dispatched",
		"intent_id", intent.ID.String(),
		"type", string(intent.Type),
		"user_id", intent.UserID.String(),
		"event_id", intent.EventID.String(),
		"quantity", intent.Quantity,
	)
	return nil
}

func (d *LogDispatcher) Close() error { return nil }
