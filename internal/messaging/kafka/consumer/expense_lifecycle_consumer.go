package consumer

import (
	"context"
	"encoding/json"

	"go-expense/internal/events"
	"go-expense/internal/notification"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ExpenseLifecycleConsumer reads the lifecycle topic and projects events
// into notifications. Messages are committed only after the handler
// succeeds, so a crashed consumer replays rather than drops; notification
// inserts are keyed by fresh ids, so a replay at worst duplicates a
// notification, never loses one.
type ExpenseLifecycleConsumer struct {
	reader        *kafkago.Reader
	notifications notification.Service
	logger        *zap.Logger
}

func NewExpenseLifecycleConsumer(
	brokers []string,
	groupID string,
	notifications notification.Service,
	logger ...*zap.Logger,
) *ExpenseLifecycleConsumer {
	l := zap.L().Named("kafka.consumer.lifecycle")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("kafka.consumer.lifecycle")
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   events.ExpenseLifecycleTopic,
	})

	return &ExpenseLifecycleConsumer{
		reader:        reader,
		notifications: notifications,
		logger:        l,
	}
}

func (c *ExpenseLifecycleConsumer) Run(ctx context.Context) error {
	c.logger.Info("lifecycle consumer started", zap.String("topic", events.ExpenseLifecycleTopic))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("lifecycle consumer stopped")
				return nil
			}
			c.logger.Error("fetch message failed", zap.Error(err))
			return err
		}

		if err := c.handle(ctx, msg); err != nil {
			c.logger.Error("handle lifecycle event failed",
				zap.String("event_type", eventType(msg)),
				zap.Error(err),
			)
			// Leave uncommitted; the message is redelivered
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit message failed", zap.Error(err))
		}
	}
}

func (c *ExpenseLifecycleConsumer) Close() error {
	return c.reader.Close()
}

func (c *ExpenseLifecycleConsumer) handle(ctx context.Context, msg kafkago.Message) error {
	switch eventType(msg) {
	case events.EventTypeExpenseSubmitted:
		var evt events.ExpenseSubmittedEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			c.logger.Warn("dropping malformed submitted event", zap.Error(err))
			return nil
		}
		return c.notifications.HandleExpenseSubmitted(ctx, evt)

	case events.EventTypeExpenseDecided:
		var evt events.ExpenseDecidedEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			c.logger.Warn("dropping malformed decided event", zap.Error(err))
			return nil
		}
		return c.notifications.HandleExpenseDecided(ctx, evt)

	default:
		c.logger.Warn("ignoring unknown event type", zap.String("event_type", eventType(msg)))
		return nil
	}
}

func eventType(msg kafkago.Message) string {
	for _, h := range msg.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}
