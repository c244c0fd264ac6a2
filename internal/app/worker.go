package app

import (
	"context"
	"time"

	"go-expense/internal/messaging/kafka"
	"go-expense/internal/messaging/kafka/producer"
)

// RunOutboxWorker polls the outbox table and publishes pending events to
// Kafka until the context is cancelled.
func (a *App) RunOutboxWorker(ctx context.Context, pollInterval time.Duration) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}

	outboxRepo := kafka.NewOutboxRepository(sqlDB)
	producer.ProcessOutboxEvents(ctx, outboxRepo, a.Kafka, a.Logger, pollInterval)
	return nil
}
