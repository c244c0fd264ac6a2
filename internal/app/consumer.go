package app

import (
	"context"

	"go-expense/internal/messaging/kafka/consumer"
	"go-expense/internal/notification"
)

// RunLifecycleConsumer projects expense lifecycle events into
// notifications until the context is cancelled.
func (a *App) RunLifecycleConsumer(ctx context.Context) error {
	notificationRepo := notification.NewRepository(a.DB)
	notificationService := notification.NewService(notificationRepo, a.Logger)

	c := consumer.NewExpenseLifecycleConsumer(
		[]string{a.Cfg.KafkaBroker},
		a.Cfg.KafkaGroupID,
		notificationService,
		a.Logger,
	)
	defer c.Close()

	return c.Run(ctx)
}
