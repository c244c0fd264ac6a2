package notification

import (
	"context"
	"fmt"
	"time"

	"go-expense/internal/events"
	notificationerrors "go-expense/internal/notification/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:generate mockgen -source=notification_service.go -destination=mock/notification_service_mock.go -package=mock
type Service interface {
	// Event-driven entry points, called by the lifecycle consumer
	HandleExpenseSubmitted(ctx context.Context, evt events.ExpenseSubmittedEvent) error
	HandleExpenseDecided(ctx context.Context, evt events.ExpenseDecidedEvent) error

	ListForRecipient(ctx context.Context, companyID, recipientID string, unreadOnly bool) ([]NotificationResponse, error)
	MarkRead(ctx context.Context, companyID, recipientID, id string) error
	MarkAllRead(ctx context.Context, companyID, recipientID string) error
}

type service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("notification.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("notification.service")
	}
	return &service{repo: repo, logger: l}
}

// HandleExpenseSubmitted fans one notification out to every approver in
// the snapshotted chain.
func (s *service) HandleExpenseSubmitted(ctx context.Context, evt events.ExpenseSubmittedEvent) error {
	companyUUID, err := uuid.Parse(evt.CompanyID)
	if err != nil {
		return err
	}
	expenseUUID, err := uuid.Parse(evt.ExpenseID)
	if err != nil {
		return err
	}

	message := fmt.Sprintf("Expense %q (%.2f %s) is awaiting your approval",
		evt.Description, evt.Amount, evt.Currency)

	rows := make([]Notification, 0, len(evt.ApproverIDs))
	for _, approverID := range evt.ApproverIDs {
		recipientUUID, err := uuid.Parse(approverID)
		if err != nil {
			s.logger.Warn("skipping notification for malformed approver id",
				zap.String("approver_id", approverID),
				zap.String("expense_id", evt.ExpenseID),
			)
			continue
		}
		rows = append(rows, Notification{
			ID:          uuid.New(),
			CompanyID:   companyUUID,
			RecipientID: recipientUUID,
			ExpenseID:   expenseUUID,
			Kind:        KindApprovalRequested,
			Message:     message,
		})
	}

	if err := s.repo.CreateBatch(ctx, rows); err != nil {
		s.logger.Error("fan-out of submit notifications failed",
			zap.String("expense_id", evt.ExpenseID),
			zap.Error(err),
		)
		return err
	}

	s.logger.Info("submit notifications created",
		zap.String("expense_id", evt.ExpenseID),
		zap.Int("recipients", len(rows)),
	)
	return nil
}

// HandleExpenseDecided notifies the owner of the terminal outcome.
func (s *service) HandleExpenseDecided(ctx context.Context, evt events.ExpenseDecidedEvent) error {
	companyUUID, err := uuid.Parse(evt.CompanyID)
	if err != nil {
		return err
	}
	expenseUUID, err := uuid.Parse(evt.ExpenseID)
	if err != nil {
		return err
	}
	ownerUUID, err := uuid.Parse(evt.OwnerID)
	if err != nil {
		return err
	}

	row := Notification{
		ID:          uuid.New(),
		CompanyID:   companyUUID,
		RecipientID: ownerUUID,
		ExpenseID:   expenseUUID,
		Kind:        KindExpenseDecided,
		Message:     fmt.Sprintf("Your expense %q was %s", evt.Description, evt.Status),
	}

	if err := s.repo.CreateBatch(ctx, []Notification{row}); err != nil {
		s.logger.Error("decided notification failed",
			zap.String("expense_id", evt.ExpenseID),
			zap.Error(err),
		)
		return err
	}

	s.logger.Info("decided notification created",
		zap.String("expense_id", evt.ExpenseID),
		zap.String("recipient_id", evt.OwnerID),
		zap.String("status", evt.Status),
	)
	return nil
}

func (s *service) ListForRecipient(ctx context.Context, companyID, recipientID string, unreadOnly bool) ([]NotificationResponse, error) {
	rows, err := s.repo.FindByRecipient(ctx, companyID, recipientID, unreadOnly)
	if err != nil {
		return nil, err
	}

	resp := make([]NotificationResponse, len(rows))
	for i, n := range rows {
		resp[i] = NotificationResponse{
			ID:        n.ID.String(),
			ExpenseID: n.ExpenseID.String(),
			Kind:      n.Kind,
			Message:   n.Message,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		}
	}
	return resp, nil
}

func (s *service) MarkRead(ctx context.Context, companyID, recipientID, id string) error {
	ok, err := s.repo.MarkRead(ctx, companyID, recipientID, id)
	if err != nil {
		return err
	}
	if !ok {
		return notificationerrors.ErrNotificationNotFound
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, companyID, recipientID string) error {
	return s.repo.MarkAllRead(ctx, companyID, recipientID)
}
