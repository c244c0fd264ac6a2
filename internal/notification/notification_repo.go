package notification

import (
	"context"

	"go-expense/internal/tenant"

	"gorm.io/gorm"
)

//go:generate mockgen -source=notification_repo.go -destination=mock/notification_repo_mock.go -package=mock
type Repository interface {
	CreateBatch(ctx context.Context, rows []Notification) error
	FindByRecipient(ctx context.Context, companyID, recipientID string, unreadOnly bool) ([]Notification, error)
	MarkRead(ctx context.Context, companyID, recipientID, id string) (bool, error)
	MarkAllRead(ctx context.Context, companyID, recipientID string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateBatch(ctx context.Context, rows []Notification) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repository) FindByRecipient(ctx context.Context, companyID, recipientID string, unreadOnly bool) ([]Notification, error) {
	q := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("recipient_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("is_read = false")
	}

	var rows []Notification
	err := q.Order("created_at DESC").Find(&rows).Error
	return rows, err
}

func (r *repository) MarkRead(ctx context.Context, companyID, recipientID, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("company_id = ?", companyID).
		Where("recipient_id = ?", recipientID).
		Where("id = ?", id).
		Update("is_read", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkAllRead(ctx context.Context, companyID, recipientID string) error {
	return r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("company_id = ?", companyID).
		Where("recipient_id = ?", recipientID).
		Where("is_read = false").
		Update("is_read", true).Error
}
