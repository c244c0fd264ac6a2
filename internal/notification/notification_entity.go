package notification

import (
	"time"

	"github.com/google/uuid"
)

const (
	KindApprovalRequested = "APPROVAL_REQUESTED"
	KindExpenseDecided    = "EXPENSE_DECIDED"
)

type Notification struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID   uuid.UUID `gorm:"type:uuid;not null;index:idx_notifications_company_recipient"`
	RecipientID uuid.UUID `gorm:"type:uuid;not null;index:idx_notifications_company_recipient"`
	ExpenseID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Kind        string    `gorm:"type:varchar(40);not null"`
	Message     string    `gorm:"type:text;not null"`
	IsRead      bool      `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
