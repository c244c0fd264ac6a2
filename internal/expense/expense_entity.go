package expense

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusDraft     = "DRAFT"
	StatusSubmitted = "SUBMITTED"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
)

type Expense struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index:idx_expenses_company_status"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;index"`

	Description string    `gorm:"type:text;not null"`
	ExpenseDate time.Time `gorm:"type:date;not null"`
	Category    string    `gorm:"type:varchar(60);not null"`
	PaidBy      string    `gorm:"type:varchar(60);not null"`
	Amount      float64   `gorm:"type:numeric(14,2);not null"`
	Currency    string    `gorm:"type:varchar(3);not null"`
	Remarks     string    `gorm:"type:text"`

	Status string `gorm:"type:varchar(20);not null;default:'DRAFT';index:idx_expenses_company_status"`

	// Frozen at submit time together with the chain rows; later rule
	// edits never touch an in-flight expense.
	SequenceMatters       bool `gorm:"not null;default:false"`
	MinApprovalPercentage int  `gorm:"type:int;not null;default:0"`
	ChainSize             int  `gorm:"type:int;not null;default:0"`

	SubmittedAt *time.Time
	DecidedAt   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// IsTerminal reports whether no further status transition is possible
func (e *Expense) IsTerminal() bool {
	return e.Status == StatusApproved || e.Status == StatusRejected
}
