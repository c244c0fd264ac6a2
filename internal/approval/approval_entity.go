package approval

import (
	"time"

	"github.com/google/uuid"
)

const (
	DecisionApproved = "APPROVED"
	DecisionRejected = "REJECTED"
)

// ChainApprover is one row of the chain snapshot stamped onto an expense
// at submission. The snapshot is immutable except for the Removed flag,
// which is set when a chain member is deleted from the company while the
// expense is still in flight. Removed entries keep occupying their slot:
// the frozen chain size on the expense never shrinks.
type ChainApprover struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID  uuid.UUID `gorm:"type:uuid;not null;index"`
	ExpenseID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chain_expense_approver"`
	ApproverID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chain_expense_approver;index"`
	Position   int       `gorm:"type:int;not null"`
	Required   bool      `gorm:"not null;default:false"`
	Removed    bool      `gorm:"not null;default:false"`

	CreatedAt time.Time
}

// ApprovalDecision records one approver's verdict on one expense. At most
// one row exists per (expense, approver); a re-decision overwrites it
// while the expense is still in a non-terminal state.
type ApprovalDecision struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID  uuid.UUID `gorm:"type:uuid;not null;index"`
	ExpenseID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_decisions_expense_approver"`
	ApproverID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_decisions_expense_approver"`
	Decision   string    `gorm:"type:varchar(20);not null"`
	Comment    string    `gorm:"type:text"`
	DecidedAt  time.Time `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
