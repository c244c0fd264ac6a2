package approvalrule

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApprovalRule is the admin-configured approval policy for one employee.
// At most one rule exists per employee; expenses submitted without a rule
// fall back to the default chain built by the resolver.
type ApprovalRule struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rules_company_employee"`
	EmployeeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rules_company_employee"`

	// ManagerID is the admin-pinned manager for this rule. When nil the
	// resolver falls back to the employee's live reporting line.
	ManagerID *uuid.UUID `gorm:"type:uuid;index"`

	SequenceMatters       bool `gorm:"not null;default:false"`
	MinApprovalPercentage int  `gorm:"type:int;not null;default:100"`
	ManagerIsApprover     bool `gorm:"not null;default:true"`

	Approvers []RuleApprover `gorm:"foreignKey:RuleID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// RuleApprover is one entry of the configured chain. Position carries the
// order, which only gates decisions when SequenceMatters is set on the rule.
type RuleApprover struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RuleID     uuid.UUID `gorm:"type:uuid;not null;index"`
	ApproverID uuid.UUID `gorm:"type:uuid;not null;index"`
	Position   int       `gorm:"type:int;not null"`
	Required   bool      `gorm:"not null;default:false"`

	CreatedAt time.Time
}
