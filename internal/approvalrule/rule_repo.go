package approvalrule

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -source=rule_repo.go -destination=mock/rule_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Upsert(ctx context.Context, rule *ApprovalRule) error
	FindByEmployee(ctx context.Context, companyID, employeeID string) (*ApprovalRule, error)
	FindAllByCompany(ctx context.Context, companyID string) ([]ApprovalRule, error)
	DeleteByEmployee(ctx context.Context, companyID, employeeID string) error

	// Referential guards used by user deletion
	CountApproverReferences(ctx context.Context, companyID, userID string) (int64, error)
	CountManagerReferences(ctx context.Context, companyID, userID string) (int64, error)
	RemoveApproverFromRules(ctx context.Context, companyID, userID string) error
	ClearManagerFromRules(ctx context.Context, companyID, userID string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: tx}), &gorm.Config{})
	if err != nil {
		return r
	}
	return &repository{db: db}
}

// Upsert replaces the employee's rule wholesale. The chain rows are
// rewritten rather than diffed; positions come from the caller.
func (r *repository) Upsert(ctx context.Context, rule *ApprovalRule) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing ApprovalRule
		err := tx.
			Where("company_id = ?", rule.CompanyID).
			Where("employee_id = ?", rule.EmployeeID).
			First(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil {
			rule.ID = existing.ID
			rule.CreatedAt = existing.CreatedAt
			if err := tx.Where("rule_id = ?", existing.ID).Delete(&RuleApprover{}).Error; err != nil {
				return err
			}
		}
		for i := range rule.Approvers {
			rule.Approvers[i].RuleID = rule.ID
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).
			Clauses(clause.OnConflict{UpdateAll: true}).
			Save(rule).Error
	})
}

func (r *repository) FindByEmployee(ctx context.Context, companyID, employeeID string) (*ApprovalRule, error) {
	var rule ApprovalRule
	err := r.db.WithContext(ctx).
		Preload("Approvers", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("company_id = ?", companyID).
		Where("employee_id = ?", employeeID).
		First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *repository) FindAllByCompany(ctx context.Context, companyID string) ([]ApprovalRule, error) {
	var rules []ApprovalRule
	err := r.db.WithContext(ctx).
		Preload("Approvers", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("company_id = ?", companyID).
		Order("created_at ASC").
		Find(&rules).Error
	return rules, err
}

func (r *repository) DeleteByEmployee(ctx context.Context, companyID, employeeID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rule ApprovalRule
		err := tx.
			Where("company_id = ?", companyID).
			Where("employee_id = ?", employeeID).
			First(&rule).Error
		if err != nil {
			return err
		}
		if err := tx.Where("rule_id = ?", rule.ID).Delete(&RuleApprover{}).Error; err != nil {
			return err
		}
		return tx.Delete(&rule).Error
	})
}

func (r *repository) CountApproverReferences(ctx context.Context, companyID, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&RuleApprover{}).
		Joins("JOIN approval_rules ON approval_rules.id = rule_approvers.rule_id").
		Where("approval_rules.company_id = ?", companyID).
		Where("approval_rules.deleted_at IS NULL").
		Where("rule_approvers.approver_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *repository) CountManagerReferences(ctx context.Context, companyID, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&ApprovalRule{}).
		Where("company_id = ?", companyID).
		Where("manager_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *repository) RemoveApproverFromRules(ctx context.Context, companyID, userID string) error {
	return r.db.WithContext(ctx).
		Where("approver_id = ?", userID).
		Where("rule_id IN (?)", r.db.
			Model(&ApprovalRule{}).
			Select("id").
			Where("company_id = ?", companyID),
		).
		Delete(&RuleApprover{}).Error
}

func (r *repository) ClearManagerFromRules(ctx context.Context, companyID, userID string) error {
	return r.db.WithContext(ctx).
		Model(&ApprovalRule{}).
		Where("company_id = ?", companyID).
		Where("manager_id = ?", userID).
		Update("manager_id", nil).Error
}
