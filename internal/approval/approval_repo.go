package approval

import (
	"context"
	"database/sql"

	"go-expense/internal/expense"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -source=approval_repo.go -destination=mock/approval_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository

	CreateChain(ctx context.Context, rows []ChainApprover) error
	FindChain(ctx context.Context, companyID, expenseID string) ([]ChainApprover, error)

	UpsertDecision(ctx context.Context, d *ApprovalDecision) error
	FindDecisions(ctx context.Context, companyID, expenseID string) ([]ApprovalDecision, error)

	// ListSubmittedForApprover returns SUBMITTED expenses where the
	// approver is a live chain member. Sequence eligibility is applied
	// by the service on top of this.
	ListSubmittedForApprover(ctx context.Context, companyID, approverID string) ([]expense.Expense, error)

	// Referential guards used by user deletion
	CountActiveChainMemberships(ctx context.Context, companyID, approverID string) (int64, error)
	MarkChainApproverRemoved(ctx context.Context, companyID, approverID string) error
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

func (r *repository) CreateChain(ctx context.Context, rows []ChainApprover) error {
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repository) FindChain(ctx context.Context, companyID, expenseID string) ([]ChainApprover, error) {
	var rows []ChainApprover
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Where("expense_id = ?", expenseID).
		Order("position ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) UpsertDecision(ctx context.Context, d *ApprovalDecision) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "expense_id"}, {Name: "approver_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"decision":   d.Decision,
				"comment":    d.Comment,
				"decided_at": d.DecidedAt,
			}),
		}).
		Create(d).Error
}

func (r *repository) FindDecisions(ctx context.Context, companyID, expenseID string) ([]ApprovalDecision, error) {
	var rows []ApprovalDecision
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Where("expense_id = ?", expenseID).
		Order("decided_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListSubmittedForApprover(ctx context.Context, companyID, approverID string) ([]expense.Expense, error) {
	var expenses []expense.Expense
	err := r.db.WithContext(ctx).
		Joins("JOIN chain_approvers ON chain_approvers.expense_id = expenses.id").
		Where("expenses.company_id = ?", companyID).
		Where("expenses.status = ?", expense.StatusSubmitted).
		Where("chain_approvers.approver_id = ?", approverID).
		Where("chain_approvers.removed = false").
		Order("expenses.submitted_at ASC").
		Find(&expenses).Error
	return expenses, err
}

func (r *repository) CountActiveChainMemberships(ctx context.Context, companyID, approverID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&ChainApprover{}).
		Joins("JOIN expenses ON expenses.id = chain_approvers.expense_id").
		Where("chain_approvers.company_id = ?", companyID).
		Where("chain_approvers.approver_id = ?", approverID).
		Where("chain_approvers.removed = false").
		Where("expenses.status = ?", expense.StatusSubmitted).
		Where("expenses.deleted_at IS NULL").
		Count(&count).Error
	return count, err
}

func (r *repository) MarkChainApproverRemoved(ctx context.Context, companyID, approverID string) error {
	return r.db.WithContext(ctx).
		Model(&ChainApprover{}).
		Where("company_id = ?", companyID).
		Where("approver_id = ?", approverID).
		Where("removed = false").
		Where("expense_id IN (?)", r.db.
			Model(&expense.Expense{}).
			Select("id").
			Where("company_id = ?", companyID).
			Where("status = ?", expense.StatusSubmitted),
		).
		Update("removed", true).Error
}
