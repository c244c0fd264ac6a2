package expense

import (
	"context"
	"database/sql"
	"time"

	"go-expense/internal/tenant"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

//go:generate mockgen -source=expense_repo.go -destination=mock/expense_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, e *Expense) error
	FindAllByCompany(ctx context.Context, companyID string) ([]Expense, error)
	FindAllByOwner(ctx context.Context, companyID, ownerID string) ([]Expense, error)
	FindByIDAndCompany(ctx context.Context, companyID, id string) (*Expense, error)
	Update(ctx context.Context, e *Expense) error
	Delete(ctx context.Context, companyID, id string) error

	// MarkSubmitted is the DRAFT -> SUBMITTED compare-and-swap: the
	// snapshot fields and the new status are written only if the row is
	// still in DRAFT. Returns false when the swap lost.
	MarkSubmitted(ctx context.Context, e *Expense) (bool, error)

	// UpdateStatusIfCurrent is the SUBMITTED -> terminal compare-and-swap
	UpdateStatusIfCurrent(ctx context.Context, companyID, id, current, next string, decidedAt *time.Time) (bool, error)

	TotalsByStatusCurrency(ctx context.Context, companyID string) ([]StatusCurrencyTotal, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx binds the repository to an open transaction so expense rows,
// chain rows and outbox events commit or roll back together.
func (r *repository) WithTx(tx *sql.Tx) Repository {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: tx}), &gorm.Config{})
	if err != nil {
		return r
	}
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, e *Expense) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *repository) FindAllByCompany(ctx context.Context, companyID string) ([]Expense, error) {
	var expenses []Expense
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Order("created_at DESC").
		Find(&expenses).Error
	return expenses, err
}

func (r *repository) FindAllByOwner(ctx context.Context, companyID, ownerID string) ([]Expense, error) {
	var expenses []Expense
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&expenses).Error
	return expenses, err
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*Expense, error) {
	var e Expense
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&e, "id = ?", id).Error
	return &e, err
}

func (r *repository) Update(ctx context.Context, e *Expense) error {
	return r.db.WithContext(ctx).Save(e).Error
}

func (r *repository) Delete(ctx context.Context, companyID, id string) error {
	return r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Delete(&Expense{}, "id = ?", id).Error
}

func (r *repository) MarkSubmitted(ctx context.Context, e *Expense) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&Expense{}).
		Where("company_id = ?", e.CompanyID).
		Where("id = ?", e.ID).
		Where("status = ?", StatusDraft).
		Updates(map[string]any{
			"status":                  StatusSubmitted,
			"sequence_matters":        e.SequenceMatters,
			"min_approval_percentage": e.MinApprovalPercentage,
			"chain_size":              e.ChainSize,
			"submitted_at":            e.SubmittedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) UpdateStatusIfCurrent(
	ctx context.Context,
	companyID, id, current, next string,
	decidedAt *time.Time,
) (bool, error) {
	updates := map[string]any{"status": next}
	if decidedAt != nil {
		updates["decided_at"] = decidedAt
	}

	res := r.db.WithContext(ctx).
		Model(&Expense{}).
		Where("company_id = ?", companyID).
		Where("id = ?", id).
		Where("status = ?", current).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) TotalsByStatusCurrency(ctx context.Context, companyID string) ([]StatusCurrencyTotal, error) {
	var totals []StatusCurrencyTotal
	err := r.db.WithContext(ctx).
		Model(&Expense{}).
		Select("status, currency, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total_amount").
		Where("company_id = ?", companyID).
		Group("status, currency").
		Order("status, currency").
		Scan(&totals).Error
	return totals, err
}
