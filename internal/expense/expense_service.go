package expense

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	expenseerrors "go-expense/internal/expense/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const TotalsKeyPrefix = "expenses:totals:"

// GetTotalsCacheKey is shared with the approval engine, which invalidates
// the aggregate after every status transition it performs.
func GetTotalsCacheKey(companyID string) string {
	return TotalsKeyPrefix + companyID
}

//go:generate mockgen -source=expense_service.go -destination=mock/expense_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, companyID, actorID string, req CreateExpenseRequest) (ExpenseResponse, error)
	GetAll(ctx context.Context, companyID, actorID string, canReadAll bool) ([]ExpenseResponse, error)
	GetMine(ctx context.Context, companyID, ownerID string) (GroupedExpensesResponse, error)
	GetByID(ctx context.Context, companyID, actorID string, canReadAll bool, id string) (ExpenseResponse, error)
	Update(ctx context.Context, companyID, actorID, id string, req UpdateExpenseRequest) (ExpenseResponse, error)
	Delete(ctx context.Context, companyID, actorID, id string) error
	Totals(ctx context.Context, companyID string) ([]StatusCurrencyTotal, error)
}

type service struct {
	db     *sql.DB
	repo   Repository
	rdb    *redis.Client
	sf     *singleflight.Group
	logger *zap.Logger
}

func NewService(db *sql.DB, repo Repository, rdb *redis.Client, logger ...*zap.Logger) Service {
	l := zap.L().Named("expense.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("expense.service")
	}
	return &service{db: db, repo: repo, rdb: rdb, sf: &singleflight.Group{}, logger: l}
}

func (s *service) Create(ctx context.Context, companyID, actorID string, req CreateExpenseRequest) (ExpenseResponse, error) {
	s.logger.Debug("create expense requested",
		zap.String("company_id", companyID),
		zap.String("actor_id", actorID),
		zap.String("currency", req.Currency),
		zap.Float64("amount", req.Amount),
	)

	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return ExpenseResponse{}, expenseerrors.ErrInvalidCompanyID
	}
	ownerUUID, err := uuid.Parse(actorID)
	if err != nil {
		return ExpenseResponse{}, expenseerrors.ErrInvalidActorID
	}
	expenseDate, err := parseDate(req.Date)
	if err != nil {
		return ExpenseResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("create expense begin tx failed", zap.Error(err))
		return ExpenseResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	e := &Expense{
		ID:          uuid.New(),
		CompanyID:   companyUUID,
		OwnerID:     ownerUUID,
		Description: req.Description,
		ExpenseDate: expenseDate,
		Category:    req.Category,
		PaidBy:      req.PaidBy,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Remarks:     req.Remarks,
		Status:      StatusDraft,
	}

	if err := qtx.Create(ctx, e); err != nil {
		s.logger.Error("create expense persist failed", zap.Error(err))
		return ExpenseResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("create expense commit failed", zap.Error(err))
		return ExpenseResponse{}, err
	}

	s.invalidateTotals(ctx, companyID)
	s.logger.Info("create expense success",
		zap.String("expense_id", e.ID.String()),
		zap.String("company_id", companyID),
	)

	return mapToResponse(*e), nil
}

func (s *service) GetAll(ctx context.Context, companyID, actorID string, canReadAll bool) ([]ExpenseResponse, error) {
	if !canReadAll {
		expenses, err := s.repo.FindAllByOwner(ctx, companyID, actorID)
		if err != nil {
			return nil, err
		}
		return mapToListResponse(expenses), nil
	}

	expenses, err := s.repo.FindAllByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(expenses), nil
}

func (s *service) GetMine(ctx context.Context, companyID, ownerID string) (GroupedExpensesResponse, error) {
	expenses, err := s.repo.FindAllByOwner(ctx, companyID, ownerID)
	if err != nil {
		return GroupedExpensesResponse{}, err
	}

	grouped := GroupedExpensesResponse{
		Draft:     []ExpenseResponse{},
		Submitted: []ExpenseResponse{},
		Approved:  []ExpenseResponse{},
		Rejected:  []ExpenseResponse{},
	}
	for _, e := range expenses {
		resp := mapToResponse(e)
		switch e.Status {
		case StatusDraft:
			grouped.Draft = append(grouped.Draft, resp)
		case StatusSubmitted:
			grouped.Submitted = append(grouped.Submitted, resp)
		case StatusApproved:
			grouped.Approved = append(grouped.Approved, resp)
		case StatusRejected:
			grouped.Rejected = append(grouped.Rejected, resp)
		}
	}
	return grouped, nil
}

func (s *service) GetByID(ctx context.Context, companyID, actorID string, canReadAll bool, id string) (ExpenseResponse, error) {
	e, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ExpenseResponse{}, expenseerrors.ErrExpenseNotFound
		}
		return ExpenseResponse{}, err
	}
	if !canReadAll && e.OwnerID.String() != actorID {
		return ExpenseResponse{}, expenseerrors.ErrNotExpenseOwner
	}
	return mapToResponse(*e), nil
}

// Update only touches DRAFT expenses; once submitted the record belongs to
// the workflow engine and the owner may no longer edit it.
func (s *service) Update(ctx context.Context, companyID, actorID, id string, req UpdateExpenseRequest) (ExpenseResponse, error) {
	expenseDate, err := parseDate(req.Date)
	if err != nil {
		return ExpenseResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("update expense begin tx failed", zap.Error(err))
		return ExpenseResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	e, err := qtx.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ExpenseResponse{}, expenseerrors.ErrExpenseNotFound
		}
		return ExpenseResponse{}, err
	}
	if e.OwnerID.String() != actorID {
		return ExpenseResponse{}, expenseerrors.ErrNotExpenseOwner
	}
	if e.Status != StatusDraft {
		s.logger.Warn("update expense rejected, not a draft",
			zap.String("expense_id", id),
			zap.String("status", e.Status),
		)
		return ExpenseResponse{}, expenseerrors.ErrNotEditable
	}

	e.Description = req.Description
	e.ExpenseDate = expenseDate
	e.Category = req.Category
	e.PaidBy = req.PaidBy
	e.Amount = req.Amount
	e.Currency = req.Currency
	e.Remarks = req.Remarks

	if err := qtx.Update(ctx, e); err != nil {
		s.logger.Error("update expense persist failed", zap.String("expense_id", id), zap.Error(err))
		return ExpenseResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("update expense commit failed", zap.String("expense_id", id), zap.Error(err))
		return ExpenseResponse{}, err
	}

	s.invalidateTotals(ctx, companyID)
	s.logger.Info("update expense success", zap.String("expense_id", id))

	return mapToResponse(*e), nil
}

func (s *service) Delete(ctx context.Context, companyID, actorID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	e, err := qtx.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return expenseerrors.ErrExpenseNotFound
		}
		return err
	}
	if e.OwnerID.String() != actorID {
		return expenseerrors.ErrNotExpenseOwner
	}
	if e.Status != StatusDraft {
		return expenseerrors.ErrNotEditable
	}

	if err := qtx.Delete(ctx, companyID, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.invalidateTotals(ctx, companyID)
	return nil
}

func (s *service) Totals(ctx context.Context, companyID string) ([]StatusCurrencyTotal, error) {
	cacheKey := GetTotalsCacheKey(companyID)

	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, cacheKey).Result()
		if err == nil {
			var resp []StatusCurrencyTotal
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return resp, nil
			}
		}
	}

	// Singleflight keeps concurrent dashboard refreshes from hammering
	// the aggregate query
	v, err, _ := s.sf.Do(cacheKey, func() (interface{}, error) {
		totals, err := s.repo.TotalsByStatusCurrency(ctx, companyID)
		if err != nil {
			return nil, err
		}

		if s.rdb != nil {
			if jsonData, err := json.Marshal(totals); err == nil {
				s.rdb.Set(ctx, cacheKey, jsonData, 5*time.Minute)
			}
		}

		return totals, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]StatusCurrencyTotal), nil
}

func (s *service) invalidateTotals(ctx context.Context, companyID string) {
	if s.rdb == nil {
		return
	}
	cacheKey := GetTotalsCacheKey(companyID)
	if err := s.rdb.Del(ctx, cacheKey).Err(); err != nil {
		s.logger.Error("failed to invalidate totals cache",
			zap.Error(err),
			zap.String("key", cacheKey),
		)
	}
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, expenseerrors.ErrInvalidDateFormat
	}
	return t, nil
}

func mapToResponse(e Expense) ExpenseResponse {
	resp := ExpenseResponse{
		ID:          e.ID.String(),
		CompanyID:   e.CompanyID.String(),
		OwnerID:     e.OwnerID.String(),
		Description: e.Description,
		Date:        e.ExpenseDate.Format("2006-01-02"),
		Category:    e.Category,
		PaidBy:      e.PaidBy,
		Amount:      e.Amount,
		Currency:    e.Currency,
		Remarks:     e.Remarks,
		Status:      e.Status,
	}
	if e.Status != StatusDraft {
		resp.SequenceMatters = e.SequenceMatters
		resp.MinApprovalPercentage = e.MinApprovalPercentage
		resp.ChainSize = e.ChainSize
	}
	if e.SubmittedAt != nil {
		v := e.SubmittedAt.Format(time.RFC3339)
		resp.SubmittedAt = &v
	}
	if e.DecidedAt != nil {
		v := e.DecidedAt.Format(time.RFC3339)
		resp.DecidedAt = &v
	}
	return resp
}

func mapToListResponse(expenses []Expense) []ExpenseResponse {
	resp := make([]ExpenseResponse, len(expenses))
	for i, e := range expenses {
		resp[i] = mapToResponse(e)
	}
	return resp
}
