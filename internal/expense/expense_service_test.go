package expense

import (
	"context"
	"database/sql"
	"testing"
	"time"

	expenseerrors "go-expense/internal/expense/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeRepo struct {
	expenses map[string]*Expense
	totals   []StatusCurrencyTotal
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{expenses: make(map[string]*Expense)}
}

func (f *fakeRepo) WithTx(tx *sql.Tx) Repository { return f }
func (f *fakeRepo) Create(ctx context.Context, e *Expense) error {
	f.expenses[e.ID.String()] = e
	return nil
}
func (f *fakeRepo) FindAllByCompany(ctx context.Context, companyID string) ([]Expense, error) {
	var out []Expense
	for _, e := range f.expenses {
		out = append(out, *e)
	}
	return out, nil
}
func (f *fakeRepo) FindAllByOwner(ctx context.Context, companyID, ownerID string) ([]Expense, error) {
	var out []Expense
	for _, e := range f.expenses {
		if e.OwnerID.String() == ownerID {
			out = append(out, *e)
		}
	}
	return out, nil
}
func (f *fakeRepo) FindByIDAndCompany(ctx context.Context, companyID, id string) (*Expense, error) {
	e, ok := f.expenses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}
func (f *fakeRepo) Update(ctx context.Context, e *Expense) error {
	f.expenses[e.ID.String()] = e
	return nil
}
func (f *fakeRepo) Delete(ctx context.Context, companyID, id string) error {
	delete(f.expenses, id)
	return nil
}
func (f *fakeRepo) MarkSubmitted(ctx context.Context, e *Expense) (bool, error) { return false, nil }
func (f *fakeRepo) UpdateStatusIfCurrent(ctx context.Context, companyID, id, current, next string, decidedAt *time.Time) (bool, error) {
	return false, nil
}
func (f *fakeRepo) TotalsByStatusCurrency(ctx context.Context, companyID string) ([]StatusCurrencyTotal, error) {
	return f.totals, nil
}

func validCreateRequest() CreateExpenseRequest {
	return CreateExpenseRequest{
		Description: "train to client site",
		Date:        "2026-08-12",
		Category:    "travel",
		PaidBy:      "company card",
		Amount:      45.90,
		Currency:    "EUR",
	}
}

func TestService_CreateStartsInDraft(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	repo := newFakeRepo()
	svc := NewService(db, repo, nil)

	companyID := uuid.New().String()
	ownerID := uuid.New().String()

	mock.ExpectBegin()
	mock.ExpectCommit()
	resp, err := svc.Create(context.Background(), companyID, ownerID, validCreateRequest())
	assert.NoError(t, err)
	assert.Equal(t, StatusDraft, resp.Status)
	assert.Equal(t, ownerID, resp.OwnerID)
	assert.Equal(t, "2026-08-12", resp.Date)
	assert.Len(t, repo.expenses, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CreateRejectsBadDate(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	svc := NewService(db, newFakeRepo(), nil)

	req := validCreateRequest()
	req.Date = "12/08/2026"
	_, err := svc.Create(context.Background(), uuid.New().String(), uuid.New().String(), req)
	assert.ErrorIs(t, err, expenseerrors.ErrInvalidDateFormat)
}

func TestService_UpdateOnlyDraftsByOwner(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	repo := newFakeRepo()
	svc := NewService(db, repo, nil)

	companyID := uuid.New().String()
	ownerID := uuid.New().String()

	mock.ExpectBegin()
	mock.ExpectCommit()
	created, err := svc.Create(context.Background(), companyID, ownerID, validCreateRequest())
	assert.NoError(t, err)

	// Another user cannot edit
	mock.ExpectBegin()
	mock.ExpectRollback()
	req := validCreateRequest()
	_, err = svc.Update(context.Background(), companyID, uuid.New().String(), created.ID, UpdateExpenseRequest(req))
	assert.ErrorIs(t, err, expenseerrors.ErrNotExpenseOwner)

	// Once out of DRAFT the owner cannot edit either
	repo.expenses[created.ID].Status = StatusSubmitted
	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = svc.Update(context.Background(), companyID, ownerID, created.ID, UpdateExpenseRequest(req))
	assert.ErrorIs(t, err, expenseerrors.ErrNotEditable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_DeleteOnlyDrafts(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	repo := newFakeRepo()
	svc := NewService(db, repo, nil)

	companyID := uuid.New().String()
	ownerID := uuid.New().String()

	mock.ExpectBegin()
	mock.ExpectCommit()
	created, err := svc.Create(context.Background(), companyID, ownerID, validCreateRequest())
	assert.NoError(t, err)

	repo.expenses[created.ID].Status = StatusApproved
	mock.ExpectBegin()
	mock.ExpectRollback()
	err = svc.Delete(context.Background(), companyID, ownerID, created.ID)
	assert.ErrorIs(t, err, expenseerrors.ErrNotEditable)
	assert.Len(t, repo.expenses, 1)

	repo.expenses[created.ID].Status = StatusDraft
	mock.ExpectBegin()
	mock.ExpectCommit()
	err = svc.Delete(context.Background(), companyID, ownerID, created.ID)
	assert.NoError(t, err)
	assert.Empty(t, repo.expenses)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_GetMineGroupsByStatus(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	repo := newFakeRepo()
	svc := NewService(db, repo, nil)

	companyID := uuid.New()
	ownerID := uuid.New()
	for _, status := range []string{StatusDraft, StatusSubmitted, StatusSubmitted, StatusApproved, StatusRejected} {
		e := &Expense{
			ID:          uuid.New(),
			CompanyID:   companyID,
			OwnerID:     ownerID,
			ExpenseDate: time.Now(),
			Status:      status,
		}
		repo.expenses[e.ID.String()] = e
	}

	grouped, err := svc.GetMine(context.Background(), companyID.String(), ownerID.String())
	assert.NoError(t, err)
	assert.Len(t, grouped.Draft, 1)
	assert.Len(t, grouped.Submitted, 2)
	assert.Len(t, grouped.Approved, 1)
	assert.Len(t, grouped.Rejected, 1)
}

func TestService_GetAllScopesToOwnerWithoutReadAll(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	repo := newFakeRepo()
	svc := NewService(db, repo, nil)

	companyID := uuid.New()
	mine := uuid.New()
	other := uuid.New()
	for _, owner := range []uuid.UUID{mine, mine, other} {
		e := &Expense{ID: uuid.New(), CompanyID: companyID, OwnerID: owner, ExpenseDate: time.Now(), Status: StatusDraft}
		repo.expenses[e.ID.String()] = e
	}

	scoped, err := svc.GetAll(context.Background(), companyID.String(), mine.String(), false)
	assert.NoError(t, err)
	assert.Len(t, scoped, 2)

	all, err := svc.GetAll(context.Background(), companyID.String(), mine.String(), true)
	assert.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestService_TotalsKeepCurrenciesApart(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	repo := newFakeRepo()
	repo.totals = []StatusCurrencyTotal{
		{Status: StatusApproved, Currency: "EUR", Count: 2, TotalAmount: 300},
		{Status: StatusApproved, Currency: "USD", Count: 1, TotalAmount: 99.99},
	}
	svc := NewService(db, repo, nil)

	totals, err := svc.Totals(context.Background(), uuid.New().String())
	assert.NoError(t, err)
	assert.Len(t, totals, 2)
	assert.NotEqual(t, totals[0].Currency, totals[1].Currency)
}
