package approval

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	approvalerrors "go-expense/internal/approval/errors"
	"go-expense/internal/approvalrule"
	"go-expense/internal/expense"
	expenseerrors "go-expense/internal/expense/errors"
	"go-expense/internal/messaging/kafka"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type engineState struct {
	expenses  map[string]*expense.Expense
	chains    map[string][]ChainApprover
	decisions map[string]map[string]ApprovalDecision
	outbox    []kafka.OutboxEvent
}

type fakeApprovalRepo struct{ st *engineState }

func (f *fakeApprovalRepo) WithTx(tx *sql.Tx) Repository { return f }
func (f *fakeApprovalRepo) CreateChain(ctx context.Context, rows []ChainApprover) error {
	key := rows[0].ExpenseID.String()
	f.st.chains[key] = append(f.st.chains[key], rows...)
	return nil
}
func (f *fakeApprovalRepo) FindChain(ctx context.Context, companyID, expenseID string) ([]ChainApprover, error) {
	return f.st.chains[expenseID], nil
}
func (f *fakeApprovalRepo) UpsertDecision(ctx context.Context, d *ApprovalDecision) error {
	key := d.ExpenseID.String()
	if f.st.decisions[key] == nil {
		f.st.decisions[key] = make(map[string]ApprovalDecision)
	}
	f.st.decisions[key][d.ApproverID.String()] = *d
	return nil
}
func (f *fakeApprovalRepo) FindDecisions(ctx context.Context, companyID, expenseID string) ([]ApprovalDecision, error) {
	var out []ApprovalDecision
	for _, d := range f.st.decisions[expenseID] {
		out = append(out, d)
	}
	return out, nil
}
func (f *fakeApprovalRepo) ListSubmittedForApprover(ctx context.Context, companyID, approverID string) ([]expense.Expense, error) {
	var out []expense.Expense
	for id, e := range f.st.expenses {
		if e.Status != expense.StatusSubmitted {
			continue
		}
		for _, a := range f.st.chains[id] {
			if a.ApproverID.String() == approverID && !a.Removed {
				out = append(out, *e)
				break
			}
		}
	}
	return out, nil
}
func (f *fakeApprovalRepo) CountActiveChainMemberships(ctx context.Context, companyID, approverID string) (int64, error) {
	return 0, nil
}
func (f *fakeApprovalRepo) MarkChainApproverRemoved(ctx context.Context, companyID, approverID string) error {
	return nil
}

type fakeExpenseRepo struct{ st *engineState }

func (f *fakeExpenseRepo) WithTx(tx *sql.Tx) expense.Repository    { return f }
func (f *fakeExpenseRepo) Create(ctx context.Context, e *expense.Expense) error { return nil }
func (f *fakeExpenseRepo) FindAllByCompany(ctx context.Context, companyID string) ([]expense.Expense, error) {
	return nil, nil
}
func (f *fakeExpenseRepo) FindAllByOwner(ctx context.Context, companyID, ownerID string) ([]expense.Expense, error) {
	return nil, nil
}
func (f *fakeExpenseRepo) FindByIDAndCompany(ctx context.Context, companyID, id string) (*expense.Expense, error) {
	e, ok := f.st.expenses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}
func (f *fakeExpenseRepo) Update(ctx context.Context, e *expense.Expense) error { return nil }
func (f *fakeExpenseRepo) Delete(ctx context.Context, companyID, id string) error { return nil }
func (f *fakeExpenseRepo) MarkSubmitted(ctx context.Context, e *expense.Expense) (bool, error) {
	stored := f.st.expenses[e.ID.String()]
	if stored.Status != expense.StatusDraft {
		return false, nil
	}
	stored.Status = expense.StatusSubmitted
	stored.SequenceMatters = e.SequenceMatters
	stored.MinApprovalPercentage = e.MinApprovalPercentage
	stored.ChainSize = e.ChainSize
	stored.SubmittedAt = e.SubmittedAt
	return true, nil
}
func (f *fakeExpenseRepo) UpdateStatusIfCurrent(ctx context.Context, companyID, id, current, next string, decidedAt *time.Time) (bool, error) {
	stored := f.st.expenses[id]
	if stored.Status != current {
		return false, nil
	}
	stored.Status = next
	stored.DecidedAt = decidedAt
	return true, nil
}
func (f *fakeExpenseRepo) TotalsByStatusCurrency(ctx context.Context, companyID string) ([]expense.StatusCurrencyTotal, error) {
	return nil, nil
}

type fakeResolver struct {
	chain approvalrule.EffectiveChain
	err   error
}

func (f *fakeResolver) Resolve(ctx context.Context, companyID, employeeID string) (approvalrule.EffectiveChain, error) {
	return f.chain, f.err
}

type fakeOutbox struct{ st *engineState }

func (f *fakeOutbox) WithTx(tx *sql.Tx) kafka.OutboxRepository { return f }
func (f *fakeOutbox) Create(ctx context.Context, event kafka.OutboxEvent) error {
	f.st.outbox = append(f.st.outbox, event)
	return nil
}
func (f *fakeOutbox) ListPending(ctx context.Context, limit int) ([]kafka.OutboxEvent, error) {
	return nil, nil
}
func (f *fakeOutbox) MarkSent(ctx context.Context, id string) error               { return nil }
func (f *fakeOutbox) MarkFailed(ctx context.Context, id string, reason string) error { return nil }

type engineFixture struct {
	t         *testing.T
	db        *sql.DB
	mock      sqlmock.Sqlmock
	st        *engineState
	resolver  *fakeResolver
	svc       Service
	companyID string
}

func newEngineFixture(t *testing.T) *engineFixture {
	db, mock, _ := sqlmock.New()
	t.Cleanup(func() { db.Close() })

	st := &engineState{
		expenses:  make(map[string]*expense.Expense),
		chains:    make(map[string][]ChainApprover),
		decisions: make(map[string]map[string]ApprovalDecision),
	}
	resolver := &fakeResolver{}

	svc := NewService(
		db,
		&fakeApprovalRepo{st: st},
		&fakeExpenseRepo{st: st},
		resolver,
		&fakeOutbox{st: st},
		nil,
	)

	return &engineFixture{
		t:         t,
		db:        db,
		mock:      mock,
		st:        st,
		resolver:  resolver,
		svc:       svc,
		companyID: uuid.New().String(),
	}
}

func (f *engineFixture) addDraft(ownerID string) *expense.Expense {
	companyUUID := uuid.MustParse(f.companyID)
	e := &expense.Expense{
		ID:          uuid.New(),
		CompanyID:   companyUUID,
		OwnerID:     uuid.MustParse(ownerID),
		Description: "client dinner",
		ExpenseDate: time.Now(),
		Category:    "meals",
		PaidBy:      "personal card",
		Amount:      120.50,
		Currency:    "USD",
		Status:      expense.StatusDraft,
	}
	f.st.expenses[e.ID.String()] = e
	return e
}

// submitted shortcuts an expense straight into SUBMITTED with the given
// chain, bypassing the resolver
func (f *engineFixture) submitted(ownerID string, seq bool, minPct int, entries ...ChainApprover) *expense.Expense {
	e := f.addDraft(ownerID)
	now := time.Now().UTC()
	e.Status = expense.StatusSubmitted
	e.SequenceMatters = seq
	e.MinApprovalPercentage = minPct
	e.ChainSize = len(entries)
	e.SubmittedAt = &now
	for i := range entries {
		entries[i].CompanyID = e.CompanyID
		entries[i].ExpenseID = e.ID
		entries[i].Position = i
	}
	f.st.chains[e.ID.String()] = entries
	return e
}

func (f *engineFixture) expectTx() {
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
}

func (f *engineFixture) decide(e *expense.Expense, approverID, decision string) (DecisionOutcome, error) {
	return f.svc.RecordDecision(context.Background(), f.companyID, approverID, e.ID.String(), DecisionRequest{Decision: decision})
}

func chainEntry(approverID string, required bool) ChainApprover {
	return ChainApprover{
		ID:         uuid.New(),
		ApproverID: uuid.MustParse(approverID),
		Required:   required,
	}
}

func TestSubmit_SnapshotsChainAndFreezesRule(t *testing.T) {
	f := newEngineFixture(t)
	owner := uuid.New().String()
	approverA := uuid.New().String()
	approverB := uuid.New().String()

	e := f.addDraft(owner)
	f.resolver.chain = approvalrule.EffectiveChain{
		Approvers: []approvalrule.ChainEntry{
			{ApproverID: approverA, Required: true},
			{ApproverID: approverB, Required: false},
		},
		SequenceMatters:       true,
		MinApprovalPercentage: 60,
	}

	f.expectTx()
	resp, err := f.svc.Submit(context.Background(), f.companyID, owner, e.ID.String())
	assert.NoError(t, err)
	assert.Equal(t, expense.StatusSubmitted, resp.Status)
	assert.Equal(t, 2, resp.ChainSize)
	assert.Equal(t, []string{approverA, approverB}, resp.ApproverIDs)

	stored := f.st.expenses[e.ID.String()]
	assert.Equal(t, expense.StatusSubmitted, stored.Status)
	assert.True(t, stored.SequenceMatters)
	assert.Equal(t, 60, stored.MinApprovalPercentage)
	assert.Equal(t, 2, stored.ChainSize)
	assert.NotNil(t, stored.SubmittedAt)

	chain := f.st.chains[e.ID.String()]
	assert.Len(t, chain, 2)
	assert.Equal(t, 0, chain[0].Position)
	assert.True(t, chain[0].Required)
	assert.Equal(t, 1, chain[1].Position)
	assert.False(t, chain[1].Required)

	assert.Len(t, f.st.outbox, 1)
	assert.Equal(t, "expense_submitted", f.st.outbox[0].EventType)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSubmit_OnlyFromDraft(t *testing.T) {
	f := newEngineFixture(t)
	owner := uuid.New().String()
	e := f.submitted(owner, false, 100, chainEntry(uuid.New().String(), true))

	_, err := f.svc.Submit(context.Background(), f.companyID, owner, e.ID.String())
	assert.ErrorIs(t, err, approvalerrors.ErrInvalidStateTransition)
}

func TestSubmit_OwnerOnly(t *testing.T) {
	f := newEngineFixture(t)
	e := f.addDraft(uuid.New().String())

	_, err := f.svc.Submit(context.Background(), f.companyID, uuid.New().String(), e.ID.String())
	assert.ErrorIs(t, err, expenseerrors.ErrNotExpenseOwner)
}

func TestSubmit_ResolutionFailureKeepsDraft(t *testing.T) {
	f := newEngineFixture(t)
	owner := uuid.New().String()
	e := f.addDraft(owner)
	f.resolver.err = errors.New("no approval chain can be built")

	_, err := f.svc.Submit(context.Background(), f.companyID, owner, e.ID.String())
	assert.Error(t, err)
	assert.Equal(t, expense.StatusDraft, f.st.expenses[e.ID.String()].Status)
	assert.Empty(t, f.st.chains[e.ID.String()])
	assert.Empty(t, f.st.outbox)
}

func TestRecordDecision_RequiredVetoOverridesPercentage(t *testing.T) {
	f := newEngineFixture(t)
	owner := uuid.New().String()
	approverA := uuid.New().String()
	approverB := uuid.New().String()
	approverC := uuid.New().String()

	// Even with the threshold already met, a required rejection wins
	e := f.submitted(owner, false, 0,
		chainEntry(approverA, true),
		chainEntry(approverB, false),
		chainEntry(approverC, false),
	)

	f.expectTx()
	out, err := f.decide(e, approverA, DecisionRejected)
	assert.NoError(t, err)
	assert.Equal(t, expense.StatusRejected, out.Status)
	assert.Equal(t, expense.StatusRejected, f.st.expenses[e.ID.String()].Status)
	assert.NotNil(t, f.st.expenses[e.ID.String()].DecidedAt)

	assert.Len(t, f.st.outbox, 1)
	assert.Equal(t, "expense_decided", f.st.outbox[0].EventType)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRecordDecision_ExactPercentageMath(t *testing.T) {
	f := newEngineFixture(t)
	owner := uuid.New().String()
	approverA := uuid.New().String()
	approverB := uuid.New().String()
	approverC := uuid.New().String()

	// 3 approvers at 60%: 1/3 = 33% stays pending, 2/3 = 67% approves
	// once every required approver has approved
	e := f.submitted(owner, false, 60,
		chainEntry(approverA, true),
		chainEntry(approverB, false),
		chainEntry(approverC, false),
	)

	f.expectTx()
	out, err := f.decide(e, approverA, DecisionApproved)
	assert.NoError(t, err)
	assert.Equal(t, expense.StatusSubmitted, out.Status)

	f.expectTx()
	out, err = f.decide(e, approverB, DecisionApproved)
	assert.NoError(t, err)
	assert.Equal(t, expense.StatusApproved, out.Status)
	assert.Equal(t, expense.StatusApproved, f.st.expenses[e.ID.String()].Status)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRecordDecision_RequiredApprovalIsMandatory(t *testing.T) {
	f := newEngineFixture(t)
	owner := uuid.New().String()
	required := uuid.New().String()
	optional := uuid.New().String()

	// Optional approver alone meets 50%, but the required approver has
	// not approved yet
	e := f.submitted(owner, false, 50,
		chainEntry(required, true),
		chainEntry(optional, false),
	)

	f.expectTx()
	out, err := f.decide(e, optional, DecisionApproved)
	assert.NoError(t, err)
	assert.Equal(t, expense.StatusSubmitted, out.Status)

	f.expectTx()
	out, err = f.decide(e, required, DecisionApproved)
	assert.NoError(t, err)
	assert.Equal(t, expense.StatusApproved, out.Status)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRecordDecision_RequiredPlusOptionalScenario(t *testing.T) {
	f := newEngineFixture(t)
	owner := uuid.New().String()
	approverA := uuid.New().String()
	approverB := uuid.New().String()

	// A(required), B(optional), 60%: A alone is 50% and stays pending,
	// B's approval brings it to 100% with all required approved
	e := f.submitted(owner, false, 60,
		chainEntry(approverA, true),
		chainEntry(approverB, false),
	)

	f.expectTx()
	out, err := f.decide(e, approverA, DecisionApproved)
	assert.NoError(t, err)
	assert.Equal(t, expense.StatusSubmitted, out.Status)

	f.expectTx()
	out, err = f.decide(e, approverB, DecisionApproved)
	assert.NoError(t, err)
	assert.Equal(t, expense.StatusApproved, out.Status)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRecordDecision_SequenceGatesApprovals(t *testing.T) {
	f := newEngineFixture(t)
	owner := uuid.New().String()
	approverA := uuid.New().String()
	approverB := uuid.New().String()

	e := f.submitted(owner, true, 100,
		chainEntry(approverA, true),
		chainEntry(approverB, true),
	)

	_, err := f.decide(e, approverB, DecisionApproved)
	assert.ErrorIs(t, err, approvalerrors.ErrOutOfOrderDecision)
	assert.Empty(t, f.st.decisions[e.ID.String()])

	f.expectTx()
	out, err := f.decide(e, approverA, DecisionApproved)
	assert.NoError(t, err)
	assert.Equal(t, expense.StatusSubmitted, out.Status)

	f.expectTx()
	out, err = f.decide(e, approverB, DecisionApproved)
	assert.NoError(t, err)
	assert.Equal(t, expense.StatusApproved, out.Status)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRecordDecision_RejectionIsNeverOrderGated(t *testing.T) {
	f := newEngineFixture(t)
	owner := uuid.New().String()
	approverA := uuid.New().String()
	approverB := uuid.New().String()

	e := f.submitted(owner, true, 100,
		chainEntry(approverA, true),
		chainEntry(approverB, true),
	)

	// B is last in a sequenced chain but may still reject immediately
	f.expectTx()
	out, err := f.decide(e, approverB, DecisionRejected)
	assert.NoError(t, err)
	assert.Equal(t, expense.StatusRejected, out.Status)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRecordDecision_UnauthorizedApprover(t *testing.T) {
	f := newEngineFixture(t)
	owner := uuid.New().String()
	e := f.submitted(owner, false, 100, chainEntry(uuid.New().String(), true))

	_, err := f.decide(e, uuid.New().String(), DecisionApproved)
	assert.ErrorIs(t, err, approvalerrors.ErrUnauthorizedApprover)
}

func TestRecordDecision_OnlyWhileSubmitted(t *testing.T) {
	f := newEngineFixture(t)
	owner := uuid.New().String()
	approverA := uuid.New().String()

	draft := f.addDraft(owner)
	_, err := f.decide(draft, approverA, DecisionApproved)
	assert.ErrorIs(t, err, approvalerrors.ErrInvalidStateTransition)

	terminal := f.submitted(owner, false, 100, chainEntry(approverA, true))
	terminal.Status = expense.StatusRejected
	_, err = f.decide(terminal, approverA, DecisionApproved)
	assert.ErrorIs(t, err, approvalerrors.ErrInvalidStateTransition)
}

func TestRecordDecision_RepeatDecisionIsIdempotent(t *testing.T) {
	f := newEngineFixture(t)
	owner := uuid.New().String()
	approverA := uuid.New().String()
	approverB := uuid.New().String()

	e := f.submitted(owner, false, 100,
		chainEntry(approverA, true),
		chainEntry(approverB, true),
	)

	f.expectTx()
	out, err := f.decide(e, approverA, DecisionApproved)
	assert.NoError(t, err)
	assert.Equal(t, expense.StatusSubmitted, out.Status)

	// Same approver, same verdict: one stored decision, same aggregate
	f.expectTx()
	out, err = f.decide(e, approverA, DecisionApproved)
	assert.NoError(t, err)
	assert.Equal(t, expense.StatusSubmitted, out.Status)
	assert.Len(t, f.st.decisions[e.ID.String()], 1)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRecordDecision_OptionalRejectionDoesNotVeto(t *testing.T) {
	f := newEngineFixture(t)
	owner := uuid.New().String()
	required := uuid.New().String()
	optional := uuid.New().String()

	e := f.submitted(owner, false, 50,
		chainEntry(required, true),
		chainEntry(optional, false),
	)

	// 1 of 2 can still approve: 50% remains reachable
	f.expectTx()
	out, err := f.decide(e, optional, DecisionRejected)
	assert.NoError(t, err)
	assert.Equal(t, expense.StatusSubmitted, out.Status)

	f.expectTx()
	out, err = f.decide(e, required, DecisionApproved)
	assert.NoError(t, err)
	assert.Equal(t, expense.StatusApproved, out.Status)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRecordDecision_UnreachableThresholdRejectsEarly(t *testing.T) {
	f := newEngineFixture(t)
	owner := uuid.New().String()
	approverA := uuid.New().String()
	approverB := uuid.New().String()
	approverC := uuid.New().String()

	e := f.submitted(owner, false, 100,
		chainEntry(approverA, false),
		chainEntry(approverB, false),
		chainEntry(approverC, false),
	)

	// One optional rejection makes 100% unreachable with 3 approvers
	f.expectTx()
	out, err := f.decide(e, approverB, DecisionRejected)
	assert.NoError(t, err)
	assert.Equal(t, expense.StatusRejected, out.Status)
	assert.Equal(t, expense.StatusRejected, f.st.expenses[e.ID.String()].Status)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRecordDecision_RemovedApproverKeepsChainSize(t *testing.T) {
	f := newEngineFixture(t)
	owner := uuid.New().String()
	approverA := uuid.New().String()
	approverB := uuid.New().String()
	removed := uuid.New().String()

	removedEntry := chainEntry(removed, true)
	removedEntry.Removed = true
	e := f.submitted(owner, false, 60,
		chainEntry(approverA, true),
		chainEntry(approverB, false),
		removedEntry,
	)

	// The removed member cannot decide
	_, err := f.decide(e, removed, DecisionApproved)
	assert.ErrorIs(t, err, approvalerrors.ErrUnauthorizedApprover)

	// Denominator stays 3: two live approvals make 67% >= 60%, and the
	// removed required member is not waited on
	f.expectTx()
	out, err := f.decide(e, approverA, DecisionApproved)
	assert.NoError(t, err)
	assert.Equal(t, expense.StatusSubmitted, out.Status)

	f.expectTx()
	out, err = f.decide(e, approverB, DecisionApproved)
	assert.NoError(t, err)
	assert.Equal(t, expense.StatusApproved, out.Status)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestPendingFor_SequenceEligibility(t *testing.T) {
	f := newEngineFixture(t)
	owner := uuid.New().String()
	approverA := uuid.New().String()
	approverB := uuid.New().String()
	ctx := context.Background()

	e := f.submitted(owner, true, 100,
		chainEntry(approverA, true),
		chainEntry(approverB, true),
	)

	pendingA, err := f.svc.PendingFor(ctx, f.companyID, approverA)
	assert.NoError(t, err)
	assert.Len(t, pendingA, 1)
	assert.Equal(t, e.ID.String(), pendingA[0].ExpenseID)

	// B is blocked until A approves
	pendingB, err := f.svc.PendingFor(ctx, f.companyID, approverB)
	assert.NoError(t, err)
	assert.Empty(t, pendingB)

	f.expectTx()
	_, err = f.decide(e, approverA, DecisionApproved)
	assert.NoError(t, err)

	// A has decided and drops out, B becomes eligible
	pendingA, err = f.svc.PendingFor(ctx, f.companyID, approverA)
	assert.NoError(t, err)
	assert.Empty(t, pendingA)

	pendingB, err = f.svc.PendingFor(ctx, f.companyID, approverB)
	assert.NoError(t, err)
	assert.Len(t, pendingB, 1)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}
