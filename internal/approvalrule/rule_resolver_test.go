package approvalrule

import (
	"context"
	"database/sql"
	"testing"

	ruleerrors "go-expense/internal/approvalrule/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeRuleRepo struct {
	rule *ApprovalRule
}

func (f *fakeRuleRepo) WithTx(tx *sql.Tx) Repository { return f }
func (f *fakeRuleRepo) Upsert(ctx context.Context, rule *ApprovalRule) error { return nil }
func (f *fakeRuleRepo) FindByEmployee(ctx context.Context, companyID, employeeID string) (*ApprovalRule, error) {
	if f.rule == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.rule, nil
}
func (f *fakeRuleRepo) FindAllByCompany(ctx context.Context, companyID string) ([]ApprovalRule, error) {
	return nil, nil
}
func (f *fakeRuleRepo) DeleteByEmployee(ctx context.Context, companyID, employeeID string) error {
	return nil
}
func (f *fakeRuleRepo) CountApproverReferences(ctx context.Context, companyID, userID string) (int64, error) {
	return 0, nil
}
func (f *fakeRuleRepo) CountManagerReferences(ctx context.Context, companyID, userID string) (int64, error) {
	return 0, nil
}
func (f *fakeRuleRepo) RemoveApproverFromRules(ctx context.Context, companyID, userID string) error {
	return nil
}
func (f *fakeRuleRepo) ClearManagerFromRules(ctx context.Context, companyID, userID string) error {
	return nil
}

type fakeManagers struct {
	managerID *string
}

func (f *fakeManagers) ManagerOf(ctx context.Context, companyID, id string) (*string, error) {
	return f.managerID, nil
}

func ruleWith(approvers []RuleApprover, managerIsApprover bool, managerID *uuid.UUID) *ApprovalRule {
	return &ApprovalRule{
		ID:                    uuid.New(),
		CompanyID:             uuid.New(),
		EmployeeID:            uuid.New(),
		ManagerID:             managerID,
		SequenceMatters:       true,
		MinApprovalPercentage: 75,
		ManagerIsApprover:     managerIsApprover,
		Approvers:             approvers,
	}
}

func approverEntry(id uuid.UUID, position int, required bool) RuleApprover {
	return RuleApprover{ID: uuid.New(), ApproverID: id, Position: position, Required: required}
}

func TestResolve_DefaultRuleIsManagerOnly(t *testing.T) {
	managerID := uuid.New().String()
	r := NewResolver(&fakeRuleRepo{}, &fakeManagers{managerID: &managerID})

	chain, err := r.Resolve(context.Background(), uuid.New().String(), uuid.New().String())
	assert.NoError(t, err)
	assert.Equal(t, []ChainEntry{{ApproverID: managerID, Required: true}}, chain.Approvers)
	assert.False(t, chain.SequenceMatters)
	assert.Equal(t, 100, chain.MinApprovalPercentage)
}

func TestResolve_DefaultRuleWithoutManagerFails(t *testing.T) {
	r := NewResolver(&fakeRuleRepo{}, &fakeManagers{})

	_, err := r.Resolve(context.Background(), uuid.New().String(), uuid.New().String())
	assert.ErrorIs(t, err, ruleerrors.ErrRuleNotResolvable)
}

func TestResolve_ConfiguredRuleWithoutManagerInclusion(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	rule := ruleWith([]RuleApprover{
		approverEntry(a, 0, true),
		approverEntry(b, 1, false),
	}, false, nil)
	r := NewResolver(&fakeRuleRepo{rule: rule}, &fakeManagers{})

	chain, err := r.Resolve(context.Background(), rule.CompanyID.String(), rule.EmployeeID.String())
	assert.NoError(t, err)
	assert.Equal(t, []ChainEntry{
		{ApproverID: a.String(), Required: true},
		{ApproverID: b.String(), Required: false},
	}, chain.Approvers)
	assert.True(t, chain.SequenceMatters)
	assert.Equal(t, 75, chain.MinApprovalPercentage)
}

func TestResolve_DegenerateRuleFails(t *testing.T) {
	rule := ruleWith(nil, false, nil)
	r := NewResolver(&fakeRuleRepo{rule: rule}, &fakeManagers{})

	_, err := r.Resolve(context.Background(), rule.CompanyID.String(), rule.EmployeeID.String())
	assert.ErrorIs(t, err, ruleerrors.ErrDegenerateRule)
}

func TestResolve_ManagerPrependedAsRequired(t *testing.T) {
	managerID := uuid.New().String()
	a := uuid.New()
	rule := ruleWith([]RuleApprover{approverEntry(a, 0, false)}, true, nil)
	r := NewResolver(&fakeRuleRepo{rule: rule}, &fakeManagers{managerID: &managerID})

	chain, err := r.Resolve(context.Background(), rule.CompanyID.String(), rule.EmployeeID.String())
	assert.NoError(t, err)
	assert.Equal(t, []ChainEntry{
		{ApproverID: managerID, Required: true},
		{ApproverID: a.String(), Required: false},
	}, chain.Approvers)
}

func TestResolve_ManagerDeduplicatedAndPromoted(t *testing.T) {
	manager := uuid.New()
	managerID := manager.String()
	a := uuid.New()
	// Manager already listed explicitly, as optional and not first
	rule := ruleWith([]RuleApprover{
		approverEntry(a, 0, true),
		approverEntry(manager, 1, false),
	}, true, nil)
	r := NewResolver(&fakeRuleRepo{rule: rule}, &fakeManagers{managerID: &managerID})

	chain, err := r.Resolve(context.Background(), rule.CompanyID.String(), rule.EmployeeID.String())
	assert.NoError(t, err)
	assert.Equal(t, []ChainEntry{
		{ApproverID: managerID, Required: true},
		{ApproverID: a.String(), Required: true},
	}, chain.Approvers)
}

func TestResolve_ManagerInclusionWithoutManager(t *testing.T) {
	// No manager anywhere and no other approvers: unresolvable
	rule := ruleWith(nil, true, nil)
	r := NewResolver(&fakeRuleRepo{rule: rule}, &fakeManagers{})

	_, err := r.Resolve(context.Background(), rule.CompanyID.String(), rule.EmployeeID.String())
	assert.ErrorIs(t, err, ruleerrors.ErrRuleNotResolvable)

	// With explicit approvers the chain still resolves, minus the manager
	a := uuid.New()
	rule = ruleWith([]RuleApprover{approverEntry(a, 0, true)}, true, nil)
	r = NewResolver(&fakeRuleRepo{rule: rule}, &fakeManagers{})

	chain, err := r.Resolve(context.Background(), rule.CompanyID.String(), rule.EmployeeID.String())
	assert.NoError(t, err)
	assert.Equal(t, []ChainEntry{{ApproverID: a.String(), Required: true}}, chain.Approvers)
}

func TestResolve_PinnedManagerWinsOverLiveLink(t *testing.T) {
	pinned := uuid.New()
	liveID := uuid.New().String()
	rule := ruleWith(nil, true, &pinned)
	r := NewResolver(&fakeRuleRepo{rule: rule}, &fakeManagers{managerID: &liveID})

	chain, err := r.Resolve(context.Background(), rule.CompanyID.String(), rule.EmployeeID.String())
	assert.NoError(t, err)
	assert.Equal(t, []ChainEntry{{ApproverID: pinned.String(), Required: true}}, chain.Approvers)
}
