package approvalrule

import (
	"context"
	"errors"

	ruleerrors "go-expense/internal/approvalrule/errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ChainEntry is one approver of a resolved chain.
type ChainEntry struct {
	ApproverID string
	Required   bool
}

// EffectiveChain is the output of resolution: the ordered approver list an
// expense gets stamped with at submission time.
type EffectiveChain struct {
	Approvers             []ChainEntry
	SequenceMatters       bool
	MinApprovalPercentage int
}

// ManagerDirectory is the slice of the user repository the resolver needs.
type ManagerDirectory interface {
	ManagerOf(ctx context.Context, companyID, id string) (*string, error)
}

//go:generate mockgen -source=rule_resolver.go -destination=mock/rule_resolver_mock.go -package=mock
type Resolver interface {
	Resolve(ctx context.Context, companyID, employeeID string) (EffectiveChain, error)
}

type resolver struct {
	repo     Repository
	managers ManagerDirectory
	logger   *zap.Logger
}

func NewResolver(repo Repository, managers ManagerDirectory, logger ...*zap.Logger) Resolver {
	l := zap.L().Named("approvalrule.resolver")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("approvalrule.resolver")
	}
	return &resolver{repo: repo, managers: managers, logger: l}
}

// Resolve builds the effective chain for an employee.
//
// Without a stored rule the default policy applies: the direct manager is
// the only approver, required, with a 100% threshold and no sequencing.
// An employee with neither a rule nor a manager cannot submit anything;
// that surfaces as ErrRuleNotResolvable rather than an empty chain.
func (r *resolver) Resolve(ctx context.Context, companyID, employeeID string) (EffectiveChain, error) {
	rule, err := r.repo.FindByEmployee(ctx, companyID, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r.defaultChain(ctx, companyID, employeeID)
		}
		return EffectiveChain{}, err
	}

	chain := EffectiveChain{
		SequenceMatters:       rule.SequenceMatters,
		MinApprovalPercentage: rule.MinApprovalPercentage,
	}
	for _, a := range rule.Approvers {
		chain.Approvers = append(chain.Approvers, ChainEntry{
			ApproverID: a.ApproverID.String(),
			Required:   a.Required,
		})
	}

	if !rule.ManagerIsApprover {
		if len(chain.Approvers) == 0 {
			return EffectiveChain{}, ruleerrors.ErrDegenerateRule
		}
		return chain, nil
	}

	managerID, err := r.managerFor(ctx, companyID, employeeID, rule)
	if err != nil {
		return EffectiveChain{}, err
	}
	if managerID == "" {
		if len(chain.Approvers) == 0 {
			r.logger.Warn("rule not resolvable, manager required but absent",
				zap.String("company_id", companyID),
				zap.String("employee_id", employeeID),
			)
			return EffectiveChain{}, ruleerrors.ErrRuleNotResolvable
		}
		// Manager inclusion is configured but the employee has no
		// manager; the explicit approvers still form a valid chain.
		return chain, nil
	}

	chain.Approvers = prependManager(chain.Approvers, managerID)
	return chain, nil
}

func (r *resolver) defaultChain(ctx context.Context, companyID, employeeID string) (EffectiveChain, error) {
	managerID, err := r.managers.ManagerOf(ctx, companyID, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EffectiveChain{}, ruleerrors.ErrEmployeeNotFound
		}
		return EffectiveChain{}, err
	}
	if managerID == nil {
		return EffectiveChain{}, ruleerrors.ErrRuleNotResolvable
	}
	return EffectiveChain{
		Approvers: []ChainEntry{
			{ApproverID: *managerID, Required: true},
		},
		SequenceMatters:       false,
		MinApprovalPercentage: 100,
	}, nil
}

// managerFor prefers the manager pinned on the rule and falls back to the
// live reporting line. Returns "" when neither exists.
func (r *resolver) managerFor(ctx context.Context, companyID, employeeID string, rule *ApprovalRule) (string, error) {
	if rule.ManagerID != nil {
		return rule.ManagerID.String(), nil
	}
	managerID, err := r.managers.ManagerOf(ctx, companyID, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ruleerrors.ErrEmployeeNotFound
		}
		return "", err
	}
	if managerID == nil {
		return "", nil
	}
	return *managerID, nil
}

// prependManager puts the manager at the head of the chain as a required
// approver. If the manager is already listed explicitly, that entry is
// promoted to required and moved to the front instead of being duplicated.
func prependManager(approvers []ChainEntry, managerID string) []ChainEntry {
	out := []ChainEntry{{ApproverID: managerID, Required: true}}
	for _, a := range approvers {
		if a.ApproverID == managerID {
			continue
		}
		out = append(out, a)
	}
	return out
}
