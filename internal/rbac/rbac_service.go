package rbac

import (
	"sync"

	"go-expense/internal/domain"

	"github.com/casbin/casbin/v2"
)

// Role capabilities are fixed: ADMIN manages users and approval rules,
// everyone may file expenses and record decisions. Whether a decision is
// actually accepted is decided by the workflow engine against the
// snapshotted chain, not by the role.
var rolePolicies = [][]string{
	{domain.RoleAdmin, "user", "*"},
	{domain.RoleAdmin, "rule", "*"},
	{domain.RoleAdmin, "expense", "*"},
	{domain.RoleAdmin, "decision", "*"},
	{domain.RoleAdmin, "notification", "*"},

	{domain.RoleManager, "expense", "*"},
	{domain.RoleManager, "decision", "*"},
	{domain.RoleManager, "notification", "*"},
	{domain.RoleManager, "rule", "read"},

	{domain.RoleEmployee, "expense", "*"},
	{domain.RoleEmployee, "decision", "*"},
	{domain.RoleEmployee, "notification", "*"},
}

type Service interface {
	Enforce(req domain.EnforceRequest) (bool, error)
}

type service struct {
	enforcer *casbin.Enforcer
	mu       sync.Mutex
}

func NewService(enforcer *casbin.Enforcer) (Service, error) {
	for _, p := range rolePolicies {
		if _, err := enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			return nil, err
		}
	}

	return &service{enforcer: enforcer}, nil
}

func (s *service) Enforce(req domain.EnforceRequest) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.enforcer.Enforce(req.Role, req.Resource, req.Action)
}
