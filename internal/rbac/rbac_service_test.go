package rbac

import (
	"testing"

	"go-expense/internal/domain"
	"go-expense/internal/rbac/infra"

	"github.com/stretchr/testify/assert"
)

func TestRBACService_Enforce(t *testing.T) {
	enforcer, err := infra.NewEnforcer()
	assert.NoError(t, err)

	service, err := NewService(enforcer)
	assert.NoError(t, err)

	// Everyone may act on expenses and decisions
	for _, role := range []string{domain.RoleAdmin, domain.RoleManager, domain.RoleEmployee} {
		allowed, err := service.Enforce(domain.EnforceRequest{Role: role, Resource: "expense", Action: "submit"})
		assert.NoError(t, err)
		assert.True(t, allowed, role)

		allowed, err = service.Enforce(domain.EnforceRequest{Role: role, Resource: "decision", Action: "create"})
		assert.NoError(t, err)
		assert.True(t, allowed, role)
	}

	// Rule configuration is admin-only; managers may read
	allowed, err := service.Enforce(domain.EnforceRequest{Role: domain.RoleAdmin, Resource: "rule", Action: "update"})
	assert.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = service.Enforce(domain.EnforceRequest{Role: domain.RoleManager, Resource: "rule", Action: "read"})
	assert.NoError(t, err)
	assert.True(t, allowed)

	denied, err := service.Enforce(domain.EnforceRequest{Role: domain.RoleManager, Resource: "rule", Action: "update"})
	assert.NoError(t, err)
	assert.False(t, denied)

	denied, err = service.Enforce(domain.EnforceRequest{Role: domain.RoleEmployee, Resource: "user", Action: "read"})
	assert.NoError(t, err)
	assert.False(t, denied)
}
