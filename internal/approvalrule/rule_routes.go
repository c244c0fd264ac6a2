package approvalrule

import (
	"go-expense/internal/middleware"
	"go-expense/internal/rbac"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService rbac.Service,
) {
	rules := r.Group("/approval-rules")
	rules.Use(middleware.AuthMiddleware())
	{
		rules.GET("", middleware.RBACAuthorize(rbacService, "rule", "read"), handler.GetAll)
		rules.GET("/:employeeId", middleware.RBACAuthorize(rbacService, "rule", "read"), handler.Get)
		rules.PUT("/:employeeId", middleware.RBACAuthorize(rbacService, "rule", "update"), handler.Upsert)
		rules.DELETE("/:employeeId", middleware.RBACAuthorize(rbacService, "rule", "delete"), handler.Delete)
	}
}
