package approval

import (
	"go-expense/internal/middleware"
	"go-expense/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService rbac.Service,
	rdb *redis.Client,
) {
	expenses := r.Group("/expenses")
	expenses.Use(middleware.AuthMiddleware())
	expenses.Use(middleware.ExtractUserID())
	{
		expenses.POST("/:id/submit",
			middleware.RBACAuthorize(rbacService, "expense", "submit"),
			handler.Submit,
		)
		expenses.POST("/:id/decisions",
			middleware.RBACAuthorize(rbacService, "decision", "create"),
			middleware.Idempotency(rdb),
			handler.Decide,
		)
		expenses.GET("/:id/decisions",
			middleware.RBACAuthorize(rbacService, "decision", "read"),
			handler.Decisions,
		)
		expenses.GET("/:id/chain",
			middleware.RBACAuthorize(rbacService, "decision", "read"),
			handler.Chain,
		)
	}

	approvals := r.Group("/approvals")
	approvals.Use(middleware.AuthMiddleware())
	approvals.Use(middleware.ExtractUserID())
	{
		approvals.GET("/pending",
			middleware.RBACAuthorize(rbacService, "decision", "read"),
			handler.Pending,
		)
	}
}
