package expense

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
	expenses := r.Group("/expenses")
	expenses.Use(middleware.AuthMiddleware())
	expenses.Use(middleware.ExtractUserID())
	{
		expenses.GET("", middleware.RBACAuthorize(rbacService, "expense", "read"), handler.GetAll)
		expenses.GET("/mine", middleware.RBACAuthorize(rbacService, "expense", "read"), handler.GetMine)
		expenses.GET("/totals", middleware.RBACAuthorize(rbacService, "expense", "read"), handler.Totals)
		expenses.GET("/:id", middleware.RBACAuthorize(rbacService, "expense", "read"), handler.GetById)
		expenses.POST("", middleware.RBACAuthorize(rbacService, "expense", "create"), handler.Create)
		expenses.PUT("/:id", middleware.RBACAuthorize(rbacService, "expense", "update"), handler.Update)
		expenses.DELETE("/:id", middleware.RBACAuthorize(rbacService, "expense", "delete"), handler.Delete)
	}
}
