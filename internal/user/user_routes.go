package user

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
	users := r.Group("/users")
	users.Use(middleware.AuthMiddleware())
	{
		users.GET("", middleware.RBACAuthorize(rbacService, "user", "read"), handler.GetAll)
		users.GET("/:id", middleware.RBACAuthorize(rbacService, "user", "read"), handler.GetById)
		users.POST("", middleware.RBACAuthorize(rbacService, "user", "create"), handler.Create)
		users.PUT("/:id", middleware.RBACAuthorize(rbacService, "user", "update"), handler.Update)
		users.DELETE("/:id", middleware.RBACAuthorize(rbacService, "user", "delete"), handler.Delete)
	}
}
