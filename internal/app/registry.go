package app

import (
	"net/http"

	"go-expense/internal/approval"
	"go-expense/internal/approvalrule"
	"go-expense/internal/auth"
	"go-expense/internal/expense"
	"go-expense/internal/messaging/kafka"
	"go-expense/internal/middleware"
	"go-expense/internal/notification"
	"go-expense/internal/rbac"
	rbacinfra "go-expense/internal/rbac/infra"
	"go-expense/internal/user"

	"github.com/gin-gonic/gin"
)

// BuildRouter wires repositories, services and handlers and registers
// every route group on a fresh engine.
func (a *App) BuildRouter() (*gin.Engine, error) {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return nil, err
	}

	enforcer, err := rbacinfra.NewEnforcer()
	if err != nil {
		return nil, err
	}
	rbacService, err := rbac.NewService(enforcer)
	if err != nil {
		return nil, err
	}

	userRepo := user.NewRepository(a.DB)
	expenseRepo := expense.NewRepository(a.DB)
	ruleRepo := approvalrule.NewRepository(a.DB)
	approvalRepo := approval.NewRepository(a.DB)
	notificationRepo := notification.NewRepository(a.DB)
	outboxRepo := kafka.NewOutboxRepository(sqlDB)

	authRepo := auth.NewRepository(a.DB)
	authService := auth.NewService(authRepo)

	userService := user.NewService(sqlDB, userRepo, ruleRepo, approvalRepo, a.Logger)
	expenseService := expense.NewService(sqlDB, expenseRepo, a.Redis, a.Logger)
	ruleService := approvalrule.NewService(sqlDB, ruleRepo, userRepo, a.Redis, a.Logger)
	resolver := approvalrule.NewResolver(ruleRepo, userRepo, a.Logger)
	approvalService := approval.NewService(
		sqlDB, approvalRepo, expenseRepo, resolver, outboxRepo, a.Redis, a.Logger,
	)
	notificationService := notification.NewService(notificationRepo, a.Logger)

	authHandler := auth.NewHandler(authService, a.Logger)
	userHandler := user.NewHandler(userService, a.Logger)
	expenseHandler := expense.NewHandler(expenseService, a.Logger)
	ruleHandler := approvalrule.NewHandler(ruleService, a.Logger)
	approvalHandler := approval.NewHandler(approvalService, a.Redis, a.Logger)
	notificationHandler := notification.NewHandler(notificationService, a.Logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.ContextLogger(a.Logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	auth.RegisterRoutes(api, authHandler)
	user.RegisterRoutes(api, userHandler, rbacService)
	expense.RegisterRoutes(api, expenseHandler, rbacService)
	approvalrule.RegisterRoutes(api, ruleHandler, rbacService)
	approval.RegisterRoutes(api, approvalHandler, rbacService, a.Redis)
	notification.RegisterRoutes(api, notificationHandler, rbacService)

	return router, nil
}
