// Package router assembles the HTTP API: middleware, swagger UI and the
// routes of every handler.
package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"fundledger/internal/config"
	"fundledger/internal/handlers"
	"fundledger/internal/middleware"
	"fundledger/internal/services"

	_ "fundledger/internal/docs" // Import swagger docs
)

// New builds the gin engine for cfg over the services in container.
func New(cfg *config.Config, container *services.Container) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	if cfg.RateLimit != "" {
		limiter, err := middleware.NewRateLimiter(cfg.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT %q: %w", cfg.RateLimit, err)
		}
		router.Use(middleware.RateLimit(limiter))
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	accountHandler := handlers.NewAccountHandler(container.Accounts, container.Audit)
	transactionHandler := handlers.NewTransactionHandler(container.Transactions, container.Exports, container.Audit)
	allocationHandler := handlers.NewAllocationHandler(container.Allocations, container.Exports, container.Audit)
	budgetHandler := handlers.NewBudgetHandler(container.Budgets)
	reportHandler := handlers.NewReportHandler(container.Reports, container.Exports, container.Audit)
	periodHandler := handlers.NewPlanningPeriodHandler(container.PlanningPeriods, container.Audit)
	auditHandler := handlers.NewAuditHandler(container.Audit)

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg.JWTSecret, cfg.AuthDisabled))

	accounts := api.Group("/chart-of-accounts")
	accounts.GET("", accountHandler.ListAccounts)
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("/:code", accountHandler.GetAccount)
	accounts.PUT("/:code", accountHandler.UpdateAccount)
	accounts.DELETE("/:code", accountHandler.DeleteAccount)

	transactions := api.Group("/transactions")
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("/export", transactionHandler.ExportTransactions)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	allocations := api.Group("/budget-allocations")
	allocations.GET("", allocationHandler.GetAllocations)
	allocations.PUT("", allocationHandler.PutAllocations)
	allocations.POST("/bulk-copy", allocationHandler.BulkCopy)
	allocations.GET("/consistency", allocationHandler.CheckConsistency)
	allocations.GET("/export", allocationHandler.ExportAllocations)

	budgets := api.Group("/budgets")
	budgets.GET("", budgetHandler.GetMonth)
	budgets.GET("/ytd", budgetHandler.GetYearToDate)
	budgets.GET("/year", budgetHandler.GetYear)
	budgets.GET("/fiscal-year/:periodId", budgetHandler.GetFiscalYear)

	reports := api.Group("/reports")
	reports.GET("", reportHandler.ListReports)
	reports.POST("", reportHandler.SaveReport)
	reports.GET("/generate/:year/:month", reportHandler.GenerateReport)
	reports.GET("/:id", reportHandler.GetReport)
	reports.PUT("/:id", reportHandler.UpdateReport)
	reports.POST("/:id/finalize", reportHandler.FinalizeReport)
	reports.POST("/:id/reopen", reportHandler.ReopenReport)
	reports.GET("/:id/export", reportHandler.ExportReport)

	periods := api.Group("/planning-periods")
	periods.GET("", periodHandler.ListPeriods)
	periods.POST("", periodHandler.CreatePeriod)
	periods.POST("/validate", periodHandler.ValidatePeriod)
	periods.GET("/:id", periodHandler.GetPeriod)
	periods.PUT("/:id", periodHandler.UpdatePeriod)

	api.GET("/audit-logs", auditHandler.ListAuditLogs)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
