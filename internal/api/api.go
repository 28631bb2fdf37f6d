package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/nutrilog/backend/internal/logger"
	"github.com/pageza/nutrilog/backend/internal/middleware"
	"github.com/pageza/nutrilog/backend/internal/service"
)

// Dependencies are the services the HTTP layer is built on. Images,
// MealPlan and RateLimiter may be nil.
type Dependencies struct {
	Auth          middleware.TokenValidator
	Ingestion     service.IIngestionService
	FoodLogs      service.IFoodLogStore
	Aggregator    service.IDailyAggregator
	Analyzer      service.IAnalyzerHealth
	Images        service.IImageArchive
	MealPlan      service.IMealPlanService
	RateLimiter   *middleware.RateLimiter
	MaxImageBytes int64
	Health        func(c *gin.Context) error
	Logger        *logger.Logger
}

// SetupAPI registers /health and every authenticated route under /api/v1.
func SetupAPI(router *gin.Engine, deps Dependencies) {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}

	router.GET("/health", func(c *gin.Context) {
		if deps.Health != nil {
			if err := deps.Health(c); err != nil {
				log.Warn("health check failed", "error", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(deps.Auth))
	{
		NewFoodLogHandler(deps.Ingestion, deps.FoodLogs, deps.Images, deps.RateLimiter, deps.MaxImageBytes, log).RegisterRoutes(v1)
		NewNutritionHandler(deps.Aggregator, log).RegisterRoutes(v1)
		NewAnalyzerHandler(deps.Analyzer, log).RegisterRoutes(v1)
		NewMealPlanHandler(deps.MealPlan, log).RegisterRoutes(v1)
		NewRateLimitHandler(deps.RateLimiter).RegisterRoutes(v1)
	}
}
