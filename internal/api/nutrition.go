package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/nutrilog/backend/internal/logger"
	"github.com/pageza/nutrilog/backend/internal/service"
	"github.com/pageza/nutrilog/backend/internal/types"
)

// NutritionHandler serves daily nutrition summaries.
type NutritionHandler struct {
	aggregator service.IDailyAggregator
	log        *logger.Logger
}

func NewNutritionHandler(aggregator service.IDailyAggregator, log *logger.Logger) *NutritionHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &NutritionHandler{aggregator: aggregator, log: log.With("handler", "NutritionHandler")}
}

func (h *NutritionHandler) RegisterRoutes(router *gin.RouterGroup) {
	nutrition := router.Group("/nutrition")
	{
		nutrition.GET("/daily", h.GetDailySummary)
		nutrition.POST("/daily/reconcile", h.ReconcileDailySummary)
	}
}

// GetDailySummary returns the summary for ?date=, or an all-zero summary
// when nothing has been logged that day.
func (h *NutritionHandler) GetDailySummary(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	logDate, ok := logDateParam(c)
	if !ok {
		return
	}

	summary, err := h.aggregator.GetSummary(c.Request.Context(), userID, logDate)
	if err != nil {
		h.log.Error("failed to fetch daily summary", "user_id", userID, "log_date", logDate, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch daily nutrition"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ReconcileDailySummary applies persisted submissions the summary is
// missing. Submissions already counted are never added again.
func (h *NutritionHandler) ReconcileDailySummary(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	logDate, ok := logDateParam(c)
	if !ok {
		return
	}

	summary, applied, err := h.aggregator.Reconcile(c.Request.Context(), userID, logDate)
	if err != nil {
		h.log.Error("failed to reconcile daily summary", "user_id", userID, "log_date", logDate, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reconcile daily nutrition"})
		return
	}
	if applied > 0 {
		h.log.Info("reconciled daily summary", "user_id", userID, "log_date", logDate, "applied", applied)
	}
	c.JSON(http.StatusOK, types.ReconcileResponse{Summary: *summary, Applied: applied})
}
