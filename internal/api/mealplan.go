package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/nutrilog/backend/internal/logger"
	"github.com/pageza/nutrilog/backend/internal/service"
)

const maxMealPlanBody = 1 << 20

// MealPlanHandler forwards meal plan requests to the configured provider.
type MealPlanHandler struct {
	mealPlan service.IMealPlanService
	log      *logger.Logger
}

func NewMealPlanHandler(mealPlan service.IMealPlanService, log *logger.Logger) *MealPlanHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &MealPlanHandler{mealPlan: mealPlan, log: log.With("handler", "MealPlanHandler")}
}

func (h *MealPlanHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/mealplan", h.GenerateMealPlan)
}

func (h *MealPlanHandler) GenerateMealPlan(c *gin.Context) {
	if h.mealPlan == nil || !h.mealPlan.Configured() {
		missing := "MEALPLAN_BASE_URL"
		if h.mealPlan != nil {
			missing = h.mealPlan.MissingConfig()
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": missing + " not configured on server."})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxMealPlanBody))
	var payload map[string]interface{}
	if err != nil || json.Unmarshal(body, &payload) != nil || payload == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	resp, err := h.mealPlan.Generate(c.Request.Context(), body)
	if err != nil {
		h.log.Error("meal plan request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reach meal plan provider", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}
