package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pageza/nutrilog/backend/internal/middleware"
	"github.com/pageza/nutrilog/backend/internal/types"
)

// RateLimitHandler reports the caller's remaining submission quota.
type RateLimitHandler struct {
	limiter *middleware.RateLimiter
}

func NewRateLimitHandler(limiter *middleware.RateLimiter) *RateLimitHandler {
	return &RateLimitHandler{limiter: limiter}
}

func (h *RateLimitHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/rate-limits/submissions", h.GetSubmissionLimit)
}

func (h *RateLimitHandler) GetSubmissionLimit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if !h.limiter.Enabled() {
		c.JSON(http.StatusOK, types.RateLimitStatus{Enabled: false})
		return
	}

	remaining, resetTime, err := h.limiter.GetRemainingRequests(c.Request.Context(), userID.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get rate limit status"})
		return
	}
	c.JSON(http.StatusOK, types.RateLimitStatus{
		Enabled:   true,
		Limit:     h.limiter.Limit(),
		Remaining: remaining,
		ResetIn:   int64(time.Until(resetTime).Seconds()),
	})
}
