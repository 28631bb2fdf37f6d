package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/nutrilog/backend/internal/logger"
	"github.com/pageza/nutrilog/backend/internal/service"
)

// AnalyzerHandler exposes the food analyzer's health and configuration.
type AnalyzerHandler struct {
	analyzer service.IAnalyzerHealth
	log      *logger.Logger
}

func NewAnalyzerHandler(analyzer service.IAnalyzerHealth, log *logger.Logger) *AnalyzerHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &AnalyzerHandler{analyzer: analyzer, log: log.With("handler", "AnalyzerHandler")}
}

func (h *AnalyzerHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/analyzer/health", h.Health)
	router.GET("/analyzer/config", h.Config)
}

func (h *AnalyzerHandler) Health(c *gin.Context) {
	if h.analyzer == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":     "error",
			"message":    "analyzer is not configured",
			"configured": false,
		})
		return
	}

	backend, err := h.analyzer.Health(c.Request.Context())
	if err != nil {
		h.log.Warn("analyzer health check failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":     "error",
			"message":    err.Error(),
			"configured": true,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": backend, "configured": true})
}

// Config passes through the analyzer's configuration report.
func (h *AnalyzerHandler) Config(c *gin.Context) {
	if h.analyzer == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analyzer is not configured"})
		return
	}

	cfg, err := h.analyzer.Config(c.Request.Context())
	if err != nil {
		h.log.Warn("failed to fetch analyzer config", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch analyzer config", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cfg)
}
