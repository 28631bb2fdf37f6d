package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pageza/nutrilog/backend/internal/logger"
	"github.com/pageza/nutrilog/backend/internal/middleware"
	"github.com/pageza/nutrilog/backend/internal/models"
	"github.com/pageza/nutrilog/backend/internal/service"
	"github.com/pageza/nutrilog/backend/internal/types"
)

// FoodLogHandler accepts food submissions and lists logged entries.
type FoodLogHandler struct {
	ingestion     service.IIngestionService
	foodLogs      service.IFoodLogStore
	images        service.IImageArchive
	rateLimiter   *middleware.RateLimiter
	maxImageBytes int64
	log           *logger.Logger
}

func NewFoodLogHandler(
	ingestion service.IIngestionService,
	foodLogs service.IFoodLogStore,
	images service.IImageArchive,
	rateLimiter *middleware.RateLimiter,
	maxImageBytes int64,
	log *logger.Logger,
) *FoodLogHandler {
	if maxImageBytes <= 0 {
		maxImageBytes = service.DefaultMaxImageBytes
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &FoodLogHandler{
		ingestion:     ingestion,
		foodLogs:      foodLogs,
		images:        images,
		rateLimiter:   rateLimiter,
		maxImageBytes: maxImageBytes,
		log:           log.With("handler", "FoodLogHandler"),
	}
}

func (h *FoodLogHandler) RegisterRoutes(router *gin.RouterGroup) {
	foodLogs := router.Group("/food-logs")
	{
		if h.rateLimiter != nil {
			foodLogs.POST("", h.rateLimiter.RateLimitMiddleware(), h.CreateFoodLog)
		} else {
			foodLogs.POST("", h.CreateFoodLog)
		}
		foodLogs.GET("", h.ListFoodLogs)
	}
}

// CreateFoodLog handles POST /food-logs with a JSON or multipart body.
func (h *FoodLogHandler) CreateFoodLog(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	sub, err := h.readSubmission(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "Invalid request body",
			Details: err.Error(),
			Code:    string(service.KindInvalidInput),
		})
		return
	}

	res, err := h.ingestion.Submit(c.Request.Context(), userID, sub)
	if err != nil {
		status, body := ingestErrorResponse(res, err)
		if status >= http.StatusInternalServerError {
			h.log.Error("food log submission failed", "user_id", userID, "code", body.Code, "error", err)
		}
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, types.FoodLogResponse{
		Success:  true,
		Logs:     res.Entries,
		Analysis: res.Analysis,
		Summary:  res.Summary,
		Message:  res.Message(),
	})
}

func (h *FoodLogHandler) readSubmission(c *gin.Context) (service.Submission, error) {
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		var req types.SubmitFoodLogRequest
		// an empty body falls through to field validation
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			return service.Submission{}, err
		}
		return service.Submission{Type: req.Type, Text: req.Text}, nil
	}

	sub := service.Submission{Type: c.PostForm("type"), Text: c.PostForm("text")}
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return sub, nil
	}
	if err != nil {
		return sub, fmt.Errorf("failed to read image: %w", err)
	}

	img := &service.ImageUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
	}
	// oversized uploads are left unread and rejected by the normalizer
	if fh.Size <= h.maxImageBytes {
		f, err := fh.Open()
		if err != nil {
			return sub, fmt.Errorf("failed to open image: %w", err)
		}
		defer func() { _ = f.Close() }()
		img.Data, err = io.ReadAll(io.LimitReader(f, h.maxImageBytes+1))
		if err != nil {
			return sub, fmt.Errorf("failed to read image: %w", err)
		}
	}
	sub.Image = img
	return sub, nil
}

// ListFoodLogs handles GET /food-logs?date=YYYY-MM-DD. Without a date every
// entry of the user is returned. Entries are newest first.
func (h *FoodLogHandler) ListFoodLogs(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	raw := c.Query("date")
	var day *time.Time
	if raw != "" {
		d, err := models.ParseLogDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{
				Error:   "Invalid date",
				Details: "date must be formatted as YYYY-MM-DD",
				Code:    string(service.KindInvalidInput),
			})
			return
		}
		day = &d
	}

	entries, err := h.foodLogs.ListByUser(c.Request.Context(), userID, day)
	if err != nil {
		h.log.Error("failed to list food logs", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch food logs"})
		return
	}
	if entries == nil {
		entries = []models.FoodLogEntry{}
	}
	h.attachImageURLs(c, entries)

	c.JSON(http.StatusOK, types.FoodLogListResponse{Logs: entries, Count: len(entries), Date: raw})
}

func (h *FoodLogHandler) attachImageURLs(c *gin.Context, entries []models.FoodLogEntry) {
	if h.images == nil {
		return
	}
	for i := range entries {
		if entries[i].ImageKey == "" {
			continue
		}
		url, err := h.images.PresignURL(c.Request.Context(), entries[i].ImageKey)
		if err != nil {
			h.log.Warn("failed to presign meal photo", "key", entries[i].ImageKey, "error", err)
			continue
		}
		entries[i].ImageURL = url
	}
}
