package types

import (
	"github.com/pageza/nutrilog/backend/internal/models"
)

// SubmitFoodLogRequest is the JSON body for text and voice submissions.
// Image submissions use multipart/form-data with the same field names plus
// an "image" file part.
type SubmitFoodLogRequest struct {
	Text string `json:"text" form:"text"`
	Type string `json:"type" form:"type"`
}

// FoodLogResponse is returned when a submission completes.
type FoodLogResponse struct {
	Success  bool                          `json:"success"`
	Logs     []models.FoodLogEntry         `json:"logs"`
	Analysis *AnalysisResult               `json:"analysis,omitempty"`
	Summary  *models.DailyNutritionSummary `json:"summary,omitempty"`
	Message  string                        `json:"message"`
}

// ErrorResponse is the body of every failed request. Logs and
// ReconcileHint are set when entries were persisted but the daily summary
// may not include them yet.
type ErrorResponse struct {
	Error         string                `json:"error"`
	Details       string                `json:"details,omitempty"`
	Code          string                `json:"code,omitempty"`
	Step          string                `json:"step,omitempty"`
	Retryable     bool                  `json:"retryable"`
	Logs          []models.FoodLogEntry `json:"logs,omitempty"`
	ReconcileHint string                `json:"reconcile_hint,omitempty"`
}

// FoodLogListResponse is returned by GET /food-logs.
type FoodLogListResponse struct {
	Logs  []models.FoodLogEntry `json:"logs"`
	Count int                   `json:"count"`
	Date  string                `json:"date,omitempty"`
}

// ReconcileResponse is returned by the reconcile endpoint.
type ReconcileResponse struct {
	Summary models.DailyNutritionSummary `json:"summary"`
	Applied int                          `json:"applied"`
}

// RateLimitStatus reports the remaining submission budget.
// Enabled is false when no limiter is running.
type RateLimitStatus struct {
	Enabled   bool  `json:"enabled"`
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetIn   int64 `json:"reset_in_seconds"`
}
