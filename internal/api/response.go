package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/nutrilog/backend/internal/middleware"
	"github.com/pageza/nutrilog/backend/internal/models"
	"github.com/pageza/nutrilog/backend/internal/service"
	"github.com/pageza/nutrilog/backend/internal/types"
)

const reconcileHint = "Your food was logged but the daily total may be out of date. Refresh the daily summary instead of submitting again."

// statusForKind maps a pipeline failure to an HTTP status.
func statusForKind(kind service.FailureKind) int {
	switch kind {
	case service.KindInvalidInput, service.KindEmptyResult:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ingestErrorResponse builds the body for a failed submission. res is only
// set for degraded failures, where entries were persisted.
func ingestErrorResponse(res *service.SubmissionResult, err error) (int, types.ErrorResponse) {
	var ie *service.IngestError
	if !errors.As(err, &ie) {
		return http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to log food"}
	}

	body := types.ErrorResponse{
		Error:     ie.Message,
		Details:   ie.Details,
		Code:      string(ie.Kind),
		Step:      string(ie.Step),
		Retryable: ie.Kind.Retryable(),
	}
	if body.Details == "" && ie.Err != nil {
		body.Details = ie.Err.Error()
	}
	if ie.Kind.Degraded() && res != nil {
		body.Logs = res.Entries
		body.ReconcileHint = reconcileHint
	}
	return statusForKind(ie.Kind), body
}

// currentUser writes a 401 when the request carries no user.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
	}
	return userID, ok
}

// logDateParam reads ?date=YYYY-MM-DD, defaulting to today in UTC.
func logDateParam(c *gin.Context) (string, bool) {
	raw := c.Query("date")
	if raw == "" {
		return models.LogDateFor(time.Now()), true
	}
	if _, err := models.ParseLogDate(raw); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "Invalid date",
			Details: "date must be formatted as YYYY-MM-DD",
			Code:    string(service.KindInvalidInput),
		})
		return "", false
	}
	return raw, true
}
