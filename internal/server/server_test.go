package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pageza/nutrilog/backend/config"
	"github.com/pageza/nutrilog/backend/internal/api"
	"github.com/pageza/nutrilog/backend/internal/mocks"
	"github.com/pageza/nutrilog/backend/internal/models"
	"github.com/pageza/nutrilog/backend/internal/types"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.ServerHost = "127.0.0.1"
	cfg.ServerPort = "0"
	cfg.JWTSecret = "test-secret"
	return cfg
}

func TestNewServesHealthAndCORS(t *testing.T) {
	srv := New(testConfig(), api.Dependencies{Auth: &mocks.MockAuthService{}}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestPreflight(t *testing.T) {
	srv := New(testConfig(), api.Dependencies{Auth: &mocks.MockAuthService{}}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/food-logs", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestUnknownOriginGetsNoCORSHeaders(t *testing.T) {
	srv := New(testConfig(), api.Dependencies{Auth: &mocks.MockAuthService{}}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	srv.Handler().ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAuthenticatedRouteThroughServer(t *testing.T) {
	auth := &mocks.MockAuthService{}
	aggregator := &mocks.MockDailyAggregator{}
	userID := uuid.New()
	auth.On("ValidateToken", "tok").Return(&types.TokenClaims{UserID: userID}, nil)
	aggregator.On("GetSummary", mock.Anything, userID, "2024-03-01").
		Return(&models.DailyNutritionSummary{UserID: userID, LogDate: "2024-03-01", TotalCalories: 120}, nil)

	srv := New(testConfig(), api.Dependencies{Auth: auth, Aggregator: aggregator}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nutrition/daily?date=2024-03-01", nil)
	req.Header.Set("Authorization", "Bearer tok")
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_calories":120`)
	aggregator.AssertExpectations(t)
}

func TestStartAndShutdown(t *testing.T) {
	srv := New(testConfig(), api.Dependencies{Auth: &mocks.MockAuthService{}}, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
