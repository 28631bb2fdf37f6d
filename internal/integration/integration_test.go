package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/pageza/nutrilog/backend/internal/api"
	"github.com/pageza/nutrilog/backend/internal/models"
	"github.com/pageza/nutrilog/backend/internal/service"
	"github.com/pageza/nutrilog/backend/internal/testhelpers"
	"github.com/pageza/nutrilog/backend/internal/types"
)

const applesAndChicken = `{
	"success": true,
	"input_type": "text",
	"items": [
		{"name": "apple", "quantity": 2, "unit": "medium", "macros": {"calories": 299.6, "protein": 1, "carbs": 50, "fats": 0.6, "fiber": 8.8}},
		{"food_name": "grilled chicken breast", "qty": "150", "units": "g", "nutrition": {"kcal": 250.4, "protein": 46.5, "fat": 5.4}}
	],
	"totals": {"calories": 550, "protein": 47.5, "carbs": 50, "fats": 6}
}`

type stack struct {
	router *gin.Engine
	db     *gorm.DB
	token  string
	userID uuid.UUID
	calls  *int64
}

// newStack wires the real services over SQLite and a fake analyzer that
// always answers with body.
func newStack(t *testing.T, body string) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var calls int64
	analyzerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(analyzerSrv.Close)

	db := testhelpers.SetupSQLiteDB(t)
	auth := service.NewAuthService("integration-secret")
	analyzer := service.NewAnalyzerClient(analyzerSrv.URL, 5*time.Second, true, nil)
	foodLogs := service.NewFoodLogService(db)
	aggregator := service.NewDailyAggregator(db, nil)
	ingestion := service.NewIngestionService(service.NewNormalizer(0), analyzer, foodLogs, aggregator, nil, service.IngestionOptions{}, nil)

	router := gin.New()
	api.SetupAPI(router, api.Dependencies{
		Auth:       auth,
		Ingestion:  ingestion,
		FoodLogs:   foodLogs,
		Aggregator: aggregator,
		Analyzer:   analyzer,
	})

	userID := uuid.New()
	token, err := auth.GenerateToken(&types.TokenClaims{UserID: userID, Username: "integration"})
	require.NoError(t, err)

	return &stack{router: router, db: db, token: token, userID: userID, calls: &calls}
}

func (s *stack) request(t *testing.T, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *stack) summary(t *testing.T, logDate string) models.DailyNutritionSummary {
	t.Helper()
	w := s.request(t, http.MethodGet, "/api/v1/nutrition/daily?date="+logDate, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out models.DailyNutritionSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestSubmitTextUpdatesDailySummary(t *testing.T) {
	s := newStack(t, applesAndChicken)

	w := s.request(t, http.MethodPost, "/api/v1/food-logs", map[string]string{"text": "2 medium apples and 150g grilled chicken breast"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp types.FoodLogResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Logs, 2)
	assert.Equal(t, "2 medium apple", resp.Logs[0].Description)
	assert.Equal(t, int64(300), resp.Logs[0].Calories)
	assert.Equal(t, "150 g grilled chicken breast", resp.Logs[1].Description)
	assert.Equal(t, int64(250), resp.Logs[1].Calories)

	// per-item rounding, not the analyzer's own totals
	summary := s.summary(t, resp.Logs[0].LogDate)
	assert.Equal(t, int64(550), summary.TotalCalories)
	assert.InDelta(t, 47.5, summary.TotalProtein, 1e-9)
	assert.InDelta(t, 6.0, summary.TotalFat, 1e-9)
	assert.Equal(t, 0, summary.WaterIntakeGlasses)

	list := s.request(t, http.MethodGet, "/api/v1/food-logs?date="+resp.Logs[0].LogDate, nil)
	require.Equal(t, http.StatusOK, list.Code)
	var listed types.FoodLogListResponse
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &listed))
	assert.Equal(t, 2, listed.Count)
}

func TestConcurrentSubmissionsAreAllCounted(t *testing.T) {
	s := newStack(t, applesAndChicken)
	const n = 8

	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/food-logs", bytes.NewBufferString(`{"text":"apples and chicken"}`))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+s.token)
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				return fmt.Errorf("submission failed with %d: %s", w.Code, w.Body.String())
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	summary := s.summary(t, models.LogDateFor(time.Now()))
	assert.Equal(t, int64(550*n), summary.TotalCalories)

	var entries []models.FoodLogEntry
	require.NoError(t, s.db.Where("user_id = ?", s.userID).Find(&entries).Error)
	assert.Len(t, entries, 2*n)
	total, err := models.EntriesTotal(entries)
	require.NoError(t, err)
	assert.Equal(t, summary.TotalCalories, total.Calories)
}

func TestEmptyAnalysisPersistsNothing(t *testing.T) {
	s := newStack(t, `{"success": true, "items": []}`)

	w := s.request(t, http.MethodPost, "/api/v1/food-logs", map[string]string{"text": "asdfgh"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"empty_result"`)

	var count int64
	require.NoError(t, s.db.Model(&models.FoodLogEntry{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Zero(t, s.summary(t, models.LogDateFor(time.Now())).TotalCalories)
}

func TestInvalidInputNeverReachesAnalyzer(t *testing.T) {
	s := newStack(t, applesAndChicken)

	w := s.request(t, http.MethodPost, "/api/v1/food-logs", map[string]string{"text": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing field: text")
	assert.Zero(t, atomic.LoadInt64(s.calls))
}

func TestReconcileAppliesMissingSubmissionOnce(t *testing.T) {
	s := newStack(t, applesAndChicken)
	logDate := models.LogDateFor(time.Now())

	// entries persisted without their aggregate update
	submissionID := uuid.New()
	orphans := []models.FoodLogEntry{
		{UserID: s.userID, SubmissionID: submissionID, Description: "toast", LogType: models.LogTypeText, Calories: 120, Carbs: 20, LogDate: logDate, LoggedAt: time.Now()},
	}
	require.NoError(t, service.NewFoodLogService(s.db).CreateBatch(context.Background(), orphans))

	for i := 0; i < 2; i++ {
		w := s.request(t, http.MethodPost, "/api/v1/nutrition/daily/reconcile?date="+logDate, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp types.ReconcileResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 1-i, resp.Applied)
		assert.Equal(t, int64(120), resp.Summary.TotalCalories)
	}
}
