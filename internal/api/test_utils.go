package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pageza/nutrilog/backend/internal/mocks"
	"github.com/pageza/nutrilog/backend/internal/types"
)

const testToken = "test-token"

// testEnv bundles a router wired to mocks for one authenticated user.
type testEnv struct {
	router     *gin.Engine
	userID     uuid.UUID
	auth       *mocks.MockAuthService
	ingestion  *mocks.MockIngestionService
	foodLogs   *mocks.MockFoodLogStore
	aggregator *mocks.MockDailyAggregator
	analyzer   *mocks.MockAnalyzer
	images     *mocks.MockImageArchive
	mealPlan   *mocks.MockMealPlanService
}

func newTestEnv(t *testing.T, configure ...func(*Dependencies)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		userID:     uuid.New(),
		auth:       &mocks.MockAuthService{},
		ingestion:  &mocks.MockIngestionService{},
		foodLogs:   &mocks.MockFoodLogStore{},
		aggregator: &mocks.MockDailyAggregator{},
		analyzer:   &mocks.MockAnalyzer{},
		images:     &mocks.MockImageArchive{},
		mealPlan:   &mocks.MockMealPlanService{},
	}
	env.auth.On("ValidateToken", testToken).Return(&types.TokenClaims{UserID: env.userID, Username: "tester"}, nil).Maybe()
	env.auth.On("ValidateToken", mock.Anything).Return(nil, assertErr("invalid token")).Maybe()

	deps := Dependencies{
		Auth:       env.auth,
		Ingestion:  env.ingestion,
		FoodLogs:   env.foodLogs,
		Aggregator: env.aggregator,
		Analyzer:   env.analyzer,
		Images:     env.images,
		MealPlan:   env.mealPlan,
	}
	for _, fn := range configure {
		fn(&deps)
	}

	env.router = gin.New()
	SetupAPI(env.router, deps)

	t.Cleanup(func() {
		env.ingestion.AssertExpectations(t)
		env.foodLogs.AssertExpectations(t)
		env.aggregator.AssertExpectations(t)
		env.analyzer.AssertExpectations(t)
		env.images.AssertExpectations(t)
		env.mealPlan.AssertExpectations(t)
	})
	return env
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

// PerformRequestWithToken sends a request carrying a bearer token. An empty
// token sends no Authorization header.
func PerformRequestWithToken(r http.Handler, method, path string, body io.Reader, contentType, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func (env *testEnv) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	return PerformRequestWithToken(env.router, method, path, body, contentType, testToken)
}

func (env *testEnv) postJSON(path string, payload interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(payload)
	return env.do(http.MethodPost, path, bytes.NewReader(data), "application/json")
}

// multipartImage builds a multipart body with an "image" part and the given
// extra form fields.
func multipartImage(t *testing.T, contentType string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="meal.png"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func multipartFields(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}
