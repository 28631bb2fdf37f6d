package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/nutrilog/backend/internal/testhelpers"
)

func limitedRouter(rl *RateLimiter, userID uuid.UUID) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(UserIDKey, userID)
		c.Next()
	})
	router.POST("/food-logs", rl.RateLimitMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return router
}

func TestRateLimiterDisabledWithoutRedis(t *testing.T) {
	rl := NewSubmissionRateLimiter(nil, 1, nil)
	assert.False(t, rl.Enabled())

	router := limitedRouter(rl, uuid.New())
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/food-logs", nil))
		assert.Equal(t, http.StatusCreated, w.Code)
	}
}

func TestRateLimiterDisabledWithZeroLimit(t *testing.T) {
	rl := NewSubmissionRateLimiter(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), 0, nil)
	assert.False(t, rl.Enabled())
}

func TestRateLimiterFailsOpenOnRedisError(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	rl := NewSubmissionRateLimiter(client, 1, nil)

	w := httptest.NewRecorder()
	limitedRouter(rl, uuid.New()).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/food-logs", nil))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "rate limit check failed", w.Header().Get("X-RateLimit-Error"))
}

func TestRateLimiterWithRedis(t *testing.T) {
	client := testhelpers.SetupRedis(t)
	rl := NewSubmissionRateLimiter(client, 2, nil)
	userID := uuid.New()
	router := limitedRouter(rl, userID)

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		router.ServeHTTP(last, httptest.NewRequest(http.MethodPost, "/food-logs", nil))
		codes = append(codes, last.Code)
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "0", last.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, last.Header().Get("Retry-After"))

	remaining, reset, err := rl.GetRemainingRequests(context.Background(), userID.String())
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
	assert.True(t, reset.After(time.Now()))

	remaining, _, err = rl.GetRemainingRequests(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
}
