package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/pageza/nutrilog/backend/internal/types"
)

type mockValidator struct {
	mock.Mock
}

func (m *mockValidator) ValidateToken(token string) (*types.TokenClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TokenClaims), args.Error(1)
}

func newAuthRouter(v TokenValidator) *gin.Engine {
	router := gin.New()
	router.Use(AuthMiddleware(v))
	router.GET("/me", func(c *gin.Context) {
		id, ok := UserID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": id.String(), "username": c.GetString(UsernameKey)})
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name       string
		header     string
		setup      func(v *mockValidator)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "missing header",
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"missing authorization header"}`,
		},
		{
			name:       "wrong scheme",
			header:     "Basic abc",
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"invalid authorization header format"}`,
		},
		{
			name:       "empty token",
			header:     "Bearer ",
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"invalid authorization header format"}`,
		},
		{
			name:   "rejected token",
			header: "Bearer bad",
			setup: func(v *mockValidator) {
				v.On("ValidateToken", "bad").Return(nil, errors.New("signature is invalid"))
			},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"invalid or expired token"}`,
		},
		{
			name:   "valid token",
			header: "Bearer good",
			setup: func(v *mockValidator) {
				v.On("ValidateToken", "good").Return(&types.TokenClaims{UserID: userID, Username: "sam"}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"user_id":"` + userID.String() + `","username":"sam"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &mockValidator{}
			if tt.setup != nil {
				tt.setup(v)
			}

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newAuthRouter(v).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
			v.AssertExpectations(t)
		})
	}
}

func TestUserIDWithoutAuth(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := UserID(c)
	assert.False(t, ok)

	c.Set(UserIDKey, "not-a-uuid")
	_, ok = UserID(c)
	assert.False(t, ok)
}
