package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	testrequire "github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domain "room-user-service/internal/domain/user"
	pkgerrors "room-user-service/pkg/errors"
	"room-user-service/pkg/logger"
)

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) ResolveCaller(ctx context.Context, accessToken string) (*domain.User, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func setupAuthRouter(t *testing.T, resolver CallerResolver, guards ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append([]gin.HandlerFunc{Authenticate(resolver, zaptest.NewLogger(t))}, guards...)
	chain = append(chain, func(c *gin.Context) {
		caller := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{
			"id":      caller.ID.String(),
			"user_id": logger.GetUserID(c.Request.Context()),
		})
	})
	r.GET("/protected", chain...)
	return r
}

func doGet(r http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	active := &domain.User{ID: uuid.New(), IsActive: true}

	t.Run("Success", func(t *testing.T) {
		resolver := new(MockResolver)
		resolver.On("ResolveCaller", mock.Anything, "good").Return(active, nil)
		r := setupAuthRouter(t, resolver)

		w := doGet(r, "Bearer good")

		testrequire.Equal(t, http.StatusOK, w.Code)
		var body map[string]string
		testrequire.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, active.ID.String(), body["id"])
		assert.Equal(t, active.ID.String(), body["user_id"])
	})

	t.Run("MissingHeader", func(t *testing.T) {
		resolver := new(MockResolver)
		r := setupAuthRouter(t, resolver)

		w := doGet(r, "")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
		resolver.AssertNotCalled(t, "ResolveCaller", mock.Anything, mock.Anything)
	})

	t.Run("WrongScheme", func(t *testing.T) {
		resolver := new(MockResolver)
		r := setupAuthRouter(t, resolver)

		w := doGet(r, "Basic Zm9vOmJhcg==")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("InvalidToken", func(t *testing.T) {
		resolver := new(MockResolver)
		resolver.On("ResolveCaller", mock.Anything, "bad").
			Return(nil, pkgerrors.NewUnauthorizedError("could not validate credentials"))
		r := setupAuthRouter(t, resolver)

		w := doGet(r, "Bearer bad")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var body ErrorResponse
		testrequire.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "unauthorized", body.Error)
		assert.Equal(t, "could not validate credentials", body.Message)
	})
}

func TestRequireGuards(t *testing.T) {
	tests := []struct {
		name   string
		caller *domain.User
		guard  gin.HandlerFunc
		want   int
	}{
		{"active passes active", &domain.User{ID: uuid.New(), IsActive: true}, RequireActive(), http.StatusOK},
		{"inactive rejected", &domain.User{ID: uuid.New()}, RequireActive(), http.StatusForbidden},
		{"inactive superuser rejected", &domain.User{ID: uuid.New(), IsSuperuser: true}, RequireSuperuser(), http.StatusForbidden},
		{"regular rejected by superuser guard", &domain.User{ID: uuid.New(), IsActive: true}, RequireSuperuser(), http.StatusForbidden},
		{"superuser passes", &domain.User{ID: uuid.New(), IsActive: true, IsSuperuser: true}, RequireSuperuser(), http.StatusOK},
		{"superuser passes active", &domain.User{ID: uuid.New(), IsActive: true, IsSuperuser: true}, RequireActive(), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := new(MockResolver)
			resolver.On("ResolveCaller", mock.Anything, "tok").Return(tt.caller, nil)
			r := setupAuthRouter(t, resolver, tt.guard)

			w := doGet(r, "Bearer tok")
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequire_WithoutAuthenticate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", RequireActive(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := doGet(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAbortWithError_HidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/internal", func(c *gin.Context) {
		AbortWithError(c, pkgerrors.NewInternalError("db exploded", assert.AnError))
	})
	r.GET("/plain", func(c *gin.Context) {
		AbortWithError(c, assert.AnError)
	})

	for _, path := range []string{"/internal", "/plain"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "db exploded")
		assert.NotContains(t, w.Body.String(), assert.AnError.Error())
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(logger.RequestID(), Recovery(zaptest.NewLogger(t)), Logger(zaptest.NewLogger(t)))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, w.Header().Get(logger.RequestIDHeader))
}
