package middleware_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/diillson/calorie-api-go/internal/domain/model"
	"github.com/diillson/calorie-api-go/internal/infra/metrics"
	"github.com/diillson/calorie-api-go/internal/infra/middleware"
	"github.com/diillson/calorie-api-go/internal/mocks"
	"github.com/diillson/calorie-api-go/internal/testutils"
	apierrors "github.com/diillson/calorie-api-go/pkg/errors"
	"github.com/diillson/calorie-api-go/pkg/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	validator := new(mocks.MockAuthService)
	validator.On("ValidateToken", mock.Anything, "good").
		Return(model.Identity{Email: "ana@example.com", Role: model.RoleUser}, nil)
	validator.On("ValidateToken", mock.Anything, "admin").
		Return(model.Identity{Email: "root@example.com", Role: model.RoleAdmin}, nil)
	validator.On("ValidateToken", mock.Anything, "bad").
		Return(model.Identity{}, apierrors.Unauthorized("Invalid token", nil))

	mw := middleware.NewMiddleware(testutils.TestLogger(t), middleware.Options{Validator: validator})

	router := testutils.SetupTestRouter(t)
	router.GET("/me", mw.Authenticate, func(c *gin.Context) {
		identity, ok := middleware.IdentityFrom(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"email": identity.Email})
	})
	router.GET("/admin", mw.Authenticate, mw.RequirePrivileged, func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name    string
		path    string
		headers map[string]string
		status  int
	}{
		{"missing header", "/me", nil, http.StatusUnauthorized},
		{"not a bearer", "/me", map[string]string{"Authorization": "Basic abc"}, http.StatusUnauthorized},
		{"invalid token", "/me", testutils.BearerHeader("bad"), http.StatusUnauthorized},
		{"valid token", "/me", testutils.BearerHeader("good"), http.StatusOK},
		{"user on privileged route", "/admin", testutils.BearerHeader("good"), http.StatusForbidden},
		{"admin on privileged route", "/admin", testutils.BearerHeader("admin"), http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutils.MakeRequest(t, router, http.MethodGet, tt.path, nil, tt.headers)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	t.Run("identity reaches the handler", func(t *testing.T) {
		w := testutils.MakeRequest(t, router, http.MethodGet, "/me", nil, testutils.BearerHeader("good"))
		var body map[string]string
		testutils.ParseResponse(t, w, &body)
		assert.Equal(t, "ana@example.com", body["email"])
	})
}

func TestRateLimit(t *testing.T) {
	reg := prometheus.NewRegistry()
	apiMetrics := metrics.NewAPIMetrics(reg)

	limiter := new(mocks.MockLimiter)
	limiter.On("Allow", mock.Anything, mock.MatchedBy(func(cfg ratelimit.LimitConfig) bool {
		return cfg.Key == "ratelimit:login:10.0.0.1"
	})).Return(ratelimit.Result{Allowed: true, Limit: 2, Remaining: 1, ResetAfter: 30 * time.Second}, nil)
	limiter.On("Allow", mock.Anything, mock.MatchedBy(func(cfg ratelimit.LimitConfig) bool {
		return cfg.Key == "ratelimit:login:10.0.0.2"
	})).Return(ratelimit.Result{Allowed: false, Limit: 2, Remaining: 0, ResetAfter: 30 * time.Second}, nil)
	limiter.On("Allow", mock.Anything, mock.MatchedBy(func(cfg ratelimit.LimitConfig) bool {
		return cfg.Key == "ratelimit:login:10.0.0.3"
	})).Return(ratelimit.Result{}, errors.New("redis down"))

	mw := middleware.NewMiddleware(testutils.TestLogger(t), middleware.Options{
		Metrics: apiMetrics,
		Limiter: limiter,
	})

	router := testutils.SetupTestRouter(t)
	router.POST("/login", mw.RateLimit("login", 2, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	request := func(ip string) int {
		w := testutils.MakeRequest(t, router, http.MethodPost, "/login", nil, map[string]string{"X-Forwarded-For": ip})
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "30", w.Header().Get("Retry-After"))
		}
		return w.Code
	}

	assert.Equal(t, http.StatusOK, request("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, request("10.0.0.2"))
	assert.Equal(t, http.StatusOK, request("10.0.0.3"), "limiter errors must not block requests")

	count, err := testutil.GatherAndCount(reg, "calorie_api_rate_limited_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRateLimitWithMemoryLimiter(t *testing.T) {
	mw := middleware.NewMiddleware(testutils.TestLogger(t), middleware.Options{
		Limiter: ratelimit.NewMemoryLimiter(testutils.TestLogger(t)),
	})

	router := testutils.SetupTestRouter(t)
	router.POST("/users", mw.RateLimit("signup", 2, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, testutils.MakeRequest(t, router, http.MethodPost, "/users", nil, nil).Code)
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
}

func TestRecovery(t *testing.T) {
	mw := middleware.NewMiddleware(testutils.TestLogger(t), middleware.Options{})

	router := gin.New()
	router.Use(mw.Recovery())
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := testutils.MakeRequest(t, router, http.MethodGet, "/panic", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]string
	testutils.ParseResponse(t, w, &body)
	assert.Equal(t, "Internal server error", body["error"])
}

func TestSecurityHeadersAndCORS(t *testing.T) {
	mw := middleware.NewMiddleware(testutils.TestLogger(t), middleware.Options{TLS: true})

	router := testutils.SetupTestRouter(t)
	router.Use(mw.SecurityHeaders(), mw.CORS())
	router.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := testutils.MakeRequest(t, router, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = testutils.MakeRequest(t, router, http.MethodOptions, "/health", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
