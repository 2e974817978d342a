package app_test

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/diillson/calorie-api-go/internal/app"
	"github.com/diillson/calorie-api-go/internal/domain/model"
	"github.com/diillson/calorie-api-go/internal/testutils"
	"github.com/diillson/calorie-api-go/pkg/config"
	"github.com/diillson/calorie-api-go/pkg/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t      *testing.T
	app    *app.App
	router *gin.Engine
}

func newHarness(t *testing.T, mutate func(cfg *config.Config)) *harness {
	t.Helper()

	cfg := config.Default()
	cfg.Database.DSN = "file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
	cfg.Database.MaxIdleConns = 1
	cfg.Database.MaxOpenConns = 1
	cfg.Database.LogLevel = "silent"
	cfg.Database.MigrationDir = ""
	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.Estimator.Provider = "static"
	cfg.Estimator.StaticCalories = 450
	cfg.RateLimit.LoginLimit = 1000
	if mutate != nil {
		mutate(cfg)
	}

	a, err := app.NewApp(context.Background(), cfg, testutils.TestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	router := testutils.SetupTestRouter(t)
	a.RegisterRoutes(router)

	return &harness{t: t, app: a, router: router}
}

func (h *harness) do(method, path string, body any, token string) (int, map[string]any) {
	h.t.Helper()

	var headers map[string]string
	if token != "" {
		headers = testutils.BearerHeader(token)
	}
	w := testutils.MakeRequest(h.t, h.router, method, path, body, headers)

	var out map[string]any
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		testutils.ParseResponse(h.t, w, &out)
	}
	return w.Code, out
}

func (h *harness) signup(email string, expected int) string {
	h.t.Helper()

	code, body := h.do(http.MethodPost, "/users", map[string]any{
		"email":                  email,
		"name":                   "Test",
		"surname":                "User",
		"password":               "password",
		"expectedCaloriesPerDay": expected,
	}, "")
	require.Equal(h.t, http.StatusCreated, code, "%v", body)

	return h.login(email, "password")
}

func (h *harness) login(email, password string) string {
	h.t.Helper()

	code, body := h.do(http.MethodPost, "/users/login", map[string]any{"email": email, "password": password}, "")
	require.Equal(h.t, http.StatusOK, code, "%v", body)
	token, ok := body["accessToken"].(string)
	require.True(h.t, ok)
	return token
}

// promote grava um papel diretamente no banco, como faria o createadmin
func (h *harness) promote(email string, role model.Role) {
	h.t.Helper()
	ctx := context.Background()

	u, err := h.app.Store.Users().GetByEmail(ctx, email)
	require.NoError(h.t, err)
	u.Role = role
	require.NoError(h.t, h.app.Store.Users().Update(ctx, u))
}

func (h *harness) flags(token string) []bool {
	h.t.Helper()

	code, body := h.do(http.MethodGet, "/records", nil, token)
	require.Equal(h.t, http.StatusOK, code, "%v", body)

	out := []bool{}
	for _, r := range body["records"].([]any) {
		out = append(out, r.(map[string]any)["lessThanExpectedCalories"].(bool))
	}
	return out
}

func TestRecordFlow(t *testing.T) {
	h := newHarness(t, nil)
	token := h.signup("ana@example.com", 2000)

	for _, calories := range []int{800, 700, 600} {
		code, body := h.do(http.MethodPost, "/records", map[string]any{
			"date":             "2020-03-01",
			"time":             fmt.Sprintf("%02d:00:00", 8+calories/100),
			"text":             "meal",
			"numberOfCalories": calories,
		}, token)
		require.Equal(t, http.StatusCreated, code, "%v", body)
		assert.Equal(t, true, body["done"])
		assert.NotEmpty(t, body["id"])
	}

	// ordenado por hora: 600 (14h), 700 (15h), 800 (16h)
	assert.Equal(t, []bool{true, true, false}, h.flags(token))

	code, body := h.do(http.MethodPut, "/users/ana@example.com", map[string]any{"expectedCaloriesPerDay": 2200}, token)
	require.Equal(t, http.StatusOK, code, "%v", body)
	assert.Equal(t, []bool{true, true, true}, h.flags(token))

	t.Run("estimated calories", func(t *testing.T) {
		code, body := h.do(http.MethodPost, "/records", map[string]any{
			"date": "2020-03-02",
			"time": "12:00:00",
			"text": "1 banana",
		}, token)
		require.Equal(t, http.StatusCreated, code, "%v", body)

		code, got := h.do(http.MethodGet, "/records/"+body["id"].(string), nil, token)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, float64(450), got["numberOfCalories"])
		assert.Equal(t, "ana@example.com", got["userEmail"])
	})

	t.Run("validation", func(t *testing.T) {
		code, body := h.do(http.MethodPost, "/records", map[string]any{
			"date": "01/03/2020",
			"time": "12:00",
			"text": "x",
		}, token)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, body["error"], "YYYY-MM-DD")

		code, _ = h.do(http.MethodPost, "/records", map[string]any{
			"date":             "2020-03-03",
			"time":             "12:00:00",
			"text":             "feast",
			"numberOfCalories": 100001,
		}, token)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("filter and paging", func(t *testing.T) {
		code, body := h.do(http.MethodGet, "/records?filter="+url.QueryEscape("numberOfCalories gt 650")+"&limit=1&skip=1", nil, token)
		require.Equal(t, http.StatusOK, code, "%v", body)
		records := body["records"].([]any)
		require.Len(t, records, 1)
		assert.Equal(t, float64(800), records[0].(map[string]any)["numberOfCalories"])

		code, _ = h.do(http.MethodGet, "/records?limit=-1", nil, token)
		assert.Equal(t, http.StatusBadRequest, code)
		code, _ = h.do(http.MethodGet, "/records?skip=abc", nil, token)
		assert.Equal(t, http.StatusBadRequest, code)
		code, _ = h.do(http.MethodGet, "/records?filter="+url.QueryEscape("password eq 1"), nil, token)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestAccessRules(t *testing.T) {
	h := newHarness(t, nil)
	ana := h.signup("ana@example.com", 2000)
	bia := h.signup("bia@example.com", 2000)
	h.signup("mod@example.com", 2000)
	h.promote("mod@example.com", model.RoleModerator)
	mod := h.login("mod@example.com", "password")

	code, body := h.do(http.MethodPost, "/records", map[string]any{
		"date": "2020-03-01", "time": "08:00:00", "text": "eggs", "numberOfCalories": 300,
	}, ana)
	require.Equal(t, http.StatusCreated, code)
	recordID := body["id"].(string)

	t.Run("unauthenticated", func(t *testing.T) {
		code, _ := h.do(http.MethodGet, "/records", nil, "")
		assert.Equal(t, http.StatusUnauthorized, code)
		code, _ = h.do(http.MethodGet, "/records", nil, "garbage")
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("record ownership", func(t *testing.T) {
		code, _ := h.do(http.MethodGet, "/records/"+recordID, nil, bia)
		assert.Equal(t, http.StatusForbidden, code)
		code, _ = h.do(http.MethodGet, "/records/"+uuid.NewString(), nil, bia)
		assert.Equal(t, http.StatusNotFound, code)
		code, _ = h.do(http.MethodGet, "/records/"+recordID, nil, mod)
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("user endpoints", func(t *testing.T) {
		code, body := h.do(http.MethodGet, "/users/ana@example.com", nil, ana)
		require.Equal(t, http.StatusOK, code)
		assert.NotContains(t, body, "role")
		assert.NotContains(t, body, "password")

		code, _ = h.do(http.MethodGet, "/users/ana@example.com", nil, bia)
		assert.Equal(t, http.StatusForbidden, code)

		code, body = h.do(http.MethodGet, "/users/ana@example.com", nil, mod)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "user", body["role"])

		code, body = h.do(http.MethodGet, "/users", nil, mod)
		require.Equal(t, http.StatusOK, code)
		assert.Len(t, body["users"], 3)
	})

	t.Run("privileged create", func(t *testing.T) {
		newUser := map[string]any{
			"email": "new@example.com", "name": "N", "surname": "S",
			"password": "password", "expectedCaloriesPerDay": 1500, "role": "moderator",
		}
		code, _ := h.do(http.MethodPost, "/admin/users", newUser, ana)
		assert.Equal(t, http.StatusForbidden, code)

		code, body := h.do(http.MethodPost, "/admin/users", newUser, mod)
		assert.Equal(t, http.StatusCreated, code, "%v", body)

		newUser["email"] = "root@example.com"
		newUser["role"] = "admin"
		code, _ = h.do(http.MethodPost, "/admin/users", newUser, mod)
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("login failures look the same", func(t *testing.T) {
		code1, body1 := h.do(http.MethodPost, "/users/login", map[string]any{"email": "ana@example.com", "password": "nope"}, "")
		code2, body2 := h.do(http.MethodPost, "/users/login", map[string]any{"email": "ghost@example.com", "password": "nope"}, "")
		assert.Equal(t, http.StatusBadRequest, code1)
		assert.Equal(t, code1, code2)
		assert.Equal(t, body1, body2)
	})

	t.Run("deleted account loses access", func(t *testing.T) {
		code, _ := h.do(http.MethodDelete, "/users/ana@example.com", nil, mod)
		require.Equal(t, http.StatusOK, code)

		code, _ = h.do(http.MethodGet, "/records", nil, ana)
		assert.Equal(t, http.StatusUnauthorized, code)
		code, _ = h.do(http.MethodGet, "/records/"+recordID, nil, mod)
		assert.Equal(t, http.StatusNotFound, code)
	})
}

func TestStoredRoleWinsOverTokenRole(t *testing.T) {
	h := newHarness(t, nil)
	h.signup("ana@example.com", 2000)

	keys, err := security.NewKeyManager([]byte(h.app.Config.Auth.JWTSecret), time.Hour, testutils.TestLogger(t))
	require.NoError(t, err)
	forged, err := keys.GenerateToken("ana@example.com", "admin")
	require.NoError(t, err)

	code, body := h.do(http.MethodGet, "/users", nil, forged)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["users"], 1)
}

func TestLoginRateLimit(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.RateLimit.LoginLimit = 2
		cfg.RateLimit.Period = time.Minute
	})

	creds := map[string]any{"email": "ghost@example.com", "password": "x"}
	var codes []int
	for i := 0; i < 3; i++ {
		code, _ := h.do(http.MethodPost, "/users/login", creds, "")
		codes = append(codes, code)
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}

func TestOperationalEndpoints(t *testing.T) {
	h := newHarness(t, nil)

	code, body := h.do(http.MethodGet, "/health/readiness", nil, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "UP", body["status"])

	code, _ = h.do(http.MethodGet, "/health/liveness", nil, "")
	assert.Equal(t, http.StatusOK, code)

	w := testutils.MakeRequest(t, h.router, http.MethodGet, "/health", nil, nil)
	testutils.RequireHTTPStatus(t, w, http.StatusOK)
	testutils.RequireJSONContentType(t, w)

	w = testutils.MakeRequest(t, h.router, http.MethodGet, "/metrics", nil, nil)
	testutils.RequireHTTPStatus(t, w, http.StatusOK)
	assert.Contains(t, w.Body.String(), "calorie_api_requests_total")

	code, _ = h.do(http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, code)
}
