package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apierrors "github.com/diillson/calorie-api-go/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func recordError(t *testing.T, err error) (*httptest.ResponseRecorder, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zapcore.InfoLevel)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/records", nil)

	respondError(c, zap.New(core), err)
	return w, logs
}

func TestRespondError(t *testing.T) {
	t.Run("plain errors become a generic 500", func(t *testing.T) {
		w, logs := recordError(t, errors.New("connection reset"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, map[string]interface{}{"error": "Internal server error"}, body)
		assert.NotContains(t, w.Body.String(), "connection reset")
		assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	})

	t.Run("upstream errors keep details", func(t *testing.T) {
		w, logs := recordError(t, apierrors.Upstream(503, "calorie estimator unavailable"))

		assert.Equal(t, http.StatusBadGateway, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "calorie estimator unavailable", body["error"])
		assert.Equal(t, map[string]interface{}{"upstreamStatus": float64(503)}, body["details"])
		assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	})

	t.Run("client errors are not logged", func(t *testing.T) {
		w, logs := recordError(t, apierrors.NotFound("record not found", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"record not found"}`, w.Body.String())
		assert.Zero(t, logs.Len())
	})
}
