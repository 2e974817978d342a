package testutils

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diillson/calorie-api-go/internal/adapter/database"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm/logger"
)

// TestLogger cria um logger zap para testes
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// NewTestDatabase abre um SQLite em memória exclusivo do teste, com o schema aplicado
func NewTestDatabase(t *testing.T) *database.Database {
	t.Helper()

	// uma única conexão mantém o banco em memória vivo e serializa as transações
	db, err := database.NewDatabase(context.Background(), database.Config{
		Driver:       "sqlite",
		DSN:          "file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)",
		MaxIdleConns: 1,
		MaxOpenConns: 1,
		LogLevel:     logger.Silent,
	}, TestLogger(t))
	require.NoError(t, err, "Failed to open test database")

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// NewTestStore cria um Store sobre um banco de teste novo
func NewTestStore(t *testing.T) *database.Store {
	t.Helper()
	return database.NewStore(NewTestDatabase(t).DB(), TestLogger(t))
}

// SetupTestRouter configura um router Gin para testes
func SetupTestRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery())
	return router
}

// MakeRequest executa uma requisição HTTP de teste
func MakeRequest(t *testing.T, router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody io.Reader

	if body != nil {
		switch v := body.(type) {
		case string:
			reqBody = strings.NewReader(v)
		case []byte:
			reqBody = strings.NewReader(string(v))
		default:
			jsonData, err := json.Marshal(body)
			require.NoError(t, err, "Failed to marshal request body")
			reqBody = strings.NewReader(string(jsonData))
		}
	}

	req, err := http.NewRequest(method, path, reqBody)
	require.NoError(t, err, "Failed to create HTTP request")
	// gin só resolve o IP do cliente com um RemoteAddr preenchido
	req.RemoteAddr = "192.0.2.1:1234"

	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	return resp
}

// BearerHeader monta o cabeçalho Authorization para um token
func BearerHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// ParseResponse analisa a resposta JSON para uma estrutura
func ParseResponse(t *testing.T, resp *httptest.ResponseRecorder, dst interface{}) {
	require.NotNil(t, resp, "Response recorder is nil")

	err := json.Unmarshal(resp.Body.Bytes(), dst)
	require.NoError(t, err, "Failed to parse response: %s", resp.Body.String())
}

// ContextWithTimeout cria um contexto com timeout para testes
func ContextWithTimeout(t *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// RequireHTTPStatus verifica o status HTTP da resposta
func RequireHTTPStatus(t *testing.T, resp *httptest.ResponseRecorder, status int) {
	require.Equal(t, status, resp.Code, "Expected HTTP status %d but got %d, body: %s",
		status, resp.Code, resp.Body.String())
}

// RequireJSONContentType verifica se o Content-Type da resposta é JSON
func RequireJSONContentType(t *testing.T, resp *httptest.ResponseRecorder) {
	contentType := resp.Header().Get("Content-Type")
	require.Contains(t, contentType, "application/json",
		"Expected Content-Type to contain application/json but got %s", contentType)
}
