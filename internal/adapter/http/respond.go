package http

import (
	"net/http"
	"strconv"

	"github.com/diillson/calorie-api-go/internal/domain/model"
	"github.com/diillson/calorie-api-go/internal/infra/middleware"
	apierrors "github.com/diillson/calorie-api-go/pkg/errors"
	"github.com/diillson/calorie-api-go/pkg/validation"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError traduz o erro na resposta HTTP. Erros sem APIError viram um
// 500 genérico e só aparecem no log.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	apiErr, ok := apierrors.As(err)
	switch {
	case !ok:
		logger.Error("erro interno ao processar requisição",
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Error(err))
		_ = c.Error(err)
		apiErr = apierrors.InternalServer("", err)
	case apiErr.Code >= http.StatusInternalServerError:
		logger.Warn("falha ao processar requisição",
			zap.String("path", c.FullPath()),
			zap.Int("status", apiErr.Code),
			zap.Error(err))
	}

	body := gin.H{"error": apiErr.Message}
	if apiErr.Details != nil {
		body["details"] = apiErr.Details
	}
	c.AbortWithStatusJSON(apiErr.Code, body)
}

// bind decodifica o corpo JSON e valida as tags validate do DTO
func bind(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apierrors.BadRequest("Invalid request body", err)
	}
	return validation.Struct(dst)
}

// caller devolve a identidade autenticada pelo middleware
func caller(c *gin.Context) (model.Identity, error) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return model.Identity{}, apierrors.Unauthorized("", nil)
	}
	return identity, nil
}

// paging lê limit e skip da query. Limit acima de maxLimit é reduzido;
// valores negativos ou não inteiros são rejeitados. Limit ausente é 0, sem limite.
func paging(c *gin.Context, maxLimit int) (limit, skip int, err error) {
	if limit, err = nonNegativeQuery(c, "limit"); err != nil {
		return 0, 0, err
	}
	if skip, err = nonNegativeQuery(c, "skip"); err != nil {
		return 0, 0, err
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return limit, skip, nil
}

func nonNegativeQuery(c *gin.Context, name string) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apierrors.BadRequest(name+" must be a non-negative integer", err)
	}
	return n, nil
}

func done(c *gin.Context, status int, extra gin.H) {
	body := gin.H{"done": true}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}
