package errors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	apierrors "github.com/diillson/calorie-api-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"bad request", apierrors.BadRequest("bad", nil), http.StatusBadRequest},
		{"forbidden", apierrors.Forbidden("", nil), http.StatusForbidden},
		{"wrapped not found", fmt.Errorf("ctx: %w", apierrors.NotFound("missing", nil)), http.StatusNotFound},
		{"conflict", apierrors.Conflict("busy", nil), http.StatusConflict},
		{"upstream", apierrors.Upstream(401, "invalid key"), http.StatusBadGateway},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apierrors.StatusOf(tt.err))
		})
	}
}

func TestUpstreamCarriesStatus(t *testing.T) {
	err := apierrors.Upstream(http.StatusTooManyRequests, "quota exceeded")

	assert.True(t, errors.Is(err, apierrors.ErrUpstream))

	var upstream *apierrors.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusTooManyRequests, upstream.Status)
	assert.Equal(t, map[string]int{"upstreamStatus": http.StatusTooManyRequests}, err.Details)
}

func TestSentinelsAreReachable(t *testing.T) {
	assert.True(t, errors.Is(apierrors.Forbidden("", nil), apierrors.ErrForbidden))
	assert.True(t, errors.Is(apierrors.NotFound("x", nil), apierrors.ErrNotFound))
	assert.True(t, errors.Is(apierrors.Unauthorized("", nil), apierrors.ErrUnauthorized))
	assert.Equal(t, "Authentication required", apierrors.Unauthorized("", nil).Message)
}
