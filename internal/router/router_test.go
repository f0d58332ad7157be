package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-registrar-api/internal/handler"
	"github.com/noah-isme/academic-registrar-api/internal/models"
	"github.com/noah-isme/academic-registrar-api/internal/service"
	"github.com/noah-isme/academic-registrar-api/pkg/config"
	appErrors "github.com/noah-isme/academic-registrar-api/pkg/errors"
)

type rejectAll struct{}

func (rejectAll) ValidateToken(string) (*models.JWTClaims, error) {
	return nil, appErrors.ErrUnauthorized
}

func testConfig() *config.Config {
	gin.SetMode(gin.TestMode)
	return &config.Config{Env: config.EnvDevelopment, APIPrefix: "/api/v1"}
}

func TestSetupRegistersRoutes(t *testing.T) {
	metrics := service.NewMetricsService()
	r := Setup(testConfig(), Handlers{Metrics: handler.NewMetricsHandler(metrics)}, rejectAll{}, metrics, nil)

	registered := map[string]bool{}
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}
	for _, want := range []string{
		"POST /api/v1/sections/:id/enrollments",
		"GET /api/v1/sections/:id/enrollments",
		"GET /api/v1/enrollments/:id",
		"POST /api/v1/enrollments/:id/withdraw",
		"POST /api/v1/enrollments/:id/override",
		"POST /api/v1/sections/:id/meetings",
		"PUT /api/v1/meetings/:id",
		"DELETE /api/v1/meetings/:id",
		"GET /api/v1/meetings/:id/occurrences",
		"POST /api/v1/sections/:id/appointments",
		"PUT /api/v1/appointments/:id",
		"DELETE /api/v1/appointments/:id",
		"POST /api/v1/conflicts/meetings",
		"POST /api/v1/conflicts/appointments",
		"GET /api/v1/sections/:id/conflicts",
		"GET /api/v1/sections/:id/calendar.ics",
		"GET /api/v1/students/:id/calendar.ics",
		"GET /api/v1/sections/:id/roster",
		"GET /health",
		"GET /ready",
		"GET /metrics",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

func TestHealthEndpointsAndAuth(t *testing.T) {
	metrics := service.NewMetricsService()
	failing := handler.ReadinessCheck{Name: "postgres", Check: func(context.Context) error { return errors.New("down") }}
	r := Setup(testConfig(), Handlers{Metrics: handler.NewMetricsHandler(metrics, failing)}, rejectAll{}, metrics, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"postgres":"down"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/enrollments/enr-1", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
