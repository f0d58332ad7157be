package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/academic-registrar-api/internal/models"
	appErrors "github.com/noah-isme/academic-registrar-api/pkg/errors"
	"github.com/noah-isme/academic-registrar-api/pkg/logger"
)

type tokenStub map[string]*models.JWTClaims

func (s tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	claims, ok := s[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return claims, nil
}

func newAuthRouter(guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	tokens := tokenStub{
		"admin":   {UserID: "admin-1", Role: models.RoleAdmin},
		"student": {UserID: "stu-1", Role: models.RoleStudent},
	}
	router := gin.New()
	router.Use(JWT(tokens))
	router.GET("/students/:id", guard, func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(logger.ActorKey))
	})
	return router
}

func TestJWTAndRBAC(t *testing.T) {
	router := newAuthRouter(RBAC(string(models.RoleAdmin), Self))

	tests := []struct {
		name   string
		header string
		path   string
		want   int
		actor  string
	}{
		{name: "missing header", path: "/students/stu-1", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic admin", path: "/students/stu-1", want: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer nope", path: "/students/stu-1", want: http.StatusUnauthorized},
		{name: "admin", header: "Bearer admin", path: "/students/stu-9", want: http.StatusOK, actor: "admin-1"},
		{name: "self", header: "bearer student", path: "/students/stu-1", want: http.StatusOK, actor: "stu-1"},
		{name: "other student", header: "Bearer student", path: "/students/stu-2", want: http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
			if tc.actor != "" {
				assert.Equal(t, tc.actor, w.Body.String())
			}
		})
	}
}

func TestRequireStaff(t *testing.T) {
	router := newAuthRouter(RequireStaff())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/students/stu-1", nil)
	req.Header.Set("Authorization", "Bearer student")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/students/stu-1", nil)
	req.Header.Set("Authorization", "Bearer admin")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
