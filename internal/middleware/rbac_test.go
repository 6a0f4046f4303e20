package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/neurons-lms/lms-api/internal/models"
)

func performWithClaims(t *testing.T, mw gin.HandlerFunc, claims *models.JWTClaims) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	r := gin.New()
	r.GET("/protected", func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}, mw, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAdminAllowsAdminRole(t *testing.T) {
	w := performWithClaims(t, RequireAdmin(), &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAdminAllowsSuperuserWithAnyRole(t *testing.T) {
	// A superuser passes admin checks even when their stored role is not admin.
	w := performWithClaims(t, RequireAdmin(), &models.JWTClaims{UserID: "u1", Role: models.RoleInstructor, Superuser: true})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAdminDeniesStudent(t *testing.T) {
	w := performWithClaims(t, RequireAdmin(), &models.JWTClaims{UserID: "u1", Role: models.RoleStudent})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireAdminWithoutClaims(t *testing.T) {
	w := performWithClaims(t, RequireAdmin(), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireStaffAllowsInstructor(t *testing.T) {
	w := performWithClaims(t, RequireStaff(), &models.JWTClaims{UserID: "u1", Role: models.RoleInstructor})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireStaffDeniesStudent(t *testing.T) {
	w := performWithClaims(t, RequireStaff(), &models.JWTClaims{UserID: "u1", Role: models.RoleStudent})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
