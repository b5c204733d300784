package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mautops/timesheet-gin/internal/model"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestActorContextRoundTrip(t *testing.T) {
	actor := Actor{ID: "emp-1", Role: model.RoleEmployee}
	ctx := WithActor(context.Background(), actor)

	got, ok := ActorFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, actor, got)

	_, ok = ActorFromContext(context.Background())
	assert.False(t, ok)

	_, ok = ActorFromContext(nil)
	assert.False(t, ok)
}

func TestActorMiddlewareHeaderFallback(t *testing.T) {
	var captured Actor
	router := gin.New()
	router.Use(ActorMiddleware(nil))
	router.GET("/test", func(c *gin.Context) {
		captured, _ = ActorFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	t.Run("trusted headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Actor-ID", "mgr-1")
		req.Header.Set("X-Actor-Role", "manager")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, Actor{ID: "mgr-1", Role: model.RoleManager}, captured)
	})

	t.Run("missing identity", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Actor-ID", "mgr-1")
		req.Header.Set("X-Actor-Role", "bogus")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestActorMiddlewareRequiresBearerToken(t *testing.T) {
	router := gin.New()
	router.Use(ActorMiddleware(NewTokenValidator("https://keycloak.internal/realms/timesheet")))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	router := gin.New()
	router.Use(ActorMiddleware(nil), RequireAdmin())
	router.POST("/admin", func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(role string) int {
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		req.Header.Set("X-Actor-ID", "op-1")
		req.Header.Set("X-Actor-Role", role)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, call("super_admin"))
	assert.Equal(t, http.StatusForbidden, call("management"))
	assert.Equal(t, http.StatusForbidden, call("employee"))
}

func TestRoleFromClaims(t *testing.T) {
	claims := &TokenClaims{}
	claims.RealmAccess.Roles = []string{"offline_access", "manager", "employee"}
	assert.Equal(t, model.RoleManager, roleFromClaims(claims))

	claims.RealmAccess.Roles = []string{"uma_authorization"}
	assert.Equal(t, model.RoleEmployee, roleFromClaims(claims))
}
