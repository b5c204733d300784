package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestVersionMiddleware(t *testing.T) {
	var seen string
	router := gin.New()
	router.Use(VersionMiddleware())
	router.GET("/api/v1/timesheets", func(c *gin.Context) {
		seen = GetAPIVersion(c)
		Success(c, nil)
	})

	t.Run("path version", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/timesheets", nil))
		assert.Equal(t, "v1", seen)
		assert.Empty(t, w.Header().Get("X-API-Deprecated"))
	})

	t.Run("header overrides path", func(t *testing.T) {
		RegisterDeprecatedVersion(DeprecatedVersionInfo{
			Version:         "v0",
			DeprecationDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			SunsetDate:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			MigrationPath:   "/api/v1",
		})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/timesheets", nil)
		req.Header.Set("API-Version", "v0")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "v0", seen)
		assert.Equal(t, "true", w.Header().Get("X-API-Deprecated"))
		assert.Equal(t, "2024-01-01", w.Header().Get("X-API-Deprecation-Date"))
		assert.Equal(t, "2025-01-01", w.Header().Get("X-API-Sunset-Date"))
		assert.Equal(t, "/api/v1", w.Header().Get("X-API-Migration-Path"))
	})
}
