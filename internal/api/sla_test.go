package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestClassifyOperation(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodPost, "/api/v1/timesheets", "timesheet_write"},
		{http.MethodPost, "/api/v1/timesheets/ts-1/entries", "timesheet_write"},
		{http.MethodDelete, "/api/v1/entries/e-1", "timesheet_write"},
		{http.MethodPost, "/api/v1/timesheets/ts-1/submit", "approval_decision"},
		{http.MethodPost, "/api/v1/timesheets/ts-1/approvals/lead", "approval_decision"},
		{http.MethodGet, "/api/v1/billing/aggregate", "billing_aggregation"},
		{http.MethodGet, "/api/v1/timesheets", "query"},
		{http.MethodGet, "/health", "unclassified"},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(tt.method, tt.path, nil)
		assert.Equal(t, tt.want, classifyOperation(c), "%s %s", tt.method, tt.path)
	}
}

func TestWithinSLA(t *testing.T) {
	cfg := DefaultSLAConfig()

	assert.True(t, WithinSLA("query", 100*time.Millisecond, cfg))
	assert.False(t, WithinSLA("query", time.Second, cfg))
	assert.False(t, WithinSLA("approval_decision", 3*time.Second, cfg))

	// 未归类操作不做检查
	assert.True(t, WithinSLA("unclassified", time.Hour, cfg))
}

func TestSLAMonitorMiddlewareFastRequest(t *testing.T) {
	router := middlewareRouter(SLAMonitorMiddleware(nil))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-SLA-Violation"))
}
