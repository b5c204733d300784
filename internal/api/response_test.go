package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mautops/timesheet-gin/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET("/test", handler)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestSuccessResponse(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Success(c, gin.H{"id": "ts-001"})
	})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "success", resp.Message)
}

func TestErrorResponse(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Error(c, http.StatusBadRequest, "validation failed", "week_start is not a Monday")
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "validation failed", resp.Message)
	assert.Equal(t, "week_start is not a Monday", resp.Detail)
}

func TestErrorResponseClampsInvalidCode(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Error(c, 42, "weird", "")
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 45)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 20, p.PageSize)
	assert.EqualValues(t, 45, p.Total)
	assert.Equal(t, 3, p.TotalPage)

	p = NewPagination(1, 0, 45)
	assert.Equal(t, 0, p.TotalPage)
}

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation maps to 400", service.NewValidationError("entries", "missing"), http.StatusBadRequest},
		{"invalid transition maps to 409", service.NewInvalidStateTransition("approved", "decide", "frozen"), http.StatusConflict},
		{"not found maps to 404", service.NewNotFound("timesheet", "ts-001"), http.StatusNotFound},
		{"aggregation maps to 422", service.NewAggregationError("billing rate", "emp-1", "no rate"), http.StatusUnprocessableEntity},
		{"version conflict maps to 409", service.ErrVersionConflict, http.StatusConflict},
		{"unknown maps to 500", assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(func(c *gin.Context) {
				RespondServiceError(c, tt.err)
			})
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
