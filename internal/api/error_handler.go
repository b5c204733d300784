package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/timesheet-gin/internal/service"
)

// APIError API 错误
type APIError struct {
	Code    int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrorHandlerMiddleware 错误处理中间件
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()

			var apiErr *APIError
			if errors.As(err, &apiErr) {
				Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
			} else {
				Error(c, http.StatusInternalServerError, "internal server error", err.Error())
			}
		}
	}
}

// RespondServiceError 按服务层错误类型映射 HTTP 状态码
// 校验失败 400,非法迁移和版本冲突 409,未找到 404,聚合失败 422,其余 500
func RespondServiceError(c *gin.Context, err error) {
	switch {
	case service.IsValidation(err):
		Error(c, http.StatusBadRequest, "validation failed", err.Error())
	case service.IsInvalidTransition(err):
		Error(c, http.StatusConflict, "invalid state transition", err.Error())
	case service.IsVersionConflict(err):
		Error(c, http.StatusConflict, "concurrent update conflict", err.Error())
	case service.IsNotFound(err):
		Error(c, http.StatusNotFound, "not found", err.Error())
	case service.IsAggregation(err):
		Error(c, http.StatusUnprocessableEntity, "aggregation failed", err.Error())
	default:
		Error(c, http.StatusInternalServerError, "internal server error", err.Error())
	}
}

// WrapError 包装错误
func WrapError(err error, code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Detail:  err.Error(),
	}
}
