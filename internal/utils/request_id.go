package utils

import "context"

type requestIDCtxKey struct{}

// WithRequestID 将请求 ID 写入 context,供审计事件关联
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDCtxKey{}, requestID)
}

// RequestIDFromContext 从 context 读取请求 ID,未设置时返回空串
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, _ := ctx.Value(requestIDCtxKey{}).(string)
	return requestID
}
