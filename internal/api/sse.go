package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/timesheet-gin/internal/auth"
	"github.com/mautops/timesheet-gin/internal/websocket"
)

// SSEHandler SSE 审计事件流处理器
// 订阅事件中心并实时推送状态迁移事件,30 秒心跳保活
func SSEHandler(hub *websocket.Hub, validator *auth.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 认证:优先 token,开发环境允许请求头直传身份
		if validator != nil {
			token := c.Query("token")
			if token == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
				return
			}
			if _, err := validator.ValidateToken(token); err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
		} else if c.GetHeader("X-Actor-ID") == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
			return
		}

		// 2. 设置 SSE 响应头
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no") // 禁用 Nginx 缓冲

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
			return
		}

		// 3. 订阅事件中心
		events := hub.Subscribe()
		defer hub.Unsubscribe(events)

		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-c.Request.Context().Done():
				return
			case data, open := <-events:
				if !open {
					return
				}
				fmt.Fprintf(c.Writer, "event: transition\ndata: %s\n\n", data)
				flusher.Flush()
			case <-ticker.C:
				heartbeat, _ := json.Marshal(map[string]interface{}{
					"type": "heartbeat",
					"time": time.Now().Unix(),
				})
				fmt.Fprintf(c.Writer, "event: heartbeat\ndata: %s\n\n", heartbeat)
				flusher.Flush()
			}
		}
	}
}
