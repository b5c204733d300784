package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"
	"github.com/mautops/timesheet-gin/internal/auth"
)

var upgrader = gorillaWS.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 在生产环境中应该检查 Origin
		return true
	},
}

// EventStreamHandler 迁移事件流 WebSocket 处理器
// 配置了验证器时要求 query 参数携带 token;未配置时信任 X-Actor-ID
func EventStreamHandler(hub *Hub, validator *auth.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var userID string

		if validator != nil {
			token := c.Query("token")
			if token == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			userID = claims.Sub
		} else {
			userID = c.GetHeader("X-Actor-ID")
			if userID == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "missing actor identity"})
				return
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade connection"})
			return
		}

		client := NewClient(uuid.New().String(), userID, hub, conn)
		hub.Register <- client

		go client.ReadPump()
		go client.WritePump()
	}
}
