package websocket

import (
	"encoding/json"
	"sync"

	"github.com/mautops/timesheet-gin/internal/model"
)

// Hub 状态迁移事件分发中枢
// 审批引擎每次迁移后发出的审计事件经由 Hub 推送给
// WebSocket 客户端和 SSE 订阅者;只保证发出,不保证投递
type Hub struct {
	// 已注册的 WebSocket 客户端
	clients map[*Client]bool

	// SSE 订阅通道
	subscribers map[chan []byte]bool

	// 广播事件到所有客户端
	Broadcast chan []byte

	// 注册新客户端
	Register chan *Client

	// 注销客户端
	Unregister chan *Client

	// 互斥锁,保护 clients/subscribers
	mu sync.RWMutex
}

// NewHub 创建事件分发中枢
func NewHub() *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		subscribers: make(map[chan []byte]bool),
		Broadcast:   make(chan []byte, 64),
		Register:    make(chan *Client),
		Unregister:  make(chan *Client),
	}
}

// Run 运行事件循环
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()

		case message := <-h.Broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			for sub := range h.subscribers {
				select {
				case sub <- message:
				default:
					// 订阅者消费过慢,丢弃本条而不是阻塞事件循环
				}
			}
			h.mu.Unlock()
		}
	}
}

// PublishEvent 发布状态迁移事件
// 序列化失败或通道已满时静默丢弃,事件持久化由审计服务负责
func (h *Hub) PublishEvent(event *model.AuditLogModel) {
	payload, err := json.Marshal(map[string]interface{}{
		"table":     event.RecordTable,
		"record_id": event.RecordID,
		"action":    event.Action,
		"actor_id":  event.ActorID,
		"old_state": event.OldState,
		"new_state": event.NewState,
		"time":      event.CreatedAt.Unix(),
	})
	if err != nil {
		return
	}

	select {
	case h.Broadcast <- payload:
	default:
	}
}

// Subscribe 注册一个 SSE 订阅通道
func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.subscribers[ch] = true
	h.mu.Unlock()
	return ch
}

// Unsubscribe 注销 SSE 订阅通道
func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// GetClientCount 获取 WebSocket 客户端数量
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
