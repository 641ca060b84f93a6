// Package sse fans form version events out to connected browsers.
package sse

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Event 一条SSE事件
type Event struct {
	EventType string `json:"event"`
	Data      string `json:"data"`
}

// Client 已连接的客户端
type Client struct {
	ID     string
	UserID string
	Events chan Event
}

// Hub 管理所有SSE连接
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

// NewHub 创建Hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{clients: make(map[string]*Client), logger: logger}
}

// Register 注册客户端
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
	h.logger.Debug("sse client registered", zap.String("client", c.ID), zap.String("user", c.UserID), zap.Int("total", len(h.clients)))
}

// Unregister 注销客户端并关闭其通道
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		close(c.Events)
		delete(h.clients, id)
		h.logger.Debug("sse client unregistered", zap.String("client", id), zap.Int("total", len(h.clients)))
	}
}

// Len 当前连接数
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast 广播事件，缓冲区满的客户端跳过
func (h *Hub) Broadcast(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.Events <- e:
		default:
			h.logger.Warn("sse client buffer full, event dropped", zap.String("client", c.ID), zap.String("event", e.EventType))
		}
	}
}

// FormUpdate form_update 事件内容
type FormUpdate struct {
	FormID  string `json:"form_id"`
	Kind    string `json:"kind,omitempty"`
	Version int    `json:"version,omitempty"`
	Action  string `json:"action"`
}

// PublishFormUpdate 广播表单变化（创建、新版本、审批）
func (h *Hub) PublishFormUpdate(u FormUpdate) {
	if h == nil {
		return
	}
	data, err := json.Marshal(u)
	if err != nil {
		h.logger.Error("marshal form update", zap.Error(err))
		return
	}
	h.Broadcast(Event{EventType: "form_update", Data: string(data)})
}
