package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"VoidFM/core/analysis"
	"VoidFM/core/player"
	"VoidFM/logger"
	"VoidFM/model"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// MessageType 消息类型
type MessageType string

const (
	// 服务端 -> 客户端
	MsgTypeSnapshot MessageType = "snapshot" // 播放器快照
	MsgTypeError    MessageType = "error"    // 错误消息
	MsgTypePong     MessageType = "pong"     // 心跳响应

	// 客户端 -> 服务端
	MsgTypePing   MessageType = "ping"   // 心跳
	MsgTypeToggle MessageType = "toggle" // 播放/暂停
	MsgTypeNext   MessageType = "next"   // 下一首
	MsgTypePrev   MessageType = "prev"   // 上一首
	MsgTypeSelect MessageType = "select" // 选择曲目 {"index": n}
	MsgTypeSeek   MessageType = "seek"   // 跳转 {"time": s}
	MsgTypeMode   MessageType = "mode"   // 可视化模式 {"mode": "waveform"}
)

// WSMessage WebSocket 消息结构
type WSMessage struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

type selectData struct {
	Index int `json:"index"`
}

type errorData struct {
	Message string `json:"message"`
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client WebSocket 客户端
type Client struct {
	ID   string
	Hub  *PlayerHub
	Conn *websocket.Conn
	Send chan []byte
}

// PlayerHub 播放器 WebSocket 管理中心：按固定频率广播快照，接收控制意图
type PlayerHub struct {
	player *player.Player
	accent func(context.Context, *model.Ritual) string
	rate   int

	clients map[*Client]bool

	// 注册/注销通道
	register   chan *Client
	unregister chan *Client

	// 广播通道
	broadcast chan []byte

	mu sync.RWMutex

	ctx     context.Context
	ctxOnce sync.Once
	ready   chan struct{}
}

// NewPlayerHub creates a hub. rate is the maximum snapshot broadcasts per second.
func NewPlayerHub(p *player.Player, accent func(context.Context, *model.Ritual) string, rate int) *PlayerHub {
	if rate <= 0 {
		rate = 30
	}
	return &PlayerHub{
		player:     p,
		accent:     accent,
		rate:       rate,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		ready:      make(chan struct{}),
	}
}

// Run 启动 Hub 主循环，ctx 取消时关闭所有连接
func (h *PlayerHub) Run(ctx context.Context) {
	h.ctxOnce.Do(func() {
		h.ctx = ctx
		close(h.ready)
	})
	go h.pump(ctx)

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeClient(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.broadcastAll(msg)

		case <-ctx.Done():
			h.cleanup()
			return
		}
	}
}

// pump 订阅播放器快照，按 rate 节流后广播；只有 seq 变化才发送
func (h *PlayerHub) pump(ctx context.Context) {
	snaps, cancel := h.player.Subscribe()
	defer cancel()

	ticker := time.NewTicker(time.Second / time.Duration(h.rate))
	defer ticker.Stop()

	var latest *player.Snapshot
	var sent uint64
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			latest = &snap
		case <-ticker.C:
			if latest == nil || latest.Seq == sent {
				continue
			}
			sent = latest.Seq
			data, err := h.encodeSnapshot(ctx, *latest)
			if err != nil {
				logger.Warn("failed to encode snapshot", logger.ErrorField(err))
				continue
			}
			select {
			case h.broadcast <- data:
			default:
				// 广播队列满，丢弃这一帧
			}
		}
	}
}

func (h *PlayerHub) encodeSnapshot(ctx context.Context, snap player.Snapshot) ([]byte, error) {
	view := PlayerView{Snapshot: snap}
	if h.accent != nil {
		view.Accent = h.accent(ctx, snap.Track)
	}
	data, err := json.Marshal(view)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&WSMessage{Type: MsgTypeSnapshot, Data: data, Timestamp: time.Now().UnixMilli()})
}

func (h *PlayerHub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	logger.Info("client registered",
		logger.String("client", client.ID),
		logger.Int("clients", count))
}

// removeClient 移除客户端（需要持有锁）
func (h *PlayerHub) removeClient(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
		logger.Info("client unregistered", logger.String("client", client.ID))
	}
}

func (h *PlayerHub) broadcastAll(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.Send <- msg:
		default:
			// 发送缓冲区满，移除客户端
			h.removeClient(client)
		}
	}
}

// cleanup 清理所有连接
func (h *PlayerHub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		h.removeClient(client)
	}
}

// ClientCount 当前连接数
func (h *PlayerHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS 升级连接并注册客户端。Hub 未运行时返回 503。
func (h *PlayerHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.ready:
	default:
		http.Error(w, "player hub not running", http.StatusServiceUnavailable)
		return
	}
	ctx := h.ctx
	if ctx.Err() != nil {
		http.Error(w, "player hub stopped", http.StatusServiceUnavailable)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	client := &Client{
		ID:   uuid.NewString(),
		Hub:  h,
		Conn: conn,
		Send: make(chan []byte, 64),
	}

	// 新连接先收到一份完整快照
	if data, err := h.encodeSnapshot(ctx, h.player.Snapshot()); err == nil {
		client.Send <- data
	}

	select {
	case h.register <- client:
	case <-ctx.Done():
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(ctx, h.handleMessage)
}

// handleMessage 处理客户端的控制意图
func (h *PlayerHub) handleMessage(ctx context.Context, client *Client, msg *WSMessage) {
	var err error
	switch msg.Type {
	case MsgTypeToggle:
		h.player.TogglePlay(ctx)
	case MsgTypeNext:
		h.player.Next(ctx)
	case MsgTypePrev:
		h.player.Previous(ctx)
	case MsgTypeSelect:
		var data selectData
		if err = json.Unmarshal(msg.Data, &data); err == nil {
			err = h.player.SelectTrack(ctx, data.Index)
		}
	case MsgTypeSeek:
		var data seekRequest
		if err = json.Unmarshal(msg.Data, &data); err == nil {
			if data.Time == nil {
				err = fmt.Errorf("seek requires time")
			} else {
				h.player.Seek(*data.Time)
			}
		}
	case MsgTypeMode:
		var data modeRequest
		if err = json.Unmarshal(msg.Data, &data); err == nil {
			var mode analysis.Mode
			if mode, err = analysis.ParseMode(data.Mode); err == nil {
				err = h.player.SetVisualizerMode(mode)
			}
		}
	default:
		err = fmt.Errorf("unknown message type %q", msg.Type)
	}

	if err != nil {
		logger.Warn("rejected player intent",
			logger.String("client", client.ID),
			logger.String("type", string(msg.Type)),
			logger.ErrorField(err))
		payload, _ := json.Marshal(errorData{Message: err.Error()})
		client.SendMessage(&WSMessage{Type: MsgTypeError, Data: payload})
	}
}

// ========== Client 方法 ==========

// ReadPump 读取消息循环
func (c *Client) ReadPump(ctx context.Context, handler func(ctx context.Context, client *Client, msg *WSMessage)) {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-ctx.Done():
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(4096) // 4KB
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error",
					logger.ErrorField(err),
					logger.String("client", c.ID))
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Warn("invalid message format",
				logger.ErrorField(err),
				logger.String("client", c.ID))
			continue
		}

		// 处理心跳
		if msg.Type == MsgTypePing {
			c.SendMessage(&WSMessage{Type: MsgTypePong})
			continue
		}

		handler(ctx, c, &msg)
	}
}

// WritePump 写入消息循环，每条消息一个帧
func (c *Client) WritePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub 关闭了通道
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage 发送消息给客户端，缓冲区满时丢弃
func (c *Client) SendMessage(msg *WSMessage) {
	msg.Timestamp = time.Now().UnixMilli()
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	// Send 可能已被 Hub 关闭
	c.Hub.mu.RLock()
	defer c.Hub.mu.RUnlock()
	if !c.Hub.clients[c] {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}
