package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/ai-diary/backend/internal/handler/diary"
	chatservice "github.com/zhouzirui/ai-diary/backend/internal/service/chat"
	diaryservice "github.com/zhouzirui/ai-diary/backend/internal/service/diary"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// WebSocketHandler 通过 WebSocket 提供实时聊天与日记生成
type WebSocketHandler struct {
	chatSvc    *chatservice.Service
	replier    chatservice.Replier
	pipeline   *diaryservice.Pipeline
	resetAfter bool
	upgrader   websocket.Upgrader
	logger     *slog.Logger

	readTimeout time.Duration
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(chatSvc *chatservice.Service, replier chatservice.Replier, pipeline *diaryservice.Pipeline, resetAfter bool, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		chatSvc:    chatSvc,
		replier:    replier,
		pipeline:   pipeline,
		resetAfter: resetAfter,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:      logger.With("component", "websocket"),
		readTimeout: readTimeout,
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TextMessage 文本消息
type TextMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// connection serializes writes; gorilla allows one concurrent writer.
type connection struct {
	conn      *websocket.Conn
	sessionID string
	mu        sync.Mutex
	logger    *slog.Logger
}

func (c *connection) send(msgType string, data interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	msg := outgoingMessage{
		Type:      msgType,
		SessionID: c.sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		c.logger.Warn("write failed", "type", msgType, "error", err)
	}
}

func (c *connection) sendError(message string) {
	c.send("error", map[string]string{"message": message})
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	conn := &connection{conn: ws, sessionID: sessionID, logger: h.logger.With("session", sessionID)}
	h.logger.Info("new connection", "session", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = ws.SetReadDeadline(time.Now().Add(h.readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.readTimeout))
	})

	go h.pingLoop(ctx, ws)

	turns, err := h.chatSvc.Snapshot(ctx, sessionID)
	if err != nil {
		conn.sendError(err.Error())
		return
	}
	conn.send("result", map[string]any{"type": "connected", "turns": turns})

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("read error", "session", sessionID, "error", err)
			}
			return
		}

		if msg.SessionID != "" && msg.SessionID != sessionID {
			conn.sendError("session mismatch")
		} else {
			h.handleMessage(ctx, conn, &msg)
		}

		// A finalize can outlast the read timeout; the client gets a full window after it.
		_ = ws.SetReadDeadline(time.Now().Add(h.readTimeout))
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *connection, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		h.handleTextMessage(ctx, conn, msg.Data)
	case "finalize":
		h.handleFinalize(ctx, conn)
	case "reset":
		h.handleReset(ctx, conn)
	default:
		conn.sendError("unsupported message type: " + msg.Type)
	}
}

func (h *WebSocketHandler) handleTextMessage(ctx context.Context, conn *connection, raw json.RawMessage) {
	if h.replier == nil {
		conn.sendError("ai service unavailable")
		return
	}

	var text TextMessage
	if err := json.Unmarshal(raw, &text); err != nil {
		conn.sendError("invalid text payload")
		return
	}

	userTurn, reply, err := h.chatSvc.Exchange(ctx, conn.sessionID, text.Text, h.replier)
	if err != nil {
		h.logger.Warn("exchange failed", "session", conn.sessionID, "error", err)
		conn.sendError(err.Error())
		return
	}

	conn.send("result", map[string]any{
		"type":     "reply",
		"userTurn": userTurn,
		"reply":    reply,
	})
}

func (h *WebSocketHandler) handleFinalize(ctx context.Context, conn *connection) {
	if h.pipeline == nil {
		conn.sendError("ai service unavailable")
		return
	}

	entry, err := h.pipeline.FinalizeSession(ctx, h.chatSvc, conn.sessionID, h.resetAfter, func(stage diaryservice.Stage) {
		conn.send("progress", map[string]string{"stage": string(stage)})
	})
	if err != nil {
		_, message := diary.ErrorResponse(err)
		conn.sendError(message)
		return
	}

	conn.send("entry", diary.NewEntryView(entry))
}

func (h *WebSocketHandler) handleReset(ctx context.Context, conn *connection) {
	turns, err := h.chatSvc.Reset(ctx, conn.sessionID)
	if err != nil {
		conn.sendError(err.Error())
		return
	}
	conn.send("result", map[string]any{"type": "reset", "turns": turns})
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, ws *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
