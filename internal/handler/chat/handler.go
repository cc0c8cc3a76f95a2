package chat

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/ai-diary/backend/internal/model/chat"
	chatService "github.com/zhouzirui/ai-diary/backend/internal/service/chat"
	"github.com/zhouzirui/ai-diary/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
	replier chatService.Replier
	logger  *slog.Logger
}

// New 创建聊天处理器。replier 为 nil 时发送消息返回 503。
func New(chatSvc *chatService.Service, replier chatService.Replier, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		chatSvc: chatSvc,
		replier: replier,
		logger:  logger.With("component", "http"),
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Delete("/sessions/{sessionID}", h.handleEndSession)
	r.Post("/sessions/{sessionID}/messages", h.handleSendMessage)
	r.Post("/sessions/{sessionID}/reset", h.handleReset)
}

type sessionResponse struct {
	Session   chat.Session `json:"session"`
	Turns     []chat.Turn  `json:"turns"`
	UserTurns int          `json:"userTurns"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.CreateSession(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	turns, err := h.chatSvc.Snapshot(r.Context(), session.ID)
	if err != nil {
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}

	h.logger.Info("session created", "session", session.ID)
	utils.RespondJSON(w, http.StatusCreated, sessionResponse{Session: session, Turns: turns})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}
	turns, err := h.chatSvc.Snapshot(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, sessionResponse{
		Session:   session,
		Turns:     turns,
		UserTurns: chatService.CountUserTurns(turns),
	})
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.chatSvc.EndSession(r.Context(), sessionID); err != nil {
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSendMessage 记录用户消息并返回 AI 回复
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	if h.replier == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "ai service unavailable")
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	userTurn, reply, err := h.chatSvc.Exchange(r.Context(), sessionID, payload.Text, h.replier)
	if err != nil {
		status := StatusFor(err)
		if status == http.StatusInternalServerError && userTurn.ID != "" {
			status = http.StatusBadGateway
		}
		h.logger.Warn("chat exchange failed", "session", sessionID, "error", err)
		utils.RespondError(w, status, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]chat.Turn{
		"userTurn": userTurn,
		"reply":    reply,
	})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	turns, err := h.chatSvc.Reset(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string][]chat.Turn{"turns": turns})
}

// StatusFor maps chat service errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, chatService.ErrEmptyTurn),
		errors.Is(err, chatService.ErrUnknownSpeaker),
		errors.Is(err, chatService.ErrTurnOutOfOrder):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
