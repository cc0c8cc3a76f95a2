package diary

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/ai-diary/backend/internal/model/diary"
	chatService "github.com/zhouzirui/ai-diary/backend/internal/service/chat"
	diaryService "github.com/zhouzirui/ai-diary/backend/internal/service/diary"
	"github.com/zhouzirui/ai-diary/backend/pkg/utils"
)

// Handler 日记相关的HTTP处理器
type Handler struct {
	pipeline   *diaryService.Pipeline
	sessions   *chatService.Service
	store      diary.Store
	resetAfter bool
	logger     *slog.Logger
}

// New 创建日记处理器。pipeline 为 nil 时生成日记返回 503。
func New(pipeline *diaryService.Pipeline, sessions *chatService.Service, store diary.Store, resetAfter bool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		pipeline:   pipeline,
		sessions:   sessions,
		store:      store,
		resetAfter: resetAfter,
		logger:     logger.With("component", "http"),
	}
}

// RegisterRoutes 注册日记相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions/{sessionID}/finalize", h.handleFinalize)
	r.Get("/diary", h.handleListEntries)
	r.Delete("/diary/{entryID}", h.handleDeleteEntry)
}

// EntryView is an entry as the timeline renders it.
type EntryView struct {
	diary.Entry
	Emoji string `json:"emoji"`
}

// NewEntryView attaches the display emoji to entry.
func NewEntryView(entry diary.Entry) EntryView {
	return EntryView{Entry: entry, Emoji: entry.Emoji()}
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	if h.pipeline == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "ai service unavailable")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	entry, err := h.pipeline.FinalizeSession(r.Context(), h.sessions, sessionID, h.resetAfter, nil)
	if err != nil {
		h.logger.Warn("finalize failed", "session", sessionID, "error", err)
		status, message := ErrorResponse(err)
		utils.RespondError(w, status, message)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, NewEntryView(entry))
}

// handleListEntries 按日期倒序列出日记
func (h *Handler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("list entries failed", "error", err)
		entries = nil
	}

	views := make([]EntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, NewEntryView(entry))
	}
	utils.RespondJSON(w, http.StatusOK, views)
}

func (h *Handler) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "entryID")); err != nil {
		status, message := ErrorResponse(err)
		utils.RespondError(w, status, message)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ErrorResponse maps finalize and store errors to a status and a user-facing message.
func ErrorResponse(err error) (int, string) {
	var stageErr *diaryService.StageError
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, diaryService.ErrNotEnoughConversation):
		return http.StatusUnprocessableEntity, "not enough conversation yet, keep chatting a little more"
	case errors.As(err, &stageErr):
		return http.StatusBadGateway, "failed while " + string(stageErr.Stage) + ", please try again"
	case errors.Is(err, diaryService.ErrSaveFailed):
		return http.StatusInternalServerError, "failed to save diary entry"
	case errors.Is(err, diary.ErrEntryNotFound):
		return http.StatusNotFound, "diary entry not found"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
