package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/ai-diary/backend/internal/handler/diary"
	"github.com/zhouzirui/ai-diary/backend/internal/model/chat"
	aiService "github.com/zhouzirui/ai-diary/backend/internal/service/ai"
	chatService "github.com/zhouzirui/ai-diary/backend/internal/service/chat"
	diaryService "github.com/zhouzirui/ai-diary/backend/internal/service/diary"
	"github.com/zhouzirui/ai-diary/backend/pkg/utils"
)

// Handler manages streaming replies and finalize progress via Server-Sent Events
type Handler struct {
	aiService  *aiService.Service
	chatSvc    *chatService.Service
	pipeline   *diaryService.Pipeline
	resetAfter bool
	logger     *slog.Logger
}

// New creates a new stream handler
func New(aiSvc *aiService.Service, chatSvc *chatService.Service, pipeline *diaryService.Pipeline, resetAfter bool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		aiService:  aiSvc,
		chatSvc:    chatSvc,
		pipeline:   pipeline,
		resetAfter: resetAfter,
		logger:     logger.With("component", "http"),
	}
}

// RegisterRoutes 注册 SSE 路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/stream", h.handleStreamReply)
	r.Get("/sessions/{sessionID}/finalize/stream", h.handleStreamFinalize)
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string     `json:"event"`
	Content   string     `json:"content,omitempty"`
	SessionID string     `json:"sessionId,omitempty"`
	Turn      *chat.Turn `json:"turn,omitempty"`
	Stage     string     `json:"stage,omitempty"`
	Entry     any        `json:"entry,omitempty"`
	Finished  bool       `json:"finished,omitempty"`
	Error     string     `json:"error,omitempty"`
}

func (h *Handler) handleStreamReply(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	userMessage := r.URL.Query().Get("message")

	if h.aiService == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "ai streaming unavailable")
		return
	}
	if userMessage == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}
	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	if err := h.HandleStreamRequest(r.Context(), w, sessionID, userMessage); err != nil {
		h.logger.Warn("stream request failed", "session", sessionID, "error", err)
	}
}

// HandleStreamRequest records the user turn, streams the reply and records it.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID string, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}
	utils.SetupSSEHeaders(w)

	userTurn, err := h.chatSvc.AppendTurn(ctx, sessionID, chat.Turn{Speaker: chat.SpeakerUser, Text: userMessage})
	if err != nil {
		h.sendSSEError(w, flusher, fmt.Sprintf("failed to record message: %v", err))
		return err
	}

	turns, err := h.chatSvc.Snapshot(ctx, sessionID)
	if err != nil {
		h.sendSSEError(w, flusher, fmt.Sprintf("failed to load conversation: %v", err))
		return err
	}

	h.sendSSE(w, flusher, StreamResponse{Event: "start", SessionID: sessionID, Turn: &userTurn})

	response, err := h.streamAIResponse(ctx, w, flusher, sessionID, turns)
	if err != nil {
		h.sendSSEError(w, flusher, fmt.Sprintf("AI generation failed: %v", err))
		return err
	}

	assistantTurn, err := h.chatSvc.AppendTurn(ctx, sessionID, chat.Turn{Speaker: chat.SpeakerAssistant, Text: response.Content})
	if err != nil {
		h.sendSSEError(w, flusher, fmt.Sprintf("failed to record reply: %v", err))
		return err
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Turn:      &assistantTurn,
		Finished:  true,
	})
	h.logger.Debug("completed streamed reply", "session", sessionID, "length", len(response.Content))
	return nil
}

func (h *Handler) streamAIResponse(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, sessionID string, turns []chat.Turn) (*schema.Message, error) {
	stream, err := h.aiService.StreamReply(ctx, turns)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)

	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return nil, recvErr
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			h.sendSSE(w, flusher, StreamResponse{
				Event:     "delta",
				SessionID: sessionID,
				Content:   chunk.Content,
			})
		}
	}

	if len(chunks) == 0 {
		return nil, aiService.ErrEmptyResponse
	}
	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return nil, err
	}
	if response.Content == "" {
		return nil, aiService.ErrEmptyResponse
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   response.Content,
	})
	return response, nil
}

// handleStreamFinalize runs the finalize pipeline and reports each stage.
func (h *Handler) handleStreamFinalize(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if h.pipeline == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "ai service unavailable")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	utils.SetupSSEHeaders(w)

	entry, err := h.pipeline.FinalizeSession(r.Context(), h.chatSvc, sessionID, h.resetAfter, func(stage diaryService.Stage) {
		h.sendSSE(w, flusher, StreamResponse{Event: "progress", SessionID: sessionID, Stage: string(stage)})
	})
	if err != nil {
		h.logger.Warn("finalize stream failed", "session", sessionID, "error", err)
		_, message := diary.ErrorResponse(err)
		h.sendSSEError(w, flusher, message)
		return
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "entry",
		SessionID: sessionID,
		Entry:     diary.NewEntryView(entry),
		Finished:  true,
	})
}

func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEChunk(w, flusher, response)
}

func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, errorMsg string) {
	h.sendSSE(w, flusher, StreamResponse{
		Event: "error",
		Error: errorMsg,
	})
}
