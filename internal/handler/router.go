package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/ai-diary/backend/internal/handler/chat"
	"github.com/zhouzirui/ai-diary/backend/internal/handler/diary"
	"github.com/zhouzirui/ai-diary/backend/internal/handler/realtime"
	"github.com/zhouzirui/ai-diary/backend/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/ai-diary/backend/internal/middleware"
	diaryModel "github.com/zhouzirui/ai-diary/backend/internal/model/diary"
	aiService "github.com/zhouzirui/ai-diary/backend/internal/service/ai"
	chatService "github.com/zhouzirui/ai-diary/backend/internal/service/chat"
	diaryService "github.com/zhouzirui/ai-diary/backend/internal/service/diary"
	"github.com/zhouzirui/ai-diary/backend/pkg/utils"
)

// Deps collects the services the HTTP layer is built on. AI and Pipeline
// may be nil when no language model is configured.
type Deps struct {
	Chat     *chatService.Service
	AI       *aiService.Service
	Pipeline *diaryService.Pipeline
	Store    diaryModel.Store
	// Primary is pinged by the health check when a primary store is configured.
	Primary diaryService.Pinger

	ResetAfterFinalize bool
	Logger             *slog.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	// A nil *ai.Service must not become a non-nil Replier.
	var replier chatService.Replier
	if deps.AI != nil {
		replier = deps.AI
	}

	chatHandler := chat.New(deps.Chat, replier, deps.Logger)
	diaryHandler := diary.New(deps.Pipeline, deps.Chat, deps.Store, deps.ResetAfterFinalize, deps.Logger)
	streamHandler := stream.New(deps.AI, deps.Chat, deps.Pipeline, deps.ResetAfterFinalize, deps.Logger)
	wsHandler := realtime.NewWebSocketHandler(deps.Chat, replier, deps.Pipeline, deps.ResetAfterFinalize, deps.Logger)

	r.Get("/healthz", healthHandler(deps))

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		diaryHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		wsHandler.RegisterWebSocketRoutes(api)
	})

	return r
}

type healthResponse struct {
	Status       string `json:"status"`
	AI           bool   `json:"ai"`
	PrimaryStore string `json:"primaryStore"`
}

func healthHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", AI: deps.AI != nil, PrimaryStore: "disabled"}
		if deps.Primary != nil {
			resp.PrimaryStore = "up"
			if err := deps.Primary.Ping(r.Context()); err != nil {
				// 主存储不可用时仍可写入本地，服务整体视为可用
				resp.PrimaryStore = "down"
			}
		}
		utils.RespondJSON(w, http.StatusOK, resp)
	}
}
