package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/ai-diary/backend/internal/config"
	"github.com/zhouzirui/ai-diary/backend/internal/handler"
	openaiprovider "github.com/zhouzirui/ai-diary/backend/internal/provider/openai"
	"github.com/zhouzirui/ai-diary/backend/internal/service/ai"
	"github.com/zhouzirui/ai-diary/backend/internal/service/chat"
	"github.com/zhouzirui/ai-diary/backend/internal/service/diary"
	"github.com/zhouzirui/ai-diary/backend/internal/service/illustrator"
	"github.com/zhouzirui/ai-diary/backend/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, closeLog := config.SetupLogger(cfg.Log)
	defer closeLog()
	slog.SetDefault(logger)

	if envErr != nil {
		logger.Warn("failed to load .env file, continuing with system environment variables only", "error", envErr)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	chatService := chat.NewService(chat.Options{
		Greeting:      cfg.Diary.Greeting,
		MaxTurnLength: cfg.Diary.MaxTurnLength,
	})

	stores, err := storage.Open(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(context.Background()); err != nil {
			logger.Warn("failed to close stores", "error", err)
		}
	}()

	// Initialize AI service
	var aiService *ai.Service
	if cfg.AI.Enabled() {
		chatModel, err := cfg.AI.NewChatModel(ctx)
		if err == nil {
			aiService, err = ai.NewService(ctx, chatModel, ai.Options{ChatWindow: cfg.Diary.ChatWindow, Logger: logger})
		}
		if err != nil {
			logger.Warn("failed to initialize AI service, continuing without AI functionality", "provider", cfg.AI.Provider, "error", err)
			aiService = nil
		} else {
			logger.Info("AI service initialized", "provider", cfg.AI.Provider)
		}
	} else {
		logger.Info("language model credentials not configured, skipping AI initialization", "provider", cfg.AI.Provider)
	}

	var generator illustrator.Generator
	if cfg.Image.Enabled() {
		generator = openaiprovider.NewImageGenerator(openaiprovider.ImageConfig{
			Config:  openaiprovider.Config{APIKey: cfg.Image.APIKey, BaseURL: cfg.Image.BaseURL, Model: cfg.Image.Model},
			Size:    cfg.Image.Size,
			Quality: cfg.Image.Quality,
		})
	} else {
		logger.Info("image generation not configured, diary entries will use the placeholder image")
	}
	illustratorService := illustrator.New(generator, illustrator.Options{Placeholder: cfg.Image.PlaceholderURL, Logger: logger})

	var pipeline *diary.Pipeline
	if aiService != nil {
		pipeline = diary.NewPipeline(aiService, aiService, illustratorService, stores.Entries, diary.PipelineOptions{
			MinUserTurns: cfg.Diary.MinUserTurns,
			MinTurns:     cfg.Diary.MinTurns,
			Location:     cfg.Diary.Location,
			Logger:       logger,
		})
	}

	deps := handler.Deps{
		Chat:               chatService,
		AI:                 aiService,
		Pipeline:           pipeline,
		Store:              stores.Entries,
		ResetAfterFinalize: cfg.Diary.ResetAfterFinalize,
		Logger:             logger,
	}
	if stores.Primary != nil {
		deps.Primary = stores.Primary
	}

	return startServer(ctx, cfg.Server, handler.NewRouter(deps), logger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *slog.Logger) error {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("AI diary backend listening", "addr", addr)
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
