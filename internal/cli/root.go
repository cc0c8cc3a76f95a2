// Package cli provides the diaryctl command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/ai-diary/backend/internal/config"
	"github.com/zhouzirui/ai-diary/backend/internal/model/chat"
	"github.com/zhouzirui/ai-diary/backend/internal/model/diary"
	openaiprovider "github.com/zhouzirui/ai-diary/backend/internal/provider/openai"
	"github.com/zhouzirui/ai-diary/backend/internal/service/ai"
	diaryservice "github.com/zhouzirui/ai-diary/backend/internal/service/diary"
	"github.com/zhouzirui/ai-diary/backend/internal/service/illustrator"
	"github.com/zhouzirui/ai-diary/backend/internal/storage"
)

// Version is set at build time.
var Version = "0.1.0"

// Assistant is the language model surface replay drives.
type Assistant interface {
	Reply(ctx context.Context, turns []chat.Turn) (string, error)
	Summarize(ctx context.Context, turns []chat.Turn) (string, error)
	ClassifyEmotion(ctx context.Context, turns []chat.Turn) (string, error)
}

// app carries what the commands operate on. Fields left nil are built from
// configuration on first use.
type app struct {
	verbose bool

	cfg    *config.Config
	logger *slog.Logger
	stores *storage.Stores

	entries     diary.Store
	clearers    []func(context.Context) error
	assistant   Assistant
	illustrator diaryservice.Illustrator
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "diaryctl",
		Short: "Inspect and maintain AI diary entries",
		Long: `diaryctl works with the same stores as the diary server.

It lists, exports and deletes saved entries, clears the local store, and
replays a recorded conversation through the full diary pipeline.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip store setup for version and help commands
			if cmd.Name() == "version" || cmd.Name() == "help" {
				return nil
			}
			return a.init(cmd.Context(), cmd.ErrOrStderr())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.stores != nil {
				if err := a.stores.Close(context.Background()); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to close stores: %v\n", err)
				}
			}
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(newListCmd(a))
	root.AddCommand(newExportCmd(a))
	root.AddCommand(newDeleteCmd(a))
	root.AddCommand(newClearCmd(a))
	root.AddCommand(newReplayCmd(a))
	return root
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return newRootCmd(&app{}).ExecuteContext(ctx)
}

func (a *app) init(ctx context.Context, stderr io.Writer) error {
	if a.entries != nil {
		return nil
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	stores, err := storage.Open(ctx, cfg.Store, a.logger)
	if err != nil {
		return err
	}
	a.stores = stores
	a.entries = stores.Entries
	a.clearers = append(a.clearers, stores.Local.Clear)
	if stores.Primary != nil && stores.Primary.Connected() {
		a.clearers = append(a.clearers, stores.Primary.WipeEntries)
	}
	return nil
}

// requireAssistant builds the language model stages on first use.
func (a *app) requireAssistant(ctx context.Context) (Assistant, diaryservice.Illustrator, error) {
	if a.assistant == nil {
		if a.cfg == nil || !a.cfg.AI.Enabled() {
			return nil, nil, fmt.Errorf("language model credentials are not configured")
		}
		chatModel, err := a.cfg.AI.NewChatModel(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("init chat model: %w", err)
		}
		svc, err := ai.NewService(ctx, chatModel, ai.Options{ChatWindow: a.cfg.Diary.ChatWindow, Logger: a.logger})
		if err != nil {
			return nil, nil, fmt.Errorf("init ai service: %w", err)
		}
		a.assistant = svc
	}

	if a.illustrator == nil {
		var generator illustrator.Generator
		placeholder := ""
		if a.cfg != nil {
			placeholder = a.cfg.Image.PlaceholderURL
			if a.cfg.Image.Enabled() {
				generator = openaiprovider.NewImageGenerator(openaiprovider.ImageConfig{
					Config:  openaiprovider.Config{APIKey: a.cfg.Image.APIKey, BaseURL: a.cfg.Image.BaseURL, Model: a.cfg.Image.Model},
					Size:    a.cfg.Image.Size,
					Quality: a.cfg.Image.Quality,
				})
			}
		}
		a.illustrator = illustrator.New(generator, illustrator.Options{Placeholder: placeholder, Logger: a.logger})
	}

	return a.assistant, a.illustrator, nil
}
