// Package storage assembles the diary entry stores from configuration.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zhouzirui/ai-diary/backend/internal/config"
	"github.com/zhouzirui/ai-diary/backend/internal/model/diary"
	diaryservice "github.com/zhouzirui/ai-diary/backend/internal/service/diary"
	"github.com/zhouzirui/ai-diary/backend/internal/storage/local"
	"github.com/zhouzirui/ai-diary/backend/internal/storage/surreal"
)

// Stores holds the opened backends and the fallback store built on them.
type Stores struct {
	Entries *diaryservice.FallbackStore
	Local   *local.Store
	// Primary is nil only when no primary store is configured.
	Primary *Primary
}

// Open opens the local store and, when configured, the primary store. A
// primary that cannot be reached yet keeps reconnecting in the background;
// until then the fallback store serves everything from the local store.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*Stores, error) {
	if logger == nil {
		logger = slog.Default()
	}

	localStore, err := local.Open(cfg.LocalDir)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	stores := &Stores{Local: localStore}

	var primary diary.Store
	if cfg.PrimaryEnabled() {
		stores.Primary = newPrimary(ctx, surrealConnector(cfg, logger), cfg.ReconnectInterval, logger.With("component", "store"))
		primary = stores.Primary
	} else {
		logger.Info("primary store not configured, using local store only", "dir", cfg.LocalDir)
	}

	stores.Entries = diaryservice.NewFallbackStore(primary, localStore, logger)
	return stores, nil
}

func surrealConnector(cfg config.StoreConfig, logger *slog.Logger) connectFunc {
	return func(ctx context.Context) (primaryBackend, error) {
		client, err := surreal.NewClient(ctx, surreal.Config{
			URL:       cfg.SurrealURL,
			Namespace: cfg.SurrealNamespace,
			Database:  cfg.SurrealDatabase,
			Username:  cfg.SurrealUser,
			Password:  cfg.SurrealPass,
			AuthLevel: cfg.SurrealAuthLevel,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := client.InitSchema(ctx); err != nil {
			_ = client.Close(ctx)
			return nil, fmt.Errorf("initialize schema: %w", err)
		}
		return client, nil
	}
}

// Close releases every opened backend.
func (s *Stores) Close(ctx context.Context) error {
	var errs []error
	if s.Primary != nil {
		errs = append(errs, s.Primary.Close(ctx))
	}
	errs = append(errs, s.Local.Close())
	return errors.Join(errs...)
}
