package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/zhouzirui/ai-diary/backend/internal/model/diary"
)

// ErrPrimaryUnavailable is returned while the primary store has no connection.
var ErrPrimaryUnavailable = errors.New("primary store not connected")

// DefaultReconnectInterval is how long the primary waits between connection attempts.
const DefaultReconnectInterval = 30 * time.Second

type primaryBackend interface {
	diary.Store
	Ping(ctx context.Context) error
	WipeEntries(ctx context.Context) error
	Close(ctx context.Context) error
}

type connectFunc func(ctx context.Context) (primaryBackend, error)

// Primary is the primary store as the rest of the process sees it. It exists
// whenever a primary is configured; until a connection succeeds every call
// reports ErrPrimaryUnavailable and a background loop keeps dialing.
type Primary struct {
	connect  connectFunc
	interval time.Duration
	logger   *slog.Logger

	mu      sync.RWMutex
	backend primaryBackend

	stop context.CancelFunc
	done chan struct{}
}

var _ diary.Store = (*Primary)(nil)

// newPrimary tries once synchronously and, on failure, keeps retrying every
// interval until ctx ends or Close is called.
func newPrimary(ctx context.Context, connect connectFunc, interval time.Duration, logger *slog.Logger) *Primary {
	if interval <= 0 {
		interval = DefaultReconnectInterval
	}
	p := &Primary{
		connect:  connect,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}

	if p.tryConnect(ctx) {
		close(p.done)
		p.stop = func() {}
		return p
	}

	loopCtx, stop := context.WithCancel(ctx)
	p.stop = stop
	go p.reconnectLoop(loopCtx)
	return p
}

func (p *Primary) tryConnect(ctx context.Context) bool {
	backend, err := p.connect(ctx)
	if err != nil {
		p.logger.Warn("primary store unavailable, writes go to the local store", "error", err, "retry_in", p.interval)
		return false
	}

	p.mu.Lock()
	p.backend = backend
	p.mu.Unlock()
	p.logger.Info("primary store connected")
	return true
}

func (p *Primary) reconnectLoop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.tryConnect(ctx) {
				return
			}
		}
	}
}

// Connected reports whether a connection has been established.
func (p *Primary) Connected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.backend != nil
}

func (p *Primary) current() (primaryBackend, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.backend == nil {
		return nil, ErrPrimaryUnavailable
	}
	return p.backend, nil
}

// Ping checks the connection.
func (p *Primary) Ping(ctx context.Context) error {
	b, err := p.current()
	if err != nil {
		return err
	}
	return b.Ping(ctx)
}

// Save implements diary.Store.
func (p *Primary) Save(ctx context.Context, entry diary.Entry) (string, error) {
	b, err := p.current()
	if err != nil {
		return "", err
	}
	return b.Save(ctx, entry)
}

// List implements diary.Store.
func (p *Primary) List(ctx context.Context) ([]diary.Entry, error) {
	b, err := p.current()
	if err != nil {
		return nil, err
	}
	return b.List(ctx)
}

// Delete implements diary.Store.
func (p *Primary) Delete(ctx context.Context, id string) error {
	b, err := p.current()
	if err != nil {
		return err
	}
	return b.Delete(ctx, id)
}

// WipeEntries removes every entry from the primary store.
func (p *Primary) WipeEntries(ctx context.Context) error {
	b, err := p.current()
	if err != nil {
		return err
	}
	return b.WipeEntries(ctx)
}

// Close stops reconnecting and closes the connection if there is one.
func (p *Primary) Close(ctx context.Context) error {
	p.stop()
	<-p.done

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backend == nil {
		return nil
	}
	err := p.backend.Close(ctx)
	p.backend = nil
	return err
}
