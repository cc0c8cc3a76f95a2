package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/ai-diary/backend/internal/model/chat"
)

// Options configures the buffers a Service creates.
type Options struct {
	Greeting      string
	MaxTurnLength int
	Now           func() time.Time
}

type sessionState struct {
	session chat.Session
	buffer  *Buffer
}

// Service encapsulates conversation state management.
type Service struct {
	opts Options

	mu       sync.RWMutex
	sessions map[string]*sessionState
}

// NewService bootstraps the in-memory chat service.
func NewService(opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		opts:     opts,
		sessions: make(map[string]*sessionState),
	}
}

// CreateSession provisions a session whose buffer holds only the greeting.
func (s *Service) CreateSession(_ context.Context) (chat.Session, error) {
	session := chat.Session{
		ID:        uuid.NewString(),
		CreatedAt: s.opts.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = &sessionState{
		session: session,
		buffer:  NewBuffer(s.opts.Greeting, s.opts.MaxTurnLength, s.opts.Now),
	}
	s.mu.Unlock()

	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return state.session, nil
}

// AppendTurn appends a turn to the session buffer and returns it as stored.
func (s *Service) AppendTurn(_ context.Context, sessionID string, turn chat.Turn) (chat.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.sessions[sessionID]
	if !ok {
		return chat.Turn{}, ErrSessionNotFound
	}
	return state.buffer.Append(turn)
}

// Snapshot returns a copy of the session's turns.
func (s *Service) Snapshot(_ context.Context, sessionID string) ([]chat.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return state.buffer.Snapshot(), nil
}

// Reset clears the session back to the greeting.
func (s *Service) Reset(_ context.Context, sessionID string) ([]chat.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	state.buffer.Reset()
	return state.buffer.Snapshot(), nil
}

// EndSession drops the session and its buffer.
func (s *Service) EndSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}
