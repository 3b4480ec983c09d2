package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"govassist/app/config"
	"govassist/app/service/conversation"
	"govassist/app/service/memory"

	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/samber/oops"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrCapacity = errors.New("session capacity reached")
)

var _ do.Shutdownable = (*Service)(nil)

// Turner processes one turn against a session's memory.
type Turner interface {
	ProcessTurn(ctx context.Context, mem *memory.Memory, text string) conversation.TurnResult
}

type Info struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// entry owns one session's memory. mu serialises turns; lastUsed is guarded by the
// registry lock.
type entry struct {
	mu      sync.Mutex
	info    Info
	mem     *memory.Memory
	removed bool

	lastUsed time.Time
}

// Service is the registry of live sessions. Different sessions run concurrently,
// turns of one session run strictly one after another.
type Service struct {
	cfg      config.Session
	memories *memory.Service
	turner   Turner
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[*config.Config](di).Session,
		do.MustInvoke[*memory.Service](di),
		do.MustInvoke[*conversation.Service](di),
	), nil
}

func NewService(cfg config.Session, memories *memory.Service, turner Turner, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		memories: memories,
		turner:   turner,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Create starts a session with empty memory. Idle sessions are swept first when the
// registry is full.
func (s *Service) Create() (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.cfg.MaxSessions {
		s.sweepLocked()
	}
	if len(s.sessions) >= s.cfg.MaxSessions {
		return Info{}, oops.In("session").With("max_sessions", s.cfg.MaxSessions).Wrap(ErrCapacity)
	}

	now := s.now()
	e := &entry{
		info: Info{
			ID:        uuid.NewString(),
			CreatedAt: now,
		},
		mem:      s.memories.NewMemory(),
		lastUsed: now,
	}
	s.sessions[e.info.ID] = e

	slog.Debug("Session created", "session", e.info.ID, "active", len(s.sessions))

	return e.info, nil
}

// Turn runs one turn, waiting for any turn of the same session still in progress.
func (s *Service) Turn(ctx context.Context, id, text string) (conversation.TurnResult, error) {
	e, err := s.lock(id)
	if err != nil {
		return conversation.TurnResult{}, err
	}
	defer e.mu.Unlock()

	start := time.Now()
	result := s.turner.ProcessTurn(ctx, e.mem, text)

	s.touch(e)

	slog.Debug("Session turn",
		"session", id,
		"kind", result.Kind,
		"duration", time.Since(start),
	)

	return result, nil
}

func (s *Service) Summary(id string) (memory.Summary, error) {
	e, err := s.lock(id)
	if err != nil {
		return memory.Summary{}, err
	}
	defer e.mu.Unlock()

	return e.mem.Summary(), nil
}

func (s *Service) Messages(id string) ([]memory.Message, error) {
	e, err := s.lock(id)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	return e.mem.Messages(), nil
}

func (s *Service) Delete(id string) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if !ok {
		return oops.In("session").With("session", id).Wrap(ErrNotFound)
	}

	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()

	return nil
}

func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// Run evicts idle sessions every sweep interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if evicted := s.Sweep(); evicted > 0 {
			slog.Info("Evicted idle sessions",
				"count", evicted,
				"active", s.Len(),
			)
		}
	}
}

// Sweep removes sessions idle longer than the TTL and returns how many were removed.
// Sessions with a turn in progress are never removed.
func (s *Service) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sweepLocked()
}

func (s *Service) sweepLocked() int {
	now := s.now()

	evicted := 0
	for id, e := range s.sessions {
		if now.Sub(e.lastUsed) <= s.cfg.IdleTTL {
			continue
		}
		if !e.mu.TryLock() {
			continue
		}

		e.removed = true
		e.mu.Unlock()

		delete(s.sessions, id)
		evicted++
	}

	return evicted
}

func (s *Service) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slog.Info("Dropping sessions", "count", len(s.sessions))
	clear(s.sessions)

	return nil
}

// lock finds the session and acquires its turn lock.
func (s *Service) lock(id string) (*entry, error) {
	s.mu.Lock()
	e, ok := s.sessions[id]
	if ok {
		e.lastUsed = s.now()
	}
	s.mu.Unlock()

	if !ok {
		return nil, oops.In("session").With("session", id).Wrap(ErrNotFound)
	}

	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return nil, oops.In("session").With("session", id).Wrap(ErrNotFound)
	}

	return e, nil
}

func (s *Service) touch(e *entry) {
	s.mu.Lock()
	e.lastUsed = s.now()
	s.mu.Unlock()
}
