package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"govassist/app/config"
	"govassist/app/service/conversation"
	"govassist/app/service/lexicon"
	"govassist/app/service/memory"

	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

type echoTurner struct {
	active    atomic.Int32
	maxActive atomic.Int32
	delay     time.Duration
}

func (e *echoTurner) ProcessTurn(_ context.Context, mem *memory.Memory, text string) conversation.TurnResult {
	n := e.active.Add(1)
	defer e.active.Add(-1)

	for {
		current := e.maxActive.Load()
		if n <= current || e.maxActive.CompareAndSwap(current, n) {
			break
		}
	}

	time.Sleep(e.delay)
	mem.AddMessage(memory.Message{Role: memory.RoleUser, Text: text})

	return conversation.TurnResult{Reply: "echo: " + text, Kind: conversation.KindAnswer}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T, cfg *config.Config, turner Turner, opts ...Option) *Service {
	t.Helper()

	di := do.New()
	t.Cleanup(func() { _ = di.Shutdown() })

	do.ProvideValue(di, cfg)
	do.Provide(di, func(*do.Injector) (*lexicon.Library, error) {
		return lexicon.Default()
	})
	do.Provide(di, memory.New)

	return NewService(cfg.Session, do.MustInvoke[*memory.Service](di), turner, opts...)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestService(t, config.Default(), &echoTurner{})

	info, err := s.Create()
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, 1, s.Len())

	res, err := s.Turn(context.Background(), info.ID, "pay my water bill")
	require.NoError(t, err)
	assert.Equal(t, "echo: pay my water bill", res.Reply)

	summary, err := s.Summary(info.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.MessageCount)

	messages, err := s.Messages(info.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "pay my water bill", messages[0].Text)

	require.NoError(t, s.Delete(info.ID))
	assert.Zero(t, s.Len())

	_, err = s.Turn(context.Background(), info.ID, "hello")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Summary(info.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(info.ID), ErrNotFound)
}

func TestSessionsAreIsolated(t *testing.T) {
	s := newTestService(t, config.Default(), &echoTurner{})

	a, err := s.Create()
	require.NoError(t, err)
	b, err := s.Create()
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	_, err = s.Turn(context.Background(), a.ID, "one")
	require.NoError(t, err)

	summary, err := s.Summary(b.ID)
	require.NoError(t, err)
	assert.Zero(t, summary.MessageCount)
}

func TestTurnsOfOneSessionAreSequential(t *testing.T) {
	turner := &echoTurner{delay: time.Millisecond}
	s := newTestService(t, config.Default(), turner)

	info, err := s.Create()
	require.NoError(t, err)

	var g errgroup.Group
	for range 20 {
		g.Go(func() error {
			_, err := s.Turn(context.Background(), info.ID, "hello")
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), turner.maxActive.Load())

	summary, err := s.Summary(info.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, summary.MessageCount)
}

func TestCapacity(t *testing.T) {
	cfg := config.Default()
	cfg.Session.MaxSessions = 2

	c := &clock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := newTestService(t, cfg, &echoTurner{}, WithClock(c.Now))

	_, err := s.Create()
	require.NoError(t, err)
	_, err = s.Create()
	require.NoError(t, err)

	_, err = s.Create()
	assert.ErrorIs(t, err, ErrCapacity)

	// idle sessions make room
	c.Advance(cfg.Session.IdleTTL + time.Second)
	_, err = s.Create()
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestSweep(t *testing.T) {
	cfg := config.Default()
	c := &clock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := newTestService(t, cfg, &echoTurner{}, WithClock(c.Now))

	idle, err := s.Create()
	require.NoError(t, err)
	busy, err := s.Create()
	require.NoError(t, err)

	c.Advance(cfg.Session.IdleTTL / 2)
	_, err = s.Turn(context.Background(), busy.ID, "still here")
	require.NoError(t, err)

	c.Advance(cfg.Session.IdleTTL/2 + time.Second)
	assert.Equal(t, 1, s.Sweep())

	_, err = s.Summary(idle.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Summary(busy.ID)
	assert.NoError(t, err)
}

func TestRunStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := config.Default()
	cfg.Session.SweepInterval = time.Millisecond
	s := newTestService(t, cfg, &echoTurner{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
