package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestStore_CreateGetDelete(t *testing.T) {
	h := newHarness(t)
	s := h.store.Create()
	require.NotEmpty(t, s.ID)
	assert.Equal(t, 1, h.store.Len())

	got, err := h.store.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, h.store.Delete(s.ID))
	_, err = h.store.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, h.store.Delete(s.ID), ErrSessionNotFound)

	_, err = s.Reset()
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestStore_ExpiresIdleSessions(t *testing.T) {
	h := newHarness(t)
	clock := &manualClock{now: time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)}
	h.store.now = clock.Now

	idle := h.store.Create()
	busy := h.store.Create()
	assert.Equal(t, clock.Now().Add(time.Minute), idle.View().ExpiresAt)

	clock.Advance(40 * time.Second)
	_, err := h.store.Get(busy.ID)
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	_, err = h.store.Get(idle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.Equal(t, 1, h.store.Sweep())
	assert.Equal(t, 1, h.store.Len())
	_, err = h.store.Get(busy.ID)
	assert.NoError(t, err)
}

func TestStore_RunClosesSessionsOnShutdown(t *testing.T) {
	h := newHarness(t)
	s := h.store.Create()
	events, _ := s.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.store.Run(ctx, 5*time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Zero(t, h.store.Len())
	ev := <-events
	assert.Equal(t, EventClosed, ev.Type)
}
