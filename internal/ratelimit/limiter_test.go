package ratelimit

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/ragcore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, capacity int) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l, err := New(capacity, 0, WithClock(clock.Now))
	require.NoError(t, err)
	return l, clock
}

func TestLimiter_CapacityThenRefill(t *testing.T) {
	l, clock := newTestLimiter(t, DefaultCapacity)

	for i := 0; i < DefaultCapacity; i++ {
		assert.True(t, l.Allow("alice"), "request %d", i)
	}
	d := l.AllowN("alice", 1)
	assert.False(t, d.Allowed)
	assert.Zero(t, d.Remaining)
	assert.InDelta(t, float64(6*time.Second), float64(d.RetryAfter), float64(time.Millisecond))

	clock.Advance(time.Minute)
	assert.True(t, l.Allow("alice"))
}

func TestLimiter_CallersAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t, 2)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
	assert.Equal(t, 1, l.Remaining("b"))
	assert.Equal(t, 2, l.Remaining("nobody"))
}

func TestLimiter_AllowNCost(t *testing.T) {
	l, _ := newTestLimiter(t, 5)
	d := l.AllowN("a", 3)
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.Remaining)

	d = l.AllowN("a", 3)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Duration(0))

	d = l.AllowN("b", 6)
	assert.False(t, d.Allowed)
	assert.Zero(t, d.RetryAfter)
}

func TestLimiter_Reset(t *testing.T) {
	l, _ := newTestLimiter(t, 1)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	l.Reset("a")
	assert.True(t, l.Allow("a"))
}

func TestLimiter_InvalidCapacity(t *testing.T) {
	_, err := New(0, 1)
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestLimiter_ConcurrentCallers(t *testing.T) {
	l, _ := newTestLimiter(t, 10)
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}
