// Package ratelimit admits or denies work per caller using token buckets.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"github.com/hyperjump/ragcore/internal/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultCapacity is the bucket size per caller.
	DefaultCapacity = 10
	// DefaultWindow is the time to refill an empty bucket at the default rate.
	DefaultWindow = time.Minute
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter keeps one token bucket per caller. Buckets are created on first use, full. State for
// different callers never shares a lock.
type Limiter struct {
	capacity int
	refill   rate.Limit
	now      func() time.Time
	logger   *zap.Logger
	buckets  sync.Map // caller -> *rate.Limiter
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithLogger sets a logger for denials.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// New creates a Limiter. A non-positive refillPerSecond defaults to capacity per minute.
func New(capacity int, refillPerSecond float64, opts ...Option) (*Limiter, error) {
	if capacity < 1 {
		return nil, models.Validationf("rate limit capacity must be at least 1, got %d", capacity)
	}
	if refillPerSecond <= 0 {
		refillPerSecond = float64(capacity) / DefaultWindow.Seconds()
	}
	l := &Limiter{
		capacity: capacity,
		refill:   rate.Limit(refillPerSecond),
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Allow admits one unit of work for caller.
func (l *Limiter) Allow(caller string) bool {
	return l.AllowN(caller, 1).Allowed
}

// AllowN admits cost units of work for caller, or reports how long until it could be admitted.
// A cost larger than the capacity is never admitted and carries no RetryAfter.
func (l *Limiter) AllowN(caller string, cost int) Decision {
	if cost < 1 {
		cost = 1
	}
	now := l.now()
	b := l.bucket(caller)
	if b.AllowN(now, cost) {
		return Decision{Allowed: true, Remaining: floorTokens(b.TokensAt(now))}
	}
	tokens := b.TokensAt(now)
	d := Decision{Remaining: floorTokens(tokens)}
	if cost <= l.capacity {
		missing := float64(cost) - tokens
		d.RetryAfter = time.Duration(math.Ceil(missing / float64(l.refill) * float64(time.Second)))
	}
	l.logger.Warn("rate limit exceeded",
		zap.String("caller", caller),
		zap.Int("cost", cost),
		zap.Duration("retry_after", d.RetryAfter),
	)
	return d
}

// Remaining returns the whole tokens currently available to caller.
func (l *Limiter) Remaining(caller string) int {
	v, ok := l.buckets.Load(caller)
	if !ok {
		return l.capacity
	}
	return floorTokens(v.(*rate.Limiter).TokensAt(l.now()))
}

// Reset forgets caller's bucket so its next request starts full.
func (l *Limiter) Reset(caller string) {
	l.buckets.Delete(caller)
	l.logger.Info("rate limit reset", zap.String("caller", caller))
}

// Capacity returns the bucket size.
func (l *Limiter) Capacity() int {
	return l.capacity
}

func (l *Limiter) bucket(caller string) *rate.Limiter {
	if v, ok := l.buckets.Load(caller); ok {
		return v.(*rate.Limiter)
	}
	v, _ := l.buckets.LoadOrStore(caller, rate.NewLimiter(l.refill, l.capacity))
	return v.(*rate.Limiter)
}

func floorTokens(t float64) int {
	if t < 0 {
		return 0
	}
	return int(math.Floor(t))
}
