// Package ratelimit throttles outbound HTTP calls to rate-limited APIs.
//
// A Limiter models a reservoir of calls that fully refills on a fixed
// interval, spaces request starts by a minimum gap and bounds the number of
// requests in flight. A Transport wraps an http.RoundTripper with a Limiter
// and reacts to the X-RateLimit-* headers the upstream API returns.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/semaphore"
)

// Config describes the throttling policy for one upstream API.
type Config struct {
	// MaxConcurrent bounds in-flight requests. Zero means unbounded.
	MaxConcurrent int
	// MinTime is the minimum gap between two request starts.
	MinTime time.Duration
	// Reservoir is the number of calls allowed per RefreshInterval. Zero disables it.
	Reservoir       int
	RefreshInterval time.Duration
	// SafetyMargin is added to every wait for an upstream reset time.
	SafetyMargin time.Duration
}

var (
	// GitHub leaves a buffer under the 5000 requests/hour authenticated limit.
	GitHub = Config{
		MaxConcurrent:   10,
		MinTime:         100 * time.Millisecond,
		Reservoir:       4500,
		RefreshInterval: time.Hour,
		SafetyMargin:    time.Second,
	}
	// DevTo stays under dev.to's 10 requests per 30 seconds.
	DevTo = Config{
		MaxConcurrent:   1,
		Reservoir:       6,
		RefreshInterval: 30 * time.Second,
		SafetyMargin:    time.Second,
	}
)

// Limiter hands out permission to start a request.
type Limiter struct {
	cfg   Config
	clock clockwork.Clock
	sem   *semaphore.Weighted

	mu          sync.Mutex
	tokens      int
	windowStart time.Time
	lastStart   time.Time
}

// NewLimiter creates a Limiter whose reservoir starts full.
func NewLimiter(cfg Config, clock clockwork.Clock) *Limiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	l := &Limiter{
		cfg:         cfg,
		clock:       clock,
		tokens:      cfg.Reservoir,
		windowStart: clock.Now(),
	}
	if cfg.MaxConcurrent > 0 {
		l.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	return l
}

// Acquire blocks until a request may start. The returned release func must be
// called once the request has finished.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	if l.sem != nil {
		if err := l.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
	}
	release := func() {
		if l.sem != nil {
			l.sem.Release(1)
		}
	}

	for {
		wait := l.reserve()
		if wait <= 0 {
			return release, nil
		}
		if err := sleep(ctx, l.clock, wait); err != nil {
			release()
			return nil, err
		}
	}
}

// reserve takes a token if one is available now and returns zero, otherwise it
// returns how long to wait before trying again.
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if l.cfg.Reservoir > 0 && l.cfg.RefreshInterval > 0 && now.Sub(l.windowStart) >= l.cfg.RefreshInterval {
		elapsed := now.Sub(l.windowStart) / l.cfg.RefreshInterval
		l.windowStart = l.windowStart.Add(elapsed * l.cfg.RefreshInterval)
		l.tokens = l.cfg.Reservoir
	}

	if l.cfg.Reservoir > 0 && l.tokens <= 0 {
		return l.windowStart.Add(l.cfg.RefreshInterval).Sub(now)
	}
	if l.cfg.MinTime > 0 && !l.lastStart.IsZero() {
		if next := l.lastStart.Add(l.cfg.MinTime); now.Before(next) {
			return next.Sub(now)
		}
	}

	if l.cfg.Reservoir > 0 {
		l.tokens--
	}
	l.lastStart = now
	return 0
}

// Remaining reports the tokens left in the current reservoir window.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tokens
}

func sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
