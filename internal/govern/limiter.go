// Package govern provides the daemon's resource governors: a
// connection-admission semaphore and, in internal/apperr, the circuit
// breakers guarding the embedding and vector-search paths.
package govern

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/kestrel-forge/codegraphd/internal/apperr"
)

// ConnectionLimiter caps concurrent in-flight requests. Exceeding the cap
// returns a typed CodeTransient error rather than blocking, so a client
// can distinguish "retry later" from a hang.
type ConnectionLimiter struct {
	sem *semaphore.Weighted
	max int64
}

// NewConnectionLimiter creates a limiter admitting up to max concurrent
// requests. max<=0 defaults to 100.
func NewConnectionLimiter(max int) *ConnectionLimiter {
	if max <= 0 {
		max = 100
	}
	return &ConnectionLimiter{sem: semaphore.NewWeighted(int64(max)), max: int64(max)}
}

// Guard is a released-on-Release admission ticket.
type Guard struct {
	sem *semaphore.Weighted
}

// Release returns the permit to the pool. Safe to call at most once.
func (g *Guard) Release() {
	if g == nil || g.sem == nil {
		return
	}
	g.sem.Release(1)
}

// Acquire tries to admit one request without blocking. Returns a typed
// "too many concurrent requests" error if the limiter is saturated.
func (l *ConnectionLimiter) Acquire() (*Guard, error) {
	if !l.sem.TryAcquire(1) {
		return nil, apperr.New(apperr.CodeTransient, "govern.ConnectionLimiter",
			"too many concurrent requests")
	}
	return &Guard{sem: l.sem}, nil
}

// AcquireWait blocks (respecting ctx) until a permit is available. Used by
// internal callers (e.g. the pipeline) that should back-pressure rather than
// reject.
func (l *ConnectionLimiter) AcquireWait(ctx context.Context) (*Guard, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return &Guard{sem: l.sem}, nil
}

// Max returns the configured capacity.
func (l *ConnectionLimiter) Max() int { return int(l.max) }
