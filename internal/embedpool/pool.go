package embedpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/kestrel-forge/codegraphd/internal/apperr"
)

// Factory constructs one Embedder instance. The pool calls it once per
// instance it needs, so distinct instances never share provider-side
// connection state.
type Factory func(ctx context.Context) (Embedder, error)

// Pool holds N embedder instances behind a shared semaphore and dispatches
// work round-robin, bounded by the pool's semaphore so no more than N
// embeddings run concurrently.
type Pool struct {
	mu       sync.RWMutex
	factory  Factory
	breaker  *apperr.CircuitBreaker
	sem      *semaphore.Weighted
	instances []Embedder
	next     uint64
}

// NewPool builds a pool of size instances from factory. size is clamped to
// at least 1.
func NewPool(ctx context.Context, factory Factory, size int, breaker *apperr.CircuitBreaker) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		factory: factory,
		breaker: breaker,
		sem:     semaphore.NewWeighted(int64(size)),
	}
	for i := 0; i < size; i++ {
		inst, err := factory(ctx)
		if err != nil {
			p.closeAll()
			return nil, fmt.Errorf("embedpool: build instance %d: %w", i, err)
		}
		p.instances = append(p.instances, inst)
	}
	return p, nil
}

// Size returns the current instance count.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.instances)
}

// pick returns the next instance round-robin.
func (p *Pool) pick() Embedder {
	p.mu.RLock()
	defer p.mu.RUnlock()
	idx := atomic.AddUint64(&p.next, 1) % uint64(len(p.instances))
	return p.instances[idx]
}

// Embed dispatches a single embed call to the next pool instance, admitted
// through the shared semaphore and guarded by the embedding circuit
// breaker.
func (p *Pool) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, apperr.Wrap(apperr.CodeTransient, "embedpool", "acquire slot", err)
	}
	defer p.sem.Release(1)

	inst := p.pick()
	return apperr.ExecuteWithResult(p.breaker, func() ([]float32, error) {
		return inst.Embed(ctx, text)
	}, func() ([]float32, error) {
		return nil, apperr.New(apperr.CodeTransient, "embedpool", "embedding circuit open")
	})
}

// EmbedBatch dispatches one batch to the next pool instance.
func (p *Pool) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, apperr.Wrap(apperr.CodeTransient, "embedpool", "acquire slot", err)
	}
	defer p.sem.Release(1)

	inst := p.pick()
	return apperr.ExecuteWithResult(p.breaker, func() ([][]float32, error) {
		return inst.EmbedBatch(ctx, texts)
	}, func() ([][]float32, error) {
		return nil, apperr.New(apperr.CodeTransient, "embedpool", "embedding circuit open")
	})
}

// Dimensions reports the dimensionality of the pool's model (every
// instance in a pool shares the same provider/model, so the first
// instance's answer is authoritative).
func (p *Pool) Dimensions() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.instances) == 0 {
		return 0
	}
	return p.instances[0].Dimensions()
}

// ModelName reports the pool's shared model identifier.
func (p *Pool) ModelName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.instances) == 0 {
		return ""
	}
	return p.instances[0].ModelName()
}

// ScaleUp adds delta new instances built from the pool's factory, growing
// the admission semaphore to match: pool sizing is adjustable at runtime
// so the daemon can trade memory for embedding throughput.
func (p *Pool) ScaleUp(ctx context.Context, delta int) error {
	if delta <= 0 {
		return nil
	}
	var added []Embedder
	for i := 0; i < delta; i++ {
		inst, err := p.factory(ctx)
		if err != nil {
			for _, a := range added {
				_ = a.Close()
			}
			return fmt.Errorf("embedpool: scale up: %w", err)
		}
		added = append(added, inst)
	}

	p.mu.Lock()
	p.instances = append(p.instances, added...)
	newSize := int64(len(p.instances))
	p.mu.Unlock()

	p.sem = semaphore.NewWeighted(newSize)
	return nil
}

// ScaleDown removes delta instances from the end of the pool, closing
// each one, and shrinks the admission semaphore to match. At least one
// instance is always retained.
func (p *Pool) ScaleDown(delta int) error {
	if delta <= 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	keep := len(p.instances) - delta
	if keep < 1 {
		keep = 1
	}
	removed := p.instances[keep:]
	p.instances = p.instances[:keep]

	for _, r := range removed {
		_ = r.Close()
	}
	p.sem = semaphore.NewWeighted(int64(len(p.instances)))
	return nil
}

// Close shuts down every instance in the pool.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeAllLocked()
}

func (p *Pool) closeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.closeAllLocked()
}

func (p *Pool) closeAllLocked() error {
	var firstErr error
	for _, inst := range p.instances {
		if err := inst.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.instances = nil
	return firstErr
}
