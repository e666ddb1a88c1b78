package govern

import (
	"time"

	"github.com/kestrel-forge/codegraphd/internal/apperr"
)

// Breakers bundles the daemon's two circuit breakers: one guarding calls
// into the embedder pool, one guarding calls into the vector store.
// Keeping them as separate instances means an embedding outage does not
// trip searches that only need the vector store, and vice versa.
type Breakers struct {
	Embedding *apperr.CircuitBreaker
	Vector    *apperr.CircuitBreaker
}

// NewBreakers builds the pair with conservative defaults (5 failures to
// open, 2 consecutive half-open successes to close, 30s open timeout).
func NewBreakers() *Breakers {
	return &Breakers{
		Embedding: apperr.NewCircuitBreaker("embedding",
			apperr.WithFailureThreshold(5),
			apperr.WithRecoveryThreshold(2),
			apperr.WithTimeout(30*time.Second)),
		Vector: apperr.NewCircuitBreaker("vector",
			apperr.WithFailureThreshold(5),
			apperr.WithRecoveryThreshold(2),
			apperr.WithTimeout(30*time.Second)),
	}
}
