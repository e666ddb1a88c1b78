package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// rerank runs the optional cross-encoder pass: the fused candidate set
// is truncated to rerankCandidateCap, scored by a single batched
// inference call, and returned re-sorted by the cross-encoder's score.
// The 5s timeout is SOFT — an overrun is logged but the call is never
// cancelled, so a slow reranker still gets to contribute its ranking
// rather than being discarded.
func rerank(ctx context.Context, reranker Reranker, query string, candidates []Result) ([]Result, bool, error) {
	if len(candidates) == 0 {
		return candidates, false, nil
	}
	truncated := candidates
	if len(truncated) > rerankCandidateCap {
		truncated = truncated[:rerankCandidateCap]
	}

	docs := make([]string, len(truncated))
	for i, c := range truncated {
		docs[i] = c.Content
	}

	type rerankOutcome struct {
		hits []RerankHit
		err  error
	}
	done := make(chan rerankOutcome, 1)
	start := time.Now()
	go func() {
		hits, err := reranker.Rerank(ctx, query, docs, len(docs))
		done <- rerankOutcome{hits: hits, err: err}
	}()

	timedOut := false
	var outcome rerankOutcome
	select {
	case outcome = <-done:
	case <-time.After(rerankSoftTimeout):
		timedOut = true
		slog.Warn("retrieval: rerank exceeded soft timeout, awaiting result", "elapsed", time.Since(start))
		outcome = <-done
	}
	if outcome.err != nil {
		return candidates, timedOut, outcome.err
	}

	scored := make([]Result, len(truncated))
	copy(scored, truncated)
	for _, hit := range outcome.hits {
		if hit.Index < 0 || hit.Index >= len(scored) {
			continue
		}
		scored[hit.Index].RerankScore = hit.Score
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RerankScore > scored[j].RerankScore
	})

	if len(candidates) > len(truncated) {
		scored = append(scored, candidates[len(truncated):]...)
	}
	return scored, timedOut, nil
}
