package retrieval

import "sort"

// fuse unions the symbol and vector result sets; each result carries its
// source-tagged score, and identical chunk ids are merged keeping the
// maximum score.
//
// This is deliberately a plain max-score union rather than Reciprocal
// Rank Fusion (k=60, rank-based 1/(k+rank) smoothing) — no rank
// bookkeeping or smoothing constant is needed. Only the source-tagged
// result shape is kept from that approach.
func fuse(symbolResults, vectorResults []Result) []Result {
	merged := make(map[string]*Result, len(symbolResults)+len(vectorResults))
	order := make([]string, 0, len(symbolResults)+len(vectorResults))

	mergeInto := func(r Result) {
		existing, ok := merged[r.ChunkID]
		if !ok {
			cp := r
			merged[r.ChunkID] = &cp
			order = append(order, r.ChunkID)
			return
		}
		if r.Score > existing.Score {
			existing.Score = r.Score
			existing.Source = r.Source
		}
		existing.Sources = appendSource(existing.Sources, r.Source)
	}

	for _, r := range symbolResults {
		mergeInto(r)
	}
	for _, r := range vectorResults {
		mergeInto(r)
	}

	out := make([]Result, 0, len(order))
	for _, id := range order {
		out = append(out, *merged[id])
	}
	sortResultsByScoreDesc(out)
	return out
}

func appendSource(sources []Source, s Source) []Source {
	for _, existing := range sources {
		if existing == s {
			return sources
		}
	}
	return append(sources, s)
}

func sortResultsByScoreDesc(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
