package retrieval

import "context"

// searchSymbols runs the FTS symbol path: a sanitized phrase match
// against the symbol index, optionally prefix-filtered by path.
//
// relstore.SearchSymbols has no path-filter parameter of its own (it's a
// stable, already-tested signature used elsewhere) so the filter is
// applied client-side here rather than widening that signature for this
// one caller.
func searchSymbols(ctx context.Context, store SymbolSearcher, query string, limit int, pathFilter string) ([]Result, error) {
	// Over-fetch before filtering so a path filter doesn't starve the
	// result set down below the requested limit.
	fetchLimit := limit
	if pathFilter != "" {
		fetchLimit = limit * 4
		if fetchLimit < 50 {
			fetchLimit = 50
		}
	}

	hits, err := store.SearchSymbols(ctx, query, fetchLimit)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		if pathFilter != "" && !hasPathPrefix(h.FilePath, pathFilter) {
			continue
		}
		results = append(results, Result{
			ChunkID:    symbolChunkID(h),
			FilePath:   h.FilePath,
			Content:    h.Signature,
			LineStart:  h.LineStart,
			LineEnd:    h.LineEnd,
			SymbolName: h.Name,
			SymbolKind: h.Kind,
			Score:      h.Score,
			Source:     SourceSymbol,
			Sources:    []Source{SourceSymbol},
		})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

func hasPathPrefix(path, prefix string) bool {
	if len(path) < len(prefix) {
		return false
	}
	return path[:len(prefix)] == prefix
}

// symbolChunkID gives a symbol hit a stable identity for fusion merging
// against vector hits over the same definition site.
func symbolChunkID(h SymbolHit) string {
	return h.FilePath + ":" + h.Kind + ":" + h.Name
}
