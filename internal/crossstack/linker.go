package crossstack

import (
	"context"
	"fmt"
)

// Store is the narrow slice of relstore.Store the linker needs — reading
// back already-persisted routes/calls/fingerprints and replacing the two
// link tables wholesale, cleared and rebuilt on every full sync.
type Store interface {
	AllAPIEndpoints(ctx context.Context) ([]StoredRoute, error)
	AllFrontendAPICalls(ctx context.Context) ([]StoredCall, error)
	AllTypeFingerprints(ctx context.Context) ([]Fingerprint, error)
	ReplaceEntityLinks(ctx context.Context, links []EntityLink) error
	ClearCrossStackLinks(ctx context.Context) error
	InsertCrossStackLink(ctx context.Context, leftFingerprintID, rightFingerprintID int64, similarity float64) error
}

// StoredRoute mirrors relstore.APIEndpoint.
type StoredRoute struct {
	FileID        int64
	Method        string
	Path          string
	HandlerSymbol string
	Framework     string
}

// StoredCall mirrors relstore.FrontendAPICall.
type StoredCall struct {
	FileID int64
	Method string
	Path   string
}

// EntityLink mirrors relstore.EntityLink.
type EntityLink struct {
	FromKind   string
	FromRef    string
	ToKind     string
	ToRef      string
	Confidence float64
	LinkType   string
}

// Result reports how many links a Sync produced, for daemon status/logs.
type Result struct {
	RouteLinks      int
	StructuralLinks int
}

// Sync runs the full cross-stack linking pass over whatever routes,
// frontend calls, and type fingerprints are currently stored — both
// output tables are cleared and rebuilt from scratch.
func Sync(ctx context.Context, store Store) (*Result, error) {
	routes, err := store.AllAPIEndpoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("crossstack: load api_endpoints: %w", err)
	}
	calls, err := store.AllFrontendAPICalls(ctx)
	if err != nil {
		return nil, fmt.Errorf("crossstack: load frontend_api_calls: %w", err)
	}
	fingerprints, err := store.AllTypeFingerprints(ctx)
	if err != nil {
		return nil, fmt.Errorf("crossstack: load type_fingerprints: %w", err)
	}

	links := linkRoutes(routes, calls)
	if err := store.ReplaceEntityLinks(ctx, links); err != nil {
		return nil, fmt.Errorf("crossstack: replace entity_links: %w", err)
	}

	if err := store.ClearCrossStackLinks(ctx); err != nil {
		return nil, fmt.Errorf("crossstack: clear cross_stack_links: %w", err)
	}
	structural := 0
	for _, pair := range linkStructural(fingerprints) {
		if err := store.InsertCrossStackLink(ctx, pair.left.ID, pair.right.ID, pair.similarity); err != nil {
			return nil, fmt.Errorf("crossstack: insert cross_stack_link: %w", err)
		}
		structural++
	}

	return &Result{RouteLinks: len(links), StructuralLinks: structural}, nil
}

// linkRoutes runs the route-linking pass: every (backend route, frontend
// call) pair whose method matches (when the frontend call declares one)
// and whose path segments match yields an api_route link at the fixed 0.8
// confidence.
func linkRoutes(routes []StoredRoute, calls []StoredCall) []EntityLink {
	var out []EntityLink
	for _, r := range routes {
		for _, c := range calls {
			if c.Method != "" && r.Method != "" && c.Method != r.Method {
				continue
			}
			if !pathsMatch(r.Path, c.Path) {
				continue
			}
			out = append(out, EntityLink{
				FromKind:   "api_endpoint",
				FromRef:    routeRef(r),
				ToKind:     "frontend_api_call",
				ToRef:      callRef(c),
				Confidence: routeLinkConfidence,
				LinkType:   "api_route",
			})
		}
	}
	return out
}

func routeRef(r StoredRoute) string {
	return fmt.Sprintf("%d:%s:%s", r.FileID, r.Method, r.Path)
}

func callRef(c StoredCall) string {
	return fmt.Sprintf("%d:%s:%s", c.FileID, c.Method, c.Path)
}

type fingerprintPair struct {
	left       Fingerprint
	right      Fingerprint
	similarity float64
}

// linkStructural runs the structural-link pass: every cross-language pair
// of fingerprints (each with >= 3 fields) with Jaccard similarity >= 0.75
// yields a link weighted by that similarity.
// Same-language pairs are skipped — the point is cross-STACK comparison,
// not finding two Go structs that happen to share field names.
func linkStructural(fingerprints []Fingerprint) []fingerprintPair {
	eligible := make([]Fingerprint, 0, len(fingerprints))
	for _, fp := range fingerprints {
		if len(fp.NormalizedFields) >= minFingerprintFields {
			eligible = append(eligible, fp)
		}
	}

	var out []fingerprintPair
	for i := 0; i < len(eligible); i++ {
		for j := i + 1; j < len(eligible); j++ {
			a, b := eligible[i], eligible[j]
			if a.Language == b.Language {
				continue
			}
			sim := jaccardSimilarity(a.NormalizedFields, b.NormalizedFields)
			if sim >= structuralJaccardThreshold {
				out = append(out, fingerprintPair{left: a, right: b, similarity: sim})
			}
		}
	}
	return out
}
