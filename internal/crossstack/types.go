// Package crossstack implements the cross-stack linker (component C11): a
// post-pipeline phase that matches backend route handlers to frontend API
// calls, and Jaccard-compares structural type fingerprints across
// languages.
package crossstack

// routeLinkConfidence is the fixed confidence assigned to an api_route
// entity link.
const routeLinkConfidence = 0.8

// structuralJaccardThreshold is the minimum Jaccard similarity for a
// structural cross-stack link.
const structuralJaccardThreshold = 0.75

// minFingerprintFields is the floor on fields considered for structural
// comparison.
const minFingerprintFields = 3

// Route is one extracted backend route handler, method+path with its
// declaring file and (if resolvable) handler symbol name.
type Route struct {
	FileID        int64
	Method        string
	Path          string
	HandlerSymbol string
	Line          int
	Framework     string
}

// Call is one extracted frontend axios/fetch call site.
type Call struct {
	FileID int64
	Method string
	Path   string
	Line   int
}

// Fingerprint is one backend-or-frontend type's normalized field set, as
// stored in relstore's type_fingerprints table.
type Fingerprint struct {
	ID               int64
	FileID           int64
	Name             string
	Language         string
	NormalizedFields []string
}
