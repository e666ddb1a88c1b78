package crossstack

import "strings"

// pathsMatch reports whether two route paths match: segment counts must
// be equal, and every non-parameter segment must match literally. A
// segment starting with ':' (Express/NestJS/Flask-style) or '{' (Axum,
// FastAPI-style) or a template-normalized ":param" is treated as a
// parameter and matches anything.
func pathsMatch(backendPath, frontendPath string) bool {
	backend := splitPathSegments(backendPath)
	frontend := splitPathSegments(frontendPath)
	if len(backend) != len(frontend) {
		return false
	}
	for i := range backend {
		if isParamSegment(backend[i]) || isParamSegment(frontend[i]) {
			continue
		}
		if backend[i] != frontend[i] {
			return false
		}
	}
	return true
}

func splitPathSegments(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func isParamSegment(seg string) bool {
	if seg == "" {
		return false
	}
	switch seg[0] {
	case ':', '{':
		return true
	}
	return seg == "param" || seg == ":param"
}

// jaccardSimilarity computes the Jaccard index of two normalized field
// name sets, the structural cross-stack link comparison.
func jaccardSimilarity(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for f := range setA {
		if _, ok := setB[f]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func toSet(fields []string) map[string]struct{} {
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
