package crossstack

import (
	"regexp"
	"strings"
)

// Framework-specific route-declaration patterns: Axum, Express, FastAPI,
// Flask, and NestJS, with controller prefix composition.
var (
	axumRoutePattern = regexp.MustCompile(
		`\.route\(\s*"([^"]+)"\s*,\s*(?:get|post|put|delete|patch)\(\s*([A-Za-z_][A-Za-z0-9_:]*)\s*\)`)

	expressRoutePattern = regexp.MustCompile(
		`(?:app|router)\.(get|post|put|delete|patch)\(\s*["'` + "`" + `]([^"'` + "`" + `]+)["'` + "`" + `]\s*,\s*([A-Za-z_][A-Za-z0-9_.]*)`)

	fastapiRoutePattern = regexp.MustCompile(
		`@(?:app|router)\.(get|post|put|delete|patch)\(\s*["']([^"']+)["']`)
	fastapiHandlerPattern = regexp.MustCompile(`^\s*(?:async\s+)?def\s+([A-Za-z_][A-Za-z0-9_]*)`)

	flaskRoutePattern = regexp.MustCompile(
		`@(?:app|bp)\.route\(\s*["']([^"']+)["'](?:\s*,\s*methods\s*=\s*\[([^\]]*)\])?`)

	nestControllerPattern = regexp.MustCompile(`@Controller\(\s*["']?([^"')]*)["']?\s*\)`)
	nestRoutePattern       = regexp.MustCompile(
		`@(Get|Post|Put|Delete|Patch)\(\s*["']?([^"')]*)["']?\s*\)\s*\n?\s*(?:async\s+)?([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
)

// ExtractRoutes scans one backend source file's content for framework
// route declarations. path is only used to help pick a framework when the
// content itself is ambiguous (e.g. a .rs file is never checked against
// Express patterns).
func ExtractRoutes(path, content string) []Route {
	switch {
	case strings.HasSuffix(path, ".rs"):
		return extractAxumRoutes(content)
	case strings.HasSuffix(path, ".py"):
		routes := extractFastAPIRoutes(content)
		return append(routes, extractFlaskRoutes(content)...)
	case strings.HasSuffix(path, ".ts") || strings.HasSuffix(path, ".js"):
		if nestControllerPattern.MatchString(content) {
			return extractNestRoutes(content)
		}
		return extractExpressRoutes(content)
	default:
		return nil
	}
}

func extractAxumRoutes(content string) []Route {
	var out []Route
	for i, line := range splitLines(content) {
		for _, m := range axumRoutePattern.FindAllStringSubmatch(line, -1) {
			out = append(out, Route{Path: m[1], HandlerSymbol: m[2], Line: i + 1, Framework: "axum"})
		}
	}
	return out
}

func extractExpressRoutes(content string) []Route {
	var out []Route
	for i, line := range splitLines(content) {
		for _, m := range expressRoutePattern.FindAllStringSubmatch(line, -1) {
			out = append(out, Route{
				Method:        strings.ToUpper(m[1]),
				Path:          m[2],
				HandlerSymbol: m[3],
				Line:          i + 1,
				Framework:     "express",
			})
		}
	}
	return out
}

func extractFastAPIRoutes(content string) []Route {
	lines := splitLines(content)
	var out []Route
	for i, line := range lines {
		m := fastapiRoutePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		handler := nextPythonDef(lines, i+1)
		out = append(out, Route{
			Method:        strings.ToUpper(m[1]),
			Path:          m[2],
			HandlerSymbol: handler,
			Line:          i + 1,
			Framework:     "fastapi",
		})
	}
	return out
}

func extractFlaskRoutes(content string) []Route {
	lines := splitLines(content)
	var out []Route
	for i, line := range lines {
		m := flaskRoutePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		method := "GET"
		if m[2] != "" {
			methods := strings.Split(m[2], ",")
			method = strings.ToUpper(strings.Trim(strings.TrimSpace(methods[0]), `"'`))
		}
		handler := nextPythonDef(lines, i+1)
		out = append(out, Route{Method: method, Path: m[1], HandlerSymbol: handler, Line: i + 1, Framework: "flask"})
	}
	return out
}

// nextPythonDef looks a few lines ahead of a decorator for the function it
// decorates, since Python decorators precede their target by one or more
// lines (stacked decorators, blank lines).
func nextPythonDef(lines []string, from int) string {
	for i := from; i < len(lines) && i < from+5; i++ {
		if m := fastapiHandlerPattern.FindStringSubmatch(lines[i]); m != nil {
			return m[1]
		}
	}
	return ""
}

func extractNestRoutes(content string) []Route {
	prefix := ""
	if m := nestControllerPattern.FindStringSubmatch(content); m != nil {
		prefix = strings.Trim(m[1], "/")
	}

	var out []Route
	for _, m := range nestRoutePattern.FindAllStringSubmatch(content, -1) {
		path := strings.Trim(m[2], "/")
		full := path
		if prefix != "" {
			if path == "" {
				full = prefix
			} else {
				full = prefix + "/" + path
			}
		}
		out = append(out, Route{
			Method:        strings.ToUpper(m[1]),
			Path:          "/" + full,
			HandlerSymbol: m[3],
			Framework:     "nestjs",
		})
	}
	return out
}

// Frontend axios/fetch call-site patterns.
var (
	axiosCallPattern = regexp.MustCompile(
		`axios\.(get|post|put|delete|patch)\(\s*` + "`" + `([^` + "`" + `]*)` + "`" + `|axios\.(get|post|put|delete|patch)\(\s*["']([^"']*)["']`)
	fetchCallPattern = regexp.MustCompile(
		`fetch\(\s*` + "`" + `([^` + "`" + `]*)` + "`" + `|fetch\(\s*["']([^"']*)["']`)
	templateParamPattern = regexp.MustCompile(`\$\{[^}]*\}`)
)

// ExtractFrontendCalls scans one frontend source file's content for
// axios/fetch call sites, normalizing template-literal interpolations
// (`${id}`) to a ":param" placeholder so ANY interpolated id segment
// matches a backend's ":id"-style path parameter.
func ExtractFrontendCalls(path, content string) []Call {
	if !strings.HasSuffix(path, ".ts") && !strings.HasSuffix(path, ".tsx") &&
		!strings.HasSuffix(path, ".js") && !strings.HasSuffix(path, ".jsx") {
		return nil
	}

	var out []Call
	for i, line := range splitLines(content) {
		for _, m := range axiosCallPattern.FindAllStringSubmatch(line, -1) {
			method, raw := m[1], m[2]
			if method == "" {
				method, raw = m[3], m[4]
			}
			out = append(out, Call{Method: strings.ToUpper(method), Path: normalizeFrontendPath(raw), Line: i + 1})
		}
		for _, m := range fetchCallPattern.FindAllStringSubmatch(line, -1) {
			raw := m[1]
			if raw == "" {
				raw = m[2]
			}
			out = append(out, Call{Method: "GET", Path: normalizeFrontendPath(raw), Line: i + 1})
		}
	}
	return out
}

func normalizeFrontendPath(raw string) string {
	return templateParamPattern.ReplaceAllString(raw, ":param")
}

func splitLines(content string) []string {
	return strings.Split(content, "\n")
}
