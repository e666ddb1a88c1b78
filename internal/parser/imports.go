package parser

import "strings"

// stdlibPrefixes lists each language's standard-library module prefixes,
// for IsStdlib to recognise. ExtractImports itself does not filter on them:
// standard-library imports are returned like any other.
var stdlibPrefixes = map[Language][]string{
	LangGo:         {"fmt", "os", "io", "strings", "strconv", "sync", "time", "context", "net", "encoding", "errors", "bytes", "bufio", "sort", "math", "unicode", "path", "runtime", "reflect"},
	LangRust:       {"std::", "core::", "alloc::"},
	LangPython:     {"os", "sys", "re", "json", "typing", "collections", "itertools", "functools", "pathlib", "datetime", "abc", "asyncio", "logging", "io", "math"},
	LangTypeScript: {"node:"},
	LangJavaScript: {"node:"},
}

// ExtractImports walks tree and returns every import/use statement, with
// ModulePath resolved from the grammar-specific node shape.
func ExtractImports(tree *Tree, cfg *LanguageConfig) []Import {
	var out []Import
	tree.Root.Walk(func(n *Node) bool {
		if containsType(cfg.ImportTypes, n.Type) {
			out = append(out, importsFromNode(n, tree)...)
			return false
		}
		return true
	})
	return out
}

func importsFromNode(n *Node, tree *Tree) []Import {
	line := int(n.StartPoint.Row) + 1
	source := tree.Source

	switch tree.Language {
	case LangGo:
		return goImports(n, source)
	case LangRust:
		if imp, ok := rustImport(n, source, line); ok {
			return []Import{imp}
		}
	case LangPython:
		if imp, ok := pythonImport(n, source, line); ok {
			return []Import{imp}
		}
	case LangTypeScript, LangJavaScript, LangVue:
		if imp, ok := jsImport(n, source, line); ok {
			return []Import{imp}
		}
	}
	return nil
}

// goImports handles both single ("import \"fmt\"") and grouped
// ("import (\n\t\"fmt\"\n\t\"strings\"\n)") declarations: a grouped
// declaration nests one import_spec per line inside an import_spec_list.
func goImports(n *Node, source []byte) []Import {
	var specs []*Node
	n.Walk(func(c *Node) bool {
		if c.Type == "import_spec" {
			specs = append(specs, c)
			return false
		}
		return true
	})

	var out []Import
	for _, spec := range specs {
		var path string
		spec.Walk(func(c *Node) bool {
			if c.Type == "interpreted_string_literal" && path == "" {
				path = strings.Trim(c.GetContent(source), `"`)
			}
			return true
		})
		if path == "" {
			continue
		}
		out = append(out, Import{
			ModulePath: path,
			Relative:   strings.HasPrefix(path, "."),
			Line:       int(spec.StartPoint.Row) + 1,
		})
	}
	return out
}

func rustImport(n *Node, source []byte, line int) (Import, bool) {
	content := strings.TrimSuffix(strings.TrimSpace(n.GetContent(source)), ";")
	content = strings.TrimPrefix(content, "use")
	content = strings.TrimSpace(content)
	modPath := content
	var items []string
	if i := strings.Index(content, "::{"); i >= 0 {
		modPath = content[:i]
		inner := strings.TrimSuffix(content[i+3:], "}")
		for _, part := range strings.Split(inner, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				items = append(items, part)
			}
		}
	}
	return Import{
		ModulePath: modPath,
		Items:      items,
		Relative:   strings.HasPrefix(modPath, "self::") || strings.HasPrefix(modPath, "super::") || strings.HasPrefix(modPath, "crate::"),
		Line:       line,
	}, modPath != ""
}

func pythonImport(n *Node, source []byte, line int) (Import, bool) {
	var modulePath string
	var items []string
	relative := false

	moduleName := n.ChildByField("module_name")
	if moduleName != nil {
		modulePath = moduleName.GetContent(source)
		relative = strings.HasPrefix(modulePath, ".")
	}

	n.Walk(func(c *Node) bool {
		if c.Type == "dotted_name" && modulePath == "" {
			modulePath = c.GetContent(source)
		}
		if c.Type == "aliased_import" || c.Type == "dotted_name" {
			// handled via moduleName/modulePath above; import items below
			// collect names imported via "from X import a, b".
		}
		if c.FieldName == "name" && c.Type == "dotted_name" {
			items = append(items, c.GetContent(source))
		}
		return true
	})

	if modulePath == "" {
		return Import{}, false
	}
	return Import{ModulePath: modulePath, Items: items, Relative: relative, Line: line}, true
}

func jsImport(n *Node, source []byte, line int) (Import, bool) {
	var path string
	var items []string
	n.Walk(func(c *Node) bool {
		if c.Type == "string" && path == "" {
			path = strings.Trim(c.GetContent(source), `"'`)
		}
		if c.Type == "identifier" && c.FieldName == "" && c != n {
			items = append(items, c.GetContent(source))
		}
		return true
	})
	if path == "" {
		return Import{}, false
	}
	return Import{
		ModulePath: path,
		Items:      items,
		Relative:   strings.HasPrefix(path, "."),
		Line:       line,
	}, true
}

// IsStdlib reports whether modulePath belongs to lang's standard library.
func IsStdlib(lang Language, modulePath string) bool {
	for _, prefix := range stdlibPrefixes[lang] {
		if modulePath == prefix || strings.HasPrefix(modulePath, prefix) {
			return true
		}
	}
	return false
}
