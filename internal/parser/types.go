// Package parser implements the source parser: a single tree-sitter pass
// per file that yields symbols, chunks, references, and imports in one
// call, guaranteeing line-number and byte-offset agreement across all four
// outputs.
package parser

// Language is a source language this parser understands. Selection from a
// file is by extension.
type Language string

const (
	LangRust       Language = "rust"
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangVue        Language = "vue"
	LangPython     Language = "python"
	LangGo         Language = "go"
)

// SymbolKind is the canonical, cross-language symbol classification.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindStruct    SymbolKind = "struct"
	KindEnum      SymbolKind = "enum"
	KindImpl      SymbolKind = "impl"
	KindTrait     SymbolKind = "trait"
	KindConst     SymbolKind = "const"
	KindType      SymbolKind = "type"
	KindClass     SymbolKind = "class"
	KindMethod    SymbolKind = "method"
	KindArrow     SymbolKind = "arrow"
	KindInterface SymbolKind = "interface"
	KindVariable  SymbolKind = "variable"
	KindModule    SymbolKind = "module"
	KindMacro     SymbolKind = "macro"
	KindStatic    SymbolKind = "static"
)

// Symbol is a named declaration extracted from a file.
type Symbol struct {
	Name      string
	Kind      SymbolKind
	LineStart int // 1-indexed, inclusive
	LineEnd   int // 1-indexed, inclusive
	Signature string
}

// ReferenceKind classifies a SymbolReference edge.
type ReferenceKind string

const (
	RefCall            ReferenceKind = "call"
	RefImport          ReferenceKind = "import"
	RefTypeUsage       ReferenceKind = "type_usage"
	RefComponentUsage  ReferenceKind = "component_usage"
)

// Reference is an edge from a symbol to a target name: a call, an import, a
// type mention, or (Vue) a template component usage.
type Reference struct {
	SourceSymbol string // empty if the reference is at file scope
	TargetName   string
	Line         int
	Kind         ReferenceKind
}

// Import is one parsed import/use statement.
type Import struct {
	ModulePath string
	Items      []string
	Relative   bool
	Line       int
}

// Chunk is a span of file text aligned to AST structure, the unit of
// embedding.
type Chunk struct {
	ID         string // "path:line_start:line_end"
	LineStart  int
	LineEnd    int
	Content    string
	SymbolName string // empty if the chunk has no single owning symbol
	SymbolKind SymbolKind
	Breadcrumbs []string // enclosing-scope names, outermost first
}

// FingerprintField is one normalized field of a TypeFingerprint.
type FingerprintField struct {
	Name       string
	Type       string
	Normalized string // lower-case, '_' and '-' stripped
}

// Fingerprint is the structural shape of a struct/interface/class/type.
// Only types with >= 3 fields are retained by the caller.
type Fingerprint struct {
	Name     string
	Language Language
	Fields   []FingerprintField
}

// ParsedDoc is the full, single-pass output of parsing one file: symbols,
// chunks, references, imports, fingerprints, and the skeleton all returned
// from one parse_file call.
type ParsedDoc struct {
	Path         string
	Language     Language
	Symbols      []Symbol
	Chunks       []Chunk
	References   []Reference
	Imports      []Import
	Fingerprints []Fingerprint
	Skeleton     string
}

// LanguageForExtension maps a file extension (with or without leading dot)
// to a Language, or ok=false if unsupported.
func LanguageForExtension(ext string) (Language, bool) {
	if len(ext) > 0 && ext[0] != '.' {
		ext = "." + ext
	}
	switch ext {
	case ".rs":
		return LangRust, true
	case ".ts", ".tsx":
		return LangTypeScript, true
	case ".js", ".mjs", ".jsx":
		return LangJavaScript, true
	case ".vue":
		return LangVue, true
	case ".py":
		return LangPython, true
	case ".go":
		return LangGo, true
	default:
		return "", false
	}
}
