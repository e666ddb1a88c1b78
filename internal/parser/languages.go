package parser

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// LanguageConfig binds a Language to its tree-sitter grammar and the node
// types that mark each canonical SymbolKind. Each language's queries yield
// differently-named captures; the parser normalizes them into these
// canonical kinds.
type LanguageConfig struct {
	Language   Language
	TSLanguage *sitter.Language

	FunctionTypes  []string
	MethodTypes    []string
	ClassTypes     []string
	InterfaceTypes []string
	StructTypes    []string
	EnumTypes      []string
	ImplTypes      []string
	TraitTypes     []string
	TypeDefTypes   []string
	ConstTypes     []string
	StaticTypes    []string
	VariableTypes  []string
	ModuleTypes    []string
	MacroTypes     []string

	// CallTypes/ImportTypes/TypeUsageTypes drive reference extraction.
	CallTypes      []string
	ImportTypes    []string
	TypeUsageTypes []string

	NameField string // tree-sitter field name holding the declaration's identifier
}

// Registry maps file extensions and language names to LanguageConfig.
type Registry struct {
	mu        sync.RWMutex
	byLang    map[Language]*LanguageConfig
}

// DefaultRegistry returns a registry pre-populated with Go, TypeScript,
// JavaScript, Python, and Rust. Vue is layered on top of TypeScript + HTML
// by the vue.go adapter, not registered here.
func DefaultRegistry() *Registry {
	r := &Registry{byLang: make(map[Language]*LanguageConfig)}
	r.register(goConfig())
	r.register(typeScriptConfig())
	r.register(javaScriptConfig())
	r.register(pythonConfig())
	r.register(rustConfig())
	return r
}

func (r *Registry) register(cfg *LanguageConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byLang[cfg.Language] = cfg
}

// Get returns the config for a language.
func (r *Registry) Get(lang Language) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.byLang[lang]
	return cfg, ok
}

// HTMLLanguage exposes the tree-sitter HTML grammar for the Vue adapter.
func HTMLLanguage() *sitter.Language {
	return html.GetLanguage()
}

func goConfig() *LanguageConfig {
	return &LanguageConfig{
		Language:      LangGo,
		TSLanguage:    golang.GetLanguage(),
		FunctionTypes: []string{"function_declaration"},
		MethodTypes:   []string{"method_declaration"},
		TypeDefTypes:  []string{"type_declaration"},
		ConstTypes:    []string{"const_declaration"},
		VariableTypes: []string{"var_declaration"},
		CallTypes:     []string{"call_expression"},
		ImportTypes:   []string{"import_declaration"},
		TypeUsageTypes: []string{"type_identifier"},
		NameField:     "name",
	}
}

func typeScriptConfig() *LanguageConfig {
	return &LanguageConfig{
		Language:       LangTypeScript,
		TSLanguage:     typescript.GetLanguage(),
		FunctionTypes:  []string{"function_declaration"},
		MethodTypes:    []string{"method_definition"},
		ClassTypes:     []string{"class_declaration"},
		InterfaceTypes: []string{"interface_declaration"},
		TypeDefTypes:   []string{"type_alias_declaration"},
		ConstTypes:     []string{"lexical_declaration"},
		VariableTypes:  []string{"variable_declaration"},
		CallTypes:      []string{"call_expression", "new_expression"},
		ImportTypes:    []string{"import_statement"},
		TypeUsageTypes: []string{"type_identifier"},
		NameField:      "name",
	}
}

func javaScriptConfig() *LanguageConfig {
	cfg := typeScriptConfig()
	cfg.Language = LangJavaScript
	cfg.TSLanguage = javascript.GetLanguage()
	cfg.InterfaceTypes = nil
	cfg.TypeDefTypes = nil
	cfg.FunctionTypes = []string{"function_declaration", "function"}
	return cfg
}

func pythonConfig() *LanguageConfig {
	return &LanguageConfig{
		Language:      LangPython,
		TSLanguage:    python.GetLanguage(),
		FunctionTypes: []string{"function_definition"},
		ClassTypes:    []string{"class_definition"},
		CallTypes:     []string{"call"},
		ImportTypes:   []string{"import_statement", "import_from_statement"},
		TypeUsageTypes: []string{"identifier"},
		NameField:     "name",
	}
}

func rustConfig() *LanguageConfig {
	return &LanguageConfig{
		Language:       LangRust,
		TSLanguage:     rust.GetLanguage(),
		FunctionTypes:  []string{"function_item"},
		StructTypes:    []string{"struct_item"},
		EnumTypes:      []string{"enum_item"},
		ImplTypes:      []string{"impl_item"},
		TraitTypes:     []string{"trait_item"},
		ConstTypes:     []string{"const_item"},
		StaticTypes:    []string{"static_item"},
		TypeDefTypes:   []string{"type_item"},
		ModuleTypes:    []string{"mod_item"},
		MacroTypes:     []string{"macro_definition", "macro_invocation"},
		CallTypes:      []string{"call_expression", "macro_invocation"},
		ImportTypes:    []string{"use_declaration"},
		TypeUsageTypes: []string{"type_identifier"},
		NameField:      "name",
	}
}

// normalizedExt lower-cases and ensures a leading dot.
func normalizedExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
