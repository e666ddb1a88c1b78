package parser

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Parser wraps a tree-sitter parser and produces a detached Tree for one of
// the registered languages.
type Parser struct {
	registry *Registry
}

// NewParser returns a Parser backed by the default language registry.
func NewParser() *Parser {
	return &Parser{registry: DefaultRegistry()}
}

// NewParserWithRegistry allows tests to inject a custom registry.
func NewParserWithRegistry(r *Registry) *Parser {
	return &Parser{registry: r}
}

// Parse runs a single tree-sitter parse of source under lang and returns the
// detached tree: exactly one ParseCtx call per file, reused by every
// extractor.
func (p *Parser) Parse(ctx context.Context, source []byte, lang Language) (*Tree, error) {
	cfg, ok := p.registry.Get(lang)
	if !ok {
		return nil, fmt.Errorf("parser: unsupported language %q", lang)
	}
	return parseWithLanguage(ctx, source, cfg.TSLanguage, lang)
}

// parseHTML runs a tree-sitter parse under the HTML grammar; used only by
// the Vue adapter to split a .vue single-file-component into its template
// and script blocks.
func parseHTML(ctx context.Context, source []byte) (*Tree, error) {
	return parseWithLanguage(ctx, source, HTMLLanguage(), LangVue)
}

func parseWithLanguage(ctx context.Context, source []byte, tsLang *sitter.Language, lang Language) (*Tree, error) {
	sp := sitter.NewParser()
	sp.SetLanguage(tsLang)

	tsTree, err := sp.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parser: parse %s: %w", lang, err)
	}
	defer tsTree.Close()

	root := convertNode(tsTree.RootNode(), "", nil)
	return &Tree{Root: root, Source: source, Language: lang}, nil
}
