package parser

import (
	"context"
	"fmt"
)

// ParseFile runs the full single-pass extraction pipeline over source and
// returns every derived artifact in one ParsedDoc: symbols, chunks,
// references, imports, fingerprints, and the skeleton all come from the
// same parsed tree, so their line numbers can never disagree.
func (p *Parser) ParseFile(ctx context.Context, source []byte, path string, lang Language) (*ParsedDoc, error) {
	if lang == LangVue {
		return ParseVue(ctx, p, source, path)
	}

	cfg, ok := p.registry.Get(lang)
	if !ok {
		return nil, fmt.Errorf("parser: unsupported language %q for %s", lang, path)
	}

	tree, err := p.Parse(ctx, source, lang)
	if err != nil {
		return nil, fmt.Errorf("parser: %s: %w", path, err)
	}

	symbols := ExtractSymbols(tree, cfg)
	chunker := NewChunker(path)

	return &ParsedDoc{
		Path:         path,
		Language:     lang,
		Symbols:      symbols,
		Chunks:       chunker.Chunk(tree, symbols),
		References:   ExtractReferences(tree, cfg, symbols),
		Imports:      ExtractImports(tree, cfg),
		Fingerprints: ExtractFingerprints(tree, cfg),
		Skeleton:     Skeletonize(tree, symbols),
	}, nil
}
