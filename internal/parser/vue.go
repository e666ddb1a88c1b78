package parser

import (
	"context"
	"regexp"
	"strings"
)

// vueComponentUsage matches PascalCase and kebab-case custom element tags
// in a Vue template, which surface as component_usage references. Native
// HTML elements are always lower-case with no hyphen, so either
// PascalCase or a hyphenated tag name is treated as a component reference.
var vueComponentUsage = regexp.MustCompile(`<([A-Z][A-Za-z0-9]*|[a-z][a-z0-9]*-[a-z0-9-]+)(?:[\s/>])`)

// ParseVue splits a .vue single-file component into its template and
// <script> blocks via a tree-sitter HTML parse, reparses the script body as
// TypeScript, and line-offsets every result so positions are relative to
// the original .vue file rather than the extracted fragment.
//
// smacker/go-tree-sitter ships no Vue grammar, so the SFC's outer shape is
// parsed as HTML (which yields <script> as a script_element with a raw-text
// body and <template> as an ordinary element) and only the <script> payload gets a second, TypeScript pass —
// this is an adaptation, not a literal grammar binding, and is recorded as
// such rather than silently passed off as native Vue support.
func ParseVue(ctx context.Context, p *Parser, source []byte, path string) (*ParsedDoc, error) {
	htmlTree, err := parseHTML(ctx, source)
	if err != nil {
		return nil, err
	}

	scriptNode, templateNode := findVueBlocks(htmlTree.Root, source)
	doc := &ParsedDoc{Path: path, Language: LangVue}

	if scriptNode != nil {
		offset := int(scriptNode.StartPoint.Row)
		scriptSrc := scriptNode.GetContent(source)

		scriptTree, err := p.Parse(ctx, []byte(scriptSrc), LangTypeScript)
		if err == nil {
			cfg, _ := p.registry.Get(LangTypeScript)
			symbols := ExtractSymbols(scriptTree, cfg)
			offsetSymbols(symbols, offset)
			doc.Symbols = symbols

			refs := ExtractReferences(scriptTree, cfg, symbols)
			offsetReferences(refs, offset)
			doc.References = refs

			imports := ExtractImports(scriptTree, cfg)
			offsetImports(imports, offset)
			doc.Imports = imports

			doc.Fingerprints = ExtractFingerprints(scriptTree, cfg)

			chunker := NewChunker(path)
			chunks := chunker.Chunk(scriptTree, symbols)
			offsetChunks(chunks, offset, path)
			doc.Chunks = chunks

			doc.Skeleton = Skeletonize(scriptTree, symbols)
		}
	}

	if templateNode != nil {
		offset := int(templateNode.StartPoint.Row)
		templateSrc := templateNode.GetContent(source)
		for _, m := range vueComponentUsage.FindAllStringSubmatchIndex(templateSrc, -1) {
			name := templateSrc[m[2]:m[3]]
			line := offset + strings.Count(templateSrc[:m[0]], "\n") + 1
			doc.References = append(doc.References, Reference{TargetName: name, Line: line, Kind: RefComponentUsage})
		}
	}

	return doc, nil
}

// findVueBlocks locates the <script> and <template> blocks in the
// HTML-parsed tree, returning the script's raw-text content node and the
// outermost template element itself.
func findVueBlocks(root *Node, source []byte) (script, template *Node) {
	root.Walk(func(n *Node) bool {
		if n.Type != "element" && n.Type != "script_element" {
			return true
		}
		startTag := n.ChildByType("start_tag")
		if startTag == nil {
			return true
		}
		tagName := startTag.ChildByType("tag_name")
		if tagName == nil {
			return true
		}
		body := rawTextChild(n)
		switch tagName.GetContent(source) {
		case "script":
			if body != nil {
				script = body
			}
		case "template":
			if template == nil {
				template = n
			}
		}
		return true
	})
	return script, template
}

func rawTextChild(n *Node) *Node {
	for _, c := range n.Children {
		if c.Type == "raw_text" || c.Type == "text" {
			return c
		}
	}
	return nil
}

func offsetSymbols(symbols []Symbol, offset int) {
	for i := range symbols {
		symbols[i].LineStart += offset
		symbols[i].LineEnd += offset
	}
}

func offsetReferences(refs []Reference, offset int) {
	for i := range refs {
		refs[i].Line += offset
	}
}

func offsetImports(imports []Import, offset int) {
	for i := range imports {
		imports[i].Line += offset
	}
}

func offsetChunks(chunks []Chunk, offset int, path string) {
	for i := range chunks {
		chunks[i].LineStart += offset
		chunks[i].LineEnd += offset
		chunks[i].ID = chunkID(path, chunks[i].LineStart, chunks[i].LineEnd)
	}
}

func chunkID(path string, start, end int) string {
	return path + ":" + itoa(start) + ":" + itoa(end)
}
