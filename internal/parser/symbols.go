package parser

import (
	"strings"
)

// ExtractSymbols walks tree and returns every named declaration,
// classified into a canonical SymbolKind via cfg's per-language
// node-type tables.
func ExtractSymbols(tree *Tree, cfg *LanguageConfig) []Symbol {
	var out []Symbol
	tree.Root.Walk(func(n *Node) bool {
		if kind, ok := kindForNodeType(cfg, n.Type); ok {
			if sym, ok := symbolFromNode(n, kind, cfg, tree.Source); ok {
				out = append(out, sym)
			}
		}
		return true
	})
	return out
}

func kindForNodeType(cfg *LanguageConfig, nodeType string) (SymbolKind, bool) {
	switch {
	case containsType(cfg.FunctionTypes, nodeType):
		return KindFunction, true
	case containsType(cfg.MethodTypes, nodeType):
		return KindMethod, true
	case containsType(cfg.ClassTypes, nodeType):
		return KindClass, true
	case containsType(cfg.InterfaceTypes, nodeType):
		return KindInterface, true
	case containsType(cfg.StructTypes, nodeType):
		return KindStruct, true
	case containsType(cfg.EnumTypes, nodeType):
		return KindEnum, true
	case containsType(cfg.ImplTypes, nodeType):
		return KindImpl, true
	case containsType(cfg.TraitTypes, nodeType):
		return KindTrait, true
	case containsType(cfg.TypeDefTypes, nodeType):
		return KindType, true
	case containsType(cfg.ConstTypes, nodeType):
		return KindConst, true
	case containsType(cfg.StaticTypes, nodeType):
		return KindStatic, true
	case containsType(cfg.VariableTypes, nodeType):
		return KindVariable, true
	case containsType(cfg.ModuleTypes, nodeType):
		return KindModule, true
	case containsType(cfg.MacroTypes, nodeType):
		return KindMacro, true
	default:
		return "", false
	}
}

func containsType(set []string, t string) bool {
	for _, s := range set {
		if s == t {
			return true
		}
	}
	return false
}

// symbolFromNode extracts the declaration's name, line span, and signature.
// Declarations with no resolvable name (e.g. an impl block's synthesized
// name, or a lexical_declaration with multiple declarators) fall back to a
// best-effort name rather than being dropped, since chunking and skeleton
// generation both need a LineStart/LineEnd for every declaration node.
func symbolFromNode(n *Node, kind SymbolKind, cfg *LanguageConfig, source []byte) (Symbol, bool) {
	name := declarationName(n, cfg, source)
	if name == "" {
		name = fallbackName(n, kind, source)
	}
	if name == "" {
		return Symbol{}, false
	}

	sig := extractSignature(n, source)

	return Symbol{
		Name:      name,
		Kind:      kind,
		LineStart: int(n.StartPoint.Row) + 1,
		LineEnd:   int(n.EndPoint.Row) + 1,
		Signature: sig,
	}, true
}

func declarationName(n *Node, cfg *LanguageConfig, source []byte) string {
	if cfg.NameField != "" {
		if field := n.ChildByField(cfg.NameField); field != nil {
			return field.GetContent(source)
		}
	}
	// type_declaration/lexical_declaration wrap their real declarator one
	// level down; descend into the first declarator/spec child found.
	for _, childType := range []string{"type_spec", "variable_declarator", "const_spec"} {
		if child := n.ChildByType(childType); child != nil {
			if field := child.ChildByField("name"); field != nil {
				return field.GetContent(source)
			}
		}
	}
	return ""
}

// fallbackName synthesizes a name for declarations tree-sitter doesn't bind
// a "name" field to, notably Rust impl_item ("impl Trait for Type" or
// "impl Type").
func fallbackName(n *Node, kind SymbolKind, source []byte) string {
	if kind != KindImpl {
		return ""
	}
	var typeNode *Node
	for _, c := range n.Children {
		if c.Type == "type_identifier" || c.Type == "generic_type" || c.Type == "scoped_type_identifier" {
			typeNode = c
		}
	}
	if typeNode == nil {
		return ""
	}
	target := typeNode.ChildByField("trait")
	if traitField := n.ChildByField("trait"); traitField != nil {
		if typeField := n.ChildByField("type"); typeField != nil {
			return traitField.GetContent(source) + " for " + typeField.GetContent(source)
		}
	}
	if target != nil {
		return target.GetContent(source)
	}
	return typeNode.GetContent(source)
}

// extractSignature returns the declaration header up to (but not including)
// its body block, trimmed to a single line — mirroring how the skeletonizer
// presents a declaration's shape without the implementation.
func extractSignature(n *Node, source []byte) string {
	body := n.ChildByField("body")
	var end uint32
	if body != nil {
		end = body.StartByte
	} else {
		end = n.EndByte
	}
	if end <= n.StartByte || int(end) > len(source) {
		end = n.EndByte
		if int(end) > len(source) {
			end = uint32(len(source))
		}
	}
	sig := string(source[n.StartByte:end])
	sig = strings.TrimSpace(sig)
	if i := strings.IndexByte(sig, '\n'); i >= 0 {
		sig = strings.TrimSpace(sig[:i])
	}
	return sig
}
