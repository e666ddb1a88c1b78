package parser

// keywordDenyList excludes language keywords and control-flow forms that
// tree-sitter occasionally surfaces as call-like nodes (e.g. Rust's
// `if let`, or `self`/`this` in a method call) from reference extraction:
// these are never useful cross-reference edges and only add noise to the
// reference graph.
var keywordDenyList = map[string]bool{
	"if": true, "for": true, "while": true, "match": true, "switch": true,
	"return": true, "self": true, "super": true, "this": true, "new": true,
}

// primitiveDenyList excludes primitive and builtin-type names that
// tree-sitter's grammars surface through the same node types as genuine
// user-defined type references (a `bool` field type looks identical to a
// `Widget` field type to the TypeUsageTypes matcher). These never resolve
// to a declared symbol and would otherwise show up as dangling references
// in every file that uses them.
var primitiveDenyList = map[string]bool{
	// Go
	"bool": true, "string": true, "int": true, "int8": true, "int16": true,
	"int32": true, "int64": true, "uint": true, "uint8": true, "uint16": true,
	"uint32": true, "uint64": true, "float32": true, "float64": true,
	"byte": true, "rune": true, "error": true, "any": true, "nil": true,
	// Rust
	"String": true, "str": true, "Option": true, "Some": true, "None": true,
	"Result": true, "Ok": true, "Err": true, "Vec": true, "Box": true,
	"usize": true, "isize": true, "u8": true, "u16": true, "u32": true,
	"u64": true, "i8": true, "i16": true, "i32": true, "i64": true,
	"f32": true, "f64": true, "true": true, "false": true,
	// TypeScript/JavaScript
	"number": true, "boolean": true, "undefined": true, "null": true,
	"console": true, "object": true, "symbol": true, "void": true,
	"unknown": true, "never": true,
	// Python
	"True": true, "False": true, "dict": true, "list": true,
	"tuple": true, "set": true,
}

// isDeniedReferenceName reports whether name is a control-flow keyword or a
// primitive/builtin type rather than a real cross-reference target.
func isDeniedReferenceName(name string) bool {
	return keywordDenyList[name] || primitiveDenyList[name]
}

// ExtractReferences walks tree and returns call and type-usage edges
// (imports are left to ExtractImports),
// each attributed to the innermost enclosing named symbol (or "" for
// file-scope references). Dedup is by (sourceSymbol, targetName, line,
// kind) within one file, since tree-sitter's grammars can surface the same
// identifier through more than one matched node type (e.g. a call target
// that is also a type_identifier in a generic call).
func ExtractReferences(tree *Tree, cfg *LanguageConfig, symbols []Symbol) []Reference {
	seen := make(map[string]bool)
	var out []Reference

	enclosing := enclosingSymbolIndex(symbols)

	tree.Root.Walk(func(n *Node) bool {
		switch {
		case containsType(cfg.CallTypes, n.Type):
			if target, line, ok := callTarget(n, tree.Source); ok {
				addReference(&out, seen, enclosing(int(n.StartPoint.Row)+1), target, line, RefCall)
			}
		case containsType(cfg.ImportTypes, n.Type):
			// import statements are surfaced separately by ExtractImports;
			// no reference edge is emitted here to avoid double-counting.
		case containsType(cfg.TypeUsageTypes, n.Type):
			if !isDeniedReferenceName(n.GetContent(tree.Source)) {
				name := n.GetContent(tree.Source)
				if name != "" {
					line := int(n.StartPoint.Row) + 1
					addReference(&out, seen, enclosing(line), name, line, RefTypeUsage)
				}
			}
		}
		return true
	})

	return out
}

func addReference(out *[]Reference, seen map[string]bool, source, target string, line int, kind ReferenceKind) {
	if target == "" || isDeniedReferenceName(target) {
		return
	}
	key := source + "\x00" + target + "\x00" + string(kind) + "\x00" + itoa(line)
	if seen[key] {
		return
	}
	seen[key] = true
	*out = append(*out, Reference{SourceSymbol: source, TargetName: target, Line: line, Kind: kind})
}

// callTarget extracts the callee name from a call-like node: the function
// field if present, else the leftmost identifier/field_identifier child.
func callTarget(n *Node, source []byte) (string, int, bool) {
	line := int(n.StartPoint.Row) + 1
	if fn := n.ChildByField("function"); fn != nil {
		return leafName(fn, source), line, true
	}
	if macro := n.ChildByField("macro"); macro != nil {
		return macro.GetContent(source), line, true
	}
	for _, c := range n.Children {
		if c.Type == "identifier" || c.Type == "field_identifier" {
			return c.GetContent(source), line, true
		}
	}
	return "", line, false
}

// leafName descends through member-access chains ("a.b.c(...)" or
// "a::b(...)") to the rightmost identifier, which is what call graphs key
// reference edges on.
func leafName(n *Node, source []byte) string {
	if field := n.ChildByField("property"); field != nil {
		return field.GetContent(source)
	}
	if field := n.ChildByField("field"); field != nil {
		return field.GetContent(source)
	}
	if field := n.ChildByField("name"); field != nil {
		return field.GetContent(source)
	}
	return n.GetContent(source)
}

// enclosingSymbolIndex returns a function mapping a 1-indexed line number
// to the name of the innermost symbol whose span contains it, or "" if the
// line is at file scope. Symbols are sorted by ascending span width so the
// innermost (smallest) enclosing symbol wins on tie.
func enclosingSymbolIndex(symbols []Symbol) func(line int) string {
	sorted := make([]Symbol, len(symbols))
	copy(sorted, symbols)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && (sorted[j].LineEnd-sorted[j].LineStart) < (sorted[j-1].LineEnd-sorted[j-1].LineStart); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return func(line int) string {
		best := ""
		bestWidth := -1
		for _, s := range sorted {
			if line < s.LineStart || line > s.LineEnd {
				continue
			}
			width := s.LineEnd - s.LineStart
			if bestWidth == -1 || width < bestWidth {
				best = s.Name
				bestWidth = width
			}
		}
		return best
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
