package parser

import (
	"sort"
)

// bodyPlaceholder is the default, C-family body placeholder: a brace pair
// holding a comment, so the replaced text still reads as a valid-looking
// block. Python has no braces, so its body is cut down to a bare ellipsis
// instead (see bodyPlaceholderFor).
const bodyPlaceholder = "{ /* ... */ }"

// bodyPlaceholderFor returns the placeholder text for a declaration body in
// lang. Python's block is indentation-delimited, not brace-delimited, so
// wrapping it in braces would read as broken Python; every other supported
// grammar is brace-delimited and gets bodyPlaceholder.
func bodyPlaceholderFor(lang Language) string {
	if lang == LangPython {
		return "..."
	}
	return bodyPlaceholder
}

// Skeletonize renders a file with every function/method body replaced by a
// language-appropriate placeholder while leaving signatures, struct/
// interface fields, consts, and imports untouched. It is idempotent:
// running it again on its own output is a no-op, since a placeholder body
// contains no nested declarations for the walk to descend into.
func Skeletonize(tree *Tree, symbols []Symbol) string {
	placeholder := bodyPlaceholderFor(tree.Language)

	type cut struct {
		start, end uint32
	}
	var cuts []cut

	tree.Root.Walk(func(n *Node) bool {
		if !isBodyBearing(n) {
			return true
		}
		body := n.ChildByField("body")
		if body == nil {
			return true
		}
		cuts = append(cuts, cut{start: body.StartByte, end: body.EndByte})
		return false // don't descend into the body we just cut
	})

	sort.Slice(cuts, func(i, j int) bool { return cuts[i].start < cuts[j].start })

	src := tree.Source
	var out []byte
	pos := uint32(0)
	for _, c := range cuts {
		if c.start < pos {
			continue // overlapping cut from a nested match, skip
		}
		out = append(out, src[pos:c.start]...)
		out = append(out, []byte(placeholder)...)
		pos = c.end
	}
	out = append(out, src[pos:]...)

	return string(out)
}

func isBodyBearing(n *Node) bool {
	switch n.Type {
	case "function_declaration", "method_declaration", // Go
		"function_definition", // Python
		"function_item",       // Rust
		"method_definition", "function", // JS/TS
		"arrow_function":
		return true
	default:
		return false
	}
}
