package parser

import "strings"

// minFingerprintFields is the retention threshold: shapes with fewer
// fields produce too many false positives under Jaccard similarity to be
// worth keeping.
const minFingerprintFields = 3

// ExtractFingerprints returns a structural fingerprint for every
// struct/class/interface/type declaration in tree with at least
// minFingerprintFields fields, for cross-language type matching.
func ExtractFingerprints(tree *Tree, cfg *LanguageConfig) []Fingerprint {
	var out []Fingerprint
	tree.Root.Walk(func(n *Node) bool {
		kind, ok := kindForNodeType(cfg, n.Type)
		if !ok || (kind != KindStruct && kind != KindClass && kind != KindInterface && kind != KindType) {
			return true
		}
		name := declarationName(n, cfg, tree.Source)
		if name == "" {
			return true
		}
		fields := extractFields(n, tree.Language, tree.Source)
		if len(fields) < minFingerprintFields {
			return true
		}
		out = append(out, Fingerprint{Name: name, Language: tree.Language, Fields: fields})
		return true
	})
	return out
}

func extractFields(n *Node, lang Language, source []byte) []FingerprintField {
	var fields []FingerprintField
	fieldNodeTypes := map[Language]string{
		LangGo:         "field_declaration",
		LangRust:       "field_declaration",
		LangTypeScript: "property_signature",
		LangJavaScript: "property_signature",
		LangPython:     "",
	}
	target := fieldNodeTypes[lang]

	if lang == LangPython {
		body := n.ChildByField("body")
		if body == nil {
			return fields
		}
		for _, stmt := range body.Children {
			assign := stmt
			if stmt.Type == "expression_statement" && len(stmt.Children) > 0 {
				assign = stmt.Children[0]
			}
			if assign.Type != "assignment" {
				continue
			}
			left := assign.ChildByField("left")
			if left == nil || left.Type != "identifier" {
				continue
			}
			name := left.GetContent(source)
			fields = append(fields, FingerprintField{Name: name, Normalized: normalizeFieldName(name)})
		}
		return fields
	}

	n.Walk(func(c *Node) bool {
		if c.Type == target {
			if nameField := c.ChildByField("name"); nameField != nil {
				name := nameField.GetContent(source)
				var typeStr string
				if typeField := c.ChildByField("type"); typeField != nil {
					typeStr = typeField.GetContent(source)
				}
				fields = append(fields, FingerprintField{
					Name:       name,
					Type:       typeStr,
					Normalized: normalizeFieldName(name),
				})
			}
		}
		return true
	})
	return fields
}

// normalizeFieldName lower-cases a field name and strips separators, so
// "user_id", "userId", and "user-id" all compare equal under Jaccard
// similarity.
func normalizeFieldName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "")
	name = strings.ReplaceAll(name, "-", "")
	return name
}
