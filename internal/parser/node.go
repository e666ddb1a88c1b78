package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Point is a 0-indexed (row, column) position, mirroring tree-sitter's own
// coordinate system before the 1-indexing conversion applied at symbol
// extraction time.
type Point struct {
	Row    uint32
	Column uint32
}

// Node is a simplified, detached mirror of a tree-sitter node: detaching
// from the tree-sitter tree up front means every downstream extractor
// (symbols, chunks, references, imports, fingerprints, skeleton) can walk
// the same structure without re-touching the cgo-backed tree-sitter tree
// more than once per file.
type Node struct {
	Type        string
	FieldName   string // name of the field this node is bound to in its parent, if any
	StartByte   uint32
	EndByte     uint32
	StartPoint  Point
	EndPoint    Point
	Children    []*Node
	HasError    bool
}

// Tree is a parsed file: the detached node tree plus the source bytes and
// language it was parsed with.
type Tree struct {
	Root     *Node
	Source   []byte
	Language Language
}

// GetContent returns the source slice this node spans.
func (n *Node) GetContent(source []byte) string {
	if n == nil || int(n.EndByte) > len(source) {
		return ""
	}
	return string(source[n.StartByte:n.EndByte])
}

// Walk calls visit on every node in the subtree rooted at n, pre-order.
// Returning false from visit skips that node's children.
func (n *Node) Walk(visit func(*Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(visit)
	}
}

// ChildByField returns the first child bound to the given tree-sitter field
// name, or nil.
func (n *Node) ChildByField(field string) *Node {
	for _, c := range n.Children {
		if c.FieldName == field {
			return c
		}
	}
	return nil
}

// ChildByType returns the first direct child of the given node type, or
// nil.
func (n *Node) ChildByType(nodeType string) *Node {
	for _, c := range n.Children {
		if c.Type == nodeType {
			return c
		}
	}
	return nil
}

// convertNode detaches a tree-sitter node (and its subtree) into our own
// Node representation. fieldName is the field the node is bound to in its
// parent, or "" for the root / unnamed children.
func convertNode(tsNode *sitter.Node, fieldName string, parent *sitter.Node) *Node {
	if tsNode == nil {
		return nil
	}

	node := &Node{
		Type:      tsNode.Type(),
		FieldName: fieldName,
		StartByte: tsNode.StartByte(),
		EndByte:   tsNode.EndByte(),
		StartPoint: Point{
			Row:    tsNode.StartPoint().Row,
			Column: tsNode.StartPoint().Column,
		},
		EndPoint: Point{
			Row:    tsNode.EndPoint().Row,
			Column: tsNode.EndPoint().Column,
		},
		HasError: tsNode.HasError(),
	}

	count := int(tsNode.ChildCount())
	node.Children = make([]*Node, 0, count)
	for i := 0; i < count; i++ {
		child := tsNode.Child(i)
		if child == nil {
			continue
		}
		field := tsNode.FieldNameForChild(i)
		node.Children = append(node.Children, convertNode(child, field, tsNode))
	}

	return node
}
