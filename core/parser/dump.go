package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
)

const maxExcerpt = 80

// Point is a zero based row and column in a source file.
type Point struct {
	Row    uint32 `json:"row"`
	Column uint32 `json:"column"`
}

// SyntaxNode is one node of the generic syntax tree dump.
type SyntaxNode struct {
	ID       int    `json:"id"`
	ParentID int    `json:"parent_id"`
	Type     string `json:"type"`
	Named    bool   `json:"named"`
	Start    Point  `json:"start"`
	End      Point  `json:"end"`
	Text     string `json:"text,omitempty"`
}

// Dump flattens the tree into a pre-order node list.
// The root has ParentID -1, leaves carry a text excerpt.
func (t *SyntaxTree) Dump() []SyntaxNode {
	var nodes []SyntaxNode
	t.dump(t.Root(), -1, &nodes)
	return nodes
}

func (t *SyntaxTree) dump(node *sitter.Node, parentID int, nodes *[]SyntaxNode) {
	if node == nil {
		return
	}

	id := len(*nodes)
	entry := SyntaxNode{
		ID:       id,
		ParentID: parentID,
		Type:     node.Type(),
		Named:    node.IsNamed(),
		Start:    Point{Row: node.StartPoint().Row, Column: node.StartPoint().Column},
		End:      Point{Row: node.EndPoint().Row, Column: node.EndPoint().Column},
	}
	if node.ChildCount() == 0 {
		entry.Text = excerpt(node.Content(t.Source))
	}
	*nodes = append(*nodes, entry)

	for i := 0; i < int(node.ChildCount()); i++ {
		t.dump(node.Child(i), id, nodes)
	}
}

func excerpt(s string) string {
	r := []rune(s)
	if len(r) <= maxExcerpt {
		return s
	}
	return string(r[:maxExcerpt]) + "..."
}
