// Package treeprint renders postfix code fragments as text trees for debugging.
package treeprint

import (
	"fmt"
	"strings"

	"elcs/internal/fragment"
)

// Node is a labeled display node: an operator token or a terminal "D<i>".
type Node struct {
	Label    string
	Children []*Node
}

// Build parses expr into a display tree. Trailing commas on tokens are
// ignored, so expressions pasted from exports render as-is.
func Build(expr string) (*Node, error) {
	tokens := strings.Fields(expr)
	for i, tok := range tokens {
		tokens[i] = strings.TrimRight(tok, ",")
	}
	tree, err := fragment.ParsePostfix(strings.Join(tokens, " "))
	if err != nil {
		return nil, fmt.Errorf("build display tree: %w", err)
	}
	return FromTree(tree), nil
}

// FromTree converts a fragment tree into a display tree.
func FromTree(n fragment.Node) *Node {
	switch t := n.(type) {
	case *fragment.Terminal:
		return &Node{Label: fmt.Sprintf("D%d", t.Var)}
	case *fragment.Unary:
		return &Node{Label: t.Op.Token(), Children: []*Node{FromTree(t.Child)}}
	case *fragment.Binary:
		return &Node{Label: t.Op.Token(), Children: []*Node{FromTree(t.Left), FromTree(t.Right)}}
	}
	return &Node{Label: "?"}
}

// ASCII renders expr as a connector diagram, root first:
//
//	&
//	├── D0
//	└── ~
//	    └── D1
func ASCII(expr string) (string, error) {
	root, err := Build(expr)
	if err != nil {
		return "", err
	}
	return root.render(plainLabel), nil
}

// Parenthesized renders expr in prefix form, e.g. "(& D0 (~ D1))".
func Parenthesized(expr string) (string, error) {
	root, err := Build(expr)
	if err != nil {
		return "", err
	}
	return root.Parenthesized(), nil
}

// String is the ASCII diagram of n.
func (n *Node) String() string {
	return n.render(plainLabel)
}

// Parenthesized renders n in prefix form.
func (n *Node) Parenthesized() string {
	if len(n.Children) == 0 {
		return n.Label
	}
	parts := make([]string, 0, len(n.Children)+1)
	parts = append(parts, n.Label)
	for _, ch := range n.Children {
		parts = append(parts, ch.Parenthesized())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

type labelFunc func(n *Node) string

func plainLabel(n *Node) string { return n.Label }

func (n *Node) render(label labelFunc) string {
	lines := []string{label(n)}
	for i, ch := range n.Children {
		lines = ch.appendLines(lines, "", i == len(n.Children)-1, label)
	}
	return strings.Join(lines, "\n")
}

func (n *Node) appendLines(lines []string, prefix string, last bool, label labelFunc) []string {
	connector, next := "├── ", "│   "
	if last {
		connector, next = "└── ", "    "
	}
	lines = append(lines, prefix+connector+label(n))
	for i, ch := range n.Children {
		lines = ch.appendLines(lines, prefix+next, i == len(n.Children)-1, label)
	}
	return lines
}
