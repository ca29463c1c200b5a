// Package fragment implements code fragments: small Boolean expression trees
// over binary-encoded attributes, with random generation, evaluation and a
// canonical postfix form.
package fragment

import (
	"fmt"
	"sort"
)

// Instance is one attribute vector. Terminals index into it directly.
type Instance []float64

// Op identifies a Boolean operator.
type Op int

const (
	OpAnd Op = iota
	OpOr
	OpNot
	OpNand
	OpNor
)

// operatorTable is the fixed table generation draws from, in declaration order.
var operatorTable = []Op{OpAnd, OpOr, OpNot, OpNand, OpNor}

var opTokens = map[Op]string{
	OpAnd:  "&",
	OpOr:   "|",
	OpNot:  "~",
	OpNand: "nand",
	OpNor:  "nor",
}

var tokenOps = map[string]Op{
	"&":    OpAnd,
	"|":    OpOr,
	"~":    OpNot,
	"nand": OpNand,
	"nor":  OpNor,
}

// Operators returns the operator table.
func Operators() []Op {
	out := make([]Op, len(operatorTable))
	copy(out, operatorTable)
	return out
}

// Arity returns the number of operands the operator takes.
func (o Op) Arity() int {
	if o == OpNot {
		return 1
	}
	return 2
}

// Token returns the postfix token for the operator.
func (o Op) Token() string {
	if t, ok := opTokens[o]; ok {
		return t
	}
	return fmt.Sprintf("op(%d)", int(o))
}

func (o Op) String() string { return o.Token() }

// OpFromToken looks up an operator by its postfix token.
func OpFromToken(tok string) (Op, bool) {
	op, ok := tokenOps[tok]
	return op, ok
}

// Node is a code fragment tree node. The concrete types are Terminal, Unary
// and Binary; the child count is fixed by the type.
type Node interface {
	eval(inst Instance) float64
	appendPostfix(buf []byte) []byte
	depth() int
}

// Terminal reads one attribute of the instance.
type Terminal struct {
	Var int
}

// Unary applies a one-operand operator.
type Unary struct {
	Op    Op
	Child Node
}

// Binary applies a two-operand operator.
type Binary struct {
	Op          Op
	Left, Right Node
}

// NewOperator builds an operator node from exactly op.Arity() children.
func NewOperator(op Op, children ...Node) (Node, error) {
	if len(children) != op.Arity() {
		return nil, fmt.Errorf("operator %s needs %d operands, got %d", op, op.Arity(), len(children))
	}
	if op.Arity() == 1 {
		return &Unary{Op: op, Child: children[0]}, nil
	}
	return &Binary{Op: op, Left: children[0], Right: children[1]}, nil
}

// Evaluate folds the tree over the instance. Operators yield 0 or 1; a lone
// terminal yields the raw attribute value.
func Evaluate(n Node, inst Instance) float64 {
	return n.eval(inst)
}

func (t *Terminal) eval(inst Instance) float64 { return inst[t.Var] }

func (u *Unary) eval(inst Instance) float64 {
	v := u.Child.eval(inst)
	// OpNot is the only unary operator.
	return boolValue(v == 0)
}

func (b *Binary) eval(inst Instance) float64 {
	l := b.Left.eval(inst)
	r := b.Right.eval(inst)
	switch b.Op {
	case OpAnd:
		return boolValue(l == 1 && r == 1)
	case OpOr:
		return boolValue(l == 1 || r == 1)
	case OpNand:
		return boolValue(!(l == 1 && r == 1))
	case OpNor:
		return boolValue(l == 0 && r == 0)
	}
	return 0
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (t *Terminal) depth() int { return 0 }
func (u *Unary) depth() int    { return 1 + u.Child.depth() }
func (b *Binary) depth() int {
	l, r := b.Left.depth(), b.Right.depth()
	if l > r {
		return 1 + l
	}
	return 1 + r
}

// Depth returns the number of edges on the longest root-to-leaf path.
func Depth(n Node) int { return n.depth() }

// Size returns the node count.
func Size(n Node) int {
	switch v := n.(type) {
	case *Unary:
		return 1 + Size(v.Child)
	case *Binary:
		return 1 + Size(v.Left) + Size(v.Right)
	}
	return 1
}

// Clone returns a deep copy of the tree.
func Clone(n Node) Node {
	switch v := n.(type) {
	case *Terminal:
		return &Terminal{Var: v.Var}
	case *Unary:
		return &Unary{Op: v.Op, Child: Clone(v.Child)}
	case *Binary:
		return &Binary{Op: v.Op, Left: Clone(v.Left), Right: Clone(v.Right)}
	}
	return nil
}

// Variables returns the sorted distinct attribute indices the tree reads.
func Variables(n Node) []int {
	seen := make(map[int]struct{})
	var walk func(Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case *Terminal:
			seen[v.Var] = struct{}{}
		case *Unary:
			walk(v.Child)
		case *Binary:
			walk(v.Left)
			walk(v.Right)
		}
	}
	walk(n)

	vars := make([]int, 0, len(seen))
	for v := range seen {
		vars = append(vars, v)
	}
	sort.Ints(vars)
	return vars
}
