// Package condition wraps a code fragment as the matching constraint of one
// attribute slot, or the don't-care placeholder.
package condition

import (
	"strings"

	"elcs/internal/fragment"
)

// DontCareExpression is the expression string of a don't-care condition.
const DontCareExpression = "dc"

// Condition is a value type. The zero value is DontCare.
//
// Two conditions are equal when their canonical postfix strings are equal,
// even if the trees differ structurally.
type Condition struct {
	tree fragment.Node
	expr string
	vars []int
}

// DontCare returns the placeholder that imposes no constraint.
func DontCare() Condition {
	return Condition{}
}

// FromTree builds a specific condition over tree. The condition keeps tree;
// callers must not mutate it afterwards.
func FromTree(tree fragment.Node) Condition {
	return Condition{
		tree: tree,
		expr: fragment.ToPostfix(tree),
		vars: fragment.Variables(tree),
	}
}

// Parse is the inverse of Expression: "dc" yields DontCare, anything else is
// parsed as a postfix fragment.
func Parse(expr string) (Condition, error) {
	expr = strings.TrimSpace(expr)
	if strings.EqualFold(expr, DontCareExpression) {
		return DontCare(), nil
	}
	tree, err := fragment.ParsePostfix(expr)
	if err != nil {
		return Condition{}, err
	}
	return FromTree(tree), nil
}

// IsDontCare reports whether the condition is the placeholder.
func (c Condition) IsDontCare() bool { return c.tree == nil }

// Expression returns the canonical postfix string, or "dc".
func (c Condition) Expression() string {
	if c.tree == nil {
		return DontCareExpression
	}
	return c.expr
}

func (c Condition) String() string { return c.Expression() }

// Tree returns the fragment, nil for DontCare.
func (c Condition) Tree() fragment.Node { return c.tree }

// Variables returns the sorted distinct attribute indices the fragment reads.
func (c Condition) Variables() []int {
	out := make([]int, len(c.vars))
	copy(out, c.vars)
	return out
}

// Equal compares canonical expressions.
func (c Condition) Equal(other Condition) bool {
	return c.Expression() == other.Expression()
}

// Matches reports whether the fragment evaluates to 1 on inst. DontCare matches everything.
func (c Condition) Matches(inst fragment.Instance) bool {
	if c.tree == nil {
		return true
	}
	return fragment.Evaluate(c.tree, inst) == 1
}

// Clone returns a condition that shares no storage with c.
func (c Condition) Clone() Condition {
	if c.tree == nil {
		return DontCare()
	}
	vars := make([]int, len(c.vars))
	copy(vars, c.vars)
	return Condition{
		tree: fragment.Clone(c.tree),
		expr: c.expr,
		vars: vars,
	}
}
