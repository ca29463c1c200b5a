package condition

import (
	"errors"
	"testing"

	"elcs/internal/fragment"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, expr string) Condition {
	t.Helper()
	c, err := Parse(expr)
	require.NoError(t, err)
	return c
}

func TestDontCare(t *testing.T) {
	dc := DontCare()
	assert.True(t, dc.IsDontCare())
	assert.Equal(t, "dc", dc.Expression())
	assert.Nil(t, dc.Tree())
	assert.Empty(t, dc.Variables())
	assert.True(t, dc.Matches(fragment.Instance{0, 0, 0}))

	var zero Condition
	assert.True(t, zero.IsDontCare())
	assert.True(t, zero.Equal(dc))
}

func TestFromTree(t *testing.T) {
	tree, err := fragment.ParsePostfix("D4 D1 & D4 nor")
	require.NoError(t, err)

	c := FromTree(tree)
	assert.False(t, c.IsDontCare())
	assert.Equal(t, "D4 D1 & D4 nor", c.Expression())
	if diff := cmp.Diff([]int{1, 4}, c.Variables()); diff != "" {
		t.Errorf("Variables() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse(t *testing.T) {
	assert.True(t, mustParse(t, "dc").IsDontCare())
	assert.True(t, mustParse(t, " DC ").IsDontCare())
	assert.Equal(t, "D0 ~", mustParse(t, "D0   ~").Expression())

	_, err := Parse("D1 &")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fragment.ErrParse))
}

func TestMatches(t *testing.T) {
	c := mustParse(t, "D0 D2 |")
	assert.True(t, c.Matches(fragment.Instance{1, 0, 0}))
	assert.True(t, c.Matches(fragment.Instance{0, 0, 1}))
	assert.False(t, c.Matches(fragment.Instance{0, 1, 0}))

	// A lone terminal must be exactly 1 to match.
	term := mustParse(t, "D1")
	assert.True(t, term.Matches(fragment.Instance{0, 1}))
	assert.False(t, term.Matches(fragment.Instance{0, 0.99}))
}

func TestEqual_IsTextual(t *testing.T) {
	a := FromTree(&fragment.Binary{Op: fragment.OpAnd, Left: &fragment.Terminal{Var: 0}, Right: &fragment.Terminal{Var: 1}})
	b := mustParse(t, "D0 D1 &")
	c := mustParse(t, "D1 D0 &")

	assert.True(t, a.Equal(b))
	assert.False(t, b.Equal(c), "commuted operands are a different condition")
	assert.False(t, b.Equal(DontCare()))
}

func TestClone(t *testing.T) {
	orig := mustParse(t, "D0 D1 &")
	cl := orig.Clone()
	require.True(t, cl.Equal(orig))

	cl.Tree().(*fragment.Binary).Left.(*fragment.Terminal).Var = 5
	assert.Equal(t, "D0 D1 &", fragment.ToPostfix(orig.Tree()))

	vars := orig.Variables()
	vars[0] = 99
	assert.Equal(t, []int{0, 1}, orig.Variables())

	assert.True(t, DontCare().Clone().IsDontCare())
}
