package fragment

import (
	"math/rand"

	"elcs/internal/logging"
)

// DefaultMaxDepth is the depth bound used when none is configured.
const DefaultMaxDepth = 2

// Library supplies previously harvested postfix expressions per abstraction
// level. Implementations must be safe for concurrent reads.
type Library interface {
	Fragments(level int) []string
}

// Generate grows a random tree over variables.
//
// Two counters drive the recursion. depth bounds the tree: a position becomes
// a leaf at maxDepth, or otherwise with probability 0.5. level controls
// compounding: at level 1 every leaf is a raw variable; above it, a leaf at the
// requested top level is a raw variable half of the time, and every other leaf
// is a whole sub-fragment built at a uniformly chosen lower level. Sub-fragments
// are taken from lib when it holds entries for that level.
//
// variables must be non-empty. lib may be nil.
func Generate(rng *rand.Rand, variables []int, level, maxDepth int, lib Library) Node {
	if level < 1 {
		level = 1
	}
	if maxDepth < 0 {
		maxDepth = 0
	}
	g := &generator{
		rng:       rng,
		variables: variables,
		maxDepth:  maxDepth,
		lib:       lib,
		top:       level,
	}
	return g.build(0, level)
}

type generator struct {
	rng       *rand.Rand
	variables []int
	maxDepth  int
	lib       Library
	top       int
	allowed   map[int]struct{}
}

func (g *generator) build(depth, level int) Node {
	if depth >= g.maxDepth || g.rng.Float64() < 0.5 {
		return g.leaf(level)
	}

	op := operatorTable[g.rng.Intn(len(operatorTable))]
	if op.Arity() == 1 {
		return &Unary{Op: op, Child: g.build(depth+1, level)}
	}
	left := g.build(depth+1, level)
	right := g.build(depth+1, level)
	return &Binary{Op: op, Left: left, Right: right}
}

func (g *generator) leaf(level int) Node {
	if level <= 1 {
		return g.variable()
	}
	if level == g.top && g.rng.Float64() < 0.5 {
		return g.variable()
	}

	lower := 1 + g.rng.Intn(level-1)
	if n := g.reuse(lower); n != nil {
		return n
	}
	return g.build(0, lower)
}

func (g *generator) variable() Node {
	return &Terminal{Var: g.variables[g.rng.Intn(len(g.variables))]}
}

// reuse parses a random library entry at level. Entries that do not parse or
// read attributes outside g.variables are ignored.
func (g *generator) reuse(level int) Node {
	if g.lib == nil {
		return nil
	}
	pool := g.lib.Fragments(level)
	if len(pool) == 0 {
		return nil
	}

	expr := pool[g.rng.Intn(len(pool))]
	n, err := ParsePostfix(expr)
	if err != nil {
		logging.GenerationDebug("skipping library fragment %q at level %d: %v", expr, level, err)
		return nil
	}
	if !g.inRange(n) {
		logging.GenerationDebug("skipping library fragment %q at level %d: variable out of range", expr, level)
		return nil
	}
	return n
}

func (g *generator) inRange(n Node) bool {
	if g.allowed == nil {
		g.allowed = make(map[int]struct{}, len(g.variables))
		for _, v := range g.variables {
			g.allowed[v] = struct{}{}
		}
	}
	for _, v := range Variables(n) {
		if _, ok := g.allowed[v]; !ok {
			return false
		}
	}
	return true
}
