// Package library holds the per-level pools of harvested code fragments that
// tree generation reuses, and their on-disk pool files.
package library

import (
	"sort"
	"sync"
)

// Library maps an abstraction level to its ordered pool of canonical postfix
// expressions. Reads are safe from any goroutine; Publish swaps a level's pool
// wholesale, so a slice returned by Fragments is never modified afterwards.
type Library struct {
	mu    sync.RWMutex
	pools map[int][]string
}

// New returns an empty library.
func New() *Library {
	return &Library{pools: make(map[int][]string)}
}

// Publish replaces the pool at level with a copy of exprs. An empty exprs
// removes the level.
func (l *Library) Publish(level int, exprs []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(exprs) == 0 {
		delete(l.pools, level)
		return
	}
	pool := make([]string, len(exprs))
	copy(pool, exprs)
	l.pools[level] = pool
}

// Fragments returns the pool at level, or nil. The result must not be modified.
func (l *Library) Fragments(level int) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pools[level]
}

// Len is the number of fragments pooled at level.
func (l *Library) Len(level int) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.pools[level])
}

// Levels returns the populated levels in ascending order.
func (l *Library) Levels() []int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	levels := make([]int, 0, len(l.pools))
	for lvl := range l.pools {
		levels = append(levels, lvl)
	}
	sort.Ints(levels)
	return levels
}
