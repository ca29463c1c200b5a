// Package curation harvests reusable code fragments from an exported
// population and publishes them into the next abstraction level's pool.
package curation

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"elcs/internal/library"
	"elcs/internal/logging"
	"elcs/internal/population"

	"github.com/montanaflynn/stats"
)

var singleTerminal = regexp.MustCompile(`(?i)^D\d+$`)

// Thresholds are the column means a row must strictly exceed to be selected.
type Thresholds struct {
	Fitness    float64
	Accuracy   float64
	MatchCount float64
}

// Result summarizes a curation run.
type Result struct {
	Thresholds Thresholds
	Selected   int      // rows that passed every threshold
	Fragments  []string // distinct fragments harvested, in first-seen order
	Added      int      // fragments new to the target pool
	Level      int      // pool level written
	PoolSize   int      // target pool size afterwards
}

// columns holds the located column indices of an export.
type columns struct {
	condition, fitness, accuracy, matchCount int
}

func locate(t *population.Table) (columns, error) {
	c := columns{
		condition:  t.ConditionColumn(),
		fitness:    t.Column([]string{population.ColFitness}, "fitness"),
		accuracy:   t.Column([]string{population.ColAccuracy}, "accuracy"),
		matchCount: t.Column([]string{population.ColMatchCount}, "match", "count"),
	}
	switch {
	case c.fitness < 0:
		return c, fmt.Errorf("no fitness column in %v", t.Headers)
	case c.accuracy < 0:
		return c, fmt.Errorf("no accuracy column in %v", t.Headers)
	case c.matchCount < 0:
		return c, fmt.Errorf("no match count column in %v", t.Headers)
	}
	return c, nil
}

// columnMean averages the numeric cells of col, skipping non-numeric ones.
// A column with no numeric cell has a NaN mean, which no row exceeds.
func columnMean(t *population.Table, col int) float64 {
	var data stats.Float64Data
	for r := range t.Rows {
		if f := t.Float(r, col); !math.IsNaN(f) {
			data = append(data, f)
		}
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return math.NaN()
	}
	return mean
}

// Select returns the condition cells of rows whose fitness, accuracy and match
// count all exceed their column means, with the thresholds used.
func Select(t *population.Table) ([]string, Thresholds, error) {
	cols, err := locate(t)
	if err != nil {
		return nil, Thresholds{}, err
	}
	th := Thresholds{
		Fitness:    columnMean(t, cols.fitness),
		Accuracy:   columnMean(t, cols.accuracy),
		MatchCount: columnMean(t, cols.matchCount),
	}

	var cells []string
	for r := range t.Rows {
		if t.Float(r, cols.fitness) > th.Fitness &&
			t.Float(r, cols.accuracy) > th.Accuracy &&
			t.Float(r, cols.matchCount) > th.MatchCount {
			cells = append(cells, t.Cell(r, cols.condition))
		}
	}
	logging.Curation("selected %d of %d classifiers (fitness > %.4g, accuracy > %.4g, match count > %.4g)",
		len(cells), len(t.Rows), th.Fitness, th.Accuracy, th.MatchCount)
	return cells, th, nil
}

// ExtractFragments pulls the bracketed expressions out of condition cells (a
// cell without brackets counts as one expression). Empty, "dc" and
// single-terminal expressions are dropped and duplicates removed, keeping
// first-seen order.
func ExtractFragments(cells []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, cell := range cells {
		frags := population.SplitCondition(cell)
		if frags == nil {
			frags = []string{cell}
		}
		for _, f := range frags {
			f = strings.TrimSpace(f)
			if f == "" || strings.EqualFold(f, "dc") || singleTerminal.MatchString(f) {
				continue
			}
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}

// Curate harvests fragments from t into the level pool file under dir and,
// when lib is non-nil, publishes the updated pool to it.
func Curate(t *population.Table, dir string, level int, lib *library.Library) (*Result, error) {
	if level < 1 {
		return nil, fmt.Errorf("target level must be at least 1, got %d", level)
	}
	cells, th, err := Select(t)
	if err != nil {
		return nil, err
	}
	frags := ExtractFragments(cells)

	pool, added, err := library.AppendPool(dir, level, frags)
	if err != nil {
		return nil, fmt.Errorf("publish level %d: %w", level, err)
	}
	if lib != nil {
		lib.Publish(level, pool)
	}

	logging.Curation("harvested %d fragments, %d new, level %d pool now %d", len(frags), added, level, len(pool))
	return &Result{
		Thresholds: th,
		Selected:   len(cells),
		Fragments:  frags,
		Added:      added,
		Level:      level,
		PoolSize:   len(pool),
	}, nil
}

// CurateFile reads an exported population (CSV or XLSX) and curates it.
func CurateFile(path, dir string, level int, lib *library.Library) (*Result, error) {
	t, err := population.ReadTable(path)
	if err != nil {
		return nil, err
	}
	return Curate(t, dir, level, lib)
}
