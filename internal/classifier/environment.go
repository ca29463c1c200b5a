package classifier

import (
	"fmt"

	"elcs/internal/fragment"
)

const (
	// DefaultCoverTrials bounds the fragments tried per attribute when building a matching condition.
	DefaultCoverTrials = 100

	// DefaultCoverPasses bounds the attribute passes covering makes before giving up.
	DefaultCoverPasses = 1000
)

// Environment holds the problem description and learning parameters the
// classifier operators read. It is not modified by the operators.
type Environment struct {
	// Phenotype domain
	Discrete     bool
	Labels       []string // discrete label set
	PhenotypeMin float64  // continuous domain lower bound
	PhenotypeMax float64  // continuous domain upper bound

	NumAttributes int

	PSpec       float64 // probability an attribute is specified during covering
	Mu          float64 // mutation rate
	Nu          float64 // fitness exponent
	Beta        float64 // learning rate for the match set size estimate
	ThetaSub    int     // experience required to subsume
	AccSub      float64 // accuracy required to subsume
	ThetaDel    int     // experience below which fitness is ignored by the deletion vote
	Delta       float64 // fraction of mean fitness below which deletion votes are inflated
	InitFitness float64

	// Fragment generation
	MaxDepth    int
	Level       int
	Library     fragment.Library // may be nil
	CoverTrials int
	CoverPasses int
}

// DefaultEnvironment returns the standard eLCS parameters for a discrete problem.
func DefaultEnvironment(numAttributes int, labels []string) *Environment {
	return &Environment{
		Discrete:      true,
		Labels:        labels,
		NumAttributes: numAttributes,
		PSpec:         0.5,
		Mu:            0.04,
		Nu:            5,
		Beta:          0.2,
		ThetaSub:      20,
		AccSub:        0.99,
		ThetaDel:      20,
		Delta:         0.1,
		InitFitness:   0.01,
		MaxDepth:      fragment.DefaultMaxDepth,
		Level:         1,
		CoverTrials:   DefaultCoverTrials,
		CoverPasses:   DefaultCoverPasses,
	}
}

// PhenotypeRange is the width of the continuous phenotype domain.
func (e *Environment) PhenotypeRange() float64 {
	return e.PhenotypeMax - e.PhenotypeMin
}

// Variables returns the attribute indices 0..NumAttributes-1.
func (e *Environment) Variables() []int {
	vars := make([]int, e.NumAttributes)
	for i := range vars {
		vars[i] = i
	}
	return vars
}

func (e *Environment) coverTrials() int {
	if e.CoverTrials <= 0 {
		return DefaultCoverTrials
	}
	return e.CoverTrials
}

func (e *Environment) coverPasses() int {
	if e.CoverPasses <= 0 {
		return DefaultCoverPasses
	}
	return e.CoverPasses
}

// Validate checks the parameters the operators depend on.
func (e *Environment) Validate() error {
	if e.NumAttributes <= 0 {
		return fmt.Errorf("num_attributes must be positive, got %d", e.NumAttributes)
	}
	if e.PSpec <= 0 || e.PSpec > 1 {
		return fmt.Errorf("p_spec must be in (0, 1], got %v", e.PSpec)
	}
	if e.Mu < 0 || e.Mu > 1 {
		return fmt.Errorf("mu must be in [0, 1], got %v", e.Mu)
	}
	if e.Beta <= 0 || e.Beta > 1 {
		return fmt.Errorf("beta must be in (0, 1], got %v", e.Beta)
	}
	if e.InitFitness <= 0 {
		return fmt.Errorf("init_fitness must be positive, got %v", e.InitFitness)
	}
	if e.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative, got %d", e.MaxDepth)
	}
	if e.Level < 1 {
		return fmt.Errorf("level must be at least 1, got %d", e.Level)
	}
	if e.Discrete {
		if len(e.Labels) == 0 {
			return fmt.Errorf("discrete phenotype needs at least one label")
		}
	} else if e.PhenotypeRange() <= 0 {
		return fmt.Errorf("continuous phenotype range must be positive, got [%v, %v]", e.PhenotypeMin, e.PhenotypeMax)
	}
	return nil
}
