package classifier

import (
	"math/rand"

	"elcs/internal/condition"
	"elcs/internal/fragment"
	"elcs/internal/logging"
)

// =============================================================================
// SUBSUMPTION
// =============================================================================

// IsSubsumer reports whether c is experienced and accurate enough to absorb others.
func (c *Classifier) IsSubsumer(env *Environment) bool {
	return c.MatchCount > env.ThetaSub && c.Accuracy > env.AccSub
}

// IsMoreGeneral reports whether c has strictly fewer specific conditions than
// other and every one of its expressions also appears among other's, in any slot.
func (c *Classifier) IsMoreGeneral(other *Classifier) bool {
	if c.SpecificCount() >= other.SpecificCount() {
		return false
	}
	for _, cd := range c.Conditions {
		if cd.IsDontCare() {
			continue
		}
		if !other.hasExpression(cd.Expression()) {
			return false
		}
	}
	return true
}

// Subsumes reports whether c can absorb other. Discrete phenotypes must be
// equal; a continuous c must lie inside other's interval.
func (c *Classifier) Subsumes(env *Environment, other *Classifier) bool {
	if env.Discrete {
		if c.Phenotype.Label != other.Phenotype.Label {
			return false
		}
	} else if c.Phenotype.Low < other.Phenotype.Low || c.Phenotype.High > other.Phenotype.High {
		return false
	}

	ok := c.IsSubsumer(env) && c.IsMoreGeneral(other)
	if ok {
		logging.Get(logging.CategorySubsumption).Debug("%s subsumes %s", c.ConditionString(), other.ConditionString())
	}
	return ok
}

// =============================================================================
// CROSSOVER
// =============================================================================

// UniformCrossover swaps differing conditions between c and other over a
// random slot range [x, y). It reports whether anything was swapped.
func (c *Classifier) UniformCrossover(rng *rand.Rand, other *Classifier) bool {
	x := rng.Intn(len(c.Conditions) + 1)
	y := rng.Intn(len(other.Conditions) + 1)
	if x > y {
		x, y = y, x
	}
	if n := min(len(c.Conditions), len(other.Conditions)); y > n {
		y = n
	}

	changed := false
	for i := x; i < y; i++ {
		if c.Conditions[i].Expression() != other.Conditions[i].Expression() {
			c.Conditions[i], other.Conditions[i] = other.Conditions[i], c.Conditions[i]
			changed = true
		}
	}
	if changed {
		logging.OperatorsDebug("uniform crossover swapped slots [%d, %d)", x, y)
	}
	return changed
}

// PhenotypeCrossover exchanges interval bounds between two continuous
// classifiers. Only the lower bound is ever exchanged, with probability 0.5.
// Discrete environments have no bounds to exchange and always report false.
func (c *Classifier) PhenotypeCrossover(env *Environment, rng *rand.Rand, other *Classifier) bool {
	if env.Discrete || c.Phenotype == other.Phenotype {
		return false
	}
	if rng.Float64() < 0.5 {
		c.Phenotype.Low, other.Phenotype.Low = other.Phenotype.Low, c.Phenotype.Low
		return true
	}
	return false
}

// =============================================================================
// MUTATION
// =============================================================================

// Mutate perturbs each condition slot with probability Mu, then the phenotype.
// Slots only ever gain fragments that match inst, so a classifier that matched
// inst still does afterwards. It reports whether anything changed.
func (c *Classifier) Mutate(env *Environment, rng *rand.Rand, inst fragment.Instance, target Target) bool {
	changed := false
	vars := env.Variables()

	for i := range c.Conditions {
		if rng.Float64() >= env.Mu {
			continue
		}
		if !c.Conditions[i].IsDontCare() && rng.Float64() > 0.5 {
			c.Conditions[i] = condition.DontCare()
			changed = true
			continue
		}
		// A replacement never repeats an existing expression, including the one in slot i.
		if cd, ok := c.buildMatch(env, rng, vars, inst); ok {
			c.Conditions[i] = cd
			changed = true
		}
	}

	if env.Discrete {
		changed = c.mutateLabel(env, rng) || changed
	} else {
		changed = c.mutateInterval(env, rng, target.Value) || changed
	}
	return changed
}

// mutateLabel switches to a uniformly chosen different label with probability Mu.
func (c *Classifier) mutateLabel(env *Environment, rng *rand.Rand) bool {
	if rng.Float64() >= env.Mu {
		return false
	}
	others := make([]string, 0, len(env.Labels))
	for _, l := range env.Labels {
		if l != c.Phenotype.Label {
			others = append(others, l)
		}
	}
	if len(others) == 0 {
		return false
	}
	c.Phenotype.Label = others[rng.Intn(len(others))]
	return true
}

// mutateInterval moves the lower bound, the upper bound, or both by up to half
// the current width, preferring moves that keep value inside the interval.
func (c *Classifier) mutateInterval(env *Environment, rng *rand.Rand, value float64) bool {
	if rng.Float64() >= env.Mu {
		return false
	}
	step := rng.Float64() * 0.5 * c.Phenotype.Width()

	switch rng.Intn(3) {
	case 0:
		c.shiftLow(rng, step, value)
	case 1:
		c.shiftHigh(rng, step, value)
	default:
		c.shiftLow(rng, step, value)
		c.shiftHigh(rng, step, value)
	}
	if c.Phenotype.Low > c.Phenotype.High {
		c.Phenotype.Low, c.Phenotype.High = c.Phenotype.High, c.Phenotype.Low
	}
	return true
}

func (c *Classifier) shiftLow(rng *rand.Rand, step, value float64) {
	if rng.Float64() > 0.5 || c.Phenotype.Low+step <= value {
		c.Phenotype.Low += step
	} else {
		c.Phenotype.Low -= step
	}
}

func (c *Classifier) shiftHigh(rng *rand.Rand, step, value float64) {
	if rng.Float64() > 0.5 || c.Phenotype.High-step >= value {
		c.Phenotype.High -= step
	} else {
		c.Phenotype.High += step
	}
}
