// Package classifier implements code-fragment classifiers: a condition per
// attribute, a phenotype, and the statistics and genetic operators the
// learning loop drives.
package classifier

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"elcs/internal/condition"
	"elcs/internal/fragment"
	"elcs/internal/logging"
)

// ErrCoverExhausted is returned when covering cannot produce a classifier with
// at least one specific condition.
var ErrCoverExhausted = errors.New("covering produced no specific condition")

// Phenotype is a discrete label or a continuous [Low, High] interval; which
// half is meaningful follows Environment.Discrete.
type Phenotype struct {
	Label     string
	Low, High float64
}

// Width is High - Low.
func (p Phenotype) Width() float64 { return p.High - p.Low }

// Target is the phenotype of the instance being covered or mutated against.
type Target struct {
	Label string
	Value float64
}

// Classifier is one macro-classifier. It owns its conditions and phenotype;
// copies never share storage.
type Classifier struct {
	Conditions []condition.Condition
	Phenotype  Phenotype

	Fitness         float64
	Accuracy        float64
	Numerosity      int
	MatchCount      int // times in a match set
	CorrectCount    int // times in a correct set
	AveMatchSetSize float64
	DeletionProb    float64

	InitTimeStamp int
	TimeStampGA   int
}

func newClassifier(env *Environment, iteration int) *Classifier {
	return &Classifier{
		Fitness:       env.InitFitness,
		Numerosity:    1,
		InitTimeStamp: iteration,
		TimeStampGA:   iteration,
	}
}

// Cover builds a classifier that matches inst and advocates target.
//
// Each attribute is specified with probability PSpec by a fragment that
// evaluates to 1 on inst and is not already used elsewhere in the classifier;
// the whole pass repeats until at least one attribute is specified.
func Cover(env *Environment, rng *rand.Rand, setSize float64, iteration int, inst fragment.Instance, target Target) (*Classifier, error) {
	cl := newClassifier(env, iteration)
	cl.AveMatchSetSize = setSize

	if env.Discrete {
		cl.Phenotype = Phenotype{Label: target.Label}
	} else {
		radius := float64(rng.Intn(51)+25) * 0.01 * env.PhenotypeRange() / 2.0
		cl.Phenotype = Phenotype{Low: target.Value - radius, High: target.Value + radius}
	}

	vars := env.Variables()
	passes := env.coverPasses()
	for pass := 1; pass <= passes; pass++ {
		cl.Conditions = make([]condition.Condition, env.NumAttributes)
		for i := range cl.Conditions {
			if rng.Float64() >= env.PSpec {
				continue
			}
			if cd, ok := cl.buildMatch(env, rng, vars, inst); ok {
				cl.Conditions[i] = cd
			}
		}
		if cl.SpecificCount() > 0 {
			logging.CoveringDebug("covered iteration=%d passes=%d specific=%d condition=%s",
				iteration, pass, cl.SpecificCount(), cl.ConditionString())
			return cl, nil
		}
	}

	logging.CoveringWarn("covering gave up after %d passes at iteration %d", passes, iteration)
	return nil, fmt.Errorf("%w after %d passes", ErrCoverExhausted, passes)
}

// buildMatch draws fragments until one evaluates to 1 on inst and is not
// already a condition of c.
func (c *Classifier) buildMatch(env *Environment, rng *rand.Rand, vars []int, inst fragment.Instance) (condition.Condition, bool) {
	for trial := 0; trial < env.coverTrials(); trial++ {
		tree := fragment.Generate(rng, vars, env.Level, env.MaxDepth, env.Library)
		if fragment.Evaluate(tree, inst) != 1 {
			continue
		}
		cd := condition.FromTree(tree)
		if c.hasExpression(cd.Expression()) {
			continue
		}
		return cd, true
	}
	return condition.Condition{}, false
}

// NewCopy starts an offspring from parent: conditions, phenotype, fitness,
// accuracy and match set size are inherited; counts start over.
func NewCopy(parent *Classifier, iteration int) *Classifier {
	return &Classifier{
		Conditions:      cloneConditions(parent.Conditions),
		Phenotype:       parent.Phenotype,
		Fitness:         parent.Fitness,
		Accuracy:        parent.Accuracy,
		Numerosity:      1,
		AveMatchSetSize: parent.AveMatchSetSize,
		InitTimeStamp:   iteration,
		TimeStampGA:     iteration,
	}
}

// Clone returns an exact, independent copy.
func (c *Classifier) Clone() *Classifier {
	out := *c
	out.Conditions = cloneConditions(c.Conditions)
	return &out
}

func cloneConditions(in []condition.Condition) []condition.Condition {
	out := make([]condition.Condition, len(in))
	for i, cd := range in {
		out[i] = cd.Clone()
	}
	return out
}

// Match reports whether every specific condition evaluates to 1 on inst.
func (c *Classifier) Match(inst fragment.Instance) bool {
	for _, cd := range c.Conditions {
		if !cd.Matches(inst) {
			return false
		}
	}
	return true
}

// Equals reports whether other advocates the same phenotype with the same set
// of specific expressions.
func (c *Classifier) Equals(other *Classifier) bool {
	if c.Phenotype != other.Phenotype || c.SpecificCount() != other.SpecificCount() {
		return false
	}
	for _, cd := range other.Conditions {
		if cd.IsDontCare() {
			continue
		}
		if !c.hasExpression(cd.Expression()) {
			return false
		}
	}
	return true
}

// SpecificCount is the number of non-DontCare conditions.
func (c *Classifier) SpecificCount() int {
	n := 0
	for _, cd := range c.Conditions {
		if !cd.IsDontCare() {
			n++
		}
	}
	return n
}

// WorkingConditions returns the specific conditions in slot order.
func (c *Classifier) WorkingConditions() []condition.Condition {
	out := make([]condition.Condition, 0, len(c.Conditions))
	for _, cd := range c.Conditions {
		if !cd.IsDontCare() {
			out = append(out, cd)
		}
	}
	return out
}

// hasExpression reports whether a specific condition of c has expression expr.
func (c *Classifier) hasExpression(expr string) bool {
	for _, cd := range c.Conditions {
		if !cd.IsDontCare() && cd.Expression() == expr {
			return true
		}
	}
	return false
}

// ConditionString renders the condition vector as "[expr][dc]...".
func (c *Classifier) ConditionString() string {
	var sb strings.Builder
	for _, cd := range c.Conditions {
		sb.WriteByte('[')
		sb.WriteString(cd.Expression())
		sb.WriteByte(']')
	}
	return sb.String()
}

// PhenotypeString renders the label, or the interval as "low;high".
func (c *Classifier) PhenotypeString(env *Environment) string {
	if env.Discrete {
		return c.Phenotype.Label
	}
	return fmt.Sprintf("%g;%g", c.Phenotype.Low, c.Phenotype.High)
}

// =============================================================================
// STATISTICS
// =============================================================================

// UpdateNumerosity adds num (possibly negative) to the numerosity.
func (c *Classifier) UpdateNumerosity(num int) {
	c.Numerosity += num
}

// UpdateExperience records one more match set membership.
func (c *Classifier) UpdateExperience() {
	c.MatchCount++
}

// UpdateCorrect records one more correct set membership.
func (c *Classifier) UpdateCorrect() {
	c.CorrectCount++
}

// UpdateMatchSetSize folds size into the running match set size estimate:
// a plain average while MatchCount < 1/beta, Widrow-Hoff afterwards.
// UpdateExperience must already have counted the current match.
func (c *Classifier) UpdateMatchSetSize(beta, size float64) {
	if float64(c.MatchCount) < 1.0/beta {
		c.AveMatchSetSize = (c.AveMatchSetSize*float64(c.MatchCount-1) + size) / float64(c.MatchCount)
	} else {
		c.AveMatchSetSize += beta * (size - c.AveMatchSetSize)
	}
}

// UpdateAccuracy sets Accuracy = CorrectCount / MatchCount.
// The caller must not invoke it before the first recorded match.
func (c *Classifier) UpdateAccuracy() {
	c.Accuracy = float64(c.CorrectCount) / float64(c.MatchCount)
}

// UpdateFitness recomputes fitness from accuracy. Continuous classifiers whose
// interval covers at least half of the domain are penalized by their relative
// width, and those covering the whole domain get zero.
func (c *Classifier) UpdateFitness(env *Environment) {
	if env.Discrete {
		c.Fitness = math.Pow(c.Accuracy, env.Nu)
		return
	}

	domain := env.PhenotypeRange()
	width := c.Phenotype.Width()
	switch {
	case width/domain < 0.5:
		c.Fitness = math.Pow(c.Accuracy, env.Nu)
	case width >= domain:
		c.Fitness = 0
	default:
		c.Fitness = math.Abs(math.Pow(c.Accuracy, env.Nu) - width/domain)
	}
}

// UpdateTimeStamp sets the iteration of the last GA invocation.
func (c *Classifier) UpdateTimeStamp(ts int) {
	c.TimeStampGA = ts
}

// SetAccuracy overrides the accuracy.
func (c *Classifier) SetAccuracy(acc float64) {
	c.Accuracy = acc
}

// SetFitness overrides the fitness.
func (c *Classifier) SetFitness(fit float64) {
	c.Fitness = fit
}

// DeletionVote scores c for removal; higher is more likely to be deleted.
// Experienced classifiers that are unfit relative to meanFitness have their
// vote inflated; a zero fitness is treated as InitFitness.
func (c *Classifier) DeletionVote(env *Environment, meanFitness float64) float64 {
	num := float64(c.Numerosity)
	vote := c.AveMatchSetSize * num

	if c.Fitness/num >= env.Delta*meanFitness || c.MatchCount < env.ThetaDel {
		return vote
	}
	if c.Fitness == 0 {
		return vote * meanFitness / (env.InitFitness / num)
	}
	return vote * meanFitness / (c.Fitness / num)
}
