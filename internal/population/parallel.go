package population

import (
	"context"
	"runtime"

	"elcs/internal/classifier"
	"elcs/internal/fragment"
	"elcs/internal/logging"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds per-population fan-out when workers <= 0.
func DefaultWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// MatchSet returns the indices, in population order, of the classifiers in pop
// that match inst. Classifiers are only read.
func MatchSet(ctx context.Context, pop []*classifier.Classifier, inst fragment.Instance, workers int) ([]int, error) {
	matched := make([]bool, len(pop))
	if err := forEach(ctx, len(pop), workers, func(i int) {
		matched[i] = pop[i].Match(inst)
	}); err != nil {
		return nil, err
	}

	var out []int
	for i, ok := range matched {
		if ok {
			out = append(out, i)
		}
	}
	logging.PopulationDebug("match set: %d of %d classifiers", len(out), len(pop))
	return out, nil
}

// MicroSize is the sum of numerosities in pop.
func MicroSize(pop []*classifier.Classifier) int {
	n := 0
	for _, cl := range pop {
		n += cl.Numerosity
	}
	return n
}

// MeanFitness is the summed fitness of pop over its micro size, or 0 for an
// empty population.
func MeanFitness(pop []*classifier.Classifier) float64 {
	micro := MicroSize(pop)
	if micro == 0 {
		return 0
	}
	sum := 0.0
	for _, cl := range pop {
		sum += cl.Fitness
	}
	return sum / float64(micro)
}

// DeletionVotes computes every classifier's deletion vote against the
// population's mean fitness and stores each vote's share of the total in
// DeletionProb.
func DeletionVotes(ctx context.Context, env *classifier.Environment, pop []*classifier.Classifier, workers int) ([]float64, error) {
	mean := MeanFitness(pop)
	votes := make([]float64, len(pop))
	if err := forEach(ctx, len(pop), workers, func(i int) {
		votes[i] = pop[i].DeletionVote(env, mean)
	}); err != nil {
		return nil, err
	}

	total := 0.0
	for _, v := range votes {
		total += v
	}
	for i, cl := range pop {
		if total > 0 {
			cl.DeletionProb = votes[i] / total
		} else {
			cl.DeletionProb = 0
		}
	}
	return votes, nil
}

// forEach runs fn for 0..n-1 on at most workers goroutines. Each call must
// only write state owned by its index.
func forEach(ctx context.Context, n, workers int, fn func(i int)) error {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
