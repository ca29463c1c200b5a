package population

import (
	"bytes"
	"context"
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"elcs/internal/classifier"
	"elcs/internal/condition"
	"elcs/internal/fragment"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClassifier(t *testing.T, label string, fitness float64, exprs ...string) *classifier.Classifier {
	t.Helper()
	cl := &classifier.Classifier{
		Phenotype:       classifier.Phenotype{Label: label},
		Fitness:         fitness,
		Accuracy:        0.5,
		Numerosity:      1,
		MatchCount:      30,
		CorrectCount:    15,
		AveMatchSetSize: 4,
		InitTimeStamp:   3,
		TimeStampGA:     9,
	}
	for _, e := range exprs {
		cd, err := condition.Parse(e)
		require.NoError(t, err)
		cl.Conditions = append(cl.Conditions, cd)
	}
	return cl
}

func samplePopulation(t *testing.T) []*classifier.Classifier {
	return []*classifier.Classifier{
		newClassifier(t, "1", 0.9, "D0 D1 &", "dc", "dc"),
		newClassifier(t, "0", 0.2, "dc", "D1 ~", "dc"),
		newClassifier(t, "1", 0.4, "dc", "dc", "D2"),
		newClassifier(t, "0", 0.1, "dc", "dc", "dc"),
	}
}

func TestSplitCondition(t *testing.T) {
	assert.Equal(t, []string{"D0 D1 &", "dc", "D2 ~"}, SplitCondition("[D0 D1 &][dc][D2 ~]"))
	assert.Equal(t, []string{""}, SplitCondition("[]"))
	assert.Nil(t, SplitCondition("D0 D1 &"))
}

func TestRecord_RoundTripsClassifier(t *testing.T) {
	env := classifier.DefaultEnvironment(3, []string{"0", "1"})
	orig := newClassifier(t, "1", 0.16807, "D0 D1 &", "dc", "D2 ~")

	rec := FromClassifier(env, orig)
	assert.Equal(t, "[D0 D1 &][dc][D2 ~]", rec.Condition)
	assert.Equal(t, "1", rec.Phenotype)

	back, err := rec.Classifier(env)
	require.NoError(t, err)
	assert.True(t, back.Equals(orig))
	assert.Equal(t, orig.ConditionString(), back.ConditionString())
	assert.Equal(t, orig.Fitness, back.Fitness)
	assert.Equal(t, orig.MatchCount, back.MatchCount)
	assert.Equal(t, orig.TimeStampGA, back.TimeStampGA)
}

func TestRecord_ContinuousPhenotype(t *testing.T) {
	env := classifier.DefaultEnvironment(1, nil)
	env.Discrete = false
	env.PhenotypeMax = 10

	cl := newClassifier(t, "", 0.5, "D0")
	cl.Phenotype = classifier.Phenotype{Low: 1.25, High: 4}

	rec := FromClassifier(env, cl)
	assert.Equal(t, "1.25;4", rec.Phenotype)

	back, err := rec.Classifier(env)
	require.NoError(t, err)
	assert.Equal(t, cl.Phenotype, back.Phenotype)

	rec.Phenotype = "oops"
	_, err = rec.Classifier(env)
	assert.Error(t, err)
}

func TestRecord_ClassifierErrors(t *testing.T) {
	env := classifier.DefaultEnvironment(2, []string{"0", "1"})

	_, err := Record{Condition: "[D0][dc][dc]", Phenotype: "1"}.Classifier(env)
	assert.Error(t, err, "slot count mismatch")

	_, err = Record{Condition: "[D0 &][dc]", Phenotype: "1"}.Classifier(env)
	require.Error(t, err)
	assert.ErrorIs(t, err, fragment.ErrParse)

	_, err = Record{Condition: "[D7 D0 &][dc]", Phenotype: "1"}.Classifier(env)
	require.Error(t, err)
	assert.ErrorContains(t, err, "slot 0")
	assert.ErrorContains(t, err, "D7")

	_, err = Record{Condition: "[dc][D1 D2 |]", Phenotype: "1"}.Classifier(env)
	assert.ErrorContains(t, err, "slot 1")

	cl, err := Record{Condition: "[D0][dc]", Phenotype: "1"}.Classifier(env)
	require.NoError(t, err)
	assert.Equal(t, 1, cl.Numerosity)
}

func TestCSV_RoundTrip(t *testing.T) {
	env := classifier.DefaultEnvironment(3, []string{"0", "1"})
	records := Records(env, samplePopulation(t))

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))
	assert.True(t, strings.HasPrefix(buf.String(), strings.Join(Headers, ",")+"\n"))

	table, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, Headers, table.Headers)
	if diff := cmp.Diff(records, table.Records()); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestXLSX_RoundTrip(t *testing.T) {
	env := classifier.DefaultEnvironment(3, []string{"0", "1"})
	records := Records(env, samplePopulation(t))
	path := filepath.Join(t.TempDir(), "out", "pop.xlsx")

	require.NoError(t, WriteFile(path, records))
	table, err := ReadTable(path)
	require.NoError(t, err)
	assert.Equal(t, Headers, table.Headers)

	got := table.Records()
	require.Len(t, got, len(records))
	for i := range records {
		assert.Equal(t, records[i].Condition, got[i].Condition)
		assert.Equal(t, records[i].Phenotype, got[i].Phenotype)
		assert.InDelta(t, records[i].Fitness, got[i].Fitness, 1e-9)
		assert.Equal(t, records[i].MatchCount, got[i].MatchCount)
		assert.Equal(t, records[i].TimeStampGA, got[i].TimeStampGA)
	}
}

func TestWriteFile_CSV(t *testing.T) {
	env := classifier.DefaultEnvironment(3, []string{"0", "1"})
	path := filepath.Join(t.TempDir(), "pop.csv")
	require.NoError(t, WriteFile(path, Records(env, samplePopulation(t))))

	table, err := ReadTable(path)
	require.NoError(t, err)
	assert.Len(t, table.Rows, 4)
}

func TestTable_ColumnPicking(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(
		"Rule,Code Fragments,Mean FITNESS,accuracy (test),Total Match Count\n" +
			"x,[D0 D1 &][dc],0.5,0.75,12\n" +
			"y,[dc][D1 ~],n/a,0.5\n"))
	require.NoError(t, err)

	assert.Equal(t, 1, table.ConditionColumn())
	assert.Equal(t, 2, table.Column([]string{"Fitness"}, "fitness"))
	assert.Equal(t, 3, table.Column([]string{"Accuracy"}, "accuracy"))
	assert.Equal(t, 4, table.Column([]string{"Match Count"}, "match", "count"))
	assert.Equal(t, -1, table.Column([]string{"Numerosity"}, "numerosity"))

	assert.True(t, math.IsNaN(table.Float(1, 2)), "non-numeric cell")
	assert.True(t, math.IsNaN(table.Float(1, 4)), "missing cell")

	recs := table.Records()
	assert.Equal(t, "[D0 D1 &][dc]", recs[0].Condition)
	assert.Equal(t, 0.5, recs[0].Fitness)
	assert.Equal(t, 12, recs[0].MatchCount)
	assert.Zero(t, recs[1].Fitness)
}

func TestTable_ConditionFallsBackToFirstColumn(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("Rules,Score\n[D0],1\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, table.ConditionColumn())
}

func TestMatchSet(t *testing.T) {
	pop := samplePopulation(t)

	got, err := MatchSet(context.Background(), pop, fragment.Instance{1, 1, 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 3}, got)

	got, err = MatchSet(context.Background(), pop, fragment.Instance{0, 0, 0}, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, got)
}

func TestMatchSet_AgreesWithSequential(t *testing.T) {
	env := classifier.DefaultEnvironment(6, []string{"0", "1"})
	rng := rand.New(rand.NewSource(11))

	var pop []*classifier.Classifier
	for i := 0; i < 60; i++ {
		inst := make(fragment.Instance, 6)
		for j := range inst {
			inst[j] = float64(rng.Intn(2))
		}
		cl, err := classifier.Cover(env, rng, 1, i, inst, classifier.Target{Label: "1"})
		require.NoError(t, err)
		pop = append(pop, cl)
	}

	query := fragment.Instance{1, 0, 1, 1, 0, 1}
	var want []int
	for i, cl := range pop {
		if cl.Match(query) {
			want = append(want, i)
		}
	}
	got, err := MatchSet(context.Background(), pop, query, 4)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMatchSet_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := MatchSet(ctx, samplePopulation(t), fragment.Instance{1, 1, 1}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMeanFitness(t *testing.T) {
	assert.Zero(t, MeanFitness(nil))

	pop := samplePopulation(t)
	pop[0].Numerosity = 2
	assert.Equal(t, 5, MicroSize(pop))
	assert.InDelta(t, (0.9+0.2+0.4+0.1)/5, MeanFitness(pop), 1e-12)
}

func TestDeletionVotes(t *testing.T) {
	env := classifier.DefaultEnvironment(3, []string{"0", "1"})
	pop := samplePopulation(t)
	pop[3].Fitness = 0.01

	votes, err := DeletionVotes(context.Background(), env, pop, 3)
	require.NoError(t, err)
	require.Len(t, votes, len(pop))

	mean := MeanFitness(pop)
	sum := 0.0
	for i, cl := range pop {
		assert.Equal(t, cl.DeletionVote(env, mean), votes[i])
		sum += cl.DeletionProb
	}
	assert.InDelta(t, 1, sum, 1e-9)
	assert.Greater(t, votes[3], votes[0], "unfit classifier gets the larger vote")
}
