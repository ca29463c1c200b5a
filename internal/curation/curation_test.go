package curation

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"elcs/internal/library"
	"elcs/internal/population"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const export = `Condition,Phenotype,Fitness,Accuracy,Numerosity,Match Count
[D0 D1 &][dc][D2 ~],1,0.9,0.95,3,40
[D3][D0 D1 &][D4 D5 nor],0,0.8,0.9,2,50
[dc][dc][D1 D2 |],1,0.1,0.4,1,5
[D6 ~][dc][dc],0,0.05,0.2,1,60
[DC][d7][D2 D3 nand],1,0.7,0.99,1,30
`

func table(t *testing.T, csv string) *population.Table {
	t.Helper()
	tb, err := population.ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	return tb
}

func TestSelect(t *testing.T) {
	cells, th, err := Select(table(t, export))
	require.NoError(t, err)

	assert.InDelta(t, (0.9+0.8+0.1+0.05+0.7)/5, th.Fitness, 1e-12)
	assert.InDelta(t, (0.95+0.9+0.4+0.2+0.99)/5, th.Accuracy, 1e-12)
	assert.InDelta(t, 37, th.MatchCount, 1e-12)

	want := []string{"[D0 D1 &][dc][D2 ~]", "[D3][D0 D1 &][D4 D5 nor]"}
	if diff := cmp.Diff(want, cells); diff != "" {
		t.Errorf("Select mismatch (-want +got):\n%s", diff)
	}
}

func TestSelect_SkipsNonNumeric(t *testing.T) {
	cells, th, err := Select(table(t, `Condition,Fitness,Accuracy,Match Count
[D0 D1 &],0.9,0.9,10
[D1 ~],n/a,0.1,2
[D2 D3 |],0.1,,4
`))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, th.Fitness, 1e-12)
	assert.InDelta(t, 0.5, th.Accuracy, 1e-12)
	assert.Equal(t, []string{"[D0 D1 &]"}, cells)
}

func TestSelect_MissingColumns(t *testing.T) {
	_, _, err := Select(table(t, "Condition,Fitness,Match Count\n[D0],1,2\n"))
	assert.Error(t, err)
}

func TestSelect_AllNonNumericSelectsNothing(t *testing.T) {
	cells, th, err := Select(table(t, "Condition,Fitness,Accuracy,Match Count\n[D0 D1 &],x,y,z\n"))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(th.Fitness))
	assert.Empty(t, cells)
}

func TestExtractFragments(t *testing.T) {
	got := ExtractFragments([]string{
		"[D0 D1 &][dc][D2 ~]",
		"[D3][D0 D1 &][ D4 D5 nor ]",
		"[DC][d7][]",
		"D8 D9 nand",
		"D10",
	})
	want := []string{"D0 D1 &", "D2 ~", "D4 D5 nor", "D8 D9 nand"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExtractFragments mismatch (-want +got):\n%s", diff)
	}
}

func TestCurate_PublishesToPoolAndLibrary(t *testing.T) {
	dir := t.TempDir()
	lib := library.New()
	lib.Publish(2, []string{"stale"})

	// Level 2 already holds one of the harvested fragments.
	require.NoError(t, os.WriteFile(filepath.Join(dir, library.PoolFileName(2)), []byte("D2 ~\n"), 0644))

	res, err := Curate(table(t, export), dir, 2, lib)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Selected)
	assert.Equal(t, []string{"D0 D1 &", "D2 ~", "D4 D5 nor"}, res.Fragments)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 3, res.PoolSize)

	want := []string{"D2 ~", "D0 D1 &", "D4 D5 nor"}
	assert.Equal(t, want, lib.Fragments(2))

	onDisk, err := library.ReadPool(filepath.Join(dir, library.PoolFileName(2)))
	require.NoError(t, err)
	assert.Equal(t, want, onDisk)
}

func TestCurateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(export), 0644))

	res, err := CurateFile(path, filepath.Join(dir, "pools"), 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Level)
	assert.Equal(t, 3, res.Added)

	_, err = CurateFile(filepath.Join(dir, "missing.csv"), dir, 3, nil)
	assert.Error(t, err)

	_, err = Curate(table(t, export), dir, 0, nil)
	assert.Error(t, err)
}
