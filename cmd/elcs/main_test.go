package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"elcs/internal/config"
	"elcs/internal/library"
	"elcs/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harness runs commands against a config rooted in a temp directory.
type harness struct {
	t       *testing.T
	dir     string
	cfgPath string
	cfg     *config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, k := range []string{"ELCS_SEED", "ELCS_LIBRARY_DIR", "ELCS_DB", "ELCS_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()

	c := config.DefaultConfig()
	c.Seed = 7
	c.Library.Dir = filepath.Join(dir, "metadata")
	c.Library.Debounce = "20ms"
	c.Store.DatabasePath = filepath.Join(dir, "elcs.db")
	c.Logging.File = filepath.Join(dir, "elcs.log")

	path := filepath.Join(dir, "elcs.yaml")
	require.NoError(t, c.Save(path))
	t.Cleanup(logging.Reset)

	return &harness{t: t, dir: dir, cfgPath: path, cfg: c}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"-c", h.cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	return out
}

func TestEval(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "1\n", h.mustRun("eval", "D0 D1 &", "1", "1"))
	assert.Equal(t, "0\n", h.mustRun("eval", "D0 D1 &", "1", "0"))
	assert.Equal(t, "0\n", h.mustRun("eval", "D2 ~", "0", "0", "1"))

	_, err := h.run("eval", "D0 D4 |", "1", "0")
	assert.ErrorContains(t, err, "D4")

	_, err = h.run("eval", "D0 &", "1")
	assert.Error(t, err)

	_, err = h.run("eval", "D0", "yes")
	assert.ErrorContains(t, err, "not a number")
}

func TestPrint(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("print", "D0 D1 ~ |")
	assert.Equal(t, "|\n├── D0\n└── ~\n    └── D1\n", out)

	out = h.mustRun("print", "--format", "paren", "D0 D1 ~ |")
	assert.Equal(t, "(| D0 (~ D1))\n", out)

	_, err := h.run("print", "--format", "dot", "D0")
	assert.ErrorContains(t, err, "unknown format")
}

func TestGenerate(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("generate", "-n", "5", "--depth", "2")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	for _, l := range lines {
		assert.Regexp(t, `^D[0-5]( |$)`, l)
	}

	// Same seed, same fragments.
	assert.Equal(t, out, h.mustRun("generate", "-n", "5", "--depth", "2"))
	assert.NotEqual(t, out, h.mustRun("--seed", "8", "generate", "-n", "5", "--depth", "2"))
}

func TestGenerate_UsesLibrary(t *testing.T) {
	h := newHarness(t)
	_, _, err := library.AppendPool(h.cfg.Library.Dir, 1, []string{"D0 D1 &", "D2 D3 nor"})
	require.NoError(t, err)

	out := h.mustRun("generate", "-n", "20", "--level", "2", "--depth", "2")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 20)
}

var snapshotID = regexp.MustCompile(`saved snapshot (\S+)`)

func TestCoverSnapshotWorkflow(t *testing.T) {
	h := newHarness(t)
	csvPath := filepath.Join(h.dir, "out", "population.csv")

	out := h.mustRun("cover", "1", "0", "1", "1", "0", "0",
		"--label", "1", "-n", "3", "--save", "demo", "--export", csvPath)
	assert.Contains(t, out, "CONDITION")
	assert.Contains(t, out, "exported 3 classifiers")
	m := snapshotID.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	id := m[1]

	_, err := os.Stat(csvPath)
	require.NoError(t, err)

	list := h.mustRun("snapshots")
	assert.Contains(t, list, id)
	assert.Contains(t, list, "demo")

	match := h.mustRun("match", id, "1", "0", "1", "1", "0", "0")
	assert.Contains(t, match, "3 of 3 classifiers match")

	_, err = h.run("match", id, "1", "0")
	assert.ErrorContains(t, err, "attributes")

	xlsxPath := filepath.Join(h.dir, "population.xlsx")
	assert.Contains(t, h.mustRun("export", id, xlsxPath), "exported 3 classifiers")
	_, err = os.Stat(xlsxPath)
	require.NoError(t, err)

	_, err = h.run("export", "missing-id", xlsxPath)
	assert.Error(t, err)
}

func TestCover_Errors(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("cover", "1", "0", "1")
	assert.ErrorContains(t, err, "attributes")

	_, err = h.run("cover", "1", "0", "1", "1", "0", "0")
	assert.ErrorContains(t, err, "--label")
}

func TestCurate(t *testing.T) {
	h := newHarness(t)
	export := filepath.Join(h.dir, "export.csv")
	require.NoError(t, os.WriteFile(export, []byte(`Condition,Phenotype,Fitness,Accuracy,Numerosity,Match Count
[D0 D1 &][dc][D2 ~],1,0.9,0.95,3,40
[D3][D0 D1 &][D4 D5 nor],0,0.8,0.9,2,50
[dc][dc][D1 D2 |],1,0.1,0.4,1,5
[D5 ~][dc][dc],0,0.05,0.2,1,60
`), 0644))

	out := h.mustRun("curate", export, "--level", "2")
	assert.Contains(t, out, "selected 2 rows, 3 fragments, 3 new")
	assert.Contains(t, out, "CF_L2.csv now holds 3 fragments")

	pool, err := library.ReadPool(filepath.Join(h.cfg.Library.Dir, library.PoolFileName(2)))
	require.NoError(t, err)
	assert.Equal(t, []string{"D0 D1 &", "D2 ~", "D4 D5 nor"}, pool)

	out = h.mustRun("curate", export, "--level", "2")
	assert.Contains(t, out, "3 fragments, 0 new")
}

func TestWatch(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("watch", "--for", "50ms")
	assert.Contains(t, out, "watching "+h.cfg.Library.Dir)
	assert.Contains(t, out, "events=0")
}

func TestInvalidConfig(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(h.cfgPath, []byte("problem:\n  num_attributes: 0\n"), 0644))

	_, err := h.run("eval", "D0", "1")
	assert.ErrorContains(t, err, "invalid configuration")
}
