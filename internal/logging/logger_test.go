package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, cfg Config) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	Use(zap.New(core), cfg)
	t.Cleanup(Reset)
	return logs
}

func TestUninitializedIsNoop(t *testing.T) {
	Reset()
	assert.NotPanics(t, func() {
		Boot("hello %d", 1)
		Get(CategoryCovering).Error("nothing")
		Get(CategoryStore).With("k", "v").Info("still nothing")
		Sync()
	})
}

func TestCategoriesAreNamed(t *testing.T) {
	logs := observe(t, Config{})

	Boot("booting %s", "elcs")
	CoveringDebug("covered %d", 3)
	LibraryWarn("pool %d unusable", 2)
	StoreError("disk full")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "boot", entries[0].LoggerName)
	assert.Equal(t, "booting elcs", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)

	assert.Equal(t, "covering", entries[1].LoggerName)
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)

	assert.Equal(t, "library", entries[2].LoggerName)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)

	assert.Equal(t, "store", entries[3].LoggerName)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}

func TestDisabledCategory(t *testing.T) {
	logs := observe(t, Config{Categories: map[string]bool{"generation": false, "library": true}})

	GenerationDebug("dropped")
	Library("kept")
	Curation("kept too")

	assert.Equal(t, 0, logs.FilterLoggerName("generation").Len())
	assert.Equal(t, 1, logs.FilterLoggerName("library").Len())
	assert.Equal(t, 1, logs.FilterLoggerName("curation").Len())
	assert.False(t, IsCategoryEnabled(CategoryGeneration))
	assert.True(t, IsCategoryEnabled(CategoryPopulation))
}

func TestWithFields(t *testing.T) {
	logs := observe(t, Config{DebugMode: true})
	assert.True(t, IsDebugMode())

	Get(CategoryPopulation).With("size", 12).Info("match set built")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(12), entries[0].ContextMap()["size"])
}

func TestTimer(t *testing.T) {
	logs := observe(t, Config{})

	timer := StartTimer(CategoryCuration, "curate")
	elapsed := timer.Stop()
	assert.GreaterOrEqual(t, elapsed, time.Duration(0))

	slow := StartTimer(CategoryCuration, "slow")
	time.Sleep(2 * time.Millisecond)
	slow.StopWithThreshold(time.Nanosecond)

	entries := logs.FilterLoggerName("curation").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.True(t, strings.HasPrefix(entries[1].Message, "slow took"))
}

func TestConcurrentGet(t *testing.T) {
	logs := observe(t, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			Get(CategoryOperators).Info("worker %d", i)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 16, logs.Len())
}

func TestInitialize_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elcs.log")
	require.NoError(t, Initialize(Config{Level: "warn", Format: "json", File: path}))
	t.Cleanup(Reset)

	Store("below threshold")
	LibraryWarn("visible %s", "warning")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "below threshold")
	assert.Contains(t, string(data), "visible warning")
	assert.Contains(t, string(data), `"logger":"library"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
}
