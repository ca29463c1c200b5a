package library

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"elcs/internal/logging"
)

const (
	poolPrefix = "CF_L"
	poolSuffix = ".csv"
)

// PoolFileName is the file holding the pool for level, e.g. "CF_L2.csv".
func PoolFileName(level int) string {
	return poolPrefix + strconv.Itoa(level) + poolSuffix
}

// ParsePoolFileName extracts the level from a pool file name or path.
func ParsePoolFileName(name string) (int, bool) {
	base := filepath.Base(name)
	if !strings.HasPrefix(base, poolPrefix) || !strings.HasSuffix(base, poolSuffix) {
		return 0, false
	}
	level, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(base, poolPrefix), poolSuffix))
	if err != nil || level < 1 {
		return 0, false
	}
	return level, true
}

// ReadPool reads a single-column, headerless pool file. Blank rows are skipped
// and extra columns ignored.
func ReadPool(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var exprs []string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read pool %s: %w", path, err)
		}
		if len(rec) == 0 {
			continue
		}
		if expr := strings.TrimSpace(rec[0]); expr != "" {
			exprs = append(exprs, expr)
		}
	}
	return exprs, nil
}

// LoadLevel reads level's pool file from dir and publishes it. A missing file
// publishes an empty pool.
func (l *Library) LoadLevel(dir string, level int) error {
	path := filepath.Join(dir, PoolFileName(level))
	exprs, err := ReadPool(path)
	if err != nil {
		l.Publish(level, nil)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	l.Publish(level, exprs)
	logging.Library("loaded %d fragments for level %d from %s", len(exprs), level, path)
	return nil
}

// LoadDir builds a library from the pool files for levels 1..maxLevel in dir.
// A pool that cannot be read leaves its level empty and is logged; it never
// fails the load.
func LoadDir(dir string, maxLevel int) *Library {
	lib := New()
	for level := 1; level <= maxLevel; level++ {
		if err := lib.LoadLevel(dir, level); err != nil {
			logging.LibraryWarn("level %d pool unusable, continuing without it: %v", level, err)
		}
	}
	return lib
}

// AppendPool appends the expressions not already pooled at level to its pool
// file in dir, creating dir and the file as needed. It returns the full pool
// after the append and the number of expressions added.
func AppendPool(dir string, level int, exprs []string) ([]string, int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, 0, fmt.Errorf("create pool dir: %w", err)
	}
	path := filepath.Join(dir, PoolFileName(level))

	pool, err := ReadPool(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, 0, err
	}

	seen := make(map[string]struct{}, len(pool)+len(exprs))
	for _, e := range pool {
		seen[e] = struct{}{}
	}
	var fresh []string
	for _, e := range exprs {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		fresh = append(fresh, e)
	}
	if len(fresh) == 0 {
		return pool, 0, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return nil, 0, fmt.Errorf("open pool %s: %w", path, err)
	}
	if err := terminateLastLine(f); err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("write pool %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	for _, e := range fresh {
		if err := w.Write([]string{e}); err != nil {
			f.Close()
			return nil, 0, fmt.Errorf("write pool %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("write pool %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, 0, fmt.Errorf("close pool %s: %w", path, err)
	}

	logging.Library("appended %d fragments to %s", len(fresh), path)
	return append(pool, fresh...), len(fresh), nil
}

// terminateLastLine writes a newline to f when it is non-empty and does not
// already end in one, so appended rows start on their own line.
func terminateLastLine(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}
	_, err = f.Write([]byte{'\n'})
	return err
}
