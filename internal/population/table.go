package population

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"elcs/internal/logging"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// Table is a header row plus data rows read from an export. Rows may be ragged.
type Table struct {
	Headers []string
	Rows    [][]string
}

// ReadTable reads a CSV or, for ".xlsx" paths, the first worksheet of an
// Excel workbook.
func ReadTable(path string) (*Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSX(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV reads a headed CSV table.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return newTable(rows)
}

// ReadXLSX reads the first worksheet of an Excel workbook.
func ReadXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheets[0], err)
	}
	return newTable(rows)
}

func newTable(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("table has no header row")
	}
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	return &Table{Headers: headers, Rows: rows[1:]}, nil
}

// Column finds a column: the first exact match among preferred, else the
// first header containing every one of contains (case-insensitive). It
// returns -1 when nothing matches.
func (t *Table) Column(preferred []string, contains ...string) int {
	for _, name := range preferred {
		for i, h := range t.Headers {
			if h == name {
				return i
			}
		}
	}
	if len(contains) == 0 {
		return -1
	}
	for i, h := range t.Headers {
		lower := strings.ToLower(h)
		all := true
		for _, k := range contains {
			if !strings.Contains(lower, strings.ToLower(k)) {
				all = false
				break
			}
		}
		if all {
			return i
		}
	}
	return -1
}

// ConditionColumn locates the condition column, falling back to column 0.
func (t *Table) ConditionColumn() int {
	if c := t.Column([]string{"Specified Values", "Code Fragments", ColCondition}); c >= 0 {
		return c
	}
	return 0
}

// Cell returns row's value at col, or "" when out of range.
func (t *Table) Cell(row, col int) string {
	if col < 0 || row < 0 || row >= len(t.Rows) || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// Float parses row's value at col. Missing or non-numeric cells are NaN.
func (t *Table) Float(row, col int) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(t.Cell(row, col)), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func (t *Table) intAt(row, col int) int {
	f := t.Float(row, col)
	if math.IsNaN(f) {
		return 0
	}
	return int(f)
}

func (t *Table) floatAt(row, col int) float64 {
	f := t.Float(row, col)
	if math.IsNaN(f) {
		return 0
	}
	return f
}

// Records decodes every row. Columns are located by name, so tables written
// by other tools load as long as their headers are recognizable; absent
// numeric columns read as zero.
func (t *Table) Records() []Record {
	var (
		cond     = t.ConditionColumn()
		pheno    = t.Column([]string{ColPhenotype}, "phenotype")
		fitness  = t.Column([]string{ColFitness}, "fitness")
		accuracy = t.Column([]string{ColAccuracy}, "accuracy")
		matches  = t.Column([]string{ColMatchCount}, "match", "count")
		num      = t.Column([]string{ColNumerosity}, "numerosity")
		correct  = t.Column([]string{ColCorrectCount}, "correct", "count")
		aveSize  = t.Column([]string{ColAveMatchSetSize}, "match set size")
		initTS   = t.Column([]string{ColInitTimeStamp}, "init", "stamp")
		gaTS     = t.Column([]string{ColTimeStampGA}, "stamp", "ga")
	)

	out := make([]Record, len(t.Rows))
	for r := range t.Rows {
		out[r] = Record{
			Condition:       t.Cell(r, cond),
			Phenotype:       t.Cell(r, pheno),
			Fitness:         t.floatAt(r, fitness),
			Accuracy:        t.floatAt(r, accuracy),
			Numerosity:      t.intAt(r, num),
			MatchCount:      t.intAt(r, matches),
			CorrectCount:    t.intAt(r, correct),
			AveMatchSetSize: t.floatAt(r, aveSize),
			InitTimeStamp:   t.intAt(r, initTS),
			TimeStampGA:     t.intAt(r, gaTS),
		}
	}
	return out
}

// WriteCSV writes records under Headers.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(r.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes records to a single-sheet workbook with typed numeric cells.
func WriteXLSX(path string, records []Record) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}
	for r, rec := range records {
		for c, v := range rec.values() {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return err
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// WriteFile exports records to path as XLSX for ".xlsx" paths, CSV otherwise.
func WriteFile(path string, records []Record) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		if err := WriteXLSX(path, records); err != nil {
			return err
		}
	} else {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := WriteCSV(f, records); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	logging.PopulationDebug("exported %d classifiers to %s", len(records), path)
	return nil
}
