// Package excel ingests foci tables from spreadsheet files. Expected
// columns, with a header row: study, x, y, z, n. Rows sharing a study
// name form one study; the subject count must agree across its rows.
package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tamarajafar/NeuroMeta/domain/core"
	"github.com/tamarajafar/NeuroMeta/domain/study"
)

// FociReader reads Excel and CSV foci tables.
type FociReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewFociReader creates a reader; the file type follows the extension.
func NewFociReader(filePath string) *FociReader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(filePath)) == ".csv" {
		fileType = "csv"
	}
	return &FociReader{filePath: filePath, fileType: fileType}
}

// ReadStudies implements ports.StudySource.
func (r *FociReader) ReadStudies(ctx context.Context) ([]study.Study, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("foci table not found: %s", r.filePath)
	}
	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	default:
		rows, err = r.readExcelRows()
	}
	if err != nil {
		return nil, err
	}
	return parseRows(rows)
}

func (r *FociReader) readCSVRows() ([][]string, error) {
	f, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

func (r *FociReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", core.ErrMalformedFociTable)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	return rows, nil
}

// parseRows converts the raw table into studies, preserving first-seen
// study order and verifying the sample size is consistent per study.
func parseRows(rows [][]string) ([]study.Study, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: need a header row plus at least one focus row", core.ErrMalformedFociTable)
	}
	cols, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	order := []string{}
	byName := map[string]*study.Study{}
	for line, row := range rows[1:] {
		if emptyRow(row) {
			continue
		}
		name, err := cell(row, cols["study"])
		if err != nil {
			return nil, rowErr(line, err)
		}
		x, err := floatCell(row, cols["x"])
		if err != nil {
			return nil, rowErr(line, err)
		}
		y, err := floatCell(row, cols["y"])
		if err != nil {
			return nil, rowErr(line, err)
		}
		z, err := floatCell(row, cols["z"])
		if err != nil {
			return nil, rowErr(line, err)
		}
		n, err := intCell(row, cols["n"])
		if err != nil {
			return nil, rowErr(line, err)
		}

		s, ok := byName[name]
		if !ok {
			s = &study.Study{Name: name, SampleSize: n}
			byName[name] = s
			order = append(order, name)
		} else if s.SampleSize != n {
			return nil, fmt.Errorf("%w: study %q has conflicting sample sizes %d and %d",
				core.ErrMalformedFociTable, name, s.SampleSize, n)
		}
		s.Foci = append(s.Foci, study.Focus{X: x, Y: y, Z: z})
	}

	out := make([]study.Study, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out, nil
}

func headerIndex(header []string) (map[string]int, error) {
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, want := range []string{"study", "x", "y", "z", "n"} {
		if _, ok := cols[want]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", core.ErrMalformedFociTable, want)
		}
	}
	return cols, nil
}

func emptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, i int) (string, error) {
	if i >= len(row) || strings.TrimSpace(row[i]) == "" {
		return "", fmt.Errorf("%w: missing value in column %d", core.ErrMalformedFociTable, i)
	}
	return strings.TrimSpace(row[i]), nil
}

func floatCell(row []string, i int) (float64, error) {
	s, err := cell(row, i)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", core.ErrMalformedFociTable, s)
	}
	return v, nil
}

func intCell(row []string, i int) (int, error) {
	s, err := cell(row, i)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", core.ErrMalformedFociTable, s)
	}
	return v, nil
}

func rowErr(line int, err error) error {
	// line is zero-based over data rows; report the spreadsheet row.
	return fmt.Errorf("row %d: %w", line+2, err)
}
