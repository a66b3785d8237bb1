package excel

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"rmanova/domain/tensor"
	"rmanova/internal/logging"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	sheets   []string
	logger   *slog.Logger
}

// ReaderOption configures a DataReader
type ReaderOption func(*DataReader)

// WithSheets limits an xlsx read to the named sheets, in the given order
func WithSheets(names ...string) ReaderOption {
	return func(r *DataReader) { r.sheets = names }
}

// WithLogger sets the reader logger
func WithLogger(l *slog.Logger) ReaderOption {
	return func(r *DataReader) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string, opts ...ReaderOption) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	r := &DataReader{filePath: filePath, fileType: fileType, logger: logging.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read loads the observation array. Every xlsx sheet is one (subjects,
// conditions) slice; with more than one sheet the slices are stacked on a
// trailing axis.
func (r *DataReader) Read() (*Dataset, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	start := time.Now()
	var (
		ds  *Dataset
		err error
	)
	switch r.fileType {
	case "csv":
		ds, err = r.readCSV()
	default:
		ds, err = r.readExcel()
	}
	if err != nil {
		return nil, err
	}

	r.logger.Info("observations loaded",
		"file", r.filePath,
		"shape", ds.Data.Shape(),
		"duration_ms", float64(time.Since(start).Microseconds())/1e3)
	return ds, nil
}

func (r *DataReader) readExcel() (*Dataset, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	names := r.sheets
	if len(names) == 0 {
		names = f.GetSheetList()
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", r.filePath)
	}

	var (
		slices []*tensor.Dense
		first  *sheetData
	)
	for _, name := range names {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		sd, err := parseRows(rows)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
		if first == nil {
			first = sd
		} else if sd.matrix.Dim(0) != first.matrix.Dim(0) || sd.matrix.Dim(1) != first.matrix.Dim(1) {
			return nil, fmt.Errorf("sheet %q is %dx%d, sheet %q is %dx%d; all sheets must share one design",
				name, sd.matrix.Dim(0), sd.matrix.Dim(1), names[0], first.matrix.Dim(0), first.matrix.Dim(1))
		} else if !equalLabels(sd.conditions, first.conditions) {
			r.logger.Warn("condition headers differ between sheets, using the first sheet's",
				"sheet", name, "headers", sd.conditions)
		}
		slices = append(slices, sd.matrix)
	}

	data := slices[0]
	if len(slices) > 1 {
		if data, err = tensor.Stack(slices...); err != nil {
			return nil, err
		}
	}
	return &Dataset{
		Data:       data,
		Conditions: first.conditions,
		Subjects:   first.subjects,
		Slices:     append([]string(nil), names...),
	}, nil
}

func (r *DataReader) readCSV() (*Dataset, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	sd, err := parseRows(rows)
	if err != nil {
		return nil, err
	}
	return &Dataset{Data: sd.matrix, Conditions: sd.conditions, Subjects: sd.subjects}, nil
}

type sheetData struct {
	matrix     *tensor.Dense
	conditions []string
	subjects   []string
}

// parseRows turns a header row plus one row per subject into a matrix
func parseRows(rows [][]string) (*sheetData, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("need a header row and at least one subject row")
	}

	header := rows[0]
	offset := 0
	if len(header) > 0 && strings.EqualFold(strings.TrimSpace(header[0]), SubjectColumn) {
		offset = 1
	}
	conditions := make([]string, 0, len(header)-offset)
	for _, h := range header[offset:] {
		conditions = append(conditions, strings.TrimSpace(h))
	}
	if len(conditions) == 0 {
		return nil, fmt.Errorf("header has no condition columns")
	}

	var (
		values   [][]float64
		subjects []string
	)
	for r, row := range rows[1:] {
		if blank(row) {
			continue
		}
		line := r + 2
		if len(row) < offset+len(conditions) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", line, len(row), offset+len(conditions))
		}
		if offset == 1 {
			subjects = append(subjects, strings.TrimSpace(row[0]))
		} else {
			subjects = append(subjects, strconv.Itoa(len(subjects)+1))
		}
		vals := make([]float64, len(conditions))
		for j := range conditions {
			cell := strings.TrimSpace(row[offset+j])
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %q is not a number", line, conditions[j], cell)
			}
			vals[j] = v
		}
		values = append(values, vals)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no subject rows")
	}

	matrix, err := tensor.FromMatrix(values)
	if err != nil {
		return nil, err
	}
	return &sheetData{matrix: matrix, conditions: conditions, subjects: subjects}, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func equalLabels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
