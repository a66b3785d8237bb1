package excel

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"rmanova/domain/tensor"
	"rmanova/internal/anova"
	"rmanova/internal/report"
)

// ResultsSheet is the sheet written by WriteResults
const ResultsSheet = "results"

// WriteResults writes one row per batch cell of res. Labels name the cells of
// a one-dimensional batch (typically the source sheet names); otherwise the
// multi-index is used.
func WriteResults(path string, res *anova.Result, labels []string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
		return fmt.Errorf("failed to name results sheet: %w", err)
	}
	header := []interface{}{"cell", "F", "p", "ss_total", "ss_subject", "ss_condition", "ss_error", "df_condition", "df_error"}
	if err := f.SetSheetRow(ResultsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for b := 0; b < res.Len(); b++ {
		c := res.Cell(b)
		row := []interface{}{
			report.Label(c.Index, labels),
			cellValue(c.F),
			cellValue(c.P),
			cellValue(c.SSTotal),
			cellValue(c.SSSubject),
			cellValue(c.SSCondition),
			cellValue(c.SSError),
			c.DFCondition,
			c.DFError,
		}
		addr, err := excelize.CoordinatesToCellName(1, b+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ResultsSheet, addr, &row); err != nil {
			return fmt.Errorf("failed to write cell %d: %w", b, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// Non-finite values have no spreadsheet number form.
func cellValue(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return v
}

// WriteMatrix writes an observation array readable by DataReader. xlsx takes
// a 2D matrix as one sheet or a 3D array as one sheet per trailing slice; csv
// takes a 2D matrix only.
func WriteMatrix(path string, data *tensor.Dense, conditions, slices []string) error {
	if data.Rank() != 2 && data.Rank() != 3 {
		return fmt.Errorf("can only write 2D or 3D arrays, got rank %d", data.Rank())
	}
	k := data.Dim(1)
	if len(conditions) != k {
		return fmt.Errorf("%d condition labels for %d conditions", len(conditions), k)
	}

	count := 1
	if data.Rank() == 3 {
		count = data.Dim(2)
	}
	matrices := make([]*tensor.Dense, count)
	if data.Rank() == 2 {
		matrices[0] = data
	} else {
		for t := range matrices {
			m, err := data.BatchSlice(t)
			if err != nil {
				return err
			}
			matrices[t] = m
		}
	}

	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		if count != 1 {
			return fmt.Errorf("csv holds a single 2D matrix, got %d slices", count)
		}
		return writeCSV(path, matrices[0], conditions)
	}
	return writeWorkbook(path, matrices, conditions, slices)
}

func matrixRows(m *tensor.Dense, conditions []string) [][]string {
	rows := [][]string{append([]string{SubjectColumn}, conditions...)}
	for i := 0; i < m.Dim(0); i++ {
		row := []string{strconv.Itoa(i + 1)}
		for j := 0; j < m.Dim(1); j++ {
			row = append(row, strconv.FormatFloat(m.At(i, j), 'g', -1, 64))
		}
		rows = append(rows, row)
	}
	return rows
}

func writeCSV(path string, m *tensor.Dense, conditions []string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.WriteAll(matrixRows(m, conditions)); err != nil {
		return fmt.Errorf("failed to write CSV file: %w", err)
	}
	return file.Close()
}

func writeWorkbook(path string, matrices []*tensor.Dense, conditions, slices []string) error {
	f := excelize.NewFile()
	defer f.Close()

	for t, m := range matrices {
		name := fmt.Sprintf("slice%d", t)
		if t < len(slices) {
			name = slices[t]
		}
		if t == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("failed to name sheet %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %q: %w", name, err)
		}

		header := []interface{}{SubjectColumn}
		for _, c := range conditions {
			header = append(header, c)
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return err
		}
		for i := 0; i < m.Dim(0); i++ {
			row := []interface{}{i + 1}
			for j := 0; j < m.Dim(1); j++ {
				row = append(row, m.At(i, j))
			}
			addr, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(name, addr, &row); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
