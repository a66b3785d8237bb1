package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"rmanova/internal/anova"
	"rmanova/internal/oracle"
)

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	return tbl
}

// Label names batch cell index: labels[i] for a one-dimensional batch when
// available, the comma-joined index otherwise, "all" for a scalar result.
func Label(index []int, labels []string) string {
	if len(index) == 0 {
		return "all"
	}
	if len(index) == 1 && index[0] < len(labels) {
		return labels[index[0]]
	}
	parts := make([]string, len(index))
	for i, v := range index {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// Results renders one row per batch cell, with at most limit rows (0 means
// all).
func Results(res *anova.Result, labels []string, limit int) string {
	tbl := newTable()
	tbl.SetTitle(fmt.Sprintf("rm-ANOVA  n=%d  k=%d  df=(%d, %d)",
		res.Subjects, res.Conditions, res.DFCondition, res.DFError))
	tbl.AppendHeader(table.Row{"cell", "SS condition", "SS error", "F", "p"})

	rows := res.Len()
	if limit > 0 && limit < rows {
		rows = limit
	}
	for b := 0; b < rows; b++ {
		c := res.Cell(b)
		tbl.AppendRow(table.Row{
			Label(c.Index, labels),
			formatFloat(c.SSCondition),
			formatFloat(c.SSError),
			formatFloat(c.F),
			formatP(c.P),
		})
	}
	if rows < res.Len() {
		tbl.AppendFooter(table.Row{fmt.Sprintf("%d more cells", res.Len()-rows)})
	}
	return tbl.Render()
}

// SourceTable renders the full decomposition of one batch cell.
func SourceTable(c anova.CellSummary) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"source", "SS", "df", "MS", "F", "p"})
	tbl.AppendRows([]table.Row{
		{"condition", formatFloat(c.SSCondition), c.DFCondition, formatFloat(c.MSCondition), formatFloat(c.F), formatP(c.P)},
		{"subject", formatFloat(c.SSSubject), "", "", "", ""},
		{"error", formatFloat(c.SSError), c.DFError, formatFloat(c.MSError), "", ""},
		{"total", formatFloat(c.SSTotal), "", "", "", ""},
	})
	return tbl.Render()
}

// Verification renders engine/oracle agreement and condition descriptives.
func Verification(agreements []oracle.Agreement, labels []string) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"cell", "engine F", "oracle F", "engine p", "oracle p", "agree", "condition means"})
	for _, a := range agreements {
		means := make([]string, len(a.Summary))
		for i, s := range a.Summary {
			means[i] = fmt.Sprintf("%s=%.4g±%.3g", s.Condition, s.Mean, s.StdDev)
		}
		tbl.AppendRow(table.Row{
			Label(a.Index, labels),
			formatFloat(a.EngineF),
			formatFloat(a.OracleF),
			formatP(a.EngineP),
			formatP(a.OracleP),
			a.Agree,
			strings.Join(means, " "),
		})
	}
	return tbl.Render()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func formatP(p float64) string {
	if p < 1e-4 && p > 0 {
		return strconv.FormatFloat(p, 'e', 3, 64)
	}
	return strconv.FormatFloat(p, 'f', 5, 64)
}
