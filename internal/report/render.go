package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/nvandessel/gridsweep/internal/summary"
	"github.com/nvandessel/gridsweep/internal/table"
)

var (
	colorAccent = lipgloss.Color("#20B9B4")
	colorMuted  = lipgloss.Color("#2C4A54")

	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	missingStyle = cellStyle.Foreground(colorMuted)
)

// missingCell marks a statistic without a value.
const missingCell = "-"

// RenderSummary writes the summary as a table. Styled output uses a rounded
// border and colored header; plain output sticks to ASCII.
func RenderSummary(w io.Writer, sum *summary.Table, styled bool) error {
	if sum.Len() == 0 {
		_, err := fmt.Fprintln(w, "No summary rows.")
		return err
	}

	headers := append([]string{table.ColumnArrivalRate, table.ColumnController}, sum.Columns...)
	rows := make([][]string, 0, sum.Len())
	for _, r := range sum.Rows {
		cells := []string{formatFloat(r.ArrivalRate), r.Controller}
		for _, c := range sum.Columns {
			if v, ok := r.Value(c); ok {
				cells = append(cells, formatFloat(v))
			} else {
				cells = append(cells, missingCell)
			}
		}
		rows = append(rows, cells)
	}

	t := ltable.New().Headers(headers...).Rows(rows...)
	if styled {
		t = t.Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(colorMuted)).
			StyleFunc(func(row, col int) lipgloss.Style {
				switch {
				case row == ltable.HeaderRow:
					return headerStyle
				case col >= 2 && rows[row][col] == missingCell:
					return missingStyle
				default:
					return cellStyle
				}
			})
	} else {
		t = t.Border(lipgloss.ASCIIBorder()).
			StyleFunc(func(row, col int) lipgloss.Style { return cellStyle })
	}

	_, err := fmt.Fprintln(w, t.String())
	return err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
