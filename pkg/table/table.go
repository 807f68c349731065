package table

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// getTerminalSize returns the terminal width and height
func getTerminalSize() (width, height int) {
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		return w, h
	}
	return 120, 30
}

// TableStyle defines the visual styling for tables
type TableStyle struct {
	Header    lipgloss.Style
	Cell      lipgloss.Style
	Separator string
}

// PlainTableStyle returns a plain table style with no colors
func PlainTableStyle() TableStyle {
	return TableStyle{
		Header:    lipgloss.NewStyle().Bold(true).PaddingRight(2),
		Cell:      lipgloss.NewStyle().PaddingRight(2),
		Separator: "",
	}
}

// StyledTableStyle returns a colorful table style
func StyledTableStyle() TableStyle {
	return TableStyle{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			PaddingRight(2),
		Cell:      lipgloss.NewStyle().PaddingRight(2),
		Separator: "",
	}
}

// Table renders rows of cells in aligned columns
type Table struct {
	headers   []string
	rows      [][]string
	style     TableStyle
	alignment []lipgloss.Position
	maxWidth  int
}

// NewTable creates a new table with plain styling, as wide as the terminal
func NewTable() *Table {
	w, _ := getTerminalSize()
	return &Table{style: PlainTableStyle(), maxWidth: w}
}

// NewStyledTable creates a new table with colorful styling
func NewStyledTable() *Table {
	t := NewTable()
	t.style = StyledTableStyle()
	return t
}

// SetHeaders sets the table headers
func (t *Table) SetHeaders(headers ...string) {
	t.headers = headers
	if len(t.alignment) < len(headers) {
		for i := len(t.alignment); i < len(headers); i++ {
			t.alignment = append(t.alignment, lipgloss.Left)
		}
	}
}

// SetColumnAlignment sets the alignment of column i
func (t *Table) SetColumnAlignment(i int, align lipgloss.Position) {
	for len(t.alignment) <= i {
		t.alignment = append(t.alignment, lipgloss.Left)
	}
	t.alignment[i] = align
}

// SetMaxWidth caps the rendered width; the last column is truncated to fit
func (t *Table) SetMaxWidth(w int) {
	t.maxWidth = w
}

// AppendRow adds a single row to the table
func (t *Table) AppendRow(row ...string) {
	t.rows = append(t.rows, row)
}

// Len returns the number of data rows
func (t *Table) Len() int { return len(t.rows) }

func (t *Table) columns() int {
	n := len(t.headers)
	for _, row := range t.rows {
		if len(row) > n {
			n = len(row)
		}
	}
	return n
}

// widths measures each column with lipgloss.Width so colored cells line up
func (t *Table) widths() []int {
	widths := make([]int, t.columns())
	measure := func(row []string) {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(t.headers)
	for _, row := range t.rows {
		measure(row)
	}

	if t.maxWidth > 0 && len(widths) > 0 {
		used := 0
		for _, w := range widths[:len(widths)-1] {
			used += w + t.style.Cell.GetPaddingRight() + len(t.style.Separator)
		}
		if last := t.maxWidth - used; last > 0 && widths[len(widths)-1] > last {
			widths[len(widths)-1] = last
		}
	}
	return widths
}

func (t *Table) renderRow(row []string, widths []int, style lipgloss.Style) string {
	cells := make([]string, len(widths))
	for i, width := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		align := lipgloss.Left
		if i < len(t.alignment) {
			align = t.alignment[i]
		}
		s := style.Width(width + style.GetPaddingRight()).Align(align)
		if i == len(widths)-1 {
			s = s.UnsetPaddingRight().UnsetWidth().MaxWidth(width)
		}
		cells[i] = s.Render(cell)
	}
	return strings.TrimRight(strings.Join(cells, t.style.Separator), " ")
}

// Render generates the complete table as a string
func (t *Table) Render() string {
	if len(t.headers) == 0 && len(t.rows) == 0 {
		return ""
	}
	widths := t.widths()

	var sb strings.Builder
	if len(t.headers) > 0 {
		sb.WriteString(t.renderRow(t.headers, widths, t.style.Header))
		sb.WriteString("\n")
	}
	for _, row := range t.rows {
		sb.WriteString(t.renderRow(row, widths, t.style.Cell))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Print writes the rendered table to w
func (t *Table) Print(w io.Writer) error {
	_, err := fmt.Fprint(w, t.Render())
	return err
}
