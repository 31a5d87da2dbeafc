package output

import (
	"io"
	"strings"
	"text/tabwriter"
)

// Table represents tabular data.
type Table struct {
	Headers []string
	Rows    [][]string
}

// NewTable creates a table with the given headers.
func NewTable(headers ...string) *Table {
	return &Table{Headers: headers}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render renders the table to the writer.
func (t *Table) Render(w io.Writer) error {
	return t.RenderWithOptions(w, false)
}

// RenderWithOptions renders the table, optionally without the header row.
func (t *Table) RenderWithOptions(w io.Writer, noHeaders bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if !noHeaders && len(t.Headers) > 0 {
		if _, err := io.WriteString(tw, strings.Join(t.Headers, "\t")+"\n"); err != nil {
			return err
		}
	}
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = cellText(cell)
		}
		if _, err := io.WriteString(tw, strings.Join(cells, "\t")+"\n"); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// cellText keeps control characters from breaking the layout.
func cellText(s string) string {
	if s == "" {
		return "-"
	}
	return strings.NewReplacer("\t", `\t`, "\r", `\r`, "\n", `\n`).Replace(s)
}
