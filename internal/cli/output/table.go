// Package output renders tabular data for CLI commands.
package output

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// TableRenderer is implemented by types that can render themselves as a table.
type TableRenderer interface {
	Headers() []string
	Rows() [][]string
}

// TableData is an ad-hoc TableRenderer built row by row.
type TableData struct {
	headers []string
	rows    [][]string
}

// NewTableData returns an empty table with the given column headers.
func NewTableData(headers ...string) *TableData {
	return &TableData{headers: headers}
}

// AddRow appends a data row.
func (t *TableData) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Headers implements TableRenderer.
func (t *TableData) Headers() []string { return t.headers }

// Rows implements TableRenderer.
func (t *TableData) Rows() [][]string { return t.rows }

// PrintTable writes data to w as a borderless left-aligned table.
func PrintTable(w io.Writer, data TableRenderer) error {
	table := newPlainTable(w, "")
	table.SetHeader(data.Headers())
	table.SetAutoFormatHeaders(true)
	table.AppendBulk(data.Rows())
	table.Render()
	return nil
}

// SimpleTable writes key-value pairs to w, one per line, with the key and
// value separated by a colon.
func SimpleTable(w io.Writer, pairs [][2]string) error {
	table := newPlainTable(w, ":")
	for _, pair := range pairs {
		table.Append([]string{pair[0], pair[1]})
	}
	table.Render()
	return nil
}

// newPlainTable strips tablewriter's default borders and separators so
// output reads like aligned plain text.
func newPlainTable(w io.Writer, columnSep string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator(columnSep)
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}
