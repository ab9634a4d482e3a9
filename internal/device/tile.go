package device

import (
	"html"
	"strings"
)

// Row is one line of the summary tile: a label, a formatted value and a
// display unit. Rendering is kept separate from reading processing so the
// tile markup can be tested on its own.
type Row struct {
	Label string
	Value string
	Unit  string
}

// TileAttribute is the attribute name the rendered summary is published under
const TileAttribute = "tile"

// RenderTile renders rows into the HTML table shown on dashboards.
// An empty row set renders an empty table shell.
func RenderTile(rows []Row) string {
	var b strings.Builder
	b.WriteString(`<table class="airthings">`)
	for _, row := range rows {
		b.WriteString("<tr><td>")
		b.WriteString(html.EscapeString(row.Label))
		b.WriteString("</td><td>")
		b.WriteString(html.EscapeString(row.Value))
		if row.Unit != "" {
			b.WriteByte(' ')
			b.WriteString(html.EscapeString(row.Unit))
		}
		b.WriteString("</td></tr>")
	}
	b.WriteString("</table>")
	return b.String()
}
