package web

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// previewTable renders a cell grid, header row first, as an HTML table.
func previewTable(layoutKey string, grid [][]string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<table class="preview" data-layout="`)
		b.WriteString(templ.EscapeString(layoutKey))
		b.WriteString(`">`)

		if len(grid) > 0 {
			b.WriteString("<thead><tr>")
			for _, h := range grid[0] {
				b.WriteString("<th>")
				b.WriteString(templ.EscapeString(h))
				b.WriteString("</th>")
			}
			b.WriteString("</tr></thead>")
		}

		b.WriteString("<tbody>")
		for _, row := range grid[min(1, len(grid)):] {
			b.WriteString("<tr>")
			for _, cell := range row {
				b.WriteString("<td>")
				b.WriteString(templ.EscapeString(cell))
				b.WriteString("</td>")
			}
			b.WriteString("</tr>")
		}
		b.WriteString("</tbody></table>")

		_, err := io.WriteString(w, b.String())
		return err
	})
}
