package subtitle

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// compose draws block onto base with its top-left corner at (row, col).
// Leading and trailing spaces of block lines leave the base visible. Both
// strings may carry ANSI styling.
func compose(base, block string, row, col, width int) string {
	baseLines := strings.Split(base, "\n")

	for i, blockLine := range strings.Split(block, "\n") {
		target := row + i
		if target < 0 || target >= len(baseLines) {
			continue
		}

		// Strip ANSI to find visible content bounds
		plain := ansi.Strip(blockLine)
		if strings.TrimSpace(plain) == "" {
			continue
		}

		lead := len(plain) - len(strings.TrimLeft(plain, " "))
		trimmed := strings.TrimRight(plain, " ")
		visible := ansi.StringWidth(trimmed[lead:])

		startCol := max(col+lead, 0)
		endCol := min(startCol+visible, width)
		if startCol >= endCol {
			continue
		}
		content := ansi.Cut(blockLine, lead, lead+(endCol-startCol))

		baseLine := baseLines[target]
		if w := ansi.StringWidth(baseLine); w < width {
			baseLine += strings.Repeat(" ", width-w)
		}

		result := ansi.Cut(baseLine, 0, startCol) + content
		if endCol < width {
			result += ansi.Cut(baseLine, endCol, width)
		}
		baseLines[target] = result
	}

	return strings.Join(baseLines, "\n")
}

// anchor returns the top-left corner of a w×h block centred on the point at
// x%, y% of a width×height canvas, kept inside the canvas.
func anchor(x, y float64, w, h, width, height int) (row, col int) {
	cx := int(x / 100 * float64(width))
	cy := int(y / 100 * float64(height))
	col = max(0, min(cx-w/2, width-w))
	row = max(0, min(cy-h/2, height-h))
	return row, col
}
