package subtitle

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// wrapText breaks text into lines no wider than width columns, at Unicode
// line break opportunities. Explicit newlines are kept. A segment wider
// than width is truncated.
func wrapText(text string, width int) []string {
	if width <= 0 {
		return nil
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		lines = append(lines, wrapParagraph(paragraph, width)...)
	}
	return lines
}

func wrapParagraph(text string, width int) []string {
	var (
		lines []string
		line  strings.Builder
		cols  int
		state = -1
	)
	flush := func() {
		lines = append(lines, strings.TrimRight(line.String(), " "))
		line.Reset()
		cols = 0
	}

	rest := text
	for rest != "" {
		var segment string
		segment, rest, _, state = uniseg.FirstLineSegmentInString(rest, state)

		w := runewidth.StringWidth(strings.TrimRight(segment, " "))
		if cols > 0 && cols+w > width {
			flush()
		}
		if w > width {
			segment = runewidth.Truncate(segment, width, "…")
		}
		line.WriteString(segment)
		cols += runewidth.StringWidth(segment)
	}
	if line.Len() > 0 || len(lines) == 0 {
		flush()
	}
	return lines
}
