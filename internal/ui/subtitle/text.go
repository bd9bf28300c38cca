package subtitle

import "github.com/mattn/go-runewidth"

func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}
