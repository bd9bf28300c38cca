package subtitle

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

var namedColors = map[string]string{
	"white":  "#ffffff",
	"black":  "#000000",
	"red":    "#ff0000",
	"green":  "#008000",
	"blue":   "#0000ff",
	"yellow": "#ffff00",
	"orange": "#ffa500",
	"gray":   "#808080",
	"grey":   "#808080",
	"cyan":   "#00ffff",
}

// parseColor converts a CSS color ("#fff", "#ffd84d", "rgb(...)",
// "rgba(...)" or a basic name) to a terminal color. Translucent colors are
// blended onto black. ok is false for unparseable or fully transparent
// values.
func parseColor(css string) (lipgloss.Color, bool) {
	s := strings.ToLower(strings.TrimSpace(css))
	if hex, ok := namedColors[s]; ok {
		s = hex
	}

	var c colorful.Color
	switch {
	case strings.HasPrefix(s, "#"):
		if len(s) == 4 {
			s = "#" + strings.Repeat(s[1:2], 2) + strings.Repeat(s[2:3], 2) + strings.Repeat(s[3:4], 2)
		}
		parsed, err := colorful.Hex(s)
		if err != nil {
			return "", false
		}
		c = parsed
	case strings.HasPrefix(s, "rgb"):
		parsed, alpha, ok := parseRGBFunc(s)
		if !ok || alpha <= 0 {
			return "", false
		}
		c = colorful.Color{}.BlendRgb(parsed, alpha)
	default:
		return "", false
	}
	return lipgloss.Color(c.Clamped().Hex()), true
}

// parseRGBFunc parses rgb(r,g,b) and rgba(r,g,b,a).
func parseRGBFunc(s string) (colorful.Color, float64, bool) {
	open := strings.IndexByte(s, '(')
	end := strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return colorful.Color{}, 0, false
	}
	parts := strings.Split(s[open+1:end], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return colorful.Color{}, 0, false
	}

	var ch [3]float64
	for i := range 3 {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return colorful.Color{}, 0, false
		}
		ch[i] = max(0, min(255, v)) / 255
	}
	alpha := 1.0
	if len(parts) == 4 {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return colorful.Color{}, 0, false
		}
		alpha = max(0, min(1, v))
	}
	return colorful.Color{R: ch[0], G: ch[1], B: ch[2]}, alpha, true
}

// fontPixels extracts the pixel size of a CSS font size such as "24px".
func fontPixels(size string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(size), "px"))
	if err != nil {
		return 0
	}
	return n
}
