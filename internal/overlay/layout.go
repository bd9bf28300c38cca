package overlay

// Fallback keys used when a cue names an unknown position or style.
const (
	DefaultPosition = "bottom"
	DefaultStyle    = "default"
)

// Placement is a screen anchor in percent of the surface size.
type Placement struct {
	X float64 `json:"x" koanf:"x"`
	Y float64 `json:"y" koanf:"y"`
}

// Style describes how subtitle text is drawn. Values follow CSS notation
// ("24px", "#ffffff", "rgba(0,0,0,0.8)").
type Style struct {
	FontSize        string `json:"fontSize"        koanf:"font_size"`
	Color           string `json:"color"           koanf:"color"`
	BackgroundColor string `json:"backgroundColor" koanf:"background_color"`
	FontFamily      string `json:"fontFamily"      koanf:"font_family"`
}

// Layout is the display configuration supplied by the host.
type Layout struct {
	Positions map[string]Placement `json:"Positions" koanf:"positions"`
	Styles    map[string]Style     `json:"Styles"    koanf:"styles"`
}

// IsZero reports whether the layout carries no entries at all.
func (l Layout) IsZero() bool {
	return len(l.Positions) == 0 && len(l.Styles) == 0
}

// Resolve looks up a position and a style, falling back to the default keys.
// ok is false when neither the key nor its fallback exists.
func (l Layout) Resolve(position, style string) (p Placement, s Style, ok bool) {
	p, pok := l.Positions[position]
	if !pok {
		p, pok = l.Positions[DefaultPosition]
	}
	s, sok := l.Styles[style]
	if !sok {
		s, sok = l.Styles[DefaultStyle]
	}
	return p, s, pok && sok
}

// DefaultLayout returns the layout used when none is configured.
func DefaultLayout() Layout {
	return Layout{
		Positions: map[string]Placement{
			"top":    {X: 50, Y: 10},
			"center": {X: 50, Y: 50},
			"bottom": {X: 50, Y: 85},
		},
		Styles: map[string]Style{
			"default": {
				FontSize:        "24px",
				Color:           "#ffffff",
				BackgroundColor: "rgba(0,0,0,0.7)",
				FontFamily:      "Arial, sans-serif",
			},
			"warning": {
				FontSize:        "26px",
				Color:           "#ffd84d",
				BackgroundColor: "rgba(0,0,0,0.8)",
				FontFamily:      "Arial, sans-serif",
			},
		},
	}
}
