package report

import (
	"image/color"

	"github.com/go-echarts/go-echarts/v2/types"
	"gonum.org/v1/plot"

	"rosterkit/internal/config"
)

// Theme is the styling value every renderer receives. The PNG charts use
// the color fields directly; the HTML dashboard maps to the named echarts
// theme.
type Theme struct {
	Name       string
	Background color.Color
	Foreground color.Color
	Series     color.Color
	ECharts    string
}

// LightTheme is the default palette.
func LightTheme() Theme {
	return Theme{
		Name:       "light",
		Background: color.White,
		Foreground: color.RGBA{R: 0x21, G: 0x21, B: 0x21, A: 0xFF},
		Series:     color.RGBA{R: 0x42, G: 0x85, B: 0xF4, A: 0xFF},
		ECharts:    string(types.ThemeWesteros),
	}
}

// DarkTheme renders the same chart set light-on-dark.
func DarkTheme() Theme {
	return Theme{
		Name:       "dark",
		Background: color.RGBA{R: 0x12, G: 0x12, B: 0x12, A: 0xFF},
		Foreground: color.RGBA{R: 0xE0, G: 0xE0, B: 0xE0, A: 0xFF},
		Series:     color.RGBA{R: 0x64, G: 0xB5, B: 0xF6, A: 0xFF},
		ECharts:    string(types.ThemeChalk),
	}
}

// ThemeFromConfig resolves the configured theme name. Config validation
// only admits light and dark; anything else falls back to light.
func ThemeFromConfig(cfg config.ReportConfig) Theme {
	if cfg.Theme == "dark" {
		return DarkTheme()
	}
	return LightTheme()
}

// Style applies the palette to a plot: canvas background plus title, axis
// line, label and tick colors.
func (t Theme) Style(p *plot.Plot) {
	p.BackgroundColor = t.Background
	p.Title.TextStyle.Color = t.Foreground
	p.Legend.TextStyle.Color = t.Foreground
	for _, ax := range []*plot.Axis{&p.X, &p.Y} {
		ax.Label.TextStyle.Color = t.Foreground
		ax.LineStyle.Color = t.Foreground
		ax.Tick.Label.Color = t.Foreground
		ax.Tick.LineStyle.Color = t.Foreground
	}
}
