package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/plot"

	"rosterkit/internal/config"
)

func TestThemeFromConfig(t *testing.T) {
	tests := []struct {
		name  string
		theme string
		want  string
	}{
		{name: "light", theme: "light", want: "light"},
		{name: "dark", theme: "dark", want: "dark"},
		{name: "unknown falls back to light", theme: "sepia", want: "light"},
		{name: "empty falls back to light", theme: "", want: "light"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ThemeFromConfig(config.ReportConfig{Theme: tt.theme})
			assert.Equal(t, tt.want, got.Name)
		})
	}
}

func TestThemeStyle(t *testing.T) {
	theme := DarkTheme()
	p := plot.New()
	theme.Style(p)

	assert.Equal(t, theme.Background, p.BackgroundColor)
	assert.Equal(t, theme.Foreground, p.Title.TextStyle.Color)
	assert.Equal(t, theme.Foreground, p.X.Tick.Label.Color)
	assert.Equal(t, theme.Foreground, p.Y.Label.TextStyle.Color)
	assert.Equal(t, theme.Foreground, p.Y.LineStyle.Color)
}

func TestThemesDiffer(t *testing.T) {
	light, dark := LightTheme(), DarkTheme()

	assert.NotEqual(t, light.Background, dark.Background)
	assert.NotEqual(t, light.Foreground, dark.Foreground)
	assert.NotEqual(t, light.ECharts, dark.ECharts)
}
