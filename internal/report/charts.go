package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/vgimg"

	"rosterkit/internal/config"
	"rosterkit/internal/errors"
	"rosterkit/internal/stats"
	"rosterkit/pkg/contracts/domain"
)

// Chart artifact file names, written under the visualizations directory.
const (
	AgeChartFile         = "age_distribution.png"
	SalaryChartFile      = "salary_distribution.png"
	CountryChartFile     = "country_breakdown.png"
	CorrelationChartFile = "correlation_heatmap.png"
)

// ChartRenderer draws the static PNG charts for a cleaned roster.
type ChartRenderer struct {
	paths  *config.Paths
	cfg    config.ReportConfig
	theme  Theme
	logger *slog.Logger
}

// NewChartRenderer creates a renderer themed from the report config. A nil
// logger falls back to slog.Default().
func NewChartRenderer(paths *config.Paths, cfg config.ReportConfig, logger *slog.Logger) *ChartRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChartRenderer{
		paths:  paths,
		cfg:    cfg,
		theme:  ThemeFromConfig(cfg),
		logger: logger,
	}
}

// RenderAll renders every static chart concurrently and returns the
// written file paths in embedding order: age, salary, country,
// correlation.
func (r *ChartRenderer) RenderAll(ctx context.Context, records []domain.EmployeeRecord) ([]string, error) {
	if len(records) == 0 {
		return nil, errors.NewRenderError("no records to chart", nil)
	}

	started := time.Now()

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { return r.RenderAgeHistogram(records) })
	g.Go(func() error { return r.RenderSalaryHistogram(records) })
	g.Go(func() error { return r.RenderCountryBar(records) })
	g.Go(func() error { return r.RenderCorrelationHeatmap(records) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	written := []string{
		r.paths.GetVisualizationPath(AgeChartFile),
		r.paths.GetVisualizationPath(SalaryChartFile),
		r.paths.GetVisualizationPath(CountryChartFile),
		r.paths.GetVisualizationPath(CorrelationChartFile),
	}

	r.logger.InfoContext(ctx, "charts rendered",
		slog.Int("charts", len(written)),
		slog.String("theme", r.theme.Name),
		slog.Duration("duration", time.Since(started)))

	return written, nil
}

// RenderAgeHistogram draws the age distribution.
func (r *ChartRenderer) RenderAgeHistogram(records []domain.EmployeeRecord) error {
	return r.renderHistogram(domain.ColumnAge, "Age Distribution", records, AgeChartFile)
}

// RenderSalaryHistogram draws the salary distribution.
func (r *ChartRenderer) RenderSalaryHistogram(records []domain.EmployeeRecord) error {
	return r.renderHistogram(domain.ColumnSalary, "Salary Distribution", records, SalaryChartFile)
}

func (r *ChartRenderer) renderHistogram(column, title string, records []domain.EmployeeRecord, file string) error {
	values := stats.NumericValues(records, column)
	if len(values) == 0 {
		return errors.NewRenderError(fmt.Sprintf("no %s values to chart", column), nil)
	}

	p := plot.New()
	r.theme.Style(p)
	p.Title.Text = title
	p.X.Label.Text = column
	p.Y.Label.Text = "Employees"

	hist, err := plotter.NewHist(plotter.Values(values), r.cfg.HistogramBins)
	if err != nil {
		return errors.NewRenderError(fmt.Sprintf("failed to build %s histogram", column), err)
	}
	hist.FillColor = r.theme.Series
	hist.LineStyle.Color = r.theme.Foreground
	p.Add(hist)

	return r.save(p, file)
}

// RenderCountryBar draws employee counts per country, largest first.
func (r *ChartRenderer) RenderCountryBar(records []domain.EmployeeRecord) error {
	counts := stats.CountryCounts(records)
	if len(counts) == 0 {
		return errors.NewRenderError("no countries to chart", nil)
	}

	values := make(plotter.Values, len(counts))
	names := make([]string, len(counts))
	for i, c := range counts {
		values[i] = float64(c.Count)
		names[i] = c.Value
	}

	p := plot.New()
	r.theme.Style(p)
	p.Title.Text = "Employees by Country"
	p.Y.Label.Text = "Employees"

	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return errors.NewRenderError("failed to build country bar chart", err)
	}
	bars.Color = r.theme.Series
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(names...)

	return r.save(p, CountryChartFile)
}

// corrGrid adapts a correlation matrix to the heat map grid interface.
type corrGrid struct {
	m domain.CorrelationMatrix
}

func (g corrGrid) Dims() (c, r int) { n := len(g.m.Columns); return n, n }
func (g corrGrid) Z(c, r int) float64 {
	return g.m.Values[r][c]
}
func (g corrGrid) X(c int) float64 { return float64(c) }
func (g corrGrid) Y(r int) float64 { return float64(r) }

// RenderCorrelationHeatmap draws the numeric-column correlation matrix.
// The color scale is pinned to [-1, 1] so hue is comparable across runs.
func (r *ChartRenderer) RenderCorrelationHeatmap(records []domain.EmployeeRecord) error {
	if len(records) == 0 {
		return errors.NewRenderError("no records to correlate", nil)
	}

	series := make([][]float64, len(domain.NumericColumns))
	for i, col := range domain.NumericColumns {
		series[i] = stats.NumericValues(records, col)
	}
	matrix := stats.Correlate(domain.NumericColumns, series)

	p := plot.New()
	r.theme.Style(p)
	p.Title.Text = "Correlation Matrix"

	heat := plotter.NewHeatMap(corrGrid{m: matrix}, palette.Heat(12, 1))
	heat.Min, heat.Max = -1, 1
	p.Add(heat)
	p.NominalX(matrix.Columns...)
	p.NominalY(matrix.Columns...)

	return r.save(p, CorrelationChartFile)
}

func (r *ChartRenderer) save(p *plot.Plot, file string) error {
	fullPath := r.paths.GetVisualizationPath(file)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return errors.NewStorageError("failed to create visualizations directory", err)
	}
	if err := p.Save(pixels(r.cfg.ChartWidth), pixels(r.cfg.ChartHeight), fullPath); err != nil {
		return errors.NewRenderError(fmt.Sprintf("failed to save %s", file), err)
	}
	return nil
}

// pixels converts a pixel count to the canvas length that rasterizes to
// exactly that many pixels at the PNG writer's DPI.
func pixels(px int) vg.Length {
	return vg.Length(px) * vg.Inch / vgimg.DefaultDPI
}
