package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"rosterkit/internal/config"
	"rosterkit/internal/errors"
	"rosterkit/internal/stats"
	"rosterkit/pkg/contracts/domain"
)

// DashboardFile is the interactive dashboard artifact, written to the
// output directory.
const DashboardFile = "interactive_dashboard.html"

// DashboardBuilder renders the interactive HTML dashboard: age and salary
// histograms plus the country breakdown, on a single page.
type DashboardBuilder struct {
	paths  *config.Paths
	cfg    config.ReportConfig
	theme  Theme
	logger *slog.Logger
}

// NewDashboardBuilder creates a dashboard builder themed from the report
// config. A nil logger falls back to slog.Default().
func NewDashboardBuilder(paths *config.Paths, cfg config.ReportConfig, logger *slog.Logger) *DashboardBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardBuilder{
		paths:  paths,
		cfg:    cfg,
		theme:  ThemeFromConfig(cfg),
		logger: logger,
	}
}

// Build renders the dashboard page and returns the written path.
func (b *DashboardBuilder) Build(ctx context.Context, records []domain.EmployeeRecord) (string, error) {
	if len(records) == 0 {
		return "", errors.NewRenderError("no records for the dashboard", nil)
	}

	started := time.Now()

	page := components.NewPage()
	page.PageTitle = "RosterKit Dashboard"
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(
		b.histogram(records, domain.ColumnAge, "Age Distribution"),
		b.histogram(records, domain.ColumnSalary, "Salary Distribution"),
		b.countryBar(records),
	)

	fullPath := b.paths.GetOutputPath(DashboardFile)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", errors.NewStorageError("failed to create output directory", err)
	}
	f, err := os.Create(fullPath)
	if err != nil {
		return "", errors.NewStorageError("failed to create dashboard file", err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return "", errors.NewRenderError("failed to render dashboard", err)
	}

	b.logger.InfoContext(ctx, "dashboard rendered",
		slog.String("path", fullPath),
		slog.String("theme", b.theme.Name),
		slog.Duration("duration", time.Since(started)))

	return fullPath, nil
}

// histogram renders one numeric column as a binned bar chart.
func (b *DashboardBuilder) histogram(records []domain.EmployeeRecord, column, title string) *charts.Bar {
	hist := stats.NewHistogram(stats.NumericValues(records, column), b.cfg.HistogramBins)

	labels := make([]string, len(hist.Counts))
	data := make([]opts.BarData, len(hist.Counts))
	for i, count := range hist.Counts {
		labels[i] = fmt.Sprintf("%.0f-%.0f", hist.Edges[i], hist.Edges[i+1])
		data[i] = opts.BarData{Value: count}
	}

	bar := b.newBar(title)
	bar.SetXAxis(labels).AddSeries("Employees", data)
	return bar
}

// countryBar renders the per-country employee counts, largest first.
func (b *DashboardBuilder) countryBar(records []domain.EmployeeRecord) *charts.Bar {
	counts := stats.CountryCounts(records)

	labels := make([]string, len(counts))
	data := make([]opts.BarData, len(counts))
	for i, c := range counts {
		labels[i] = c.Value
		data[i] = opts.BarData{Value: c.Count}
	}

	bar := b.newBar("Employees by Country")
	bar.SetXAxis(labels).AddSeries("Employees", data)
	return bar
}

func (b *DashboardBuilder) newBar(title string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  b.theme.ECharts,
			Width:  fmt.Sprintf("%dpx", b.cfg.ChartWidth),
			Height: fmt.Sprintf("%dpx", b.cfg.ChartHeight),
		}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true}),
	)
	return bar
}
