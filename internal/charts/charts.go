// Package charts renders training and synergy charts as standalone HTML.
package charts

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ChartConfig holds configuration for charts.
type ChartConfig struct {
	Title    string
	Subtitle string
	Width    string // e.g., "900px"
	Height   string
	Theme    string
	Smooth   bool // line charts only
	Colors   []string
}

// DefaultChartConfig returns default chart configuration.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:  "900px",
		Height: "500px",
		Theme:  "light",
		Smooth: true,
		Colors: []string{"#5470C6", "#91CC75", "#EE6666"},
	}
}

// DataPoint is one labeled value.
type DataPoint struct {
	Label string
	Value float64
}

func globalOptions(config ChartConfig) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			Width:  config.Width,
			Height: config.Height,
			Theme:  config.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    config.Title,
			Subtitle: config.Subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithColorsOpts(opts.Colors(config.Colors)),
	}
}

// LossChart builds a line chart of weighted MSE per epoch. mse[i] belongs to
// epoch i+1.
func LossChart(mse []float64, config ChartConfig) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(append(globalOptions(config),
		charts.WithXAxisOpts(opts.XAxis{Name: "epoch"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "weighted MSE", Scale: opts.Bool(true)}),
	)...)

	xLabels := make([]string, len(mse))
	yData := make([]opts.LineData, len(mse))
	for i, v := range mse {
		xLabels[i] = strconv.Itoa(i + 1)
		yData[i] = opts.LineData{Value: v}
	}

	line.SetXAxis(xLabels).
		AddSeries("MSE", yData).
		SetSeriesOptions(
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(config.Smooth)}),
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(false)}),
		)
	return line
}

// SynergyChart builds a horizontal bar chart of synergy deltas.
func SynergyChart(data []DataPoint, config ChartConfig) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(append(globalOptions(config),
		charts.WithXAxisOpts(opts.XAxis{Name: "syn_delta"}),
	)...)

	labels := make([]string, len(data))
	values := make([]opts.BarData, len(data))
	for i, p := range data {
		labels[i] = p.Label
		values[i] = opts.BarData{Value: p.Value}
	}

	bar.SetXAxis(labels).
		AddSeries("synergy", values).
		XYReversal()
	return bar
}

// Renderer is implemented by every go-echarts chart.
type Renderer interface {
	Render(w io.Writer) error
}

// RenderFile writes a chart to an HTML file.
func RenderFile(chart Renderer, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	if err := chart.Render(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return f.Close()
}
