// Package presentation turns pipeline output into render-ready chart
// descriptions.
package presentation

import (
	"github.com/irfndi/foresight-go/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	ChartTypeLine        = "line"
	ChartTypePlaceholder = "placeholder"

	SeriesActual   = "Actual"
	SeriesForecast = "Forecast"
	SeriesUpper    = "Upper"
	SeriesLower    = "Lower"
)

var (
	actualColor   = "#4F46E5"
	forecastColor = "#F59E0B"
	boundColor    = "#9CA3AF"
)

// ChartConfig describes how to render a chart.
type ChartConfig struct {
	ChartType     string         `json:"chartType"`
	Title         string         `json:"title"`
	XAxis         string         `json:"xAxis,omitempty"`
	YAxis         string         `json:"yAxis,omitempty"`
	Series        []ChartSeries  `json:"series"`
	Colors        []string       `json:"colors,omitempty"`
	ShowLegend    bool           `json:"showLegend"`
	ShowGrid      bool           `json:"showGrid"`
	Window        *models.Window `json:"window,omitempty"`
	RangeSelector bool           `json:"rangeSelector"`
	Placeholder   string         `json:"placeholder,omitempty"`
}

// ChartSeries is one named line.
type ChartSeries struct {
	Name   string       `json:"name"`
	Data   []ChartPoint `json:"data"`
	Color  string       `json:"color,omitempty"`
	Dashed bool         `json:"dashed,omitempty"`
}

// ChartPoint is a dated value. Label is an ISO date.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// axisLabel title-cases s. A Caser is stateful, so one is built per call.
func axisLabel(s string) string {
	return cases.Title(language.English).String(s)
}

// HistoryChart plots the fetched series titled with the source's display
// label.
func HistoryChart(label, periodLabel string, fetched models.Series) *ChartConfig {
	points := make([]ChartPoint, 0, fetched.Len())
	for _, p := range fetched.Points {
		points = append(points, ChartPoint{Label: p.Time.Format(models.DateLayout), Value: p.Value})
	}

	return &ChartConfig{
		ChartType:     ChartTypeLine,
		Title:         label,
		XAxis:         axisLabel(periodLabel),
		YAxis:         axisLabel("value"),
		Series:        []ChartSeries{{Name: SeriesActual, Data: points, Color: actualColor}},
		Colors:        []string{actualColor},
		ShowLegend:    false,
		ShowGrid:      true,
		RangeSelector: true,
	}
}

// ForecastChart plots history and forecast with its interval. window sets the
// default visible range and may be nil.
func ForecastChart(label, periodLabel string, merged []models.MergedRow, window *models.Window) *ChartConfig {
	actual := make([]ChartPoint, 0, len(merged))
	var point, upper, lower []ChartPoint

	for _, row := range merged {
		day := row.Time.Format(models.DateLayout)
		if row.Actual != nil {
			actual = append(actual, ChartPoint{Label: day, Value: *row.Actual})
		}
		if row.Forecast != nil {
			point = append(point, ChartPoint{Label: day, Value: *row.Forecast})
		}
		if row.Upper != nil {
			upper = append(upper, ChartPoint{Label: day, Value: *row.Upper})
		}
		if row.Lower != nil {
			lower = append(lower, ChartPoint{Label: day, Value: *row.Lower})
		}
	}

	return &ChartConfig{
		ChartType: ChartTypeLine,
		Title:     label,
		XAxis:     axisLabel(periodLabel),
		YAxis:     axisLabel("value"),
		Series: []ChartSeries{
			{Name: SeriesActual, Data: actual, Color: actualColor},
			{Name: SeriesForecast, Data: nonNil(point), Color: forecastColor},
			{Name: SeriesUpper, Data: nonNil(upper), Color: boundColor, Dashed: true},
			{Name: SeriesLower, Data: nonNil(lower), Color: boundColor, Dashed: true},
		},
		Colors:        []string{actualColor, forecastColor, boundColor, boundColor},
		ShowLegend:    true,
		ShowGrid:      true,
		Window:        window,
		RangeSelector: true,
	}
}

// ForecastPlaceholder stands in for the forecast chart when no merged series
// is available.
func ForecastPlaceholder(label, reason string) *ChartConfig {
	msg := "Forecast unavailable"
	if reason != "" {
		msg += ": " + reason
	}
	return &ChartConfig{
		ChartType:   ChartTypePlaceholder,
		Title:       label,
		Series:      []ChartSeries{},
		Placeholder: msg,
	}
}

func nonNil(points []ChartPoint) []ChartPoint {
	if points == nil {
		return []ChartPoint{}
	}
	return points
}
