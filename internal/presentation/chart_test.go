package presentation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/irfndi/foresight-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func f(v float64) *float64 { return &v }

func TestHistoryChart(t *testing.T) {
	series := models.Series{Points: []models.Point{
		{Time: date(2016, time.November, 30), Value: 49.44},
		{Time: date(2016, time.December, 31), Value: 53.72},
	}}

	chart := HistoryChart("WTI oil", "months", series)

	assert.Equal(t, "WTI oil", chart.Title)
	assert.Equal(t, ChartTypeLine, chart.ChartType)
	assert.Equal(t, "Months", chart.XAxis)
	assert.Equal(t, "Value", chart.YAxis)
	require.Len(t, chart.Series, 1)
	assert.Equal(t, SeriesActual, chart.Series[0].Name)
	assert.Equal(t, []ChartPoint{
		{Label: "2016-11-30", Value: 49.44},
		{Label: "2016-12-31", Value: 53.72},
	}, chart.Series[0].Data)
	assert.Nil(t, chart.Window)
}

func TestForecastChart(t *testing.T) {
	merged := []models.MergedRow{
		{Time: date(2016, time.December, 31), Actual: f(53.72)},
		{Time: date(2017, time.January, 31), Forecast: f(54), Upper: f(60), Lower: f(48)},
		{Time: date(2017, time.February, 28), Forecast: f(54.3), Upper: f(62), Lower: f(46)},
	}
	window := &models.Window{Start: date(2016, time.June, 30), End: date(2017, time.February, 28)}

	chart := ForecastChart("WTI oil", "Months", merged, window)

	assert.Equal(t, "WTI oil", chart.Title)
	assert.True(t, chart.RangeSelector)
	assert.True(t, chart.ShowLegend)
	assert.Equal(t, window, chart.Window)
	require.Len(t, chart.Series, 4)

	names := make([]string, len(chart.Series))
	for i, s := range chart.Series {
		names[i] = s.Name
	}
	assert.Equal(t, []string{SeriesActual, SeriesForecast, SeriesUpper, SeriesLower}, names)
	assert.Len(t, chart.Series[0].Data, 1)
	assert.Len(t, chart.Series[1].Data, 2)
	assert.Equal(t, ChartPoint{Label: "2017-02-28", Value: 62}, chart.Series[2].Data[1])
	assert.True(t, chart.Series[3].Dashed)
}

func TestForecastChart_EmptySeriesEncodeAsArrays(t *testing.T) {
	chart := ForecastChart("WTI oil", "Months", nil, nil)

	body, err := json.Marshal(chart)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"name":"Forecast","data":[]`)
	assert.NotContains(t, string(body), `"window"`)
}

func TestForecastPlaceholder(t *testing.T) {
	chart := ForecastPlaceholder("Gold (London PM)", "forecast drift: need at least 3 observations, got 2")

	assert.Equal(t, ChartTypePlaceholder, chart.ChartType)
	assert.Equal(t, "Gold (London PM)", chart.Title)
	assert.Empty(t, chart.Series)
	assert.Equal(t, "Forecast unavailable: forecast drift: need at least 3 observations, got 2", chart.Placeholder)

	assert.Equal(t, "Forecast unavailable", ForecastPlaceholder("x", "").Placeholder)
}
