package report

import (
	"bytes"
	"encoding/csv"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/evtrends/evtrends/internal/dataset"
	"github.com/evtrends/evtrends/internal/forecast"
)

func month(m time.Month) time.Time {
	return time.Date(2024, m, 1, 0, 0, 0, 0, time.UTC)
}

func sampleReport() *Report {
	series := dataset.Series{
		{County: "King", Date: month(time.January), EVTotal: 100},
		{County: "King", Date: month(time.February), EVTotal: 150},
		{County: "King", Date: month(time.March), EVTotal: 250},
	}
	points := []forecast.Point{
		{Date: month(time.April), Total: 200},
		{Date: month(time.May), Total: 250},
		{Date: month(time.June), Total: 0},
		{Date: month(time.July), Total: 100},
	}
	return Build("King", series, points)
}

func TestBuild(t *testing.T) {
	t.Parallel()

	r := sampleReport()

	require.Len(t, r.History, 3)
	assert.Equal(t, []float64{100, 250, 500}, []float64{r.History[0].Cumulative, r.History[1].Cumulative, r.History[2].Cumulative})

	require.Len(t, r.Forecast, 4)
	assert.Equal(t, 700.0, r.Forecast[0].Cumulative)
	assert.Equal(t, 950.0, r.Forecast[1].Cumulative)
	assert.Equal(t, 1050.0, r.Forecast[3].Cumulative)

	assert.Nil(t, r.Forecast[0].ChangePct)
	require.NotNil(t, r.Forecast[1].ChangePct)
	assert.InDelta(t, 25, *r.Forecast[1].ChangePct, 1e-9)
	require.NotNil(t, r.Forecast[2].ChangePct)
	assert.InDelta(t, -100, *r.Forecast[2].ChangePct, 1e-9)
	assert.Nil(t, r.Forecast[3].ChangePct, "change after a zero prediction is undefined")

	assert.Equal(t, 500.0, r.Summary.Current)
	assert.Equal(t, 1050.0, r.Summary.Projected)
	assert.InDelta(t, 110, r.Summary.GrowthPct, 1e-9)
	assert.Equal(t, month(time.July), r.Summary.Through)
	assert.Equal(t, 4, r.Summary.Horizon)
}

func TestBuild_ZeroHistoryAndNoForecast(t *testing.T) {
	t.Parallel()

	series := dataset.Series{{County: "X", Date: month(time.January), EVTotal: 0}}
	r := Build("X", series, []forecast.Point{{Date: month(time.February), Total: 5}})
	assert.Equal(t, 0.0, r.Summary.GrowthPct)

	r = Build("X", series, nil)
	assert.Equal(t, month(time.January), r.Summary.Through)
	assert.Equal(t, r.Summary.Current, r.Summary.Projected)
}

func TestSentence(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"The forecast for King shows an estimated 1050 EVs by 2024-07-01, reflecting a 110.00% increase from the current total.",
		sampleReport().Sentence())
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, sampleReport().WriteCSV(&buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, forecastHeaders, rows[0])
	assert.Equal(t, []string{"2024-04-01", "200", "700", "Forecast", ""}, rows[1])
	assert.Equal(t, []string{"2024-05-01", "250", "950", "Forecast", "25"}, rows[2])
}

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, sampleReport().WriteXLSX(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetForecast, SheetHistory, SheetSummary}, f.GetSheetList())

	v, err := f.GetCellValue(SheetForecast, "B2")
	require.NoError(t, err)
	assert.Equal(t, "200", v)

	v, err = f.GetCellValue(SheetSummary, "B1")
	require.NoError(t, err)
	assert.Equal(t, "King", v)

	rows, err := f.GetRows(SheetHistory)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestWriteCharts(t *testing.T) {
	t.Parallel()

	r := sampleReport()

	var trend bytes.Buffer
	require.NoError(t, r.WriteTrendPNG(&trend))
	img, err := png.Decode(&trend)
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())

	var pred bytes.Buffer
	require.NoError(t, r.WritePredictionPNG(&pred))
	_, err = png.Decode(&pred)
	require.NoError(t, err)
}

func TestWriteMarkdown(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	require.NoError(t, sampleReport().WriteMarkdown(&b, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)))

	out := b.String()
	assert.Contains(t, out, "# EV Forecast Summary: King")
	assert.Contains(t, out, "**Projected EV Count**: 1,050")
	assert.Contains(t, out, "| 2024-05-01 | 250 | 950 | 25.00% |")
	assert.Contains(t, out, "*Generated 1 June 2025*")
}

func TestFormatCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1,234,567", FormatCount(1234567.9))
	assert.Equal(t, "12", FormatCount(12))
}
