// Package report combines a county's history with its forecast and renders
// the downloadable artifacts.
package report

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/evtrends/evtrends/internal/dataset"
	"github.com/evtrends/evtrends/internal/forecast"
)

const (
	SourceHistorical = "Historical"
	SourceForecast   = "Forecast"
)

// HistoryPoint is one observed month.
type HistoryPoint struct {
	Date       time.Time `json:"date"`
	Total      float64   `json:"ev_total"`
	Cumulative float64   `json:"cumulative"`
}

// ForecastPoint is one predicted month. ChangePct is nil when the previous
// prediction is absent or zero.
type ForecastPoint struct {
	Date       time.Time `json:"date"`
	Predicted  int64     `json:"predicted_total"`
	Cumulative float64   `json:"cumulative"`
	ChangePct  *float64  `json:"monthly_change_pct"`
}

// Summary holds the headline metrics.
type Summary struct {
	County    string    `json:"county"`
	Current   float64   `json:"current_total"`
	Projected float64   `json:"projected_total"`
	GrowthPct float64   `json:"growth_pct"`
	Through   time.Time `json:"through"`
	Horizon   int       `json:"horizon_months"`
}

// Report is the rendered view of one forecast run.
type Report struct {
	County   string          `json:"county"`
	History  []HistoryPoint  `json:"history"`
	Forecast []ForecastPoint `json:"forecast"`
	Summary  Summary         `json:"summary"`
}

// Build accumulates history and forecast into cumulative series. Forecast
// cumulative totals continue from the last historical cumulative value.
func Build(county string, series dataset.Series, points []forecast.Point) *Report {
	r := &Report{
		County:   county,
		History:  make([]HistoryPoint, len(series)),
		Forecast: make([]ForecastPoint, len(points)),
	}

	var cum float64
	for i, rec := range series {
		cum += rec.EVTotal
		r.History[i] = HistoryPoint{Date: rec.Date, Total: rec.EVTotal, Cumulative: cum}
	}
	current := cum

	var prev int64
	for i, p := range points {
		cum += float64(p.Total)
		fp := ForecastPoint{Date: p.Date, Predicted: p.Total, Cumulative: cum}
		if i > 0 && prev != 0 {
			pct := float64(p.Total-prev) / float64(prev) * 100
			fp.ChangePct = &pct
		}
		r.Forecast[i] = fp
		prev = p.Total
	}

	r.Summary = Summary{
		County:    county,
		Current:   current,
		Projected: cum,
		GrowthPct: growthPct(current, cum),
		Horizon:   len(points),
	}
	if n := len(points); n > 0 {
		r.Summary.Through = points[n-1].Date
	} else {
		r.Summary.Through = series.LastDate()
	}
	return r
}

func growthPct(current, projected float64) float64 {
	if current == 0 {
		return 0
	}
	return (projected - current) / current * 100
}

// FormatCount renders a count with thousands separators.
func FormatCount(v float64) string {
	return humanize.Comma(int64(v))
}
