package forecast

import (
	"gonum.org/v1/gonum/stat"
)

// Feature column names. They must match the columns the model was trained on.
const (
	ColMonthsSinceStart = "months_since_start"
	ColCountyEncoded    = "county_encoded"
	ColLag1             = "ev_total_lag1"
	ColLag2             = "ev_total_lag2"
	ColLag3             = "ev_total_lag3"
	ColRollMean3        = "ev_total_roll_mean_3"
	ColPctChange1       = "ev_total_pct_change_1"
	ColPctChange3       = "ev_total_pct_change_3"
	ColGrowthSlope      = "ev_growth_slope"
)

// Columns lists the feature columns in model order.
var Columns = []string{
	ColMonthsSinceStart,
	ColCountyEncoded,
	ColLag1,
	ColLag2,
	ColLag3,
	ColRollMean3,
	ColPctChange1,
	ColPctChange3,
	ColGrowthSlope,
}

// Features is the single-row model input for one forecast step.
type Features struct {
	MonthsSinceStart int     `json:"months_since_start"`
	CountyEncoded    int     `json:"county_encoded"`
	Lag1             float64 `json:"ev_total_lag1"`
	Lag2             float64 `json:"ev_total_lag2"`
	Lag3             float64 `json:"ev_total_lag3"`
	RollMean3        float64 `json:"ev_total_roll_mean_3"`
	PctChange1       float64 `json:"ev_total_pct_change_1"`
	PctChange3       float64 `json:"ev_total_pct_change_3"`
	GrowthSlope      float64 `json:"ev_growth_slope"`
}

// Values returns the features keyed by column name.
func (f Features) Values() map[string]float64 {
	return map[string]float64{
		ColMonthsSinceStart: float64(f.MonthsSinceStart),
		ColCountyEncoded:    float64(f.CountyEncoded),
		ColLag1:             f.Lag1,
		ColLag2:             f.Lag2,
		ColLag3:             f.Lag3,
		ColRollMean3:        f.RollMean3,
		ColPctChange1:       f.PctChange1,
		ColPctChange3:       f.PctChange3,
		ColGrowthSlope:      f.GrowthSlope,
	}
}

// Vector returns the features ordered as Columns.
func (f Features) Vector() []float64 {
	m := f.Values()
	out := make([]float64, len(Columns))
	for i, c := range Columns {
		out[i] = m[c]
	}
	return out
}

// PctChange returns (latest-prior)/prior, or 0 when prior is zero.
func PctChange(latest, prior float64) float64 {
	if prior == 0 {
		return 0
	}
	return (latest - prior) / prior
}

// GrowthSlope is the least-squares slope of values against their index.
func GrowthSlope(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, beta := stat.LinearRegression(xs, values, nil, false)
	return beta
}

func buildFeatures(monthIndex, countyCode int, obs, cum *Window) Features {
	lag1, lag2, lag3 := obs.Recent(1), obs.Recent(2), obs.Recent(3)
	return Features{
		MonthsSinceStart: monthIndex,
		CountyEncoded:    countyCode,
		Lag1:             lag1,
		Lag2:             lag2,
		Lag3:             lag3,
		RollMean3:        (lag1 + lag2 + lag3) / 3,
		PctChange1:       PctChange(lag1, lag2),
		PctChange3:       PctChange(lag1, lag3),
		GrowthSlope:      GrowthSlope(cum.Values()),
	}
}
