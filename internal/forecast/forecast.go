// Package forecast rolls a point-prediction model forward month by month,
// feeding each prediction back into the lag and growth features of the next
// step.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// WindowSize is the number of recent observations kept for feature derivation.
const WindowSize = 6

// MinHistory is the shortest history that yields all three lag features.
const MinHistory = 3

var (
	ErrInsufficientHistory = errors.New("forecast: at least 3 historical values are required")
	ErrInvalidHorizon      = errors.New("forecast: horizon must not be negative")
)

// Predictor returns one prediction for a feature row.
type Predictor interface {
	Predict(ctx context.Context, f Features) (float64, error)
}

// PredictorFunc adapts a function to Predictor.
type PredictorFunc func(ctx context.Context, f Features) (float64, error)

func (fn PredictorFunc) Predict(ctx context.Context, f Features) (float64, error) {
	return fn(ctx, f)
}

// Input anchors a forecast at the end of a county's historical series.
type Input struct {
	History    []float64 // recent totals, oldest first; only the last WindowSize are used
	MonthIndex int       // months since the county's start epoch at StartDate
	StartDate  time.Time
	CountyCode int
	Horizon    int
}

// Point is one forecast period.
type Point struct {
	Date  time.Time `json:"date"`
	Total int64     `json:"predicted_total"`
}

// Result holds the forecast and the final state of the sliding windows.
type Result struct {
	Points       []Point
	Observations []float64
	Cumulative   []float64
}

// Forecast predicts Horizon monthly totals. Each step derives its features
// from the observation window, and the unrounded prediction is pushed back
// into it. Only the returned points are rounded.
func Forecast(ctx context.Context, in Input, p Predictor) (*Result, error) {
	if in.Horizon < 0 {
		return nil, ErrInvalidHorizon
	}
	if len(in.History) < MinHistory {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientHistory, len(in.History))
	}

	obs := NewWindow(WindowSize, in.History)
	// Seeded from the windowed tail only, matching how the model was trained.
	cum := NewWindow(WindowSize, cumulative(obs.Values()))

	points := make([]Point, 0, in.Horizon)
	monthIndex := in.MonthIndex

	for i := 1; i <= in.Horizon; i++ {
		monthIndex++
		date := AddMonths(in.StartDate, i)

		features := buildFeatures(monthIndex, in.CountyCode, obs, cum)
		pred, err := p.Predict(ctx, features)
		if err != nil {
			return nil, fmt.Errorf("forecast step %d: %w", i, err)
		}
		if math.IsNaN(pred) || math.IsInf(pred, 0) {
			return nil, fmt.Errorf("forecast step %d: model returned non-finite value %v", i, pred)
		}

		obs.Push(pred)
		cum.Push(cum.Last() + pred)

		points = append(points, Point{Date: date, Total: int64(math.RoundToEven(pred))})
	}

	return &Result{
		Points:       points,
		Observations: obs.Values(),
		Cumulative:   cum.Values(),
	}, nil
}

// AddMonths steps t forward n calendar months, clamping the day to the end of
// the target month (Jan 31 + 1 month = Feb 28 or 29).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	hh, mm, ss := t.Clock()
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}
