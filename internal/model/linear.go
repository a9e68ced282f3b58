package model

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/evtrends/evtrends/internal/forecast"
)

// Compile-time interface guard.
var _ forecast.Predictor = (*LinearModel)(nil)

// LinearModel is a regression exported as intercept plus one weight per
// feature column.
type LinearModel struct {
	Name         string             `json:"name"`
	Intercept    float64            `json:"intercept"`
	Coefficients map[string]float64 `json:"coefficients"`

	weights []float64 // ordered as forecast.Columns
}

// LoadLinear reads a linear model from a JSON file.
func LoadLinear(path string) (*LinearModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model %q: %w", path, err)
	}
	defer f.Close()

	m, err := DecodeLinear(f)
	if err != nil {
		return nil, fmt.Errorf("load model %q: %w", path, err)
	}
	return m, nil
}

// DecodeLinear parses and validates a linear model. Every feature column
// must have a coefficient and no other names are accepted.
func DecodeLinear(r io.Reader) (*LinearModel, error) {
	var m LinearModel
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode linear model: %w", err)
	}
	if err := m.compile(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *LinearModel) compile() error {
	known := make(map[string]bool, len(forecast.Columns))
	for _, c := range forecast.Columns {
		known[c] = true
	}

	var unknown []string
	for name := range m.Coefficients {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: unknown columns %s", ErrFeatureMismatch, strings.Join(unknown, ", "))
	}

	m.weights = make([]float64, len(forecast.Columns))
	var missing []string
	for i, c := range forecast.Columns {
		w, ok := m.Coefficients[c]
		if !ok {
			missing = append(missing, c)
			continue
		}
		m.weights[i] = w
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing columns %s", ErrFeatureMismatch, strings.Join(missing, ", "))
	}
	return nil
}

// Predict returns intercept + Σ weight·feature. The model must come from
// DecodeLinear or LoadLinear; Predict never mutates it, so one model is safe
// to share across goroutines.
func (m *LinearModel) Predict(_ context.Context, f forecast.Features) (float64, error) {
	if m.weights == nil {
		return 0, fmt.Errorf("%w: model %s was not decoded", ErrFeatureMismatch, m)
	}
	y := m.Intercept
	for i, x := range f.Vector() {
		y += m.weights[i] * x
	}
	return y, nil
}

func (m *LinearModel) String() string {
	if m.Name == "" {
		return "linear"
	}
	return m.Name
}
