// Package model loads the trained EV regression model behind the
// forecast.Predictor contract.
package model

import (
	"errors"
	"strings"
	"time"

	"github.com/evtrends/evtrends/internal/forecast"
)

var (
	ErrFeatureMismatch = errors.New("model feature columns do not match")
	ErrRemote          = errors.New("remote model error")
)

// Open returns a remote model for http(s) sources and a linear model file
// otherwise.
func Open(source string, timeout time.Duration) (forecast.Predictor, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return NewRemote(source, timeout), nil
	}
	return LoadLinear(source)
}
