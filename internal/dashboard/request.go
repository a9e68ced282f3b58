package dashboard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/evtrends/evtrends/internal/dataset"
)

// Mode selects the unit of the forecast duration.
type Mode string

const (
	ModeMonthly Mode = "monthly"
	ModeYearly  Mode = "yearly"
)

// Duration bounds and default, in units of Mode.
const (
	MinDuration     = 1
	MaxDuration     = 5
	DefaultDuration = 3
)

var ErrInvalidRequest = errors.New("invalid forecast request")

// Request selects a county, a historical range and a forecast horizon.
type Request struct {
	County   string    `json:"county"`
	Mode     Mode      `json:"mode"`
	Duration int       `json:"duration"`
	From     time.Time `json:"from,omitzero"`
	To       time.Time `json:"to,omitzero"`
}

// Horizon returns the number of months to forecast.
func (r Request) Horizon() int {
	if r.Mode == ModeYearly {
		return r.Duration * 12
	}
	return r.Duration
}

// Normalize fills defaults and validates the request.
func (r Request) Normalize() (Request, error) {
	r.County = strings.TrimSpace(r.County)
	r.Mode = Mode(strings.ToLower(string(r.Mode)))
	if r.Mode == "" {
		r.Mode = ModeMonthly
	}
	if r.Duration == 0 {
		r.Duration = DefaultDuration
	}

	switch {
	case r.County == "":
		return r, fmt.Errorf("%w: county is required", ErrInvalidRequest)
	case r.Mode != ModeMonthly && r.Mode != ModeYearly:
		return r, fmt.Errorf("%w: mode must be %q or %q", ErrInvalidRequest, ModeMonthly, ModeYearly)
	case r.Duration < MinDuration || r.Duration > MaxDuration:
		return r, fmt.Errorf("%w: duration must be between %d and %d", ErrInvalidRequest, MinDuration, MaxDuration)
	case !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To):
		return r, fmt.Errorf("%w: range start is after range end", ErrInvalidRequest)
	}
	return r, nil
}

// ParseRequest builds a request from string form values (query parameters
// or CLI flags). Empty values take defaults; an explicit duration must be
// within bounds.
func ParseRequest(county, mode, duration, from, to string) (Request, error) {
	req := Request{County: county, Mode: Mode(mode)}

	if duration != "" {
		n, err := strconv.Atoi(duration)
		if err != nil {
			return req, fmt.Errorf("%w: duration %q is not a number", ErrInvalidRequest, duration)
		}
		// Zero is the unset value in Normalize; an explicit 0 is out of range.
		if n < MinDuration {
			return req, fmt.Errorf("%w: duration must be between %d and %d", ErrInvalidRequest, MinDuration, MaxDuration)
		}
		req.Duration = n
	}
	if from != "" {
		t, err := dataset.ParseDate(from)
		if err != nil {
			return req, fmt.Errorf("%w: from: %v", ErrInvalidRequest, err)
		}
		req.From = t
	}
	if to != "" {
		t, err := dataset.ParseDate(to)
		if err != nil {
			return req, fmt.Errorf("%w: to: %v", ErrInvalidRequest, err)
		}
		req.To = t
	}
	return req.Normalize()
}
