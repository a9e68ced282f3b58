// Package dataset loads monthly EV registration totals per county.
package dataset

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Column headers of the preprocessed dataset.
const (
	ColCounty           = "County"
	ColState            = "State"
	ColDate             = "Date"
	ColEVTotal          = "Electric Vehicle (EV) Total"
	ColCountyEncoded    = "county_encoded"
	ColMonthsSinceStart = "months_since_start"
)

// ErrNoData is returned when a selection contains no rows.
var ErrNoData = errors.New("no data available for the selected range")

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
}

// Record is one county-month observation.
type Record struct {
	County           string    `json:"county"`
	State            string    `json:"state,omitempty"`
	Date             time.Time `json:"date"`
	EVTotal          float64   `json:"ev_total"`
	CountyCode       int       `json:"county_encoded"`
	MonthsSinceStart int       `json:"months_since_start"`
}

// Dataset is an immutable, sorted collection of records.
type Dataset struct {
	records  []Record
	byCounty map[string][]Record
	skipped  int
}

// New sorts records by county and date and indexes them.
func New(records []Record) *Dataset {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].County != sorted[j].County {
			return sorted[i].County < sorted[j].County
		}
		return sorted[i].Date.Before(sorted[j].Date)
	})

	d := &Dataset{records: sorted, byCounty: make(map[string][]Record)}
	for _, r := range sorted {
		d.byCounty[r.County] = append(d.byCounty[r.County], r)
	}
	return d
}

func (d *Dataset) Len() int { return len(d.records) }

// Skipped reports how many input rows could not be parsed.
func (d *Dataset) Skipped() int { return d.skipped }

// Counties returns the sorted unique county names.
func (d *Dataset) Counties() []string {
	out := make([]string, 0, len(d.byCounty))
	for c := range d.byCounty {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Range returns the earliest and latest dates in the dataset.
func (d *Dataset) Range() (time.Time, time.Time) {
	var lo, hi time.Time
	for i, r := range d.records {
		if i == 0 || r.Date.Before(lo) {
			lo = r.Date
		}
		if i == 0 || r.Date.After(hi) {
			hi = r.Date
		}
	}
	return lo, hi
}

// Select returns the county's records with from <= Date <= to. A zero bound
// is open.
func (d *Dataset) Select(county string, from, to time.Time) (Series, error) {
	rows, ok := d.byCounty[county]
	if !ok {
		return nil, fmt.Errorf("%w: unknown county %q", ErrNoData, county)
	}

	var out Series
	for _, r := range rows {
		if !from.IsZero() && r.Date.Before(from) {
			continue
		}
		if !to.IsZero() && r.Date.After(to) {
			continue
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

// ParseDate accepts the date layouts found in exported datasets.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	return strconv.ParseFloat(s, 64)
}

func parseInt(s string) (int, error) {
	f, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
