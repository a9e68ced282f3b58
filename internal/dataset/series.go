package dataset

import "time"

// Series is one county's records in date order.
type Series []Record

// Totals returns the EV totals in date order.
func (s Series) Totals() []float64 {
	out := make([]float64, len(s))
	for i, r := range s {
		out[i] = r.EVTotal
	}
	return out
}

// Tail returns the last n totals.
func (s Series) Tail(n int) []float64 {
	t := s.Totals()
	if len(t) > n {
		t = t[len(t)-n:]
	}
	return t
}

// LastDate is the latest date in the series.
func (s Series) LastDate() time.Time {
	var last time.Time
	for _, r := range s {
		if r.Date.After(last) {
			last = r.Date
		}
	}
	return last
}

// MaxMonthIndex is the largest months_since_start value.
func (s Series) MaxMonthIndex() int {
	hi := 0
	for i, r := range s {
		if i == 0 || r.MonthsSinceStart > hi {
			hi = r.MonthsSinceStart
		}
	}
	return hi
}

// CountyCode is the encoded county of the first record.
func (s Series) CountyCode() int {
	if len(s) == 0 {
		return 0
	}
	return s[0].CountyCode
}
