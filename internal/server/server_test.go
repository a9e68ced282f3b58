package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evtrends/evtrends/internal/dashboard"
	"github.com/evtrends/evtrends/internal/dataset"
	"github.com/evtrends/evtrends/internal/forecast"
	"github.com/evtrends/evtrends/internal/store"
)

func monthEnd(y int, m time.Month) time.Time {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
}

func testService(t *testing.T) *dashboard.Service {
	t.Helper()
	var recs []dataset.Record
	for i := 0; i < 8; i++ {
		recs = append(recs, dataset.Record{
			County:           "King",
			Date:             monthEnd(2023, time.January+time.Month(i)),
			EVTotal:          float64(100 + 10*i),
			CountyCode:       12,
			MonthsSinceStart: 60 + i,
		})
	}
	recs = append(recs,
		dataset.Record{County: "Ferry", Date: monthEnd(2023, time.January), EVTotal: 1, CountyCode: 3, MonthsSinceStart: 10},
		dataset.Record{County: "Ferry", Date: monthEnd(2023, time.February), EVTotal: 2, CountyCode: 3, MonthsSinceStart: 11},
	)

	// Predicts the next value from the most recent lag.
	p := forecast.PredictorFunc(func(_ context.Context, f forecast.Features) (float64, error) {
		return f.Lag1 + 10, nil
	})
	svc, err := dashboard.New(dataset.New(recs), p, dashboard.Options{CacheSize: 8})
	require.NoError(t, err)
	return svc
}

func newTestServer(t *testing.T, f Forecaster, opts Options) http.Handler {
	t.Helper()
	s := New(":0", f, zap.NewNop(), opts)
	s.now = func() time.Time { return time.Date(2024, time.March, 5, 9, 30, 0, 0, time.UTC) }
	return s.Handler()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, testService(t), Options{})
	rec := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCounties(t *testing.T) {
	h := newTestServer(t, testService(t), Options{})
	rec := get(t, h, "/api/v1/counties")
	require.Equal(t, http.StatusOK, rec.Code)

	var body countiesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, []string{"Ferry", "King"}, body.Counties)
	assert.True(t, body.From.Equal(monthEnd(2023, time.January)))
	assert.True(t, body.To.Equal(monthEnd(2023, time.August)))
}

func TestForecast_JSON(t *testing.T) {
	h := newTestServer(t, testService(t), Options{})
	rec := get(t, h, "/api/v1/forecast?county=King&mode=monthly&duration=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var res dashboard.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	require.Len(t, res.Report.Forecast, 2)
	assert.Equal(t, int64(180), res.Report.Forecast[0].Predicted)
	assert.Equal(t, int64(190), res.Report.Forecast[1].Predicted)
	assert.Equal(t, 2, res.Request.Duration)
}

func TestForecast_ErrorMapping(t *testing.T) {
	h := newTestServer(t, testService(t), Options{})

	tests := []struct {
		name   string
		target string
		status int
		detail string
	}{
		{"missing county", "/api/v1/forecast", http.StatusBadRequest, "county is required"},
		{"bad mode", "/api/v1/forecast?county=King&mode=weekly", http.StatusBadRequest, "mode"},
		{"duration too long", "/api/v1/forecast?county=King&duration=9", http.StatusBadRequest, "duration"},
		{"duration zero", "/api/v1/forecast?county=King&duration=0", http.StatusBadRequest, "duration"},
		{"unknown county", "/api/v1/forecast?county=Nowhere", http.StatusNotFound, "No data available for the selected range."},
		{"empty range", "/api/v1/forecast?county=King&from=2030-01-01", http.StatusNotFound, "No data available"},
		{"short history", "/api/v1/forecast?county=Ferry", http.StatusUnprocessableEntity, "history"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

			var p Problem
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
			assert.Equal(t, tt.status, p.Status)
			assert.Contains(t, p.Detail, tt.detail)
		})
	}
}

type failingForecaster struct{ err error }

func (f failingForecaster) Run(context.Context, dashboard.Request) (*dashboard.Result, error) {
	return nil, f.err
}
func (failingForecaster) Counties() []string { return []string{"King"} }
func (failingForecaster) Range() (time.Time, time.Time) {
	return monthEnd(2023, time.January), monthEnd(2023, time.August)
}

func TestForecast_InternalErrorHidesCause(t *testing.T) {
	h := newTestServer(t, failingForecaster{err: errors.New("model endpoint exploded")}, Options{})
	rec := get(t, h, "/api/v1/forecast?county=King")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "exploded")
}

func TestArtifacts(t *testing.T) {
	h := newTestServer(t, testService(t), Options{})

	tests := []struct {
		path        string
		contentType string
		filename    string
	}{
		{"/api/v1/forecast.csv", "text/csv; charset=utf-8", "King_forecast.csv"},
		{"/api/v1/forecast.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "King_forecast.xlsx"},
		{"/api/v1/charts/trend.png", "image/png", "forecast.png"},
		{"/api/v1/charts/prediction.png", "image/png", "King_prediction.png"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, h, tt.path+"?county=King&duration=1&mode=yearly")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Header().Get("Content-Disposition"), tt.filename)
			assert.NotZero(t, rec.Body.Len())
		})
	}

	rec := get(t, h, "/api/v1/forecast.csv?county=King&duration=1")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Equal(t, "Date,Predicted EV Total,Cumulative,Source,Monthly % Change", strings.TrimSpace(lines[0]))

	rec = get(t, h, "/api/v1/charts/trend.png?county=King")
	assert.Equal(t, "\x89PNG", rec.Body.String()[:4])
}

type fakeRuns struct {
	county string
	limit  int
	err    error
}

func (f *fakeRuns) ListRuns(_ context.Context, county string, limit int) ([]store.Run, error) {
	f.county, f.limit = county, limit
	if f.err != nil {
		return nil, f.err
	}
	return []store.Run{{ID: "r1", County: "King", Mode: "monthly", Horizon: 3}}, nil
}

func TestRuns(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		h := newTestServer(t, testService(t), Options{})
		assert.Equal(t, http.StatusNotFound, get(t, h, "/api/v1/runs").Code)
	})

	t.Run("lists", func(t *testing.T) {
		runs := &fakeRuns{}
		h := newTestServer(t, testService(t), Options{Runs: runs})
		rec := get(t, h, "/api/v1/runs?county=King&limit=5")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "King", runs.county)
		assert.Equal(t, 5, runs.limit)

		var body struct {
			Runs []store.Run `json:"runs"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		require.Len(t, body.Runs, 1)
		assert.Equal(t, "r1", body.Runs[0].ID)
	})

	t.Run("bad limit", func(t *testing.T) {
		h := newTestServer(t, testService(t), Options{Runs: &fakeRuns{}})
		assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/v1/runs?limit=0").Code)
	})

	t.Run("store error", func(t *testing.T) {
		h := newTestServer(t, testService(t), Options{Runs: &fakeRuns{err: errors.New("disk")}})
		assert.Equal(t, http.StatusInternalServerError, get(t, h, "/api/v1/runs").Code)
	})
}

func TestIndex(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	h := newTestServer(t, testService(t), Options{Location: loc})

	rec := get(t, h, "/?county=King&mode=monthly&duration=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "Current EV Count")
	assert.Contains(t, body, "Projected EV Count")
	assert.Contains(t, body, "The forecast for King shows an estimated")
	assert.Contains(t, body, "/api/v1/charts/trend.png?county=King&amp;duration=3&amp;mode=monthly")
	assert.Contains(t, body, "03:00:00 PM")
	assert.Contains(t, body, "Tuesday, March 05, 2024")

	// The first county is preselected; its short history renders as a warning.
	rec = get(t, h, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<option value="Ferry" selected>`)
	assert.Contains(t, rec.Body.String(), "at least 3 historical values")
}

func TestIndex_NoData(t *testing.T) {
	h := newTestServer(t, testService(t), Options{})
	rec := get(t, h, "/?county=King&from=2030-01-01")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No data available for the selected range.")
	assert.NotContains(t, rec.Body.String(), "Current EV Count")
}

func TestSecurityHeaders(t *testing.T) {
	h := newTestServer(t, testService(t), Options{})
	rec := get(t, h, "/healthz")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-EVTrends-Version"))
}

func TestRequestID_Propagated(t *testing.T) {
	h := newTestServer(t, testService(t), Options{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, testService(t), Options{RateRPS: 1, RateBurst: 2})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, get(t, h, "/api/v1/counties").Code)
	}
	rec := get(t, h, "/api/v1/counties")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Health checks bypass the limiter.
	assert.Equal(t, http.StatusOK, get(t, h, "/healthz").Code)
}

func TestRecovery(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), RecoveryMiddleware(zap.NewNop()))
	rec := get(t, h, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestClientIP(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		resolver clientResolver
		remote   string
		xff      string
		want     string
	}{
		{"no proxies configured", clientResolver{}, "198.51.100.4:5555", "", "198.51.100.4"},
		{"forwarded header ignored without trust", clientResolver{}, "198.51.100.4:5555", "203.0.113.7", "198.51.100.4"},
		{"trusted proxy", clientResolver{trusted: trusted}, "10.0.0.1:5555", "203.0.113.7", "203.0.113.7"},
		{"spoofed leftmost entry", clientResolver{trusted: trusted}, "10.0.0.1:5555", "1.2.3.4, 203.0.113.7, 10.0.0.2", "203.0.113.7"},
		{"untrusted peer sending header", clientResolver{trusted: trusted}, "198.51.100.4:5555", "1.2.3.4", "198.51.100.4"},
		{"garbage header", clientResolver{trusted: trusted}, "10.0.0.1:5555", "not-an-ip", "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, tt.resolver.clientIP(r))
		})
	}
}

func TestRateLimit_ForwardedForCannotReset(t *testing.T) {
	h := newTestServer(t, testService(t), Options{RateRPS: 1, RateBurst: 1})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/counties", nil)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}

func TestParseTrustedProxies(t *testing.T) {
	got, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.168.1.10 ", "", "2001:db8::/32"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "10.0.0.0/8", got[0].String())
	assert.Equal(t, "192.168.1.10/32", got[1].String())
	assert.Equal(t, "2001:db8::/32", got[2].String())

	_, err = ParseTrustedProxies([]string{"proxy.local"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}

func TestMetrics_RouteLabels(t *testing.T) {
	h := newTestServer(t, testService(t), Options{})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, routeUnmatched, "404"))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNotFound, get(t, h, fmt.Sprintf("/scan/%d", i)).Code)
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, routeUnmatched, "404"))
	assert.Equal(t, before+3, after)
	assert.False(t, httpRequestsTotal.DeleteLabelValues(http.MethodGet, "/scan/0", "404"))

	get(t, h, "/api/v1/counties")
	assert.GreaterOrEqual(t,
		testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "GET /api/v1/counties", "200")), 1.0)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "San_Juan", safeName("San Juan"))
	assert.Equal(t, "a_b_c", safeName("a/b\"c"))
}
