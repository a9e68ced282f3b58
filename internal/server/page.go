package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/evtrends/evtrends/internal/dashboard"
	"github.com/evtrends/evtrends/internal/report"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"count": report.FormatCount,
	"pct":   func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
	"month": func(t time.Time) string { return t.Format("January 2006") },
}).ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Counties  []string
	Modes     []dashboard.Mode
	Durations []int
	Request   dashboard.Request
	MinDate   string
	MaxDate   string
	Result    *dashboard.Result
	Sentence  string
	Query     template.URL
	Error     string
	NowTime   string
	NowDate   string
	Timezone  string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	minDate, maxDate := s.forecaster.Range()
	now := s.now().In(s.loc)

	data := pageData{
		Counties:  s.forecaster.Counties(),
		Modes:     []dashboard.Mode{dashboard.ModeMonthly, dashboard.ModeYearly},
		Durations: []int{1, 2, 3, 4, 5},
		MinDate:   minDate.Format("2006-01-02"),
		MaxDate:   maxDate.Format("2006-01-02"),
		NowTime:   now.Format("03:04:05 PM"),
		NowDate:   now.Format("Monday, January 02, 2006"),
		Timezone:  s.loc.String(),
	}

	q := r.URL.Query()
	county := q.Get("county")
	if county == "" && len(data.Counties) > 0 {
		county = data.Counties[0]
	}

	req, err := dashboard.ParseRequest(county, q.Get("mode"), q.Get("duration"), q.Get("from"), q.Get("to"))
	data.Request = req
	if err == nil {
		var res *dashboard.Result
		res, err = s.forecaster.Run(r.Context(), req)
		if err == nil {
			data.Result = res
			data.Request = res.Request
			data.Sentence = res.Report.Sentence()
			data.Query = template.URL(encodeRequest(res.Request))
		}
	}
	// Failures render as a warning on the page, not as an error status.
	if err != nil && county != "" {
		switch statusFor(err) {
		case http.StatusNotFound:
			data.Error = "No data available for the selected range."
		case http.StatusInternalServerError:
			s.logger.Error("dashboard forecast failed", zap.String("county", county), zap.Error(err))
			data.Error = "The forecast could not be computed."
		default:
			data.Error = err.Error()
		}
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		s.logger.Error("render dashboard failed", zap.Error(err))
		InternalError(w, "failed to render dashboard", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func encodeRequest(req dashboard.Request) string {
	v := url.Values{}
	v.Set("county", req.County)
	v.Set("mode", string(req.Mode))
	v.Set("duration", strconv.Itoa(req.Duration))
	if !req.From.IsZero() {
		v.Set("from", req.From.Format("2006-01-02"))
	}
	if !req.To.IsZero() {
		v.Set("to", req.To.Format("2006-01-02"))
	}
	return v.Encode()
}
