package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/evtrends/evtrends/internal/dashboard"
	"github.com/evtrends/evtrends/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type countiesResponse struct {
	Counties []string  `json:"counties"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
}

func (s *Server) handleCounties(w http.ResponseWriter, _ *http.Request) {
	from, to := s.forecaster.Range()
	writeJSON(w, http.StatusOK, countiesResponse{
		Counties: s.forecaster.Counties(),
		From:     from,
		To:       to,
	})
}

// parseRequest reads county, mode, duration, from and to query parameters.
func parseRequest(r *http.Request) (dashboard.Request, error) {
	q := r.URL.Query()
	return dashboard.ParseRequest(q.Get("county"), q.Get("mode"), q.Get("duration"), q.Get("from"), q.Get("to"))
}

func (s *Server) run(w http.ResponseWriter, r *http.Request) (*dashboard.Result, bool) {
	req, err := parseRequest(r)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	res, err := s.forecaster.Run(r.Context(), req)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			s.logger.Error("forecast failed",
				zap.String("county", req.County),
				zap.String("request_id", RequestID(r.Context())),
				zap.Error(err),
			)
		}
		writeError(w, r, err)
		return nil, false
	}
	return res, true
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	res, ok := s.run(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// serveArtifact renders into a buffer first so a rendering error can still
// produce a problem response.
func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, contentType, filename string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		s.logger.Error("render artifact failed",
			zap.String("file", filename),
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
		InternalError(w, "failed to render "+filename, r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleForecastCSV(w http.ResponseWriter, r *http.Request) {
	res, ok := s.run(w, r)
	if !ok {
		return
	}
	s.serveArtifact(w, r, "text/csv; charset=utf-8", safeName(res.Request.County)+"_forecast.csv", res.Report.WriteCSV)
}

func (s *Server) handleForecastXLSX(w http.ResponseWriter, r *http.Request) {
	res, ok := s.run(w, r)
	if !ok {
		return
	}
	s.serveArtifact(w, r, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		safeName(res.Request.County)+"_forecast.xlsx", res.Report.WriteXLSX)
}

func (s *Server) handleTrendChart(w http.ResponseWriter, r *http.Request) {
	res, ok := s.run(w, r)
	if !ok {
		return
	}
	s.serveArtifact(w, r, "image/png", "forecast.png", res.Report.WriteTrendPNG)
}

func (s *Server) handlePredictionChart(w http.ResponseWriter, r *http.Request) {
	res, ok := s.run(w, r)
	if !ok {
		return
	}
	s.serveArtifact(w, r, "image/png", safeName(res.Request.County)+"_prediction.png", res.Report.WritePredictionPNG)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		NotFound(w, "run history is disabled", r.URL.Path)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			BadRequest(w, "limit must be a positive integer", r.URL.Path)
			return
		}
		limit = n
	}
	runs, err := s.runs.ListRuns(r.Context(), r.URL.Query().Get("county"), limit)
	if err != nil {
		s.logger.Error("list runs failed", zap.Error(err))
		InternalError(w, "failed to list runs", r.URL.Path)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
