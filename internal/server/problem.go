package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/evtrends/evtrends/internal/dashboard"
	"github.com/evtrends/evtrends/internal/dataset"
	"github.com/evtrends/evtrends/internal/forecast"
)

// Problem types for RFC 7807 Problem Details responses.
const (
	ProblemTypeNotFound      = "https://evtrends.dev/problems/no-data"
	ProblemTypeBadRequest    = "https://evtrends.dev/problems/bad-request"
	ProblemTypeUnprocessable = "https://evtrends.dev/problems/insufficient-history"
	ProblemTypeInternal      = "https://evtrends.dev/problems/internal-error"
	ProblemTypeRateLimited   = "https://evtrends.dev/problems/rate-limited"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// WriteProblem writes an RFC 7807 Problem Details JSON response.
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func NotFound(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeNotFound,
		Title:    "Not Found",
		Status:   http.StatusNotFound,
		Detail:   detail,
		Instance: instance,
	})
}

func BadRequest(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeBadRequest,
		Title:    "Bad Request",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: instance,
	})
}

func Unprocessable(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeUnprocessable,
		Title:    "Unprocessable Entity",
		Status:   http.StatusUnprocessableEntity,
		Detail:   detail,
		Instance: instance,
	})
}

func InternalError(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeInternal,
		Title:    "Internal Server Error",
		Status:   http.StatusInternalServerError,
		Detail:   detail,
		Instance: instance,
	})
}

func RateLimited(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeRateLimited,
		Title:    "Too Many Requests",
		Status:   http.StatusTooManyRequests,
		Detail:   detail,
		Instance: instance,
	})
}

// statusFor maps forecast errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, dataset.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, forecast.ErrInsufficientHistory):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch statusFor(err) {
	case http.StatusBadRequest:
		BadRequest(w, err.Error(), r.URL.Path)
	case http.StatusNotFound:
		NotFound(w, "No data available for the selected range.", r.URL.Path)
	case http.StatusUnprocessableEntity:
		Unprocessable(w, err.Error(), r.URL.Path)
	default:
		InternalError(w, "forecast failed", r.URL.Path)
	}
}
