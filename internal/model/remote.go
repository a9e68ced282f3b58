package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/evtrends/evtrends/internal/forecast"
)

var _ forecast.Predictor = (*RemoteModel)(nil)

// RemoteModel calls a model served over HTTP.
type RemoteModel struct {
	baseURL string
	client  *http.Client
}

type predictRequest struct {
	Instances []forecast.Features `json:"instances"`
}

type predictResponse struct {
	Predictions []float64 `json:"predictions"`
}

// NewRemote creates a client for the model server at baseURL.
func NewRemote(baseURL string, timeout time.Duration) *RemoteModel {
	return &RemoteModel{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Predict posts one feature row to {baseURL}/predict.
func (c *RemoteModel) Predict(ctx context.Context, f forecast.Features) (float64, error) {
	body, err := json.Marshal(predictRequest{Instances: []forecast.Features{f}})
	if err != nil {
		return 0, fmt.Errorf("marshal features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send predict request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("%w: status %d: %s", ErrRemote, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode predict response: %w", err)
	}
	if len(out.Predictions) == 0 {
		return 0, fmt.Errorf("%w: empty predictions", ErrRemote)
	}
	return out.Predictions[0], nil
}

func (c *RemoteModel) String() string { return c.baseURL }
