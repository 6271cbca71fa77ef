// Package modelclient calls the external Risk Model Provider over HTTP.
//
// The provider is pre-trained and stateless per call: it takes the
// 8-value feature vector and returns calibrated probabilities from its
// three models. Any transport or upstream failure surfaces as
// ensemble.ErrModelUnavailable and the engine fails closed rather than
// scoring without the models. A circuit breaker sheds load while the
// provider is down; there are no retries here.
package modelclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/malkaabi/fraudlens/internal/circuitbreaker"
	"github.com/malkaabi/fraudlens/internal/ensemble"
	"github.com/malkaabi/fraudlens/internal/metrics"
)

const scorePath = "/v1/score"

// Client is an ensemble.Provider backed by the provider's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
	logger     *slog.Logger
}

// New creates a provider client. The timeout bounds each scoring call.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    circuitbreaker.New("model_provider", 5, 30*time.Second),
		logger:     logger,
	}
}

type scoreRequest struct {
	Features []float64 `json:"features"`
}

// Score implements ensemble.Provider.
func (c *Client) Score(ctx context.Context, features [ensemble.FeatureCount]float64) (ensemble.ModelScores, error) {
	if !c.breaker.Allow() {
		metrics.ModelProviderRequestsTotal.WithLabelValues("circuit_open").Inc()
		return ensemble.ModelScores{}, fmt.Errorf("circuit open: %w", ensemble.ErrModelUnavailable)
	}

	body, err := json.Marshal(scoreRequest{Features: features[:]})
	if err != nil {
		return ensemble.ModelScores{}, fmt.Errorf("encode score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+scorePath, bytes.NewReader(body))
	if err != nil {
		return ensemble.ModelScores{}, fmt.Errorf("build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		metrics.ModelProviderRequestsTotal.WithLabelValues("error").Inc()
		c.logger.Warn("model provider request failed", "error", err)
		return ensemble.ModelScores{}, fmt.Errorf("call model provider: %v: %w", err, ensemble.ErrModelUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.breaker.RecordFailure()
		metrics.ModelProviderRequestsTotal.WithLabelValues("error").Inc()
		return ensemble.ModelScores{}, fmt.Errorf("model provider returned %d: %w",
			resp.StatusCode, ensemble.ErrModelUnavailable)
	}

	var scores ensemble.ModelScores
	if err := json.NewDecoder(resp.Body).Decode(&scores); err != nil {
		c.breaker.RecordFailure()
		metrics.ModelProviderRequestsTotal.WithLabelValues("error").Inc()
		return ensemble.ModelScores{}, fmt.Errorf("decode model provider response: %v: %w",
			err, ensemble.ErrModelUnavailable)
	}

	c.breaker.RecordSuccess()
	metrics.ModelProviderRequestsTotal.WithLabelValues("ok").Inc()
	return scores, nil
}

// BreakerState exposes the circuit state for health reporting.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}
