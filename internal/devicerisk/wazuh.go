package devicerisk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/ZanzyTHEbar/sos2a-intake/internal/errors"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/resilience"
)

// ErrWazuhDisabled is returned when no manager URL is configured
var ErrWazuhDisabled = fmt.Errorf("wazuh client not configured")

// WazuhConfig configures the agent score client
type WazuhConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Breaker resilience.CircuitBreakerConfig
	Retry   resilience.RetryConfig
}

type wazuhAgentScore struct {
	AgentID   string `json:"agent_id"`
	RiskScore int    `json:"risk_score"`
}

type wazuhResponse struct {
	Data struct {
		AffectedItems      []wazuhAgentScore `json:"affected_items"`
		TotalAffectedItems int               `json:"total_affected_items"`
	} `json:"data"`
	Message string `json:"message"`
	Error   int    `json:"error"`
}

// WazuhClient fetches agent-reported risk scores from a Wazuh-compatible API
type WazuhClient struct {
	baseURL string
	token   string
	client  *http.Client
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
}

// NewWazuhClient creates a client. An empty BaseURL yields a disabled client
// whose calls return ErrWazuhDisabled.
func NewWazuhClient(cfg WazuhConfig) *WazuhClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = resilience.DefaultRetryConfig()
	}
	if cfg.Retry.RetryableErrors == nil {
		cfg.Retry.RetryableErrors = apperrors.IsRetryableError
	}

	return &WazuhClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  resilience.NewPooledClient(resilience.PoolConfig{Timeout: cfg.Timeout}),
		breaker: resilience.NewCircuitBreaker(cfg.Breaker),
		retry:   cfg.Retry,
	}
}

// Enabled reports whether a manager URL is configured
func (w *WazuhClient) Enabled() bool {
	return w != nil && w.baseURL != ""
}

// FetchRiskScore returns the score the manager reports for an agent
func (w *WazuhClient) FetchRiskScore(ctx context.Context, agentID string) (int, error) {
	if !w.Enabled() {
		return 0, ErrWazuhDisabled
	}
	if agentID == "" {
		return 0, apperrors.NewValidationError("wazuh agent id is required")
	}

	endpoint := fmt.Sprintf("%s/agents/%s/risk", w.baseURL, url.PathEscape(agentID))

	var resp *http.Response
	err := w.breaker.Call(func() error {
		var err error
		resp, err = resilience.RetryHTTP(ctx, w.retry, func() (*http.Response, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Accept", "application/json")
			if w.token != "" {
				req.Header.Set("Authorization", "Bearer "+w.token)
			}
			return w.client.Do(req)
		})
		return err
	})
	if err != nil {
		return 0, apperrors.NewExternalAPIError("wazuh", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, apperrors.NewExternalAPIError("wazuh",
			fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body)))
	}

	var payload wazuhResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, apperrors.NewExternalAPIError("wazuh", fmt.Errorf("decode response: %w", err))
	}

	for _, item := range payload.Data.AffectedItems {
		if item.AgentID == agentID {
			return clampScore(item.RiskScore), nil
		}
	}

	return 0, apperrors.NewNotFoundError("wazuh agent", agentID)
}

// BreakerStats exposes the circuit breaker state and the transport sizing
func (w *WazuhClient) BreakerStats() map[string]interface{} {
	stats := w.breaker.Stats()
	stats["transport"] = resilience.PoolStats(w.client)
	return stats
}

// ScoreDevice sets the device's RiskScore. A device with a Wazuh agent id
// takes the agent score when the client is enabled and the call succeeds;
// every other case falls back to the computed score. The returned string
// names the source used ("wazuh" or "computed").
func ScoreDevice(ctx context.Context, client *WazuhClient, device *Device, orgRiskTags []string) string {
	device.Rescore(orgRiskTags)

	if device.WazuhAgentID == "" || !client.Enabled() {
		return "computed"
	}

	score, err := client.FetchRiskScore(ctx, device.WazuhAgentID)
	if err != nil {
		slog.Warn("Falling back to computed device score",
			"device_id", device.ID,
			"agent_id", device.WazuhAgentID,
			"error", err)
		return "computed"
	}

	device.RiskScore = score
	return "wazuh"
}
