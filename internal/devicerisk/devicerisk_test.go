package devicerisk

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/sos2a-intake/internal/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateDeviceRiskScore(t *testing.T) {
	tests := []struct {
		name       string
		tags       []string
		deviceType string
		expected   int
	}{
		{"base score only", nil, "server", 40},
		{"unknown type falls back to other", nil, "toaster", 25},
		{"alias", nil, "Desktop", 30},
		{"known tags add weight", []string{"no-mfa", "unpatched"}, "laptop", 73},
		{"unknown tags add nothing", []string{"quantum-risk"}, "laptop", 35},
		{"tags are normalised and de-duplicated", []string{"Remote Workforce", "remote-workforce", "REMOTE_WORKFORCE"}, "mobile", 45},
		{"clamped to 100", []string{"no-mfa", "unpatched", "legacy-systems", "public-facing", "flat-network"}, "iot", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CalculateDeviceRiskScore(tt.tags, tt.deviceType))
		})
	}
}

func TestRiskLevelFromScore(t *testing.T) {
	assert.Equal(t, LevelLow, RiskLevelFromScore(0))
	assert.Equal(t, LevelLow, RiskLevelFromScore(39))
	assert.Equal(t, LevelMedium, RiskLevelFromScore(40))
	assert.Equal(t, LevelHigh, RiskLevelFromScore(60))
	assert.Equal(t, LevelCritical, RiskLevelFromScore(80))
	assert.Equal(t, LevelCritical, RiskLevelFromScore(100))
}

func TestDeviceOverride(t *testing.T) {
	d := Device{ID: "dev-1", Type: "server", RiskTags: []string{"public-facing"}}
	d.Rescore([]string{"no-mfa"})
	assert.Equal(t, 75, d.RiskScore)
	assert.Equal(t, LevelHigh, d.EffectiveLevel())

	override := 150
	d.SetOverride(&override)
	assert.Equal(t, 100, d.EffectiveScore())
	assert.Equal(t, 75, d.RiskScore)

	d.SetOverride(nil)
	assert.Equal(t, 75, d.EffectiveScore())

	dist := Distribution([]Device{d, {RiskScore: 10}, {RiskScore: 85}})
	assert.Equal(t, 1, dist[LevelHigh])
	assert.Equal(t, 1, dist[LevelLow])
	assert.Equal(t, 1, dist[LevelCritical])
	assert.Equal(t, 0, dist[LevelMedium])
}

func fastRetry() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.InitialDelay = time.Millisecond
	return cfg
}

func TestWazuhClientFetchRiskScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "/agents/001/risk", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"affected_items":[{"agent_id":"001","risk_score":72}],"total_affected_items":1},"error":0}`)
	}))
	defer srv.Close()

	client := NewWazuhClient(WazuhConfig{BaseURL: srv.URL, Token: "secret", Retry: fastRetry()})
	score, err := client.FetchRiskScore(context.Background(), "001")
	require.NoError(t, err)
	assert.Equal(t, 72, score)

	_, err = client.FetchRiskScore(context.Background(), "")
	assert.Error(t, err)
}

func TestWazuhClientDisabled(t *testing.T) {
	client := NewWazuhClient(WazuhConfig{})
	assert.False(t, client.Enabled())

	_, err := client.FetchRiskScore(context.Background(), "001")
	assert.ErrorIs(t, err, ErrWazuhDisabled)
}

func TestScoreDeviceFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewWazuhClient(WazuhConfig{
		BaseURL: srv.URL,
		Retry:   fastRetry(),
		Breaker: resilience.CircuitBreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Minute},
	})

	d := Device{ID: "dev-1", Type: "workstation", WazuhAgentID: "007"}
	source := ScoreDevice(context.Background(), client, &d, []string{"byod"})
	assert.Equal(t, "computed", source)
	assert.Equal(t, 40, d.RiskScore)
	assert.Equal(t, "open", client.BreakerStats()["state"])

	noAgent := Device{ID: "dev-2", Type: "server"}
	assert.Equal(t, "computed", ScoreDevice(context.Background(), nil, &noAgent, nil))
	assert.Equal(t, 40, noAgent.RiskScore)
}
