package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/sos2a-intake/internal/assessment"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/devicerisk"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/heatmap"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/identity"
)

var reportTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleReview() assessment.ReviewModel {
	a := assessment.New("a-1", reportTime)
	a.BusinessProfile.BusinessName = "Acme Dental"
	devices := []devicerisk.Device{{ID: "D1", Type: "server", RiskScore: 85}, {ID: "D2", Type: "laptop", RiskScore: 35}}
	ids := []identity.Identity{{ID: "i1", Type: identity.CategoryHuman, Name: "Jane", Email: "jane@acme.example"}}
	return assessment.Review(a, devices, ids, reportTime)
}

func TestGet(t *testing.T) {
	tests := []struct {
		format string
		want   Renderer
	}{
		{"json", &JSONRenderer{}},
		{"md", &MarkdownRenderer{}},
		{"markdown", &MarkdownRenderer{}},
		{"PDF", &PDFRenderer{}},
		{"terminal", &TerminalRenderer{}},
		{"", &TerminalRenderer{}},
		{"xml", &TerminalRenderer{}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			assert.IsType(t, tt.want, Get(tt.format))
		})
	}
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$0", money(0))
	assert.Equal(t, "$999", money(999))
	assert.Equal(t, "$89,850", money(89850))
	assert.Equal(t, "$2,500,000", money(2500000))
	assert.Equal(t, "-$21,412", money(-21412.5))
	assert.Equal(t, "$21,413", money(21412.5))
	assert.Equal(t, "$0", money(-0.4))
	assert.Equal(t, "$1,000", money(999.5))

	rounded := heatmap.Round(heatmap.Calculate(heatmap.DefaultData()))
	assert.Equal(t, "-$21,412", money(rounded.NRRB))
}

func TestFromReview(t *testing.T) {
	rep := FromReview(sampleReview(), reportTime)

	assert.Equal(t, "a-1", rep.AssessmentID)
	assert.Equal(t, 2, rep.DeviceCount)
	require.Len(t, rep.DeviceDistribution, 4)
	assert.Equal(t, LevelCount{Level: devicerisk.LevelCritical, Count: 1}, rep.DeviceDistribution[0])
	assert.Equal(t, LevelCount{Level: devicerisk.LevelLow, Count: 1}, rep.DeviceDistribution[3])
	assert.NotEmpty(t, rep.Findings)
	assert.Contains(t, rep.ValidationErrors, "contacts.primary_email")
}

func TestJSONRenderer(t *testing.T) {
	out, err := Get("json").Render(FromHeatmap(heatmap.DefaultData(), reportTime))
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Len(t, decoded.Heatmap.Items, 5)
	assert.Equal(t, float64(89850), decoded.Heatmap.TotalALE)
}

func TestMarkdownRenderer(t *testing.T) {
	out, err := Get("md").Render(FromReview(sampleReview(), reportTime))
	require.NoError(t, err)

	md := string(out)
	assert.True(t, strings.HasPrefix(md, "# SOS2A Assessment Report"))
	assert.Contains(t, md, "| Total ALE | $89,850 |")
	assert.Contains(t, md, "Ransomware")
	assert.Contains(t, md, "## Devices (2)")
	assert.Contains(t, md, "no_mfa")
	assert.Contains(t, md, "`contacts.primary_email`")
}

func TestTerminalRenderer(t *testing.T) {
	out, err := Get("terminal").Render(FromHeatmap(heatmap.DefaultData(), reportTime))
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "SOS2A Risk Heatmap")
	assert.Contains(t, text, "$89,850")
	assert.Contains(t, text, "Likelihood")
	assert.NotContains(t, text, "Devices:")
}

func TestPDFRenderer(t *testing.T) {
	r := Get("pdf")
	assert.Equal(t, "application/pdf", r.ContentType())

	out, err := r.Render(FromReview(sampleReview(), reportTime))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}
