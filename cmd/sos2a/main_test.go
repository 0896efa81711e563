package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }

func run(t *testing.T, args ...string) (string, int) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(fixedNow)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), exitCode(err)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestHeatmapCommand(t *testing.T) {
	t.Run("seeded register as json", func(t *testing.T) {
		out, code := run(t, "heatmap", "--format", "json")
		require.Equal(t, 0, code, out)

		var rep struct {
			Heatmap struct {
				TotalALE float64 `json:"total_ale"`
			} `json:"heatmap"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &rep))
		assert.InDelta(t, 89850.0, rep.Heatmap.TotalALE, 0.5)
	})

	t.Run("toml register", func(t *testing.T) {
		path := writeFile(t, "register.toml", `
annual_incident_rate = 1.0
control_investment = 0.0

[[items]]
id = "R1"
threat = "Phishing"
asset_value = 1000.0
exposure_factor = 0.5
likelihood = 2
impact = 2
control_effectiveness = 0.5
`)
		out, code := run(t, "heatmap", "--input", path, "--format", "json")
		require.Equal(t, 0, code, out)
		assert.Contains(t, out, "roi_undefined_zero_investment")
		assert.Contains(t, out, `"threat": "Phishing"`)
	})

	t.Run("pdf to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "heatmap.pdf")
		_, code := run(t, "heatmap", "--format", "pdf", "--out", path)
		require.Equal(t, 0, code)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
	})

	tests := []struct {
		name string
		args []string
	}{
		{"unknown format", []string{"heatmap", "--format", "xml"}},
		{"pdf needs out", []string{"heatmap", "--format", "pdf"}},
		{"missing input", []string{"heatmap", "--input", "/does/not/exist.json"}},
		{"unknown flag", []string{"heatmap", "--colour"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, code := run(t, tt.args...)
			assert.Equal(t, exitUsage, code)
		})
	}
}

func TestTemplateAndImport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devices.csv")

	_, code := run(t, "template", "devices", "--out", path)
	require.Equal(t, 0, code)

	out, code := run(t, "import", "devices", path, "--format", "json")
	require.Equal(t, 0, code, out)
	var summary importSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 2, summary.Accepted)
	assert.Empty(t, summary.Errors)

	bad := writeFile(t, "bad.csv", "Device ID,Device Type,Owner\nD-1,laptop,IT\nD-2,,IT\n")
	out, code = run(t, "import", "devices", bad)
	assert.Equal(t, exitRowErrors, code)
	assert.Contains(t, out, "2 rows, 1 accepted, 1 rejected")

	headers := writeFile(t, "headers.csv", "Name\nJane\n")
	_, code = run(t, "import", "identities", headers)
	assert.Equal(t, exitUsage, code)

	_, code = run(t, "import", "printers", path)
	assert.Equal(t, exitUsage, code)

	out, code = run(t, "template", "identities")
	require.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(out, "Identity Type,"))
}

func TestUWACommand(t *testing.T) {
	out, code := run(t, "uwa", "--type", "human", "--name", "Jane Smith", "--email", "jane@acme.example",
		"--component", "Employee ID")
	require.Equal(t, 0, code, out)
	label := strings.TrimSpace(out)
	assert.Len(t, label, 10)

	again, _ := run(t, "uwa", "--type", "human", "--name", "Jane Smith", "--email", "jane@acme.example",
		"--component", "Employee ID")
	assert.Equal(t, label, strings.TrimSpace(again), "same input and clock give the same label")

	_, code = run(t, "uwa", "--type", "robot")
	assert.Equal(t, exitUsage, code)

	_, code = run(t, "uwa", "--name", "No Type")
	assert.Equal(t, exitUsage, code)
}

func TestDeviceScoreCommand(t *testing.T) {
	out, code := run(t, "device-score", "--type", "server", "--tag", "no-mfa")
	require.Equal(t, 0, code)
	assert.Equal(t, "server\t60\tHigh\n", out)

	out, code = run(t, "device-score", "--type", "toaster")
	require.Equal(t, 0, code)
	assert.Equal(t, "other\t25\tLow\n", out)
}
