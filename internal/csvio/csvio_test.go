package csvio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/sos2a-intake/internal/devicerisk"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateHeaders(t *testing.T) {
	assert.Len(t, DeviceHeaders(), 29)
	assert.Len(t, IdentityHeaders(), 25)
	assert.Equal(t, "Device ID", DeviceHeaders()[0])
	assert.Equal(t, "Identity Type", IdentityHeaders()[0])
}

func TestDeviceTemplateRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDeviceTemplate(&buf))

	firstLine := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.True(t, strings.HasPrefix(firstLine, "Device ID,Device Name,Device Type"))
	// quoted comma survives the write
	assert.Contains(t, buf.String(), `"HQ, Floor 3"`)

	result, err := ImportDevices(&buf)
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	require.Equal(t, 2, result.Accepted())
	assert.Equal(t, exampleDevices[0], result.Records[0])
	assert.Equal(t, "HQ, Floor 3", result.Records[0].Location)
	assert.Equal(t, []string{"SOC 2", "PCI DSS"}, result.Records[0].ComplianceFrameworks)
}

func TestIdentityTemplateRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIdentityTemplate(&buf))

	result, err := ImportIdentities(&buf)
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Records, 3)
	assert.Equal(t, "Smith, Jane", result.Records[0].Name)
	assert.Equal(t, []string{"ERP", "Payroll, EU"}, result.Records[0].SystemsAccessed)
	assert.Equal(t, `Quarterly review, "finance-admins" group`, result.Records[0].Notes)
	assert.Equal(t, identity.CategoryThirdParty, result.Records[2].Type)
}

func TestImportMissingHeaders(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		missing string
	}{
		{"empty file", "", "file is empty"},
		{"no owner column", "Device ID,Device Type\nD1,server\n", "Owner"},
		{"several missing", "Device Name\nx\n", "Device ID, Device Type, Owner"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ImportDevices(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingHeaders)
			assert.Contains(t, err.Error(), tt.missing)
		})
	}
}

func TestImportPartialSuccess(t *testing.T) {
	input := strings.Join([]string{
		"Owner,Device Type,Device ID,MFA Enabled,Risk Score,Extra Column",
		"IT,server,D1,yes,40,ignored",
		"IT,laptop,D2,maybe,35,",
		"IT,laptop,D3",
		",laptop,D4,no,35,",
		"",
		`"Ops, EU",workstation,D5,no,30,`,
	}, "\n")

	result, err := ImportDevices(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 5, result.Total)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "D1", result.Records[0].ID)
	assert.True(t, result.Records[0].MFAEnabled)
	assert.Equal(t, 40, result.Records[0].RiskScore)
	assert.Equal(t, "Ops, EU", result.Records[1].Owner)

	require.Len(t, result.Errors, 3)
	assert.Equal(t, 3, result.Errors[0].Row)
	assert.Contains(t, result.Errors[0].Message, "MFA Enabled")
	assert.Equal(t, 4, result.Errors[1].Row)
	assert.Contains(t, result.Errors[1].Message, "expected 6 fields, got 3")
	assert.Equal(t, 5, result.Errors[2].Row)
	assert.Contains(t, result.Errors[2].Message, "Owner is required")
}

func TestExportDevices(t *testing.T) {
	override := 90
	devices := []devicerisk.Device{
		{ID: "D1", Type: "server", Owner: "IT", RiskScore: 40, RiskScoreOverride: &override, RiskTags: []string{"public-facing", "unpatched"}},
	}

	var buf bytes.Buffer
	require.NoError(t, ExportDevices(&buf, devices))

	result, err := ImportDevices(&buf)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, 90, result.Records[0].EffectiveScore())
	assert.Equal(t, []string{"public-facing", "unpatched"}, result.Records[0].RiskTags)
}

func TestImportIdentityBadCategory(t *testing.T) {
	input := "Identity Type,Name,Email\nrobot,R2,r2@example.com\nhuman,Leia,leia@example.com\n"

	result, err := ImportIdentities(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Row)
}
