package uwa

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseShape = regexp.MustCompile(`^[0-9a-z]{6}$`)

func TestHash(t *testing.T) {
	assert.Equal(t, int64(0), Hash(""))
	assert.Equal(t, int64(97), Hash("a"))
	// ((97 << 3) ^ 98) + 7
	assert.Equal(t, int64(881), Hash("ab"))
}

func TestBaseCode(t *testing.T) {
	tests := []struct {
		name     string
		input    Input
		expected string
	}{
		{"short hash is right padded", Input{IdentityType: "a"}, "2p0000"},
		{"two characters", Input{IdentityType: "a", Name: "b"}, "oh0000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BaseCode(tt.input))
		})
	}
}

func TestBaseCodeDeterministic(t *testing.T) {
	in := Input{
		IdentityType: "human",
		Name:         "Jane Smith",
		Email:        "jane.smith@example.com",
		Components:   []string{"Full Name", "Email Address", "MFA Device"},
	}

	first := BaseCode(in)
	assert.Regexp(t, baseShape, first)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BaseCode(in))
	}

	other := in
	other.Components = []string{"Full Name"}
	assert.Equal(t, "humanJane Smithjane.smith@example.comFull Name", other.Composite())
}

func TestBaseCodeHandlesWideInput(t *testing.T) {
	in := Input{
		IdentityType: "third-party",
		Name:         strings.Repeat("Zürich GmbH 🚀 ", 40),
		Email:        "ops@vendor.example",
	}
	assert.Regexp(t, baseShape, BaseCode(in))
}

func TestGenerate(t *testing.T) {
	in := Input{IdentityType: "api", Name: "billing-service"}
	now := time.UnixMilli(1700000001234)

	addr := Generate(in, now)
	assert.Equal(t, "1234", addr.Suffix)
	assert.Equal(t, BaseCode(in), addr.Base)
	assert.Len(t, addr.String(), 10)

	later := Generate(in, now.Add(5*time.Millisecond))
	assert.Equal(t, addr.Base, later.Base)
	assert.Equal(t, "1239", later.Suffix)

	parsed, ok := Parse(addr.String())
	require.True(t, ok)
	assert.Equal(t, addr, parsed)

	_, ok = Parse("short")
	assert.False(t, ok)
}
