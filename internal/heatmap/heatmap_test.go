package heatmap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskScoreAndLevel(t *testing.T) {
	for impact := 1; impact <= 5; impact++ {
		for likelihood := 1; likelihood <= 5; likelihood++ {
			assert.Equal(t, impact*likelihood, RiskScore(impact, likelihood))
		}
	}

	tests := []struct {
		score    int
		expected RiskLevel
	}{
		{1, LevelLow},
		{6, LevelLow},
		{7, LevelMedium},
		{10, LevelMedium},
		{11, LevelHigh},
		{25, LevelHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, LevelForScore(tt.score), "score %d", tt.score)
	}
}

func TestLevelMonotonic(t *testing.T) {
	rank := map[RiskLevel]int{LevelLow: 0, LevelMedium: 1, LevelHigh: 2}
	prev := rank[LevelForScore(1)]
	for score := 2; score <= 25; score++ {
		cur := rank[LevelForScore(score)]
		assert.GreaterOrEqual(t, cur, prev, "score %d", score)
		prev = cur
	}
}

func TestMatrix(t *testing.T) {
	m := Matrix()
	assert.Equal(t, LevelLow, m[0][0])
	assert.Equal(t, LevelHigh, m[4][4])
	assert.Equal(t, LevelMedium, m[1][4]) // impact 2, likelihood 5

	t.Run("lookup clamps out of range ordinals", func(t *testing.T) {
		assert.Equal(t, LevelHigh, LookupLevel(9, 9))
		assert.Equal(t, LevelLow, LookupLevel(0, -3))
		assert.Equal(t, m[2][4], LookupLevel(3, 7))
	})
}

func TestItemFormulas(t *testing.T) {
	sle := SLE(500000, 0.8)
	assert.InDelta(t, 400000, sle, 1e-9)

	aro := ARO(0.15, 3)
	assert.InDelta(t, 0.09, aro, 1e-12)

	ale := ALE(sle, aro)
	assert.InDelta(t, 36000, ale, 1e-6)

	assert.InDelta(t, 14400, ResidualRisk(ale, 0.6), 1e-6)
}

func TestFormulasMonotonic(t *testing.T) {
	assert.InDelta(t, 2*SLE(1000, 0.5), SLE(2000, 0.5), 1e-9)
	assert.Less(t, SLE(1000, 0.2), SLE(1000, 0.3))
	assert.Less(t, ARO(0.1, 2), ARO(0.1, 3))
	assert.Less(t, ARO(0.1, 3), ARO(0.2, 3))
}

func TestCalculateSeedData(t *testing.T) {
	data := DefaultData()
	require.Len(t, data.Items, 5)

	summary := Calculate(data)
	require.Len(t, summary.Items, 5)

	var sumALE, sumResidual, sumSLE float64
	for i, item := range data.Items {
		ale := ALE(SLE(item.AssetValue, item.ExposureFactor), ARO(data.AnnualIncidentRate, item.Likelihood))
		assert.InDelta(t, ale, summary.Items[i].ALE, 1e-9)
		sumALE += summary.Items[i].ALE
		sumResidual += summary.Items[i].ResidualRisk
		sumSLE += summary.Items[i].SLE
	}

	assert.Equal(t, sumALE, summary.TotalALE)
	assert.Equal(t, sumResidual, summary.TotalResidualRisk)
	assert.Equal(t, sumSLE, summary.TotalSLE)

	assert.InDelta(t, 89850, summary.TotalALE, 1e-6)
	assert.InDelta(t, 36262.5, summary.TotalResidualRisk, 1e-6)
	assert.InDelta(t, -21412.5, summary.NRRB, 1e-6)
	assert.InDelta(t, -28.55, summary.ROI, 1e-6)
	assert.Equal(t, 0.0, summary.CBFScore)
	assert.Empty(t, summary.Warnings)

	counts := summary.LevelCounts()
	assert.Equal(t, 2, counts[LevelHigh])
	assert.Equal(t, 3, counts[LevelMedium])
	assert.Equal(t, 0, counts[LevelLow])

	assert.Equal(t, 1, summary.Grid[4][2])
	assert.Equal(t, 1, summary.Grid[2][3])
}

func TestCBFClamped(t *testing.T) {
	data := HeatmapData{
		Items: []RiskItem{
			{ID: "a", AssetValue: 1000000, ExposureFactor: 1, Likelihood: 5, Impact: 5, ControlEffectiveness: 1},
		},
		AnnualIncidentRate: 1,
		ControlInvestment:  -500000,
	}

	summary := Calculate(data)
	assert.Greater(t, summary.NRRB, summary.TotalALE)
	assert.Equal(t, 100.0, summary.CBFScore)
	assert.Contains(t, summary.Warnings, "control_investment is negative")
}

func TestCalculateZeroDivision(t *testing.T) {
	tests := []struct {
		name     string
		data     HeatmapData
		warnings []string
	}{
		{
			name:     "no items and no investment",
			data:     HeatmapData{},
			warnings: []string{WarnCBFUndefined, WarnROIUndefined},
		},
		{
			name: "zero investment",
			data: HeatmapData{
				Items:              SeedItems(),
				AnnualIncidentRate: 0.15,
			},
			warnings: []string{WarnROIUndefined},
		},
		{
			name: "zero incident rate",
			data: HeatmapData{
				Items:             SeedItems(),
				ControlInvestment: 1000,
			},
			warnings: []string{WarnCBFUndefined},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := Calculate(tt.data)
			for _, w := range tt.warnings {
				assert.Contains(t, summary.Warnings, w)
			}
			for _, v := range []float64{summary.CBFScore, summary.ROI, summary.NRRB} {
				assert.False(t, math.IsNaN(v))
				assert.False(t, math.IsInf(v, 0))
			}
		})
	}
}

func TestValidate(t *testing.T) {
	data := HeatmapData{
		Items: []RiskItem{
			{ID: "ok", AssetValue: 10, ExposureFactor: 0.5, Likelihood: 3, Impact: 3, ControlEffectiveness: 0.5},
			{ID: "bad", AssetValue: -1, ExposureFactor: 1.5, Likelihood: 0, Impact: 6, ControlEffectiveness: -0.1},
		},
		AnnualIncidentRate: 0.1,
		ControlInvestment:  10,
	}

	warnings := Validate(data)
	assert.Len(t, warnings, 5)
	for _, w := range warnings {
		assert.Contains(t, w, "items[1]")
	}

	// out of range values still produce a result
	summary := Calculate(data)
	assert.Len(t, summary.Items, 2)
	assert.Equal(t, 1, summary.Grid[4][0])
}

func TestRound(t *testing.T) {
	summary := Summary{
		Items:             []ItemMetrics{{ItemID: "a", SLE: 100.4, ALE: 12.5, ResidualRisk: 3.49}},
		TotalSLE:          100.4,
		TotalALE:          12.5,
		TotalResidualRisk: 3.49,
		NRRB:              -1000.6,
		CBFScore:          42.2,
		ROI:               -28.55,
		Warnings:          []string{WarnROIUndefined},
	}

	rounded := Round(summary)
	assert.Equal(t, 100.0, rounded.Items[0].SLE)
	assert.Equal(t, 13.0, rounded.Items[0].ALE)
	assert.Equal(t, 3.0, rounded.Items[0].ResidualRisk)
	assert.Equal(t, -1001.0, rounded.NRRB)
	assert.Equal(t, 42.0, rounded.CBFScore)
	assert.Equal(t, -29.0, rounded.ROI)
	assert.Equal(t, summary.Warnings, rounded.Warnings)

	// the input is left untouched
	assert.Equal(t, 100.4, summary.Items[0].SLE)
}

func TestDisplayRoundHalves(t *testing.T) {
	tests := []struct {
		in, expected float64
	}{
		{21412.5, 21413},
		{-21412.5, -21412},
		{-0.5, 0},
		{-2.5, -2},
		{2.5, 3},
		{-2.6, -3},
		{7.49, 7},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, DisplayRound(tt.in), "DisplayRound(%v)", tt.in)
	}
	assert.True(t, math.IsInf(DisplayRound(math.Inf(-1)), -1))
}

func TestRoundSeedNRRB(t *testing.T) {
	rounded := Round(Calculate(DefaultData()))
	assert.Equal(t, -21412.0, rounded.NRRB)
	assert.Equal(t, 89850.0, rounded.TotalALE)
	assert.InDelta(t, 36263.0, rounded.TotalResidualRisk, 1)
}

func TestEvaluateItemOutOfRangeLevel(t *testing.T) {
	tests := []struct {
		name               string
		impact, likelihood int
		score              int
		level              RiskLevel
	}{
		{"impact above range", 7, 2, 14, LevelHigh},
		{"likelihood above range", 1, 8, 8, LevelMedium},
		{"negative impact", -3, 2, -6, LevelLow},
		{"in range uses matrix", 3, 4, 12, LevelHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := EvaluateItem(RiskItem{ID: "x", Impact: tt.impact, Likelihood: tt.likelihood}, 0.15)
			assert.Equal(t, tt.score, m.RiskScore)
			assert.Equal(t, tt.level, m.RiskLevel)
			assert.Equal(t, LevelForScore(m.RiskScore), m.RiskLevel)
		})
	}
}
