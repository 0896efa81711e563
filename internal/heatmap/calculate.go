package heatmap

import (
	"fmt"
	"math"
)

// Warning codes attached to a Summary
const (
	WarnCBFUndefined = "cbf_undefined_zero_ale"
	WarnROIUndefined = "roi_undefined_zero_investment"
)

// EvaluateItem computes the per-item metrics for one risk item.
func EvaluateItem(item RiskItem, annualIncidentRate float64) ItemMetrics {
	sle := SLE(item.AssetValue, item.ExposureFactor)
	aro := ARO(annualIncidentRate, item.Likelihood)
	ale := ALE(sle, aro)

	return ItemMetrics{
		ItemID:       item.ID,
		Threat:       item.Threat,
		Impact:       item.Impact,
		Likelihood:   item.Likelihood,
		RiskScore:    RiskScore(item.Impact, item.Likelihood),
		RiskLevel:    itemLevel(item.Impact, item.Likelihood),
		SLE:          sle,
		ARO:          aro,
		ALE:          ale,
		ResidualRisk: ResidualRisk(ale, item.ControlEffectiveness),
	}
}

// itemLevel reads the matrix for in-range ordinals. Out-of-range ordinals
// are bucketed by their raw score so the level never disagrees with the
// reported RiskScore.
func itemLevel(impact, likelihood int) RiskLevel {
	if impact < minOrdinal || impact > maxOrdinal || likelihood < minOrdinal || likelihood > maxOrdinal {
		return LevelForScore(RiskScore(impact, likelihood))
	}
	return LookupLevel(impact, likelihood)
}

// Calculate runs the cost-benefit model over every item. Totals are plain
// sums of the unrounded per-item values. Inputs are never rejected; range
// problems and undefined ratios are reported in Summary.Warnings.
func Calculate(data HeatmapData) Summary {
	summary := Summary{
		Items:             make([]ItemMetrics, 0, len(data.Items)),
		ControlInvestment: data.ControlInvestment,
		Warnings:          Validate(data),
	}

	for _, item := range data.Items {
		m := EvaluateItem(item, data.AnnualIncidentRate)
		summary.Items = append(summary.Items, m)

		summary.TotalSLE += m.SLE
		summary.TotalALE += m.ALE
		summary.TotalResidualRisk += m.ResidualRisk
		summary.Grid[clampOrdinal(item.Impact)-1][clampOrdinal(item.Likelihood)-1]++
	}

	summary.NRRB = NRRB(summary.TotalALE, summary.TotalResidualRisk, data.ControlInvestment)

	cbf, ok := CBFScore(summary.NRRB, summary.TotalALE)
	if !ok {
		summary.Warnings = append(summary.Warnings, WarnCBFUndefined)
	}
	summary.CBFScore = cbf

	roi, ok := ROI(summary.TotalALE, summary.TotalResidualRisk, data.ControlInvestment)
	if !ok {
		summary.Warnings = append(summary.Warnings, WarnROIUndefined)
	}
	summary.ROI = roi

	return summary
}

// Validate reports out-of-range inputs. It never fails the calculation.
func Validate(data HeatmapData) []string {
	var warnings []string
	add := func(format string, args ...interface{}) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	if data.AnnualIncidentRate < 0 {
		add("annual_incident_rate is negative")
	}
	if data.ControlInvestment < 0 {
		add("control_investment is negative")
	}
	if data.TotalAssetValue < 0 {
		add("total_asset_value is negative")
	}

	for i, item := range data.Items {
		if item.AssetValue < 0 {
			add("items[%d].asset_value is negative", i)
		}
		if item.ExposureFactor < 0 || item.ExposureFactor > 1 {
			add("items[%d].exposure_factor outside [0,1]", i)
		}
		if item.ControlEffectiveness < 0 || item.ControlEffectiveness > 1 {
			add("items[%d].control_effectiveness outside [0,1]", i)
		}
		if item.Likelihood < minOrdinal || item.Likelihood > maxOrdinal {
			add("items[%d].likelihood outside 1..5", i)
		}
		if item.Impact < minOrdinal || item.Impact > maxOrdinal {
			add("items[%d].impact outside 1..5", i)
		}
	}

	return warnings
}

// DisplayRound rounds half-way values toward +Inf, so -21412.5 becomes
// -21412 and 21412.5 becomes 21413. This matches the browser's Math.round.
func DisplayRound(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return math.Floor(x + 0.5)
}

// Round returns a copy of the summary with currency figures rounded to whole
// units and percentages rounded to whole points, for display.
func Round(s Summary) Summary {
	out := s
	out.Items = make([]ItemMetrics, len(s.Items))
	for i, m := range s.Items {
		m.SLE = DisplayRound(m.SLE)
		m.ALE = DisplayRound(m.ALE)
		m.ResidualRisk = DisplayRound(m.ResidualRisk)
		out.Items[i] = m
	}
	out.TotalSLE = DisplayRound(s.TotalSLE)
	out.TotalALE = DisplayRound(s.TotalALE)
	out.TotalResidualRisk = DisplayRound(s.TotalResidualRisk)
	out.NRRB = DisplayRound(s.NRRB)
	out.CBFScore = DisplayRound(s.CBFScore)
	out.ROI = DisplayRound(s.ROI)
	if s.Warnings != nil {
		out.Warnings = append([]string(nil), s.Warnings...)
	}
	return out
}
