package heatmap

// SLE is the single loss expectancy: asset value times exposure factor.
func SLE(assetValue, exposureFactor float64) float64 {
	return assetValue * exposureFactor
}

// ARO scales the global annual incident rate by the item likelihood.
func ARO(annualIncidentRate float64, likelihood int) float64 {
	return annualIncidentRate * (float64(likelihood) / maxOrdinal)
}

// ALE is the annualized loss expectancy.
func ALE(sle, aro float64) float64 {
	return sle * aro
}

// ResidualRisk is the ALE left after controls of the given effectiveness.
func ResidualRisk(ale, controlEffectiveness float64) float64 {
	return ale * (1 - controlEffectiveness)
}

// NRRB is the net risk reduction benefit of the control investment.
func NRRB(totalALE, totalResidual, controlInvestment float64) float64 {
	return totalALE - (totalResidual + controlInvestment)
}

// CBFScore expresses NRRB as a percentage of total ALE, clamped to [0,100].
// The second return value is false when total ALE is zero and the score is
// undefined; the score is then reported as 0.
func CBFScore(nrrb, totalALE float64) (float64, bool) {
	if totalALE == 0 {
		return 0, false
	}
	return clamp((nrrb/totalALE)*100, 0, 100), true
}

// ROI is the return on the control investment in percent. The second return
// value is false when there is no investment to divide by.
func ROI(totalALE, totalResidual, controlInvestment float64) (float64, bool) {
	if controlInvestment == 0 {
		return 0, false
	}
	return ((totalALE - totalResidual - controlInvestment) / controlInvestment) * 100, true
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
