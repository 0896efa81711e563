package heatmap

const (
	minOrdinal = 1
	maxOrdinal = 5

	lowCeiling    = 6
	mediumCeiling = 10
)

// riskMatrix is indexed by [impact-1][likelihood-1]
var riskMatrix = buildMatrix()

func buildMatrix() [maxOrdinal][maxOrdinal]RiskLevel {
	var m [maxOrdinal][maxOrdinal]RiskLevel
	for i := minOrdinal; i <= maxOrdinal; i++ {
		for l := minOrdinal; l <= maxOrdinal; l++ {
			m[i-1][l-1] = LevelForScore(RiskScore(i, l))
		}
	}
	return m
}

// RiskScore is impact multiplied by likelihood (1-25 for in-range ordinals).
func RiskScore(impact, likelihood int) int {
	return impact * likelihood
}

// LevelForScore buckets a risk score: <=6 Low, 7-10 Medium, above that High.
func LevelForScore(score int) RiskLevel {
	switch {
	case score <= lowCeiling:
		return LevelLow
	case score <= mediumCeiling:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// Matrix returns a copy of the 5x5 impact/likelihood lookup table.
func Matrix() [maxOrdinal][maxOrdinal]RiskLevel {
	return riskMatrix
}

// LookupLevel reads the matrix cell for the given ordinals. Values outside
// 1..5 are clamped onto the nearest edge of the table.
func LookupLevel(impact, likelihood int) RiskLevel {
	return riskMatrix[clampOrdinal(impact)-1][clampOrdinal(likelihood)-1]
}

func clampOrdinal(v int) int {
	if v < minOrdinal {
		return minOrdinal
	}
	if v > maxOrdinal {
		return maxOrdinal
	}
	return v
}
