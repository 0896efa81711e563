package heatmap

// RiskLevel is the qualitative bucket of a risk score
type RiskLevel string

const (
	LevelLow    RiskLevel = "Low"
	LevelMedium RiskLevel = "Medium"
	LevelHigh   RiskLevel = "High"
)

// RiskItem is a single row of the risk register
type RiskItem struct {
	ID                   string  `json:"id" toml:"id"`
	Threat               string  `json:"threat" toml:"threat"`
	AssetValue           float64 `json:"asset_value" toml:"asset_value"`
	ExposureFactor       float64 `json:"exposure_factor" toml:"exposure_factor"`
	Likelihood           int     `json:"likelihood" toml:"likelihood"`
	Impact               int     `json:"impact" toml:"impact"`
	CurrentControls      string  `json:"current_controls" toml:"current_controls"`
	ControlEffectiveness float64 `json:"control_effectiveness" toml:"control_effectiveness"`
}

// HeatmapData is the full input of the cost-benefit calculation
type HeatmapData struct {
	Items              []RiskItem `json:"items" toml:"items"`
	TotalAssetValue    float64    `json:"total_asset_value" toml:"total_asset_value"`
	AnnualIncidentRate float64    `json:"annual_incident_rate" toml:"annual_incident_rate"`
	ControlInvestment  float64    `json:"control_investment" toml:"control_investment"`
}

// ItemMetrics holds the derived figures for one risk item
type ItemMetrics struct {
	ItemID       string    `json:"item_id"`
	Threat       string    `json:"threat"`
	Impact       int       `json:"impact"`
	Likelihood   int       `json:"likelihood"`
	RiskScore    int       `json:"risk_score"`
	RiskLevel    RiskLevel `json:"risk_level"`
	SLE          float64   `json:"sle"`
	ARO          float64   `json:"aro"`
	ALE          float64   `json:"ale"`
	ResidualRisk float64   `json:"residual_risk"`
}

// Summary is the aggregate result over all risk items
type Summary struct {
	Items             []ItemMetrics `json:"items"`
	TotalSLE          float64       `json:"total_sle"`
	TotalALE          float64       `json:"total_ale"`
	TotalResidualRisk float64       `json:"total_residual_risk"`
	ControlInvestment float64       `json:"control_investment"`
	NRRB              float64       `json:"nrrb"`
	CBFScore          float64       `json:"cbf_score"`
	ROI               float64       `json:"roi"`
	Grid              [5][5]int     `json:"grid"`
	Warnings          []string      `json:"warnings,omitempty"`
}

// LevelCounts returns how many items fall in each risk level
func (s Summary) LevelCounts() map[RiskLevel]int {
	counts := map[RiskLevel]int{LevelLow: 0, LevelMedium: 0, LevelHigh: 0}
	for _, m := range s.Items {
		counts[m.RiskLevel]++
	}
	return counts
}
