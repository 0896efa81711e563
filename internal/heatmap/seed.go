package heatmap

// Default global scalars used with the seeded register
const (
	DefaultTotalAssetValue    = 2500000
	DefaultAnnualIncidentRate = 0.15
	DefaultControlInvestment  = 75000
)

// SeedItems returns the five risk items a new assessment starts with.
func SeedItems() []RiskItem {
	return []RiskItem{
		{
			ID:                   "risk-1",
			Threat:               "Ransomware attack",
			AssetValue:           500000,
			ExposureFactor:       0.8,
			Likelihood:           3,
			Impact:               5,
			CurrentControls:      "Offline backups, EDR on endpoints",
			ControlEffectiveness: 0.6,
		},
		{
			ID:                   "risk-2",
			Threat:               "Phishing and credential theft",
			AssetValue:           250000,
			ExposureFactor:       0.4,
			Likelihood:           4,
			Impact:               3,
			CurrentControls:      "Email filtering, awareness training",
			ControlEffectiveness: 0.5,
		},
		{
			ID:                   "risk-3",
			Threat:               "Customer data breach",
			AssetValue:           800000,
			ExposureFactor:       0.6,
			Likelihood:           2,
			Impact:               5,
			CurrentControls:      "Encryption at rest, DLP",
			ControlEffectiveness: 0.7,
		},
		{
			ID:                   "risk-4",
			Threat:               "Insider misuse",
			AssetValue:           300000,
			ExposureFactor:       0.5,
			Likelihood:           2,
			Impact:               4,
			CurrentControls:      "Quarterly access reviews",
			ControlEffectiveness: 0.4,
		},
		{
			ID:                   "risk-5",
			Threat:               "DDoS and service outage",
			AssetValue:           150000,
			ExposureFactor:       0.3,
			Likelihood:           3,
			Impact:               3,
			CurrentControls:      "CDN, upstream rate limiting",
			ControlEffectiveness: 0.55,
		},
	}
}

// DefaultData wraps the seeded items with the default global scalars.
func DefaultData() HeatmapData {
	return HeatmapData{
		Items:              SeedItems(),
		TotalAssetValue:    DefaultTotalAssetValue,
		AnnualIncidentRate: DefaultAnnualIncidentRate,
		ControlInvestment:  DefaultControlInvestment,
	}
}
