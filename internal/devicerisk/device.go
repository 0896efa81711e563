package devicerisk

import "time"

// Device is one row of the device inventory tab
type Device struct {
	ID                   string   `json:"id"`
	AssessmentID         string   `json:"assessment_id,omitempty"`
	Name                 string   `json:"name"`
	Type                 string   `json:"type" binding:"required"`
	Manufacturer         string   `json:"manufacturer,omitempty"`
	Model                string   `json:"model,omitempty"`
	SerialNumber         string   `json:"serial_number,omitempty"`
	OperatingSystem      string   `json:"operating_system,omitempty"`
	OSVersion            string   `json:"os_version,omitempty"`
	FirmwareVersion      string   `json:"firmware_version,omitempty"`
	IPAddress            string   `json:"ip_address,omitempty"`
	MACAddress           string   `json:"mac_address,omitempty"`
	Location             string   `json:"location,omitempty"`
	Department           string   `json:"department,omitempty"`
	Owner                string   `json:"owner" binding:"required"`
	AssignedUser         string   `json:"assigned_user,omitempty"`
	PurchaseDate         string   `json:"purchase_date,omitempty"`
	WarrantyExpiration   string   `json:"warranty_expiration,omitempty"`
	LastPatchDate        string   `json:"last_patch_date,omitempty"`
	EncryptionStatus     string   `json:"encryption_status,omitempty"`
	AntivirusStatus      string   `json:"antivirus_status,omitempty"`
	FirewallEnabled      bool     `json:"firewall_enabled"`
	MFAEnabled           bool     `json:"mfa_enabled"`
	NetworkSegment       string   `json:"network_segment,omitempty"`
	DataClassification   string   `json:"data_classification,omitempty"`
	ComplianceFrameworks []string `json:"compliance_frameworks,omitempty"`
	RiskTags             []string `json:"risk_tags,omitempty"`
	RiskScore            int      `json:"risk_score"`
	RiskScoreOverride    *int     `json:"risk_score_override,omitempty"`
	Notes                string   `json:"notes,omitempty"`
	WazuhAgentID         string   `json:"wazuh_agent_id,omitempty"`

	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// EffectiveScore returns the manual override when one is set, otherwise the
// computed score.
func (d Device) EffectiveScore() int {
	if d.RiskScoreOverride != nil {
		return clampScore(*d.RiskScoreOverride)
	}
	return d.RiskScore
}

// EffectiveLevel is the band of EffectiveScore
func (d Device) EffectiveLevel() Level {
	return RiskLevelFromScore(d.EffectiveScore())
}

// Rescore recomputes RiskScore from the device type, the organisation tags
// and the device's own tags. The override is left alone.
func (d *Device) Rescore(orgRiskTags []string) {
	tags := make([]string, 0, len(orgRiskTags)+len(d.RiskTags))
	tags = append(tags, orgRiskTags...)
	tags = append(tags, d.RiskTags...)
	d.RiskScore = CalculateDeviceRiskScore(tags, d.Type)
}

// SetOverride records a manual score; nil clears it
func (d *Device) SetOverride(score *int) {
	if score == nil {
		d.RiskScoreOverride = nil
		return
	}
	v := clampScore(*score)
	d.RiskScoreOverride = &v
}

// Distribution counts devices per effective risk level
func Distribution(devices []Device) map[Level]int {
	dist := map[Level]int{LevelLow: 0, LevelMedium: 0, LevelHigh: 0, LevelCritical: 0}
	for _, d := range devices {
		dist[d.EffectiveLevel()]++
	}
	return dist
}
