package assessment

import (
	"time"

	"github.com/ZanzyTHEbar/sos2a-intake/internal/devicerisk"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/heatmap"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/identity"
)

// SectionStatus reports whether one tab has been filled in
type SectionStatus struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Complete bool   `json:"complete"`
}

// ReviewModel is everything the review/submit screen shows
type ReviewModel struct {
	AssessmentID       string                   `json:"assessment_id"`
	BusinessName       string                   `json:"business_name"`
	Status             Status                   `json:"status"`
	Revision           int                      `json:"revision"`
	Sections           []SectionStatus          `json:"sections"`
	CompletionPercent  float64                  `json:"completion_percent"`
	Heatmap            heatmap.Summary          `json:"heatmap"`
	DeviceCount        int                      `json:"device_count"`
	DeviceDistribution map[devicerisk.Level]int `json:"device_distribution"`
	IdentityCount      int                      `json:"identity_count"`
	HygieneFindings    []identity.Finding       `json:"hygiene_findings"`
	UnknownFrameworks  []string                 `json:"unknown_frameworks,omitempty"`
	ValidationErrors   FieldErrors              `json:"validation_errors,omitempty"`
}

// Sections evaluates completion of every tab in form order
func Sections(a *Assessment, devices []devicerisk.Device, identities []identity.Identity) []SectionStatus {
	bp := a.BusinessProfile
	return []SectionStatus{
		{"business_profile", "Business Information", bp.BusinessName != "" && bp.Industry != ""},
		{"infrastructure", "Infrastructure", len(a.Infrastructure.Environments) > 0 || a.Infrastructure.NetworkDescription != ""},
		{"security_controls", "Security Controls", len(a.SecurityControls.Selected) > 0},
		{"vulnerabilities", "Vulnerabilities", a.Vulnerabilities.LastScanDate != "" || len(a.Vulnerabilities.Known) > 0},
		{"compliance", "Compliance", len(a.Compliance.Frameworks) > 0},
		{"regulatory", "Regulatory Requirements", len(a.Regulatory.Requirements) > 0},
		{"standards", "Standards", len(a.Standards.Selected) > 0},
		{"policies", "Policies", len(a.Policies.Documented) > 0},
		{"incidents", "Incident History", len(a.Incidents.Past) > 0 || a.Incidents.HasResponsePlan},
		{"devices", "Device Inventory", len(devices) > 0},
		{"identity_hygiene", "Identity Hygiene", len(identities) > 0},
		{"training", "Security Training", a.Training.AwarenessProgram || a.Training.Frequency != ""},
		{"contacts", "Contact Information", a.Contacts.PrimaryEmail != ""},
		{"risk_register", "Risk Register", len(a.RiskRegister.Items) > 0},
		{"review", "Review & Submit", a.Review.Attestation},
	}
}

// Review builds the review screen model. Hygiene is evaluated as of now.
func Review(a *Assessment, devices []devicerisk.Device, identities []identity.Identity, now time.Time) ReviewModel {
	sections := Sections(a, devices, identities)
	done := 0
	for _, s := range sections {
		if s.Complete {
			done++
		}
	}

	model := ReviewModel{
		AssessmentID:       a.ID,
		BusinessName:       a.BusinessProfile.BusinessName,
		Status:             a.Status,
		Revision:           a.Revision,
		Sections:           sections,
		CompletionPercent:  float64(done) / float64(len(sections)) * 100,
		Heatmap:            heatmap.Calculate(a.RiskRegister),
		DeviceCount:        len(devices),
		DeviceDistribution: devicerisk.Distribution(devices),
		IdentityCount:      len(identities),
		HygieneFindings:    identity.Hygiene(identities, now),
		UnknownFrameworks:  UnknownFrameworks(a.Compliance.Frameworks),
	}

	if err := a.Validate(); err != nil {
		if fe, ok := err.(FieldErrors); ok {
			model.ValidationErrors = fe
		}
	}

	return model
}

// ReadyToSubmit is true when validation passes and the assessment is a draft
func (m ReviewModel) ReadyToSubmit() bool {
	return m.Status == StatusDraft && len(m.ValidationErrors) == 0
}
