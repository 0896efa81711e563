// Package assessment models the SOS²A questionnaire: one section per form
// tab, the minimal validation the form enforces, the review screen and the
// submission lifecycle.
package assessment

import (
	"errors"
	"time"

	"github.com/ZanzyTHEbar/sos2a-intake/internal/heatmap"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/identity"
)

// Status of an assessment
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
)

// Assessment types offered on the first tab
const (
	TypeQuick         = "quick"
	TypeComprehensive = "comprehensive"
)

// ErrAlreadySubmitted is returned when a submitted assessment is changed
var ErrAlreadySubmitted = errors.New("assessment already submitted")

// BusinessProfile is the business information tab
type BusinessProfile struct {
	BusinessName  string   `json:"business_name" binding:"required"`
	Industry      string   `json:"industry" binding:"required"`
	EmployeeCount string   `json:"employee_count,omitempty"`
	AnnualRevenue string   `json:"annual_revenue,omitempty"`
	Locations     []string `json:"locations,omitempty"`
	Website       string   `json:"website,omitempty" binding:"omitempty,url"`
	Description   string   `json:"description,omitempty"`
}

// Infrastructure is the infrastructure tab
type Infrastructure struct {
	Environments       []string `json:"environments,omitempty"`
	CloudProviders     []string `json:"cloud_providers,omitempty"`
	OperatingSystems   []string `json:"operating_systems,omitempty"`
	NetworkDescription string   `json:"network_description,omitempty"`
	RemoteAccess       bool     `json:"remote_access"`
}

// SecurityControls is the security controls tab
type SecurityControls struct {
	Selected []string `json:"selected,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

// Vulnerabilities is the vulnerability tab
type Vulnerabilities struct {
	LastScanDate    string   `json:"last_scan_date,omitempty"`
	ScanTool        string   `json:"scan_tool,omitempty"`
	LastPenTestDate string   `json:"last_pen_test_date,omitempty"`
	OpenCritical    int      `json:"open_critical"`
	OpenHigh        int      `json:"open_high"`
	OpenMedium      int      `json:"open_medium"`
	OpenLow         int      `json:"open_low"`
	Known           []string `json:"known,omitempty"`
}

// Compliance holds the selected framework ids
type Compliance struct {
	Frameworks []string `json:"frameworks,omitempty"`
}

// Regulatory is the regulatory requirements tab
type Regulatory struct {
	Requirements []string `json:"requirements,omitempty"`
	Regions      []string `json:"regions,omitempty"`
}

// Standards is the standards tab
type Standards struct {
	Selected []string `json:"selected,omitempty"`
}

// Policies is the policies tab
type Policies struct {
	Documented  []string `json:"documented,omitempty"`
	ReviewCycle string   `json:"review_cycle,omitempty"`
}

// Incident is one past security incident
type Incident struct {
	Date        string `json:"date,omitempty"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Resolved    bool   `json:"resolved"`
}

// Incidents is the incident history tab
type Incidents struct {
	Past             []Incident `json:"past,omitempty"`
	HasResponsePlan  bool       `json:"has_response_plan"`
	LastTabletopDate string     `json:"last_tabletop_date,omitempty"`
}

// DeviceInventory holds the tab's organisation-wide settings. The device
// rows live in their own table.
type DeviceInventory struct {
	OrgRiskTags  []string `json:"org_risk_tags,omitempty"`
	WazuhEnabled bool     `json:"wazuh_enabled"`
}

// IdentityHygiene holds the component matrix. Identity rows live in their
// own table.
type IdentityHygiene struct {
	Matrix *identity.Matrix `json:"matrix,omitempty"`
}

// Training is the security awareness tab
type Training struct {
	AwarenessProgram    bool    `json:"awareness_program"`
	Frequency           string  `json:"frequency,omitempty"`
	PhishingSimulations bool    `json:"phishing_simulations"`
	CompletionRate      float64 `json:"completion_rate,omitempty" binding:"gte=0,lte=100"`
}

// Contacts is the contact information tab
type Contacts struct {
	PrimaryName    string `json:"primary_name,omitempty"`
	PrimaryEmail   string `json:"primary_email" binding:"required,email"`
	PrimaryPhone   string `json:"primary_phone,omitempty"`
	TechnicalName  string `json:"technical_name,omitempty"`
	TechnicalEmail string `json:"technical_email,omitempty" binding:"omitempty,email"`
}

// ReviewSection is the final tab
type ReviewSection struct {
	Notes       string `json:"notes,omitempty"`
	Attestation bool   `json:"attestation"`
}

// Assessment is a complete questionnaire document
type Assessment struct {
	ID          string     `json:"id"`
	Type        string     `json:"assessment_type" binding:"required,oneof=quick comprehensive"`
	Status      Status     `json:"status"`
	Revision    int        `json:"revision"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`

	BusinessProfile  BusinessProfile     `json:"business_profile"`
	Infrastructure   Infrastructure      `json:"infrastructure"`
	SecurityControls SecurityControls    `json:"security_controls"`
	Vulnerabilities  Vulnerabilities     `json:"vulnerabilities"`
	Compliance       Compliance          `json:"compliance"`
	Regulatory       Regulatory          `json:"regulatory"`
	Standards        Standards           `json:"standards"`
	Policies         Policies            `json:"policies"`
	Incidents        Incidents           `json:"incidents"`
	Devices          DeviceInventory     `json:"devices"`
	IdentityHygiene  IdentityHygiene     `json:"identity_hygiene"`
	Training         Training            `json:"training"`
	Contacts         Contacts            `json:"contacts"`
	RiskRegister     heatmap.HeatmapData `json:"risk_register"`
	Review           ReviewSection       `json:"review"`
}

// New returns a draft assessment with the seeded risk register and the
// default identity matrix.
func New(id string, now time.Time) *Assessment {
	return &Assessment{
		ID:              id,
		Type:            TypeComprehensive,
		Status:          StatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
		RiskRegister:    heatmap.DefaultData(),
		IdentityHygiene: IdentityHygiene{Matrix: identity.DefaultMatrix()},
	}
}

// Submitted reports whether the assessment is frozen
func (a *Assessment) Submitted() bool {
	return a.Status == StatusSubmitted
}

// Submit freezes the assessment. It fails if the document is invalid or
// already submitted.
func (a *Assessment) Submit(now time.Time) error {
	if a.Submitted() {
		return ErrAlreadySubmitted
	}
	if err := a.Validate(); err != nil {
		return err
	}
	a.Status = StatusSubmitted
	a.SubmittedAt = &now
	a.UpdatedAt = now
	return nil
}
