// Package identity models the identity inventory: the component toggle
// matrix, identity records with their UWA labels and hygiene checks.
package identity

import (
	"time"

	"github.com/ZanzyTHEbar/sos2a-intake/internal/uwa"
)

// Identity is one row of the identity inventory
type Identity struct {
	ID                     string    `json:"id"`
	AssessmentID           string    `json:"assessment_id,omitempty"`
	Type                   Category  `json:"type" binding:"required"`
	Name                   string    `json:"name" binding:"required"`
	Email                  string    `json:"email" binding:"omitempty,email"`
	Department             string    `json:"department,omitempty"`
	JobTitle               string    `json:"job_title,omitempty"`
	Manager                string    `json:"manager,omitempty"`
	Role                   string    `json:"role,omitempty"`
	AccessLevel            string    `json:"access_level,omitempty"`
	PrivilegedAccess       bool      `json:"privileged_access"`
	MFAEnabled             bool      `json:"mfa_enabled"`
	MFAType                string    `json:"mfa_type,omitempty"`
	AuthMethod             string    `json:"auth_method,omitempty"`
	LastLogin              string    `json:"last_login,omitempty"`
	LastCredentialRotation string    `json:"last_credential_rotation,omitempty"`
	LastAccessReview       string    `json:"last_access_review,omitempty"`
	AccountStatus          string    `json:"account_status,omitempty"`
	SystemsAccessed        []string  `json:"systems_accessed,omitempty"`
	Components             []string  `json:"components,omitempty"`
	Owner                  string    `json:"owner,omitempty"`
	VendorName             string    `json:"vendor_name,omitempty"`
	ContractExpiration     string    `json:"contract_expiration,omitempty"`
	UWA                    string    `json:"uwa,omitempty"`
	RiskLevel              string    `json:"risk_level,omitempty"`
	Notes                  string    `json:"notes,omitempty"`
	UpdatedAt              time.Time `json:"updated_at,omitempty"`
}

// UWAInput is the hash input for this identity
func (i Identity) UWAInput() uwa.Input {
	return uwa.Input{
		IdentityType: string(i.Type),
		Name:         i.Name,
		Email:        i.Email,
		Components:   i.Components,
	}
}

// AssignUWA generates and stores the identity's UWA label
func (i *Identity) AssignUWA(now time.Time) uwa.Address {
	addr := uwa.Generate(i.UWAInput(), now)
	i.UWA = addr.String()
	return addr
}

// ApplyMatrix replaces the identity's components with the labels the matrix
// selects for its category.
func (i *Identity) ApplyMatrix(m *Matrix) {
	i.Components = m.Selected(i.Type)
}
