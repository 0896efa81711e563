package identity

import (
	"fmt"
	"strings"
	"time"
)

// StaleCredentialAge is how long a credential may go unrotated
const StaleCredentialAge = 90 * 24 * time.Hour

// Finding codes
const (
	FindingNoMFA            = "no_mfa"
	FindingStaleCredentials = "stale_credentials"
	FindingUnreviewedAccess = "privileged_without_review"
	FindingDuplicateEmail   = "duplicate_email"
)

// Finding is one identity-hygiene issue
type Finding struct {
	IdentityID string `json:"identity_id"`
	Name       string `json:"name"`
	Code       string `json:"code"`
	Severity   string `json:"severity"`
	Detail     string `json:"detail"`
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "01/02/2006"}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// needsMFA is true for identities that sign in interactively
func needsMFA(c Category) bool {
	return c == CategoryHuman || c == CategoryThirdParty
}

// Hygiene checks a set of identities as of now. Findings come back in input
// order, one identity at a time.
func Hygiene(identities []Identity, now time.Time) []Finding {
	findings := []Finding{}
	firstByEmail := make(map[string]string)

	for _, id := range identities {
		add := func(code, severity, detail string) {
			findings = append(findings, Finding{
				IdentityID: id.ID,
				Name:       id.Name,
				Code:       code,
				Severity:   severity,
				Detail:     detail,
			})
		}

		if needsMFA(id.Type) && !id.MFAEnabled {
			sev := "medium"
			if id.PrivilegedAccess {
				sev = "high"
			}
			add(FindingNoMFA, sev, "multi-factor authentication is not enabled")
		}

		if rotated, ok := parseDate(id.LastCredentialRotation); ok {
			if age := now.Sub(rotated); age > StaleCredentialAge {
				add(FindingStaleCredentials, "medium",
					fmt.Sprintf("credentials last rotated %d days ago", int(age.Hours()/24)))
			}
		}

		if id.PrivilegedAccess && strings.TrimSpace(id.LastAccessReview) == "" {
			add(FindingUnreviewedAccess, "high", "privileged access has no recorded review")
		}

		if email := strings.ToLower(strings.TrimSpace(id.Email)); email != "" {
			if first, dup := firstByEmail[email]; dup {
				add(FindingDuplicateEmail, "low", fmt.Sprintf("email is also used by %s", first))
			} else {
				firstByEmail[email] = id.Name
			}
		}
	}

	return findings
}

// CountByCode tallies findings per code
func CountByCode(findings []Finding) map[string]int {
	counts := make(map[string]int)
	for _, f := range findings {
		counts[f.Code]++
	}
	return counts
}
