package csvio

import (
	"io"

	"github.com/ZanzyTHEbar/sos2a-intake/internal/identity"
)

type ident = identity.Identity

func idText(header string, field func(*ident) *string) column[ident] {
	return column[ident]{
		header: header,
		get:    func(i *ident) string { return *field(i) },
		set:    func(i *ident, v string) error { *field(i) = v; return nil },
	}
}

func idBool(header string, field func(*ident) *bool) column[ident] {
	return column[ident]{
		header: header,
		get:    func(i *ident) string { return formatBool(*field(i)) },
		set: func(i *ident, v string) error {
			b, err := parseBool(v)
			*field(i) = b
			return err
		},
	}
}

func idList(header string, field func(*ident) *[]string) column[ident] {
	return column[ident]{
		header: header,
		get:    func(i *ident) string { return formatList(*field(i)) },
		set:    func(i *ident, v string) error { *field(i) = parseList(v); return nil },
	}
}

var identitySchema = schema[ident]{
	{
		header:   "Identity Type",
		required: true,
		get:      func(i *ident) string { return string(i.Type) },
		set: func(i *ident, v string) error {
			c, err := identity.ParseCategory(v)
			i.Type = c
			return err
		},
	},
	idText("Identity ID", func(i *ident) *string { return &i.ID }),
	requiredColumn(idText("Name", func(i *ident) *string { return &i.Name })),
	requiredColumn(idText("Email", func(i *ident) *string { return &i.Email })),
	idText("Department", func(i *ident) *string { return &i.Department }),
	idText("Job Title", func(i *ident) *string { return &i.JobTitle }),
	idText("Manager", func(i *ident) *string { return &i.Manager }),
	idText("Role", func(i *ident) *string { return &i.Role }),
	idText("Access Level", func(i *ident) *string { return &i.AccessLevel }),
	idBool("Privileged Access", func(i *ident) *bool { return &i.PrivilegedAccess }),
	idBool("MFA Enabled", func(i *ident) *bool { return &i.MFAEnabled }),
	idText("MFA Type", func(i *ident) *string { return &i.MFAType }),
	idText("Authentication Method", func(i *ident) *string { return &i.AuthMethod }),
	idText("Last Login", func(i *ident) *string { return &i.LastLogin }),
	idText("Last Credential Rotation", func(i *ident) *string { return &i.LastCredentialRotation }),
	idText("Last Access Review", func(i *ident) *string { return &i.LastAccessReview }),
	idText("Account Status", func(i *ident) *string { return &i.AccountStatus }),
	idList("Systems Accessed", func(i *ident) *[]string { return &i.SystemsAccessed }),
	idList("Identity Components", func(i *ident) *[]string { return &i.Components }),
	idText("Owner", func(i *ident) *string { return &i.Owner }),
	idText("Vendor Name", func(i *ident) *string { return &i.VendorName }),
	idText("Contract Expiration", func(i *ident) *string { return &i.ContractExpiration }),
	idText("UWA", func(i *ident) *string { return &i.UWA }),
	idText("Risk Level", func(i *ident) *string { return &i.RiskLevel }),
	idText("Notes", func(i *ident) *string { return &i.Notes }),
}

// IdentityHeaders returns the identity template columns in file order
func IdentityHeaders() []string {
	return identitySchema.headers()
}

var exampleIdentities = []ident{
	{
		Type: identity.CategoryHuman, ID: "ID-001", Name: "Smith, Jane", Email: "jane.smith@example.com",
		Department: "Finance", JobTitle: "Controller", Manager: "Doe, John", Role: "Approver",
		AccessLevel: "Elevated", PrivilegedAccess: true, MFAEnabled: true, MFAType: "TOTP",
		AuthMethod: "SSO", LastLogin: "2026-10-01", LastCredentialRotation: "2026-08-15",
		LastAccessReview: "2026-07-01", AccountStatus: "Active",
		SystemsAccessed: []string{"ERP", "Payroll, EU"},
		Components:      []string{"Full Name", "Email Address", "MFA Device"},
		Owner:           "HR", Notes: "Quarterly review, \"finance-admins\" group",
	},
	{
		Type: identity.CategoryAPI, ID: "ID-002", Name: "billing-service", Email: "billing-bot@example.com",
		Role: "Integration", AccessLevel: "Scoped", AuthMethod: "OAuth client credentials",
		LastCredentialRotation: "2026-05-20", AccountStatus: "Active",
		SystemsAccessed: []string{"Billing API"},
		Components:      []string{"Service Account", "OAuth Client ID", "Access Scope"},
		Owner:           "Platform Team",
	},
	{
		Type: identity.CategoryThirdParty, ID: "ID-003", Name: "Acme Support", Email: "support@acme.example",
		AccessLevel: "Read-only", MFAEnabled: false, AuthMethod: "Password",
		AccountStatus: "Active", Components: []string{"Vendor Name", "Contract ID", "Vendor Contact"},
		Owner: "Procurement", VendorName: "Acme, Inc.", ContractExpiration: "2027-01-31",
	},
}

// WriteIdentityTemplate writes the header row and example identities
func WriteIdentityTemplate(w io.Writer) error {
	return identitySchema.write(w, exampleIdentities)
}

// ExportIdentities writes stored identities in template layout
func ExportIdentities(w io.Writer, identities []identity.Identity) error {
	return identitySchema.write(w, identities)
}

// ImportIdentities parses an identity inventory CSV. A missing Identity
// Type, Name or Email column rejects the file; bad rows are reported and
// skipped.
func ImportIdentities(r io.Reader) (ImportResult[identity.Identity], error) {
	return identitySchema.read(r)
}
