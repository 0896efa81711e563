package assessment

import "strings"

// Framework is a selectable compliance framework
type Framework struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Regions     []string `json:"regions,omitempty"`
	Description string   `json:"description"`
}

var frameworks = []Framework{
	{ID: "iso-27001", Name: "ISO/IEC 27001", Category: "security", Regions: []string{"global"}, Description: "Information security management systems"},
	{ID: "nist-csf", Name: "NIST Cybersecurity Framework", Category: "security", Regions: []string{"us"}, Description: "Identify, protect, detect, respond and recover"},
	{ID: "nist-800-53", Name: "NIST SP 800-53", Category: "security", Regions: []string{"us"}, Description: "Security and privacy controls for information systems"},
	{ID: "soc-2", Name: "SOC 2", Category: "assurance", Regions: []string{"us"}, Description: "Trust services criteria for service organisations"},
	{ID: "pci-dss", Name: "PCI DSS", Category: "industry", Regions: []string{"global"}, Description: "Payment card data security"},
	{ID: "hipaa", Name: "HIPAA", Category: "privacy", Regions: []string{"us"}, Description: "Protected health information"},
	{ID: "gdpr", Name: "GDPR", Category: "privacy", Regions: []string{"eu"}, Description: "EU personal data protection"},
	{ID: "ccpa", Name: "CCPA / CPRA", Category: "privacy", Regions: []string{"us-ca"}, Description: "California consumer privacy"},
	{ID: "cmmc", Name: "CMMC 2.0", Category: "government", Regions: []string{"us"}, Description: "Defense industrial base maturity model"},
	{ID: "cis-controls", Name: "CIS Critical Security Controls", Category: "security", Regions: []string{"global"}, Description: "Prioritised safeguards against common attacks"},
	{ID: "fedramp", Name: "FedRAMP", Category: "government", Regions: []string{"us"}, Description: "US federal cloud service authorisation"},
	{ID: "sox", Name: "SOX", Category: "financial", Regions: []string{"us"}, Description: "Financial reporting controls"},
	{ID: "glba", Name: "GLBA", Category: "financial", Regions: []string{"us"}, Description: "Financial institution customer data"},
	{ID: "ferpa", Name: "FERPA", Category: "privacy", Regions: []string{"us"}, Description: "Student education records"},
	{ID: "cobit", Name: "COBIT", Category: "governance", Regions: []string{"global"}, Description: "Governance of enterprise IT"},
}

// Frameworks returns the catalogue in display order
func Frameworks() []Framework {
	out := make([]Framework, len(frameworks))
	copy(out, frameworks)
	return out
}

// LookupFramework finds a framework by id or name, ignoring case
func LookupFramework(key string) (Framework, bool) {
	key = strings.TrimSpace(key)
	for _, f := range frameworks {
		if strings.EqualFold(f.ID, key) || strings.EqualFold(f.Name, key) {
			return f, true
		}
	}
	return Framework{}, false
}

// UnknownFrameworks returns the selected ids missing from the catalogue
func UnknownFrameworks(selected []string) []string {
	var unknown []string
	for _, s := range selected {
		if _, ok := LookupFramework(s); !ok {
			unknown = append(unknown, s)
		}
	}
	return unknown
}
