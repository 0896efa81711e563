package identity

import (
	"fmt"
	"strings"
)

// Category is an identity class in the component matrix
type Category string

const (
	CategoryHuman           Category = "human"
	CategoryMachinePhysical Category = "machine-physical"
	CategoryMachineVirtual  Category = "machine-virtual"
	CategoryAPI             Category = "api"
	CategoryThirdParty      Category = "third-party"
)

// Categories lists the matrix columns in display order
var Categories = []Category{
	CategoryHuman,
	CategoryMachinePhysical,
	CategoryMachineVirtual,
	CategoryAPI,
	CategoryThirdParty,
}

// ParseCategory accepts a category name in any case
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown identity category %q", s)
}

// Row is one identity component and whether it is selected per category
type Row struct {
	Label    string            `json:"label"`
	Selected map[Category]bool `json:"selected"`
}

// Matrix is the identity component toggle grid
type Matrix struct {
	Rows []Row `json:"rows"`
}

type rowDefault struct {
	label string
	on    []Category
}

var h, mp, mv, api, tp = CategoryHuman, CategoryMachinePhysical, CategoryMachineVirtual, CategoryAPI, CategoryThirdParty

var defaultRows = []rowDefault{
	{"Full Name", []Category{h, tp}},
	{"Email Address", []Category{h, tp}},
	{"Phone Number", []Category{h}},
	{"Employee ID", []Category{h}},
	{"Job Title", []Category{h}},
	{"Department", []Category{h}},
	{"Manager", []Category{h}},
	{"Biometric Hash", nil},
	{"MFA Device", []Category{h}},
	{"Hardware Serial", []Category{mp}},
	{"MAC Address", []Category{mp}},
	{"IP Address", []Category{mp, mv}},
	{"Firmware Version", []Category{mp}},
	{"TPM Attestation", nil},
	{"Hostname", []Category{mp, mv}},
	{"VM Instance ID", []Category{mv}},
	{"Container Image Digest", []Category{mv}},
	{"Cloud Account ID", []Category{mv}},
	{"Service Account", []Category{mv, api}},
	{"API Key ID", []Category{api}},
	{"OAuth Client ID", []Category{api}},
	{"Certificate Fingerprint", []Category{mp, api}},
	{"JWT Issuer", []Category{api}},
	{"Endpoint URL", []Category{api}},
	{"Rate Limit Tier", nil},
	{"Vendor Name", []Category{tp}},
	{"Contract ID", []Category{tp}},
	{"Vendor Contact", []Category{tp}},
	{"Data Processing Agreement", []Category{tp}},
	{"Access Scope", []Category{api, tp}},
	{"Expiration Date", []Category{api, tp}},
}

// DefaultMatrix returns a fresh matrix with the default selections
func DefaultMatrix() *Matrix {
	m := &Matrix{Rows: make([]Row, 0, len(defaultRows))}
	for _, d := range defaultRows {
		row := Row{Label: d.label, Selected: make(map[Category]bool, len(Categories))}
		for _, c := range Categories {
			row.Selected[c] = false
		}
		for _, c := range d.on {
			row.Selected[c] = true
		}
		m.Rows = append(m.Rows, row)
	}
	return m
}

// Labels returns every component label in row order
func (m *Matrix) Labels() []string {
	labels := make([]string, len(m.Rows))
	for i, r := range m.Rows {
		labels[i] = r.Label
	}
	return labels
}

// Toggle flips one cell and returns its new value
func (m *Matrix) Toggle(label string, category Category) (bool, error) {
	for i := range m.Rows {
		if m.Rows[i].Label != label {
			continue
		}
		if _, ok := m.Rows[i].Selected[category]; !ok {
			return false, fmt.Errorf("unknown identity category %q", category)
		}
		m.Rows[i].Selected[category] = !m.Rows[i].Selected[category]
		return m.Rows[i].Selected[category], nil
	}
	return false, fmt.Errorf("unknown identity component %q", label)
}

// Selected returns the labels switched on for a category, in row order
func (m *Matrix) Selected(category Category) []string {
	var out []string
	for _, r := range m.Rows {
		if r.Selected[category] {
			out = append(out, r.Label)
		}
	}
	return out
}
