package csvio

import (
	"io"
	"strconv"

	"github.com/ZanzyTHEbar/sos2a-intake/internal/devicerisk"
)

type dev = devicerisk.Device

func devText(header string, field func(*dev) *string) column[dev] {
	return column[dev]{
		header: header,
		get:    func(d *dev) string { return *field(d) },
		set:    func(d *dev, v string) error { *field(d) = v; return nil },
	}
}

func devBool(header string, field func(*dev) *bool) column[dev] {
	return column[dev]{
		header: header,
		get:    func(d *dev) string { return formatBool(*field(d)) },
		set: func(d *dev, v string) error {
			b, err := parseBool(v)
			*field(d) = b
			return err
		},
	}
}

func devList(header string, field func(*dev) *[]string) column[dev] {
	return column[dev]{
		header: header,
		get:    func(d *dev) string { return formatList(*field(d)) },
		set:    func(d *dev, v string) error { *field(d) = parseList(v); return nil },
	}
}

var deviceSchema = schema[dev]{
	requiredColumn(devText("Device ID", func(d *dev) *string { return &d.ID })),
	devText("Device Name", func(d *dev) *string { return &d.Name }),
	requiredColumn(devText("Device Type", func(d *dev) *string { return &d.Type })),
	devText("Manufacturer", func(d *dev) *string { return &d.Manufacturer }),
	devText("Model", func(d *dev) *string { return &d.Model }),
	devText("Serial Number", func(d *dev) *string { return &d.SerialNumber }),
	devText("Operating System", func(d *dev) *string { return &d.OperatingSystem }),
	devText("OS Version", func(d *dev) *string { return &d.OSVersion }),
	devText("Firmware Version", func(d *dev) *string { return &d.FirmwareVersion }),
	devText("IP Address", func(d *dev) *string { return &d.IPAddress }),
	devText("MAC Address", func(d *dev) *string { return &d.MACAddress }),
	devText("Location", func(d *dev) *string { return &d.Location }),
	devText("Department", func(d *dev) *string { return &d.Department }),
	requiredColumn(devText("Owner", func(d *dev) *string { return &d.Owner })),
	devText("Assigned User", func(d *dev) *string { return &d.AssignedUser }),
	devText("Purchase Date", func(d *dev) *string { return &d.PurchaseDate }),
	devText("Warranty Expiration", func(d *dev) *string { return &d.WarrantyExpiration }),
	devText("Last Patch Date", func(d *dev) *string { return &d.LastPatchDate }),
	devText("Encryption Status", func(d *dev) *string { return &d.EncryptionStatus }),
	devText("Antivirus Status", func(d *dev) *string { return &d.AntivirusStatus }),
	devBool("Firewall Enabled", func(d *dev) *bool { return &d.FirewallEnabled }),
	devBool("MFA Enabled", func(d *dev) *bool { return &d.MFAEnabled }),
	devText("Network Segment", func(d *dev) *string { return &d.NetworkSegment }),
	devText("Data Classification", func(d *dev) *string { return &d.DataClassification }),
	devList("Compliance Frameworks", func(d *dev) *[]string { return &d.ComplianceFrameworks }),
	devList("Risk Tags", func(d *dev) *[]string { return &d.RiskTags }),
	{
		header: "Risk Score",
		get:    func(d *dev) string { return strconv.Itoa(d.RiskScore) },
		set: func(d *dev, v string) error {
			n, err := parseInt(v)
			d.RiskScore = n
			return err
		},
	},
	{
		header: "Risk Score Override",
		get: func(d *dev) string {
			if d.RiskScoreOverride == nil {
				return ""
			}
			return strconv.Itoa(*d.RiskScoreOverride)
		},
		set: func(d *dev, v string) error {
			n, err := parseInt(v)
			if err != nil {
				return err
			}
			d.SetOverride(&n)
			return nil
		},
	},
	devText("Notes", func(d *dev) *string { return &d.Notes }),
}

// DeviceHeaders returns the device template columns in file order
func DeviceHeaders() []string {
	return deviceSchema.headers()
}

// exampleDevices fill the downloadable template
var exampleDevices = []dev{
	{
		ID: "DEV-001", Name: "Finance Laptop 01", Type: "laptop",
		Manufacturer: "Dell", Model: "Latitude 7440", SerialNumber: "DL7440-88213",
		OperatingSystem: "Windows", OSVersion: "11 23H2", FirmwareVersion: "1.12.0",
		IPAddress: "10.0.12.45", MACAddress: "00:1A:2B:3C:4D:5E",
		Location: "HQ, Floor 3", Department: "Finance", Owner: "IT Operations",
		AssignedUser: "Jane Smith", PurchaseDate: "2024-02-15", WarrantyExpiration: "2027-02-15",
		LastPatchDate: "2026-09-30", EncryptionStatus: "BitLocker", AntivirusStatus: "Defender, up to date",
		FirewallEnabled: true, MFAEnabled: true, NetworkSegment: "corp-users",
		DataClassification: "Confidential", ComplianceFrameworks: []string{"SOC 2", "PCI DSS"},
		RiskTags: []string{"remote-workforce"}, RiskScore: 45,
		Notes: "Travels with owner, VPN required",
	},
	{
		ID: "DEV-002", Name: "Edge Router", Type: "network",
		Manufacturer: "Cisco", Model: "ISR 4331", SerialNumber: "FDO2231A0QX",
		OperatingSystem: "IOS XE", OSVersion: "17.9", FirmwareVersion: "17.9.4a",
		IPAddress: "10.0.0.1", MACAddress: "00:25:9C:11:22:33",
		Location: "HQ, Server Room", Department: "IT", Owner: "Network Team",
		PurchaseDate: "2021-06-01", WarrantyExpiration: "2026-06-01",
		LastPatchDate: "2026-03-12", EncryptionStatus: "N/A", AntivirusStatus: "N/A",
		FirewallEnabled: true, NetworkSegment: "dmz",
		DataClassification: "Internal", RiskTags: []string{"public-facing"}, RiskScore: 55,
		Notes: "Warranty renewal pending",
	},
}

// WriteDeviceTemplate writes the header row and example devices
func WriteDeviceTemplate(w io.Writer) error {
	return deviceSchema.write(w, exampleDevices)
}

// ExportDevices writes stored devices in template layout
func ExportDevices(w io.Writer, devices []devicerisk.Device) error {
	return deviceSchema.write(w, devices)
}

// ImportDevices parses a device inventory CSV. A missing Device ID, Device
// Type or Owner column rejects the file; bad rows are reported and skipped.
func ImportDevices(r io.Reader) (ImportResult[devicerisk.Device], error) {
	return deviceSchema.read(r)
}
