// Command sos2a scores risk registers and checks inventory files offline.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/sos2a-intake/internal/csvio"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/devicerisk"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/heatmap"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/identity"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/report"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/uwa"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

const (
	exitRowErrors = 1
	exitUsage     = 2
)

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// exitCode maps a command error to the process exit status
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitErr
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUsage
}

func main() {
	err := newRootCmd(time.Now).Execute()
	if err != nil && err.Error() != "" {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}

func newRootCmd(now func() time.Time) *cobra.Command {
	root := &cobra.Command{
		Use:           "sos2a",
		Short:         "Score SOS2A risk registers and inventories offline",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return codeError(exitUsage, "%s", err)
	})

	root.AddCommand(
		newHeatmapCmd(now),
		newTemplateCmd(),
		newImportCmd(),
		newUWACmd(now),
		newDeviceScoreCmd(),
	)
	return root
}

type heatmapFlags struct {
	input  string
	format string
	out    string
}

func newHeatmapCmd(now func() time.Time) *cobra.Command {
	var flags heatmapFlags
	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Score the seeded register or a register file",
		Long:  "Scores a risk register read from --input (JSON, or TOML by extension). Without --input the seeded register is used.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeatmap(cmd.OutOrStdout(), flags, now())
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.input, "input", "", "Risk register file (.json or .toml)")
	f.StringVar(&flags.format, "format", "terminal", "Output format: "+strings.Join(report.Formats, ", "))
	f.StringVar(&flags.out, "out", "", "Write output to file instead of stdout")
	return cmd
}

func runHeatmap(stdout io.Writer, flags heatmapFlags, now time.Time) error {
	if !validFormat(flags.format) {
		return codeError(exitUsage, "unknown format %q", flags.format)
	}
	if flags.format == "pdf" && flags.out == "" {
		return codeError(exitUsage, "--format pdf requires --out")
	}

	data := heatmap.DefaultData()
	if flags.input != "" {
		loaded, err := loadRegister(flags.input)
		if err != nil {
			return codeError(exitUsage, "loading %s: %s", flags.input, err)
		}
		data = loaded
	}

	out, err := report.Get(flags.format).Render(report.FromHeatmap(data, now.UTC()))
	if err != nil {
		return codeError(exitUsage, "rendering report: %s", err)
	}
	return writeOutput(stdout, flags.out, out)
}

// loadRegister reads a HeatmapData document. Files ending in .toml are
// decoded as TOML, everything else as JSON.
func loadRegister(path string) (heatmap.HeatmapData, error) {
	var data heatmap.HeatmapData
	raw, err := os.ReadFile(path)
	if err != nil {
		return data, err
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(raw, &data)
		return data, err
	}

	err = json.Unmarshal(raw, &data)
	return data, err
}

func newTemplateCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:       "template devices|identities",
		Short:     "Write a CSV import template with example rows",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"devices", "identities"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf bytes.Buffer
			var err error
			switch args[0] {
			case "devices":
				err = csvio.WriteDeviceTemplate(&buf)
			case "identities":
				err = csvio.WriteIdentityTemplate(&buf)
			default:
				return codeError(exitUsage, "unknown template %q, want devices or identities", args[0])
			}
			if err != nil {
				return codeError(exitUsage, "writing template: %s", err)
			}
			return writeOutput(cmd.OutOrStdout(), out, buf.Bytes())
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Write the template to file instead of stdout")
	return cmd
}

// importSummary is what the import command prints
type importSummary struct {
	Kind     string           `json:"kind"`
	File     string           `json:"file"`
	Total    int              `json:"total_rows"`
	Accepted int              `json:"accepted"`
	Errors   []csvio.RowError `json:"errors,omitempty"`
	Records  interface{}      `json:"records,omitempty"`
}

func newImportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import devices|identities <file.csv>",
		Short: "Validate an inventory CSV and print the parsed records",
		Long:  "Parses an inventory CSV the way the intake service does. Exits 1 when any row is rejected.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.OutOrStdout(), args[0], args[1], format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "terminal", "Output format: json or terminal")
	return cmd
}

func runImport(stdout io.Writer, kind, path, format string) error {
	if format != "json" && format != "terminal" {
		return codeError(exitUsage, "unknown format %q", format)
	}

	f, err := os.Open(path)
	if err != nil {
		return codeError(exitUsage, "opening %s: %s", path, err)
	}
	defer f.Close()

	summary := importSummary{Kind: kind, File: path}
	switch kind {
	case "devices":
		res, err := csvio.ImportDevices(f)
		if err != nil {
			return codeError(exitUsage, "%s: %s", path, err)
		}
		for i := range res.Records {
			res.Records[i].Rescore(nil)
		}
		summary.Total, summary.Accepted, summary.Errors, summary.Records = res.Total, res.Accepted(), res.Errors, res.Records
	case "identities":
		res, err := csvio.ImportIdentities(f)
		if err != nil {
			return codeError(exitUsage, "%s: %s", path, err)
		}
		summary.Total, summary.Accepted, summary.Errors, summary.Records = res.Total, res.Accepted(), res.Errors, res.Records
	default:
		return codeError(exitUsage, "unknown inventory %q, want devices or identities", kind)
	}

	if format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return codeError(exitUsage, "encoding result: %s", err)
		}
	} else {
		fmt.Fprintf(stdout, "%s: %d rows, %d accepted, %d rejected\n", path, summary.Total, summary.Accepted, len(summary.Errors))
		for _, re := range summary.Errors {
			fmt.Fprintf(stdout, "  %s\n", re.Error())
		}
	}

	if len(summary.Errors) > 0 {
		return &exitErr{code: exitRowErrors}
	}
	return nil
}

func newUWACmd(now func() time.Time) *cobra.Command {
	var in uwa.Input
	cmd := &cobra.Command{
		Use:   "uwa",
		Short: "Generate a UWA label for an identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := identity.ParseCategory(in.IdentityType); err != nil {
				return codeError(exitUsage, "%s", err)
			}
			addr := uwa.Generate(in, now().UTC())
			fmt.Fprintln(cmd.OutOrStdout(), addr.String())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.IdentityType, "type", "", "Identity type: "+categoryList())
	f.StringVar(&in.Name, "name", "", "Identity name")
	f.StringVar(&in.Email, "email", "", "Identity email")
	f.StringArrayVar(&in.Components, "component", nil, "Identity component value (may be repeated)")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newDeviceScoreCmd() *cobra.Command {
	var deviceType string
	var tags []string
	cmd := &cobra.Command{
		Use:   "device-score",
		Short: "Score a device type against organisation risk tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			score := devicerisk.CalculateDeviceRiskScore(tags, deviceType)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n",
				devicerisk.NormalizeDeviceType(deviceType), score, devicerisk.RiskLevelFromScore(score))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&deviceType, "type", "", "Device type: "+strings.Join(devicerisk.DeviceTypes(), ", "))
	f.StringArrayVar(&tags, "tag", nil, "Risk tag (may be repeated)")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func validFormat(format string) bool {
	for _, f := range report.Formats {
		if f == format {
			return true
		}
	}
	return format == "markdown"
}

func categoryList() string {
	names := make([]string, len(identity.Categories))
	for i, c := range identity.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// writeOutput writes to path, or to stdout when path is empty
func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return codeError(exitUsage, "writing %s: %s", path, err)
	}
	return nil
}
