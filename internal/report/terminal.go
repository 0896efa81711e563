package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/sos2a-intake/internal/heatmap"
)

// TerminalRenderer outputs the report in a human-readable terminal format
type TerminalRenderer struct{}

var levelMarks = map[heatmap.RiskLevel]string{
	heatmap.LevelLow:    "L",
	heatmap.LevelMedium: "M",
	heatmap.LevelHigh:   "H",
}

func (r *TerminalRenderer) Render(rep *Report) ([]byte, error) {
	var sb strings.Builder
	s := rep.Heatmap

	sb.WriteString("\n" + rep.Title + "\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	if rep.AssessmentID != "" {
		sb.WriteString(fmt.Sprintf("%s (%s, revision %d, %s)\n", rep.BusinessName, rep.AssessmentID, rep.Revision, rep.Status))
		sb.WriteString(fmt.Sprintf("Completion: %s\n", percent(rep.CompletionPercent)))
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("  Total ALE           %14s\n", money(s.TotalALE)))
	sb.WriteString(fmt.Sprintf("  Residual risk       %14s\n", money(s.TotalResidualRisk)))
	sb.WriteString(fmt.Sprintf("  Control investment  %14s\n", money(s.ControlInvestment)))
	sb.WriteString(fmt.Sprintf("  NRRB                %14s\n", money(s.NRRB)))
	sb.WriteString(fmt.Sprintf("  CBF score           %14s\n", percent(s.CBFScore)))
	sb.WriteString(fmt.Sprintf("  ROI                 %14s\n", percent(s.ROI)))
	for _, w := range s.Warnings {
		sb.WriteString(fmt.Sprintf("  ! %s\n", w))
	}

	sb.WriteString("\n" + strings.Repeat("-", 60) + "\n")
	for _, m := range s.Items {
		sb.WriteString(fmt.Sprintf("  %-28s %2d  %-6s ALE %12s\n", m.Threat, m.RiskScore, m.RiskLevel, money(m.ALE)))
	}

	sb.WriteString("\n  Impact\n")
	for _, row := range gridRows(s) {
		sb.WriteString(fmt.Sprintf("    %d |", row.Impact))
		for _, c := range row.Cells {
			if c.Count > 0 {
				sb.WriteString(fmt.Sprintf(" %s%-2d", levelMarks[c.Level], c.Count))
			} else {
				sb.WriteString(fmt.Sprintf(" %s. ", levelMarks[c.Level]))
			}
		}
		sb.WriteString("\n")
	}
	sb.WriteString("       +" + strings.Repeat("----", 5) + "\n")
	sb.WriteString("         1   2   3   4   5  Likelihood\n")

	if len(rep.DeviceDistribution) > 0 {
		sb.WriteString(fmt.Sprintf("\nDevices: %d\n", rep.DeviceCount))
		for _, lc := range rep.DeviceDistribution {
			sb.WriteString(fmt.Sprintf("  %-9s %s %d\n", lc.Level, strings.Repeat("#", lc.Count), lc.Count))
		}
	}

	if len(rep.Findings) > 0 {
		sb.WriteString(fmt.Sprintf("\nIdentity hygiene: %d findings across %d identities\n", len(rep.Findings), rep.IdentityCount))
		for _, f := range rep.Findings {
			sb.WriteString(fmt.Sprintf("  [%s] %s: %s\n", f.Severity, f.Name, f.Detail))
		}
	}

	if len(rep.ValidationErrors) > 0 {
		sb.WriteString("\nMissing before submission:\n")
		fields := make([]string, 0, len(rep.ValidationErrors))
		for field := range rep.ValidationErrors {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", field, rep.ValidationErrors[field]))
		}
	}

	return []byte(sb.String()), nil
}

func (r *TerminalRenderer) ContentType() string { return "text/plain; charset=utf-8" }
