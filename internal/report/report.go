// Package report renders heatmap and assessment review summaries.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/sos2a-intake/internal/assessment"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/devicerisk"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/heatmap"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/identity"
)

// LevelCount is one bar of the device risk distribution
type LevelCount struct {
	Level devicerisk.Level `json:"level"`
	Count int              `json:"count"`
}

// Report is the renderer input. Assessment fields are empty for a
// standalone heatmap report.
type Report struct {
	Title              string                     `json:"title"`
	GeneratedAt        time.Time                  `json:"generated_at"`
	AssessmentID       string                     `json:"assessment_id,omitempty"`
	BusinessName       string                     `json:"business_name,omitempty"`
	Status             string                     `json:"status,omitempty"`
	Revision           int                        `json:"revision,omitempty"`
	CompletionPercent  float64                    `json:"completion_percent,omitempty"`
	Sections           []assessment.SectionStatus `json:"sections,omitempty"`
	Heatmap            heatmap.Summary            `json:"heatmap"`
	DeviceCount        int                        `json:"device_count"`
	DeviceDistribution []LevelCount               `json:"device_distribution,omitempty"`
	IdentityCount      int                        `json:"identity_count"`
	Findings           []identity.Finding         `json:"hygiene_findings,omitempty"`
	ValidationErrors   assessment.FieldErrors     `json:"validation_errors,omitempty"`
}

// FromHeatmap builds a report for a bare risk register
func FromHeatmap(data heatmap.HeatmapData, now time.Time) *Report {
	return &Report{
		Title:       "SOS2A Risk Heatmap",
		GeneratedAt: now,
		Heatmap:     heatmap.Round(heatmap.Calculate(data)),
	}
}

// FromReview builds a report from an assessment review
func FromReview(m assessment.ReviewModel, now time.Time) *Report {
	r := &Report{
		Title:             "SOS2A Assessment Report",
		GeneratedAt:       now,
		AssessmentID:      m.AssessmentID,
		BusinessName:      m.BusinessName,
		Status:            string(m.Status),
		Revision:          m.Revision,
		CompletionPercent: m.CompletionPercent,
		Sections:          m.Sections,
		Heatmap:           heatmap.Round(m.Heatmap),
		DeviceCount:       m.DeviceCount,
		IdentityCount:     m.IdentityCount,
		Findings:          m.HygieneFindings,
		ValidationErrors:  m.ValidationErrors,
	}
	if m.DeviceCount > 0 {
		for _, level := range []devicerisk.Level{devicerisk.LevelCritical, devicerisk.LevelHigh, devicerisk.LevelMedium, devicerisk.LevelLow} {
			r.DeviceDistribution = append(r.DeviceDistribution, LevelCount{Level: level, Count: m.DeviceDistribution[level]})
		}
	}
	return r
}

// Renderer formats a Report into bytes for output
type Renderer interface {
	Render(r *Report) ([]byte, error)
	ContentType() string
}

// Formats lists the accepted format names
var Formats = []string{"terminal", "json", "md", "pdf"}

// Get returns a renderer for the format. Unknown formats render for the
// terminal.
func Get(format string) Renderer {
	switch strings.ToLower(format) {
	case "json":
		return &JSONRenderer{}
	case "md", "markdown":
		return &MarkdownRenderer{}
	case "pdf":
		return &PDFRenderer{}
	default:
		return &TerminalRenderer{}
	}
}

// money formats a currency figure with thousands separators, rounded the
// same way heatmap.Round rounds it.
func money(v float64) string {
	v = heatmap.DisplayRound(v)
	neg := v < 0
	if neg {
		v = -v
	}
	whole := strconv.FormatFloat(v, 'f', 0, 64)

	var sb strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(c)
	}

	if neg {
		return "-$" + sb.String()
	}
	return "$" + sb.String()
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// gridRows returns the matrix rows from impact 5 down to 1, the way the
// heatmap is drawn.
func gridRows(s heatmap.Summary) []gridRow {
	rows := make([]gridRow, 0, 5)
	for impact := 5; impact >= 1; impact-- {
		row := gridRow{Impact: impact}
		for likelihood := 1; likelihood <= 5; likelihood++ {
			row.Cells = append(row.Cells, gridCell{
				Count: s.Grid[impact-1][likelihood-1],
				Level: heatmap.LookupLevel(impact, likelihood),
			})
		}
		rows = append(rows, row)
	}
	return rows
}

type gridRow struct {
	Impact int
	Cells  []gridCell
}

type gridCell struct {
	Count int
	Level heatmap.RiskLevel
}
