package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/ZanzyTHEbar/sos2a-intake/internal/heatmap"
)

// PDFRenderer outputs an A4 PDF with the summary table and the heatmap grid
type PDFRenderer struct{}

var levelFill = map[heatmap.RiskLevel][3]int{
	heatmap.LevelLow:    {134, 239, 172},
	heatmap.LevelMedium: {253, 224, 71},
	heatmap.LevelHigh:   {248, 113, 113},
}

func (r *PDFRenderer) Render(rep *Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(rep.GeneratedAt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	s := rep.Heatmap

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, tr(rep.Title))
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	if rep.AssessmentID != "" {
		pdf.Cell(0, 6, tr(fmt.Sprintf("%s - assessment %s, revision %d (%s)", rep.BusinessName, rep.AssessmentID, rep.Revision, rep.Status)))
		pdf.Ln(6)
		pdf.Cell(0, 6, fmt.Sprintf("Completion: %s", percent(rep.CompletionPercent)))
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, "Generated "+rep.GeneratedAt.Format("2006-01-02 15:04 MST"))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Cost-benefit summary")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	for _, kv := range [][2]string{
		{"Total ALE", money(s.TotalALE)},
		{"Residual risk", money(s.TotalResidualRisk)},
		{"Control investment", money(s.ControlInvestment)},
		{"NRRB", money(s.NRRB)},
		{"CBF score", percent(s.CBFScore)},
		{"ROI", percent(s.ROI)},
	} {
		pdf.CellFormat(60, 6, kv[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, kv[1], "1", 1, "R", false, 0, "")
	}
	for _, w := range s.Warnings {
		pdf.Cell(0, 6, tr("Warning: "+w))
		pdf.Ln(6)
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Risk register")
	pdf.Ln(8)
	pdf.SetFont("Arial", "B", 9)
	for _, h := range []struct {
		title string
		width float64
	}{{"Threat", 70}, {"Score", 15}, {"Level", 20}, {"ALE", 35}, {"Residual", 35}} {
		pdf.CellFormat(h.width, 6, h.title, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, m := range s.Items {
		pdf.CellFormat(70, 6, tr(m.Threat), "1", 0, "L", false, 0, "")
		pdf.CellFormat(15, 6, fmt.Sprintf("%d", m.RiskScore), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, string(m.RiskLevel), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, money(m.ALE), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, money(m.ResidualRisk), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Heatmap (impact x likelihood)")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	for _, row := range gridRows(s) {
		pdf.CellFormat(15, 12, fmt.Sprintf("I%d", row.Impact), "", 0, "C", false, 0, "")
		for _, c := range row.Cells {
			rgb := levelFill[c.Level]
			pdf.SetFillColor(rgb[0], rgb[1], rgb[2])
			label := ""
			if c.Count > 0 {
				label = fmt.Sprintf("%d", c.Count)
			}
			pdf.CellFormat(20, 12, label, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.CellFormat(15, 6, "", "", 0, "C", false, 0, "")
	for l := 1; l <= 5; l++ {
		pdf.CellFormat(20, 6, fmt.Sprintf("L%d", l), "", 0, "C", false, 0, "")
	}
	pdf.Ln(10)

	if len(rep.DeviceDistribution) > 0 || len(rep.Findings) > 0 {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, "Devices and identities")
		pdf.Ln(8)
		pdf.SetFont("Arial", "", 10)
		for _, lc := range rep.DeviceDistribution {
			pdf.Cell(0, 6, fmt.Sprintf("%s devices: %d", lc.Level, lc.Count))
			pdf.Ln(6)
		}
		for _, f := range rep.Findings {
			pdf.MultiCell(0, 6, tr(fmt.Sprintf("[%s] %s: %s", f.Severity, f.Name, f.Detail)), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) ContentType() string { return "application/pdf" }
