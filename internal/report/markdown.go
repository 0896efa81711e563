package report

import (
	"bytes"
	"fmt"
	"text/template"
)

// MarkdownRenderer outputs the report as Markdown
type MarkdownRenderer struct{}

var mdTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"money":   money,
	"percent": percent,
	"grid":    gridRows,
}).Parse(`# {{ .Title }}
{{ if .AssessmentID }}
**Organisation:** {{ .BusinessName }}
**Assessment:** {{ .AssessmentID }} (revision {{ .Revision }}, {{ .Status }})
**Completion:** {{ percent .CompletionPercent }}
{{ end }}
_Generated {{ .GeneratedAt.Format "2006-01-02 15:04 MST" }}_

## Cost-benefit summary

| Metric | Value |
|---|---|
| Total SLE | {{ money .Heatmap.TotalSLE }} |
| Total ALE | {{ money .Heatmap.TotalALE }} |
| Residual risk | {{ money .Heatmap.TotalResidualRisk }} |
| Control investment | {{ money .Heatmap.ControlInvestment }} |
| NRRB | {{ money .Heatmap.NRRB }} |
| CBF score | {{ percent .Heatmap.CBFScore }} |
| ROI | {{ percent .Heatmap.ROI }} |
{{ if .Heatmap.Warnings }}
**Warnings:**
{{ range .Heatmap.Warnings }}- {{ . }}
{{ end }}{{ end }}
## Risk register

| Threat | I | L | Score | Level | ALE | Residual |
|---|---|---|---|---|---|---|
{{ range .Heatmap.Items }}| {{ .Threat }} | {{ .Impact }} | {{ .Likelihood }} | {{ .RiskScore }} | {{ .RiskLevel }} | {{ money .ALE }} | {{ money .ResidualRisk }} |
{{ end }}
## Heatmap (impact × likelihood)

| Impact | L1 | L2 | L3 | L4 | L5 |
|---|---|---|---|---|---|
{{ range grid .Heatmap }}| {{ .Impact }} |{{ range .Cells }} {{ .Count }} ({{ .Level }}) |{{ end }}
{{ end }}{{ if .Sections }}
## Sections
{{ range .Sections }}
- [{{ if .Complete }}x{{ else }} {{ end }}] {{ .Title }}{{ end }}
{{ end }}{{ if .DeviceDistribution }}
## Devices ({{ .DeviceCount }})
{{ range .DeviceDistribution }}
- {{ .Level }}: {{ .Count }}{{ end }}
{{ end }}{{ if .Findings }}
## Identity hygiene ({{ .IdentityCount }} identities)

| Identity | Finding | Severity | Detail |
|---|---|---|---|
{{ range .Findings }}| {{ .Name }} | {{ .Code }} | {{ .Severity }} | {{ .Detail }} |
{{ end }}{{ end }}{{ if .ValidationErrors }}
## Missing before submission
{{ range $field, $msg := .ValidationErrors }}
- ` + "`{{ $field }}`" + `: {{ $msg }}{{ end }}
{{ end }}`))

func (r *MarkdownRenderer) Render(rep *Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := mdTemplate.Execute(&buf, rep); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *MarkdownRenderer) ContentType() string { return "text/markdown; charset=utf-8" }
