package report

import "encoding/json"

// JSONRenderer outputs the report as indented JSON
type JSONRenderer struct{}

func (r *JSONRenderer) Render(rep *Report) ([]byte, error) {
	return json.MarshalIndent(rep, "", "  ")
}

func (r *JSONRenderer) ContentType() string { return "application/json" }
