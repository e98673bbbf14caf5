// Package codegen renders the dataset registration snippet consumed by the
// downstream anomaly-detection pipeline and persists it for manual merging.
package codegen

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/realiad/iad-layout/internal/errors"
	"github.com/realiad/iad-layout/internal/registry"
)

// Mode is a preprocessing strategy and the per-object defaults it implies.
type Mode struct {
	Name     string
	Masking  bool
	Rotation bool
}

// Modes lists the preprocessing strategies understood by the pipeline.
var Modes = []Mode{
	{Name: "agnostic", Masking: true, Rotation: true},
	{Name: "agnostic_no_mask", Masking: false, Rotation: true},
	{Name: "informed", Masking: true, Rotation: false},
	{Name: "masking_only", Masking: true, Rotation: false},
	{Name: "informed_no_mask", Masking: false, Rotation: false},
}

type objectAnomalies struct {
	Name      string
	Anomalies []string
}

type snippetData struct {
	Dataset   string
	Objects   []string
	Anomalies []objectAnomalies
	NoMask    []string
	Rotate    []string
	NoRotate  []string
}

const snippetTemplate = `
    elif dataset == {{py .Dataset}}:
        objects = {{pylist .Objects}}

        object_anomalies = {
{{- range $i, $o := .Anomalies}}{{if $i}},{{end}}
            {{py $o.Name}}: {{pylist $o.Anomalies}}
{{- end}}
        }

        # Masking and rotation defaults follow the preprocessing strategy
        if preprocess in {{pylist .NoMask}}:
            masking_default = {o: False for o in objects}
        else:
            masking_default = {o: True for o in objects}

        if preprocess in {{pylist .Rotate}}:
            rotation_default = {o: True for o in objects}
        elif preprocess in {{pylist .NoRotate}}:
            rotation_default = {o: False for o in objects}
`

var tmpl = template.Must(template.New("snippet").Funcs(template.FuncMap{
	"py":     pyString,
	"pylist": pyList,
}).Parse(snippetTemplate))

// Render returns the registration branch for dataset. Objects keep the order
// of summaries, which the scanner sorts.
func Render(dataset string, summaries []registry.CategorySummary) (string, error) {
	if strings.TrimSpace(dataset) == "" {
		return "", errors.Validation("dataset name is required")
	}

	data := snippetData{
		Dataset:   dataset,
		Objects:   make([]string, 0, len(summaries)),
		Anomalies: make([]objectAnomalies, 0, len(summaries)),
	}
	for _, s := range summaries {
		data.Objects = append(data.Objects, s.Name)
		data.Anomalies = append(data.Anomalies, objectAnomalies{Name: s.Name, Anomalies: s.AnomalyTypes})
	}
	for _, m := range Modes {
		if !m.Masking {
			data.NoMask = append(data.NoMask, m.Name)
		}
		if m.Rotation {
			data.Rotate = append(data.Rotate, m.Name)
		} else {
			data.NoRotate = append(data.NoRotate, m.Name)
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render snippet: %w", err)
	}
	return buf.String(), nil
}

// pyString quotes s as a Python string literal. Go's escapes (\n, \t, \xNN,
// \uNNNN, \UNNNNNNNN) are all valid in Python.
func pyString(s string) string {
	return strconv.Quote(s)
}

func pyList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = pyString(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
