package ollama

import (
	"bytes"
	"strings"
	"text/template"
)

var funcs = template.FuncMap{
	"join":  strings.Join,
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
}

// RenderTemplate renders a prompt template with the provided data. Templates
// may use join, upper and lower.
func RenderTemplate(tmpl string, data any) (string, error) {
	tpl, err := template.New("prompt").Funcs(funcs).Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
