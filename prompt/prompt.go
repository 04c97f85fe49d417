// Package prompt loads the templates used to turn retrieved context and a
// question into a generator prompt.
package prompt

import (
	"bytes"
	"fmt"
	"regexp"
	"text/template"
)

const (
	// DefaultName is the template used for financial question answering.
	DefaultName = "financial_analysis"

	// FallbackTemplate is used when no template file can be found.
	FallbackTemplate = "Answer based on context: {{.Context}} \n Question: {{.Question}}"
)

// Data holds the values substituted into a template.
type Data struct {
	Context  string
	Question string
}

// Template is a parsed prompt template.
type Template struct {
	name     string
	tmpl     *template.Template
	fallback bool
}

// placeholder matches {{$Name}} variables written for other template engines.
var placeholder = regexp.MustCompile(`\{\{\s*\$(\w+)\s*\}\}`)

// Parse compiles text as a prompt template. Both {{.Context}} and
// {{$Context}} placeholders are accepted.
func Parse(name, text string) (*Template, error) {
	text = placeholder.ReplaceAllString(text, "{{.$1}}")

	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", name, err)
	}
	return &Template{name: name, tmpl: tmpl}, nil
}

// Fallback returns the built-in template.
func Fallback() *Template {
	t, err := Parse(DefaultName, FallbackTemplate)
	if err != nil {
		panic(err)
	}
	t.fallback = true
	return t
}

func (t *Template) Name() string { return t.name }

// IsFallback reports whether t is the built-in template.
func (t *Template) IsFallback() bool { return t.fallback }

// Render substitutes data into the template.
func (t *Template) Render(data Data) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", t.name, err)
	}
	return buf.String(), nil
}
