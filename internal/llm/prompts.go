package llm

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
	"unicode/utf8"
)

//go:embed prompts/*.md
var promptFS embed.FS

// Templates are parsed once at package init and reused on every call.
var (
	discoverTemplate = mustTemplate("discover.md")
	scoreTemplate    = mustTemplate("score.md")
	extractTemplate  = mustTemplate("extract.md")
	tailorTemplate   = mustTemplate("tailor.md")
)

func mustTemplate(name string) *template.Template {
	return template.Must(template.New(name).ParseFS(promptFS, "prompts/"+name))
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// truncate caps page text sent to the model at n bytes, backing off so a
// multi-byte rune is never split.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
