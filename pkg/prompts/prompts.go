package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/dskvich/pmc-assistant/pkg/domain"
)

//go:embed templates/*
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.tmpl"))

// AnswerData feeds the localized answer templates.
type AnswerData struct {
	History string
	Context string
	Query   string
	Links   string
}

// RenderAnswer renders the answer prompt for the detected language.
func RenderAnswer(lang domain.Language, data AnswerData) (string, error) {
	name := "answer_en.tmpl"
	if lang == domain.LanguageMarathi {
		name = "answer_mr.tmpl"
	}
	return render(name, data)
}

// RenderDetection renders the single-word language classification prompt.
func RenderDetection(query string) (string, error) {
	return render("detect.tmpl", struct{ Query string }{Query: query})
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}
