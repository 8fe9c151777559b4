package sso

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

// FormRenderer writes a login form to the response
type FormRenderer interface {
	Render(w http.ResponseWriter, form *Form, actionURL string) error
}

// TemplateRenderer renders forms from the embedded html templates.
// Templates are looked up by Form.Template, e.g. "email-form" -> templates/email-form.html.
type TemplateRenderer struct {
	templates *template.Template
}

type formView struct {
	ActionURL string
	Username  string
	Error     string
}

// NewTemplateRenderer parses the embedded templates
func NewTemplateRenderer() (*TemplateRenderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse form templates: %w", err)
	}
	return &TemplateRenderer{templates: tmpl}, nil
}

// Render executes the form's template. Output is buffered so a template
// failure never leaves a partial page behind.
func (r *TemplateRenderer) Render(w http.ResponseWriter, form *Form, actionURL string) error {
	tmpl := r.templates.Lookup(form.Template + ".html")
	if tmpl == nil {
		return fmt.Errorf("unknown form template %q", form.Template)
	}

	var buf bytes.Buffer
	view := formView{ActionURL: actionURL, Username: form.Username, Error: form.Error}
	if err := tmpl.Execute(&buf, view); err != nil {
		return fmt.Errorf("failed to render %s: %w", form.Template, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(buf.Bytes())
	return err
}
