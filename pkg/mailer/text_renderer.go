package mailer

import (
	"fmt"
	"strings"
	"text/template"
)

// TextRenderer renders registered text/template bodies by template id.
type TextRenderer struct {
	templates map[string]*template.Template
}

// NewTextRenderer parses the given template bodies. Parsing happens once at
// startup so malformed templates fail fast.
func NewTextRenderer(bodies map[string]string) (*TextRenderer, error) {
	templates := make(map[string]*template.Template, len(bodies))

	for id, body := range bodies {
		tmpl, err := template.New(id).Parse(body)
		if err != nil {
			return nil, fmt.Errorf("parsing mail template %q: %w", id, err)
		}

		templates[id] = tmpl
	}

	return &TextRenderer{templates: templates}, nil
}

func (r *TextRenderer) Render(templateID string, vars map[string]any) (string, error) {
	tmpl, ok := r.templates[templateID]
	if !ok {
		return "", fmt.Errorf("unknown mail template %q", templateID)
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, vars); err != nil {
		return "", fmt.Errorf("rendering mail template %q: %w", templateID, err)
	}

	return out.String(), nil
}
