// Package blockpage renders the HTML page served on a blocked request.
// A default page ships embedded in the binary; operators can replace it
// with their own template file.
package blockpage

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"

	"github.com/calloway/swgate/internal/swg/domain"
)

//go:embed blockpage.html
var defaultPage string

// Details are the values available to the page template.
type Details struct {
	Domain   string
	Category string
}

// Renderer renders block pages from a parsed template.
type Renderer struct {
	tpl *template.Template
}

// New returns a Renderer using the embedded default page.
func New() *Renderer {
	return &Renderer{tpl: template.Must(template.New("blockpage").Parse(defaultPage))}
}

// NewFromFile parses an operator-supplied template file.
func NewFromFile(path string) (*Renderer, error) {
	tpl, err := template.ParseFiles(path)
	if err != nil {
		return nil, fmt.Errorf("unable to parse block page template %q: %w", path, err)
	}
	return &Renderer{tpl: tpl}, nil
}

// Render produces the HTML body for a blocked request.
func (r *Renderer) Render(name string, cat domain.Category) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, Details{Domain: name, Category: string(cat)}); err != nil {
		return nil, fmt.Errorf("block page render failed: %w", err)
	}
	return buf.Bytes(), nil
}
