package renderer

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"
)

// TemplateRenderer implements echo.Renderer
type TemplateRenderer struct {
	Templates map[string]*template.Template
}

// New creates a new TemplateRenderer with templates parsed from fsys
func New(fsys fs.FS) (*TemplateRenderer, error) {
	r := &TemplateRenderer{
		Templates: make(map[string]*template.Template),
	}
	if err := r.parseTemplates(fsys); err != nil {
		return nil, err
	}
	return r, nil
}

func (t *TemplateRenderer) parseTemplates(fsys fs.FS) error {
	// Helper to parse layout + page + bucket tree partial
	parse := func(name, pageFile string) error {
		tmpl, err := template.ParseFS(fsys,
			"layouts/base.html",
			"partials/bucket_tree.html",
			"pages/"+pageFile,
		)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", name, err)
		}
		t.Templates[name] = tmpl
		return nil
	}

	if err := parse("login", "login.html"); err != nil {
		return err
	}
	if err := parse("dashboard", "dashboard.html"); err != nil {
		return err
	}

	// Partials
	tree, err := template.ParseFS(fsys, "partials/bucket_tree.html")
	if err != nil {
		return fmt.Errorf("failed to parse bucket_tree: %w", err)
	}
	t.Templates["bucket_tree"] = tree
	return nil
}

// selfExecutingTemplates lists templates that execute their own named block instead of "base"
var selfExecutingTemplates = map[string]bool{
	"bucket_tree": true,
}

// Render renders a template document
func (t *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := t.Templates[name]
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "Template not found: "+name)
	}

	// Templates that define their own named block execute that block directly
	if selfExecutingTemplates[name] {
		return tmpl.ExecuteTemplate(w, name, data)
	}
	// All other templates (pages with layout) execute the "base" block
	return tmpl.ExecuteTemplate(w, "base", data)
}
