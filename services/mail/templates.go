package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmlTemplate "html/template"
	"io/fs"
	"os"
	textTemplate "text/template"
)

//go:embed templates/*.html templates/*.txt
var defaultTemplates embed.FS

// Renderer renders named templates. A template named "welcome" is looked up
// as welcome.html and welcome.txt; at least one of them must exist.
type Renderer struct {
	html *htmlTemplate.Template
	text *textTemplate.Template
}

// NewRenderer loads templates from dir, or the built-in templates when dir is
// empty.
func NewRenderer(dir string) (*Renderer, error) {
	var fsys fs.FS
	if dir == "" {
		sub, err := fs.Sub(defaultTemplates, "templates")
		if err != nil {
			return nil, err
		}
		fsys = sub
	} else {
		fsys = os.DirFS(dir)
	}

	r := &Renderer{}
	if matches, _ := fs.Glob(fsys, "*.html"); len(matches) > 0 {
		t, err := htmlTemplate.ParseFS(fsys, "*.html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse HTML templates: %w", err)
		}
		r.html = t
	}
	if matches, _ := fs.Glob(fsys, "*.txt"); len(matches) > 0 {
		t, err := textTemplate.ParseFS(fsys, "*.txt")
		if err != nil {
			return nil, fmt.Errorf("failed to parse text templates: %w", err)
		}
		r.text = t
	}
	if r.html == nil && r.text == nil {
		return nil, fmt.Errorf("no mail templates found in %q", dir)
	}
	return r, nil
}

// Render returns the HTML and plain text bodies of a template. Either may be
// empty when only one variant exists.
func (r *Renderer) Render(name string, data map[string]any) (html, text string, err error) {
	var found bool

	if r.html != nil {
		if t := r.html.Lookup(name + ".html"); t != nil {
			var buf bytes.Buffer
			if err := t.Execute(&buf, data); err != nil {
				return "", "", fmt.Errorf("failed to execute HTML template: %w", err)
			}
			html, found = buf.String(), true
		}
	}
	if r.text != nil {
		if t := r.text.Lookup(name + ".txt"); t != nil {
			var buf bytes.Buffer
			if err := t.Execute(&buf, data); err != nil {
				return "", "", fmt.Errorf("failed to execute text template: %w", err)
			}
			text, found = buf.String(), true
		}
	}

	if !found {
		return "", "", fmt.Errorf("template '%s' not found", name)
	}
	return html, text, nil
}
