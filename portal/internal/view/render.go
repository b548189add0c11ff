package view

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

//go:embed templates/*.html
var templatesFS embed.FS

const layoutFile = "templates/layout.html"

var funcs = template.FuncMap{
	"date": func(t any) string {
		switch v := t.(type) {
		case time.Time:
			if v.IsZero() {
				return "-"
			}
			return v.Format(time.DateOnly)
		case *time.Time:
			if v == nil || v.IsZero() {
				return "-"
			}
			return v.Format(time.DateOnly)
		default:
			return "-"
		}
	},
	"dash": func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "-"
		}
		return s
	},
	"year": func() int { return time.Now().Year() },
}

// Renderer executes one layout-wrapped template per page.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	layout, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS, layoutFile)
	if err != nil {
		return nil, errors.Wrap(err, "parse layout")
	}
	files, err := fs.Glob(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(files))}
	for _, f := range files {
		if f == layoutFile {
			continue
		}
		tpl, err := template.Must(layout.Clone()).ParseFS(templatesFS, f)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", f)
		}
		r.pages[strings.TrimSuffix(path.Base(f), ".html")] = tpl
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tpl, ok := r.pages[name]
	if !ok {
		return errors.Errorf("no template %q", name)
	}
	return tpl.ExecuteTemplate(w, "layout", data)
}

func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}
