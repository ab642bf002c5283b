package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/tanpawarit/gram-sahayak/assistant/locale"
	nodex "github.com/tanpawarit/gram-sahayak/assistant/nodes"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.html
var templateFS embed.FS

type pageData struct {
	View    nodex.View
	Locales []locale.Info
	// Alert is a locale key for a request-level error, shown above the notice.
	Alert string
}

type pageRenderer struct {
	tmpl    *template.Template
	locales *locale.Bundle
}

func newPageRenderer(locales *locale.Bundle) (*pageRenderer, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Linkify))

	funcs := template.FuncMap{
		"t": func(code, key string, args ...string) string {
			return locales.T(code, key, args...)
		},
		// Raw HTML in the source is dropped by goldmark's default renderer.
		"markdown": func(src string) template.HTML {
			var buf bytes.Buffer
			if err := md.Convert([]byte(src), &buf); err != nil {
				return template.HTML(template.HTMLEscapeString(src))
			}
			return template.HTML(buf.String())
		},
	}

	tmpl, err := template.New("page.html").Funcs(funcs).ParseFS(templateFS, "templates/page.html")
	if err != nil {
		return nil, err
	}
	return &pageRenderer{tmpl: tmpl, locales: locales}, nil
}

// render buffers the page so a template error never produces half a response.
func (p *pageRenderer) render(w http.ResponseWriter, status int, view nodex.View, alert string) error {
	var buf bytes.Buffer
	data := pageData{View: view, Locales: p.locales.Supported(), Alert: alert}
	if err := p.tmpl.Execute(&buf, data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
