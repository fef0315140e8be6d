// Package web provides embedded HTML pages for air-gapped deployment.
package web

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Renderer implements echo.Renderer on top of the embedded templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded page templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

// Render renders a named template to the response writer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

type pageData struct {
	Title  string
	Active string
}

// RegisterPageRoutes registers the server-rendered pages with Echo.
// The API routes should be registered before calling this function.
func RegisterPageRoutes(e *echo.Echo) {
	e.GET("/", renderPage("index.html", "SAHAYAK - AI Teaching Assistant", "home"))
	e.GET("/demo", renderPage("demo.html", "Demo Report - SAHAYAK", "demo"))
	e.GET("/upload", renderPage("upload.html", "Upload Roster - SAHAYAK", "upload"))
	e.GET("/about", renderPage("about.html", "About - SAHAYAK", "about"))
}

func renderPage(name, title, active string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.Render(http.StatusOK, name, pageData{Title: title, Active: active})
	}
}

// ErrorHandler wraps an API error handler so that requests outside /api
// and /api/ws receive HTML error pages instead of JSON envelopes.
func ErrorHandler(apiHandler echo.HTTPErrorHandler) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		path := c.Request().URL.Path
		if strings.HasPrefix(path, "/api") {
			apiHandler(err, c)
			return
		}
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}
		page := "500.html"
		if code == http.StatusNotFound {
			page = "404.html"
		}
		if renderErr := c.Render(code, page, pageData{Title: "SAHAYAK"}); renderErr != nil {
			c.Logger().Error(renderErr)
		}
	}
}

// HasEmbeddedTemplates returns true if the page templates were embedded.
func HasEmbeddedTemplates() bool {
	entries, err := templateFiles.ReadDir("templates")
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.Name() == "index.html" {
			return true
		}
	}
	return false
}

// GetEmbeddedTemplate returns a specific template file from the embedded
// filesystem. Used for testing or direct file access.
func GetEmbeddedTemplate(name string) (fs.File, error) {
	return templateFiles.Open("templates/" + name)
}
