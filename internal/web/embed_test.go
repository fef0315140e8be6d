package web

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	e := echo.New()
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("failed to build renderer: %v", err)
	}
	e.Renderer = renderer
	return e
}

func TestHasEmbeddedTemplates(t *testing.T) {
	if !HasEmbeddedTemplates() {
		t.Error("expected embedded templates to be present")
	}
}

func TestPageRoutes(t *testing.T) {
	e := newTestEcho(t)
	RegisterPageRoutes(e)

	tests := []struct {
		path     string
		contains string
	}{
		{"/", "One teacher. Five grades."},
		{"/demo", "Generate demo report"},
		{"/upload", "Upload your student roster"},
		{"/about", "multi-grade classroom"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("expected page to contain %q", tt.contains)
			}
		})
	}
}

func TestErrorHandlerRendersHTMLForPages(t *testing.T) {
	e := newTestEcho(t)
	e.HTTPErrorHandler = ErrorHandler(func(err error, c echo.Context) {
		_ = c.JSON(http.StatusInternalServerError, map[string]string{"error": "api"})
	})

	req := httptest.NewRequest(http.MethodGet, "/no-such-page", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Page not found") {
		t.Error("expected HTML 404 page")
	}
}

func TestErrorHandlerDelegatesAPIRequests(t *testing.T) {
	e := newTestEcho(t)
	called := false
	e.HTTPErrorHandler = ErrorHandler(func(err error, c echo.Context) {
		called = true
		_ = c.JSON(http.StatusNotFound, map[string]string{"error": "api"})
	})
	e.GET("/api/boom", func(c echo.Context) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/missing", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if !called {
		t.Error("expected API error handler to be called for /api paths")
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
		t.Errorf("expected JSON response, got %s", rec.Header().Get("Content-Type"))
	}
}

func TestGetEmbeddedTemplate(t *testing.T) {
	f, err := GetEmbeddedTemplate("index.html")
	if err != nil {
		t.Fatalf("expected index.html to exist: %v", err)
	}
	f.Close()

	if _, err := GetEmbeddedTemplate("missing.html"); err == nil {
		t.Error("expected error for missing template")
	}
}
