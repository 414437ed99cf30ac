package httpapi

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"math"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/bmd/internal/common"
	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
)

//go:embed web
var webFS embed.FS

// pageData is passed to every page template.
type pageData struct {
	Title  string
	Active string
	User   string
	Flash  *flash
	Data   any
}

type renderer struct {
	pages   map[string]*template.Template
	species []string
}

var templateFuncs = template.FuncMap{
	"comma": func(n int) string { return humanize.Comma(int64(n)) },
	"area":  func(f float64) string { return humanize.Commaf(math.Round(f)) },
	"score": func(f float64) string { return fmt.Sprintf("%.3f", f) },
	"pct":   func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
	"width": func(f float64) string { return fmt.Sprintf("%.0f%%", math.Max(0, math.Min(1, f))*100) },
	"share": func(p float64) string { return fmt.Sprintf("%.0f%%", math.Max(0, math.Min(100, p))) },
	"inc":   func(i int) int { return i + 1 },
	"short": func(id string) string {
		if len(id) > 20 {
			return id[:20] + "..."
		}
		return id
	},
	"datetime": func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
	"ago":      humanize.Time,
	"terminal": func(status string) bool {
		return status == common.StatusCompleted || status == common.StatusFailed
	},
	"has": func(list []string, v string) bool { return slices.Contains(list, v) },
}

func newRenderer() (*renderer, error) {
	names, err := fs.Glob(webFS, "web/templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &renderer{pages: make(map[string]*template.Template)}
	for _, name := range names {
		base := path.Base(name)
		if base == "layout.html" {
			continue
		}
		t, err := template.New(base).Funcs(templateFuncs).ParseFS(webFS, "web/templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", base, err)
		}
		r.pages[strings.TrimSuffix(base, ".html")] = t
	}

	r.species, err = loadSpecies()
	if err != nil {
		return nil, err
	}
	return r, nil
}

// loadSpecies reads the scientific names of the EU invasive alien species list.
func loadSpecies() ([]string, error) {
	b, err := webFS.ReadFile("web/static/eu-ias-directive.json")
	if err != nil {
		return nil, err
	}
	var entries []struct {
		ScientificName string `json:"scientificName"`
	}
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("species list: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if n := strings.TrimSpace(e.ScientificName); n != "" {
			names = append(names, n)
		}
	}
	return names, nil
}

func (s *Server) render(c echo.Context, code int, page string, data pageData) error {
	t, ok := s.pages.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	if data.Flash == nil {
		data.Flash = s.popFlash(c)
	}
	if data.User == "" {
		data.User = currentUser(c)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return err
	}
	return c.HTMLBlob(code, buf.Bytes())
}

func (s *Server) renderFlash(c echo.Context, page string, data pageData, err error) error {
	data.Flash = &flash{Kind: flashNegative, Message: userMessage(err)}
	return s.render(c, apiError(err).Code, page, data)
}
