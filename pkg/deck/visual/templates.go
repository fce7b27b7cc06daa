package visual

import (
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
)

//go:embed templates/*.html
var builtinTemplates embed.FS

// Visual kinds with a built-in template
const (
	KindDesignBackground = "design_bg"
	KindGapAnalysis      = "gap_analysis"
	KindSolution         = "solution"
	KindFramework        = "framework"
	KindRoadmap          = "roadmap"
	KindROI              = "roi"
)

// Kinds lists the visual kinds that ship with a template
func Kinds() []string {
	entries, _ := builtinTemplates.ReadDir("templates")
	kinds := make([]string, 0, len(entries))
	for _, e := range entries {
		kinds = append(kinds, strings.TrimSuffix(e.Name(), ".html"))
	}
	sort.Strings(kinds)
	return kinds
}

// TemplateSource returns the HTML template for kind. A file named
// <kind>.html in dir takes precedence over the built-in one.
func TemplateSource(dir, kind string) (string, error) {
	if strings.ContainsAny(kind, `/\`) || kind == "" {
		return "", fmt.Errorf("invalid visual kind %q", kind)
	}
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, kind+".html"))
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("read template %s: %w", kind, err)
		}
	}
	data, err := builtinTemplates.ReadFile("templates/" + kind + ".html")
	if err != nil {
		return "", fmt.Errorf("unknown visual kind %q (available: %s)", kind, strings.Join(Kinds(), ", "))
	}
	return string(data), nil
}

// Inline SVG icons, keyed by the names persuasion data refers to
var icons = map[string]string{
	"target":        `<svg viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round"><circle cx="12" cy="12" r="10"/><circle cx="12" cy="12" r="6"/><circle cx="12" cy="12" r="2"/></svg>`,
	"efficiency":    `<svg viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round"><line x1="18" y1="20" x2="18" y2="10"/><line x1="12" y1="20" x2="12" y2="4"/><line x1="6" y1="20" x2="6" y2="14"/></svg>`,
	"productivity":  `<svg viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round"><line x1="12" y1="19" x2="12" y2="5"/><polyline points="5 12 12 5 19 12"/></svg>`,
	"quality":       `<svg viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round"><polyline points="20 6 9 17 4 12"/></svg>`,
	"innovation":    `<svg viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round"><path d="M9 18h6"/><path d="M10 22h4"/><path d="M15.09 14c.18-.98.65-1.74 1.41-2.5A4.65 4.65 0 0018 8 6 6 0 006 8c0 1 .23 2.23 1.5 3.5A4.61 4.61 0 018.91 14"/></svg>`,
	"collaboration": `<svg viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round"><path d="M17 21v-2a4 4 0 00-4-4H5a4 4 0 00-4 4v2"/><circle cx="9" cy="7" r="4"/><path d="M23 21v-2a4 4 0 00-3-3.87"/><path d="M16 3.13a4 4 0 010 7.75"/></svg>`,
	"growth":        `<svg viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round"><path d="M4.5 16.5c-1.5 1.26-2 5-2 5s3.74-.5 5-2c.71-.84.7-2.13-.09-2.91a2.18 2.18 0 00-2.91-.09z"/><path d="M12 15l-3-3a22 22 0 012-3.95A12.88 12.88 0 0122 2c0 2.72-.78 7.5-6 11a22.35 22.35 0 01-4 2z"/></svg>`,
	"achievement":   `<svg viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round"><path d="M6 9H4.5a2.5 2.5 0 010-5H6"/><path d="M18 9h1.5a2.5 2.5 0 000-5H18"/><path d="M4 22h16"/><path d="M18 2H6v7a6 6 0 0012 0V2z"/></svg>`,
}

// stepIcons cycle over the steps of a design background
var stepIcons = []string{"target", "innovation", "collaboration", "growth", "achievement"}

var principleIcons = []string{"innovation", "growth", "quality", "collaboration"}

// Icon returns the inline SVG for name, falling back to the target icon
func Icon(name string) template.HTML {
	svg, ok := icons[name]
	if !ok {
		svg = icons["target"]
	}
	return template.HTML(svg)
}

var funcs = template.FuncMap{
	"icon": Icon,
	"stepIcon": func(i int) template.HTML {
		return Icon(stepIcons[min(i, len(stepIcons)-1)])
	},
	"principleIcon": func(i int) template.HTML {
		return Icon(principleIcons[i%len(principleIcons)])
	},
	// nl2br escapes text and turns line breaks into <br>
	"nl2br": func(v any) template.HTML {
		if v == nil {
			return ""
		}
		s := template.HTMLEscapeString(fmt.Sprint(v))
		return template.HTML(strings.ReplaceAll(s, "\n", "<br>"))
	},
	"inc": func(i int) int { return i + 1 },
	"mod": func(i, n int) int { return i % n },
	"last": func(i int, list any) bool {
		v := reflect.ValueOf(list)
		switch v.Kind() {
		case reflect.Slice, reflect.Array:
			return i == v.Len()-1
		}
		return false
	},
}

// view is the value templates are executed against
type view struct {
	TokensCSS template.CSS
	Width     int
	Height    int
	Data      any
}

// BuildHTML executes an HTML template against data. The template reaches the
// token stylesheet as {{.TokensCSS}} and the payload as {{.Data}}.
func BuildHTML(source string, tokens *Tokens, width, height int, data any) (string, error) {
	tmpl, err := template.New("visual").Funcs(funcs).Option("missingkey=zero").Parse(source)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	var b strings.Builder
	err = tmpl.Execute(&b, view{
		TokensCSS: template.CSS(tokens.CSS()),
		Width:     width,
		Height:    height,
		Data:      data,
	})
	if err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return b.String(), nil
}
