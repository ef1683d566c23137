package notify

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

// rawKeys are inserted without HTML escaping; their values are
// pre-rendered HTML blocks built by the notifier glue.
var rawKeys = map[string]bool{
	"VIOLATIONS_LIST": true,
}

// Renderer substitutes {KEY} placeholders in embedded HTML templates.
// Values are HTML-escaped except for the raw block keys.
type Renderer struct{}

func (Renderer) Render(templateKey string, data map[string]string) (string, error) {
	b, err := templateFS.ReadFile("templates/" + templateKey)
	if err != nil {
		return "", fmt.Errorf("template %q: %w", templateKey, err)
	}

	out := string(b)
	for k, v := range data {
		if !rawKeys[k] {
			v = escapeHTML(v)
		}
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out, nil
}

func escapeHTML(s string) string {
	return strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	).Replace(s)
}
