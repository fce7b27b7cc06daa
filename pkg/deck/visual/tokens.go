package visual

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Tokens is the design-token file shared by every visual template
type Tokens struct {
	Color map[string]string `json:"color"`
	Font  struct {
		Family string `json:"family"`
		CDN    string `json:"cdn"`
	} `json:"font"`
	Viewport struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"viewport"`
	Spacing    map[string]string            `json:"spacing"`
	Typography map[string]map[string]string `json:"typography"`
}

// LoadTokens reads a tokens.json file
func LoadTokens(path string) (*Tokens, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tokens: %w", err)
	}
	return ParseTokens(data)
}

// ParseTokens decodes design tokens from JSON
func ParseTokens(data []byte) (*Tokens, error) {
	var tokens Tokens
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("parse tokens: %w", err)
	}
	return &tokens, nil
}

// CSS renders the tokens as custom properties on :root. The font import has
// to precede the rule, so it is emitted first.
func (t *Tokens) CSS() string {
	if t == nil {
		return ""
	}
	var b strings.Builder
	if t.Font.CDN != "" {
		fmt.Fprintf(&b, "@import url('%s');\n", t.Font.CDN)
	}
	b.WriteString(":root {\n")
	prop := func(name, value string) {
		fmt.Fprintf(&b, "  --%s: %s;\n", name, value)
	}

	for _, key := range sortedKeys(t.Color) {
		prop("color-"+key, t.Color[key])
	}
	if t.Font.Family != "" {
		prop("font-family", t.Font.Family)
	}
	if t.Font.CDN != "" {
		prop("font-cdn", t.Font.CDN)
	}
	if t.Viewport.Width > 0 && t.Viewport.Height > 0 {
		prop("viewport-w", fmt.Sprintf("%dpx", t.Viewport.Width))
		prop("viewport-h", fmt.Sprintf("%dpx", t.Viewport.Height))
	}
	for _, key := range sortedKeys(t.Spacing) {
		prop("spacing-"+key, t.Spacing[key])
	}
	for _, name := range sortedKeys(t.Typography) {
		props := t.Typography[name]
		for _, key := range sortedKeys(props) {
			prop("typo-"+name+"-"+key, props[key])
		}
	}
	b.WriteString("}")
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
