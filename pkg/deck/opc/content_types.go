package opc

import (
	"encoding/xml"
	"path"
	"sort"
	"strings"
)

// xmlTypes directly maps the Types element of [Content_Types].xml
type xmlTypes struct {
	XMLName   xml.Name      `xml:"http://schemas.openxmlformats.org/package/2006/content-types Types"`
	Defaults  []xmlDefault  `xml:"Default"`
	Overrides []xmlOverride `xml:"Override"`
}

type xmlDefault struct {
	Extension   string `xml:",attr"`
	ContentType string `xml:",attr"`
}

type xmlOverride struct {
	PartName    string `xml:",attr"`
	ContentType string `xml:",attr"`
}

// ContentTypes is the package content-type registry: defaults keyed by
// lower-cased extension and overrides keyed by part name.
type ContentTypes struct {
	defaults  map[string]string
	overrides map[string]string
}

// NewContentTypes creates a registry holding the defaults every package needs
func NewContentTypes() *ContentTypes {
	return &ContentTypes{
		defaults: map[string]string{
			"rels": ContentTypeRelationships,
			"xml":  ContentTypeXML,
		},
		overrides: make(map[string]string),
	}
}

func parseContentTypes(data []byte) (*ContentTypes, error) {
	var types xmlTypes
	if err := xml.Unmarshal(data, &types); err != nil {
		return nil, err
	}
	ct := &ContentTypes{
		defaults:  make(map[string]string, len(types.Defaults)),
		overrides: make(map[string]string, len(types.Overrides)),
	}
	for _, d := range types.Defaults {
		ct.defaults[strings.ToLower(d.Extension)] = d.ContentType
	}
	for _, o := range types.Overrides {
		ct.overrides[normalizeName(o.PartName)] = o.ContentType
	}
	return ct, nil
}

// marshal renders the manifest for the given part names. Overrides for parts
// not listed are dropped; defaults and overrides are sorted.
func (c *ContentTypes) marshal(names []string) ([]byte, error) {
	present := make(map[string]bool, len(names))
	for _, name := range names {
		present[name] = true
	}

	var out xmlTypes
	exts := make([]string, 0, len(c.defaults))
	for ext := range c.defaults {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		out.Defaults = append(out.Defaults, xmlDefault{Extension: ext, ContentType: c.defaults[ext]})
	}

	parts := make([]string, 0, len(c.overrides))
	for name := range c.overrides {
		if present[name] {
			parts = append(parts, name)
		}
	}
	sort.Strings(parts)
	for _, name := range parts {
		out.Overrides = append(out.Overrides, xmlOverride{PartName: "/" + name, ContentType: c.overrides[name]})
	}

	body, err := xml.Marshal(out)
	if err != nil {
		return nil, err
	}
	return append([]byte(xmlHeader), body...), nil
}

// Default returns the default content type registered for an extension
func (c *ContentTypes) Default(ext string) (string, bool) {
	ct, ok := c.defaults[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return ct, ok
}

// SetDefault registers the default content type for an extension
func (c *ContentTypes) SetDefault(ext, contentType string) {
	c.defaults[strings.ToLower(strings.TrimPrefix(ext, "."))] = contentType
}

// Override returns the explicit content type of a part
func (c *ContentTypes) Override(name string) (string, bool) {
	ct, ok := c.overrides[normalizeName(name)]
	return ct, ok
}

// SetOverride registers an explicit content type for a part
func (c *ContentTypes) SetOverride(name, contentType string) {
	c.overrides[normalizeName(name)] = contentType
}

// RemoveOverride drops the explicit content type of a part
func (c *ContentTypes) RemoveOverride(name string) {
	delete(c.overrides, normalizeName(name))
}

// TypeOf resolves a part's content type: override first, then the extension default.
func (c *ContentTypes) TypeOf(name string) string {
	name = normalizeName(name)
	if ct, ok := c.overrides[name]; ok {
		return ct
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	return c.defaults[ext]
}

// Register records contentType for name, using the extension default when it
// already matches and an override otherwise.
func (c *ContentTypes) Register(name, contentType string) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	def, hasDefault := c.defaults[ext]
	switch {
	case hasDefault && def == contentType:
		c.RemoveOverride(name)
	case !hasDefault && ext != "" && !strings.HasSuffix(contentType, "+xml"):
		c.defaults[ext] = contentType
	default:
		c.SetOverride(name, contentType)
	}
}

// Overrides returns the part names carrying an explicit content type, sorted
func (c *ContentTypes) Overrides() []string {
	names := make([]string, 0, len(c.overrides))
	for name := range c.overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy
func (c *ContentTypes) Clone() *ContentTypes {
	out := &ContentTypes{
		defaults:  make(map[string]string, len(c.defaults)),
		overrides: make(map[string]string, len(c.overrides)),
	}
	for k, v := range c.defaults {
		out.defaults[k] = v
	}
	for k, v := range c.overrides {
		out.overrides[k] = v
	}
	return out
}

// isXMLContentType reports whether parts of this type carry an XML body
func isXMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.HasSuffix(ct, "+xml") || ct == "application/xml" || ct == "text/xml"
}
