// Package opc implements the in-memory model of an Open Packaging Conventions
// archive: named parts, the content-type registry and one relationship
// collection per source part.
//
// XML parts are held as etree documents so that namespace prefixes, unknown
// extension elements and attribute order survive a load/save round-trip.
package opc

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// zipModTime is stamped on every entry so output bytes only depend on content
var zipModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Part is one named entry of the package: an XML tree or an opaque blob.
type Part struct {
	Name string
	Doc  *etree.Document
	Data []byte
}

// NewXMLPart creates an XML part
func NewXMLPart(name string, doc *etree.Document) *Part {
	return &Part{Name: normalizeName(name), Doc: doc}
}

// NewBinaryPart creates a binary part
func NewBinaryPart(name string, data []byte) *Part {
	return &Part{Name: normalizeName(name), Data: data}
}

// IsXML reports whether the part holds a parsed XML tree
func (p *Part) IsXML() bool {
	return p.Doc != nil
}

// Root returns the root element of an XML part, or nil
func (p *Part) Root() *etree.Element {
	if p.Doc == nil {
		return nil
	}
	return p.Doc.Root()
}

// Bytes serializes the part body
func (p *Part) Bytes() ([]byte, error) {
	if p.Doc != nil {
		return p.Doc.WriteToBytes()
	}
	return p.Data, nil
}

// Clone returns a deep copy under a new name
func (p *Part) Clone(name string) *Part {
	out := &Part{Name: normalizeName(name)}
	if p.Doc != nil {
		out.Doc = p.Doc.Copy()
	} else {
		out.Data = append([]byte(nil), p.Data...)
	}
	return out
}

// Package is an OPC archive held in memory.
type Package struct {
	parts map[string]*Part
	rels  map[string]*Relationships
	types *ContentTypes
}

// New creates an empty package
func New() *Package {
	return &Package{
		parts: make(map[string]*Part),
		rels:  make(map[string]*Relationships),
		types: NewContentTypes(),
	}
}

// LoadFile reads and parses a package from disk
func LoadFile(filename string) (*Package, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	pkg, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filename, err)
	}
	return pkg, nil
}

// Load parses a package from its container bytes. Every entry is classified
// as XML or binary by its declared content type, falling back to the .xml
// extension. Failures wrap ErrCorrupt and name the offending part.
func Load(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, corrupt("open container", "", err)
	}

	entries := make(map[string][]byte, len(zr.File))
	for _, file := range zr.File {
		if strings.HasSuffix(file.Name, "/") {
			continue
		}
		body, err := readZipFile(file)
		if err != nil {
			return nil, corrupt("read entry", file.Name, err)
		}
		entries[normalizeName(file.Name)] = body
	}

	manifest, ok := entries[ContentTypesPartName]
	if !ok {
		return nil, corrupt("read manifest", ContentTypesPartName, errors.New("missing"))
	}
	types, err := parseContentTypes(manifest)
	if err != nil {
		return nil, corrupt("parse manifest", ContentTypesPartName, err)
	}
	delete(entries, ContentTypesPartName)

	pkg := &Package{
		parts: make(map[string]*Part, len(entries)),
		rels:  make(map[string]*Relationships),
		types: types,
	}

	for name, body := range entries {
		if source, isRels := SourceOfRels(name); isRels {
			rels, err := parseRelationships(body)
			if err != nil {
				return nil, corrupt("parse relationships", name, err)
			}
			pkg.rels[source] = rels
			continue
		}

		if !pkg.classifyXML(name) {
			pkg.parts[name] = &Part{Name: name, Data: body}
			continue
		}
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(body); err != nil {
			return nil, corrupt("parse xml", name, err)
		}
		if doc.Root() == nil {
			return nil, corrupt("parse xml", name, errors.New("no root element"))
		}
		pkg.parts[name] = &Part{Name: name, Doc: doc}
	}

	return pkg, nil
}

func (p *Package) classifyXML(name string) bool {
	if ct := p.types.TypeOf(name); ct != "" {
		return isXMLContentType(ct)
	}
	return strings.EqualFold(path.Ext(name), ".xml")
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Save serializes the package. [Content_Types].xml is always the first entry,
// every other entry follows in lexical order, and the manifest is rebuilt
// from the registry.
func (p *Package) Save() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write serializes the package to w
func (p *Package) Write(w io.Writer) error {
	names := p.PartNames()

	var missing []string
	for _, name := range names {
		if p.types.TypeOf(name) == "" {
			missing = append(missing, fmt.Sprintf("part %s has no content type", name))
		}
	}
	if len(missing) > 0 {
		return &InvariantError{Violations: missing}
	}
	if _, ok := p.types.Default("rels"); !ok {
		p.types.SetDefault("rels", ContentTypeRelationships)
	}

	entries := make(map[string][]byte, len(names)+len(p.rels))
	for _, name := range names {
		body, err := p.parts[name].Bytes()
		if err != nil {
			return &ArchiveError{Operation: "serialize", Part: name, Cause: err}
		}
		entries[name] = body
	}
	for source, rels := range p.rels {
		if rels.Len() == 0 && !rels.loaded {
			continue
		}
		if source != "" && p.parts[source] == nil {
			continue
		}
		body, err := rels.marshal()
		if err != nil {
			return &ArchiveError{Operation: "serialize", Part: RelsPartName(source), Cause: err}
		}
		entries[RelsPartName(source)] = body
	}

	manifest, err := p.types.marshal(names)
	if err != nil {
		return &ArchiveError{Operation: "serialize", Part: ContentTypesPartName, Cause: err}
	}

	order := make([]string, 0, len(entries))
	for name := range entries {
		order = append(order, name)
	}
	sort.Strings(order)

	zw := zip.NewWriter(w)
	if err := writeZipEntry(zw, ContentTypesPartName, manifest); err != nil {
		return err
	}
	for _, name := range order {
		if err := writeZipEntry(zw, name, entries[name]); err != nil {
			return err
		}
	}
	return zw.Close()
}

func writeZipEntry(zw *zip.Writer, name string, body []byte) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: zipModTime,
	})
	if err != nil {
		return fmt.Errorf("create zip entry %s: %w", name, err)
	}
	if _, err := fw.Write(body); err != nil {
		return fmt.Errorf("write zip entry %s: %w", name, err)
	}
	return nil
}

// Part returns the named part
func (p *Package) Part(name string) (*Part, bool) {
	part, ok := p.parts[normalizeName(name)]
	return part, ok
}

// HasPart reports whether the named part exists
func (p *Package) HasPart(name string) bool {
	_, ok := p.parts[normalizeName(name)]
	return ok
}

// PartNames returns every part name in lexical order
func (p *Package) PartNames() []string {
	names := make([]string, 0, len(p.parts))
	for name := range p.parts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PartsOfType returns the names of parts with the given content type, sorted
func (p *Package) PartsOfType(contentType string) []string {
	var names []string
	for _, name := range p.PartNames() {
		if p.types.TypeOf(name) == contentType {
			names = append(names, name)
		}
	}
	return names
}

// AddPart stores a new part and records its content type. Adding a name that
// already exists is an invariant violation.
func (p *Package) AddPart(part *Part, contentType string) error {
	if _, exists := p.parts[part.Name]; exists {
		return fmt.Errorf("%w: part %s already exists", ErrInvariant, part.Name)
	}
	p.parts[part.Name] = part
	if contentType != "" {
		p.types.Register(part.Name, contentType)
	}
	return nil
}

// SetPart stores a part, replacing any part with the same name
func (p *Package) SetPart(part *Part) {
	p.parts[part.Name] = part
}

// RemovePart deletes a part together with its relationships and override
func (p *Package) RemovePart(name string) {
	name = normalizeName(name)
	delete(p.parts, name)
	delete(p.rels, name)
	p.types.RemoveOverride(name)
}

// XML returns the root element of the named XML part
func (p *Package) XML(name string) (*etree.Element, error) {
	part, ok := p.Part(name)
	if !ok {
		return nil, fmt.Errorf("part %s not found", name)
	}
	if !part.IsXML() {
		return nil, fmt.Errorf("part %s is not xml", name)
	}
	return part.Root(), nil
}

// ContentTypes returns the package content-type registry
func (p *Package) ContentTypes() *ContentTypes {
	return p.types
}

// Relationships returns the relationship collection of a source part,
// creating an empty one when none exists. The package itself is source "".
func (p *Package) Relationships(source string) *Relationships {
	source = normalizeName(source)
	rels, ok := p.rels[source]
	if !ok {
		rels = NewRelationships()
		p.rels[source] = rels
	}
	return rels
}

// HasRelationships reports whether source owns a relationship collection
func (p *Package) HasRelationships(source string) bool {
	rels, ok := p.rels[normalizeName(source)]
	return ok && (rels.Len() > 0 || rels.loaded)
}

// RelationshipSources returns every source owning relationships, sorted
func (p *Package) RelationshipSources() []string {
	sources := make([]string, 0, len(p.rels))
	for source := range p.rels {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	return sources
}

// Target resolves a relationship id of source to the target part name
func (p *Package) Target(source, rID string) (string, bool) {
	rels, ok := p.rels[normalizeName(source)]
	if !ok {
		return "", false
	}
	rel, ok := rels.Get(rID)
	if !ok || rel.IsExternal() {
		return "", false
	}
	return ResolveTarget(source, rel.Target), true
}

// MainDocument returns the part targeted by the package officeDocument relationship
func (p *Package) MainDocument() (string, error) {
	rels := p.Relationships("").ByType(RelTypeOfficeDocument)
	if len(rels) == 0 {
		return "", fmt.Errorf("%w: package has no officeDocument relationship", ErrCorrupt)
	}
	return ResolveTarget("", rels[0].Target), nil
}

// Clone returns a deep copy of the package
func (p *Package) Clone() *Package {
	out := &Package{
		parts: make(map[string]*Part, len(p.parts)),
		rels:  make(map[string]*Relationships, len(p.rels)),
		types: p.types.Clone(),
	}
	for name, part := range p.parts {
		out.parts[name] = part.Clone(name)
	}
	for source, rels := range p.rels {
		out.rels[source] = rels.Clone()
	}
	return out
}
