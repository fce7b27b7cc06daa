package deck

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/benjaminschreck/go-deck/pkg/deck/opc"
)

// ComposerOption configures a Composer
type ComposerOption func(*Composer)

// WithSections writes one PowerPoint section per fragment
func WithSections(enabled bool) ComposerOption {
	return func(c *Composer) {
		c.sections = enabled
	}
}

// WithSizeHarmonization sets the slide size to the largest fragment's
func WithSizeHarmonization(enabled bool) ComposerOption {
	return func(c *Composer) {
		c.harmonize = enabled
	}
}

// WithComposerLogger sets the composer's logger
func WithComposerLogger(logger *Logger) ComposerOption {
	return func(c *Composer) {
		c.logger = logger
	}
}

// composedFragment records where a fragment's pages live in the document
type composedFragment struct {
	name      string
	priority  int
	slideRels []string
	slideIDs  []int
}

type masterRef struct {
	id   uint32
	rID  string
	part string
}

// Composer merges substituted fragments into one presentation. The first
// fragment supplies the document shell; every fragment contributes its slides
// and everything they reach under fresh part names.
type Composer struct {
	logger    *Logger
	sections  bool
	harmonize bool

	doc   *opc.Package
	pres  *presentation
	names *nameArena
	ids   idArena
	media map[[sha256.Size]byte]string
	fonts map[string]bool

	fragments []*composedFragment
	masters   []masterRef
	pages     int
	width     int64
	height    int64

	finalized bool
	err       error
}

// NewComposer creates an empty composer
func NewComposer(opts ...ComposerOption) *Composer {
	cfg := GetGlobalConfig()
	c := &Composer{
		sections:  cfg.Compose.Sections,
		harmonize: cfg.Compose.HarmonizeSize,
		ids:       idArena{next: firstMasterID},
		media:     make(map[[sha256.Size]byte]string),
		fonts:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = GetLogger()
	}
	return c
}

// Append merges f into the document and consumes it. Its pages are placed
// after every fragment with a lower or equal priority.
func (c *Composer) Append(f *Fragment) error {
	if c.finalized {
		return fmt.Errorf("%w: document already finalized", ErrCompositionInvariantViolation)
	}
	if f.Package == nil {
		return NewFragmentError(f.label(), "compose", "", ErrFragmentConsumed, nil)
	}

	src := f.Package
	srcPres, err := openPresentation(src)
	if err != nil {
		return NewFragmentError(f.label(), "compose", "open presentation", nil, err)
	}
	slides, err := srcPres.slides()
	if err != nil {
		return NewFragmentError(f.label(), "compose", "read slide order", nil, err)
	}

	if c.doc == nil {
		if err := c.initShell(src, srcPres); err != nil {
			return NewFragmentError(f.label(), "compose", "build document shell", nil, err)
		}
	}

	entry, err := c.merge(src, srcPres, slides)
	if err != nil {
		return NewFragmentError(f.label(), "compose", "", nil, err)
	}
	entry.name = f.label()
	entry.priority = f.Priority
	c.insert(entry)
	c.pages += len(slides)

	f.Package = nil
	c.logger.WithFields(Fields{"fragment": entry.name, "priority": f.Priority}).
		Debug("appended %d slides", len(slides))
	return nil
}

// Pages returns the number of slides appended so far
func (c *Composer) Pages() int {
	return c.pages
}

// initShell builds the document from the first fragment: the presentation
// part and its properties without any slide, master, notes, handout, font or
// theme reference.
func (c *Composer) initShell(src *opc.Package, srcPres *presentation) error {
	dropped := map[string]bool{
		opc.RelTypeSlide:         true,
		opc.RelTypeSlideMaster:   true,
		opc.RelTypeNotesMaster:   true,
		opc.RelTypeHandoutMaster: true,
		opc.RelTypeFont:          true,
		opc.RelTypeTheme:         true,
	}
	keep := make(map[string]bool)
	for _, name := range src.Reachable([]string{""}, func(source string, rel opc.Relationship) bool {
		return source == srcPres.name && dropped[rel.Type]
	}) {
		keep[name] = true
	}

	doc, _ := src.CloneRenamed(
		func(name string) bool { return keep[name] },
		func(name string) string { return name },
	)
	pres, err := openPresentation(doc)
	if err != nil {
		return err
	}

	for _, tag := range []string{"sldIdLst", "sldMasterIdLst"} {
		clearChildren(pres.list(tag, false))
	}
	for _, tag := range []string{"notesMasterIdLst", "handoutMasterIdLst", "embeddedFontLst", "custShowLst"} {
		if el := pmlChild(pres.root, tag); el != nil {
			pres.root.RemoveChild(el)
		}
	}
	removeSectionList(pres)

	c.doc = doc
	c.pres = pres
	c.names = newNameArena(doc.PartNames())
	for _, name := range doc.PartNames() {
		if !strings.HasPrefix(name, "ppt/") {
			continue
		}
		if part, _ := doc.Part(name); !part.IsXML() {
			c.media[sha256.Sum256(part.Data)] = name
		}
	}
	if cx, cy, ok := pres.slideSize(); ok {
		c.width, c.height = cx, cy
	}
	return nil
}

func (c *Composer) merge(src *opc.Package, srcPres *presentation, slides []string) (*composedFragment, error) {
	reachable := src.Reachable(slides, func(_ string, rel opc.Relationship) bool {
		return rel.Type == opc.RelTypeNotesSlide
	})

	rename := make(map[string]string, len(reachable))
	for _, name := range reachable {
		rename[name] = c.partName(src, name)
	}
	clone, _ := src.CloneRenamed(
		func(name string) bool { _, ok := rename[name]; return ok },
		func(name string) string { return rename[name] },
	)
	if err := c.absorb(clone); err != nil {
		return nil, err
	}

	for _, name := range reachable {
		if src.ContentTypes().TypeOf(name) == opc.ContentTypeSlideMaster {
			if err := c.registerMaster(rename[name]); err != nil {
				return nil, err
			}
		}
	}

	entry := &composedFragment{}
	presRels := c.pres.rels()
	for _, slide := range slides {
		rID := presRels.Add(opc.RelTypeSlide, opc.RelativeTarget(c.pres.name, rename[slide]))
		entry.slideRels = append(entry.slideRels, rID)
	}

	if err := c.mergeFonts(src, srcPres); err != nil {
		return nil, err
	}
	if cx, cy, ok := srcPres.slideSize(); ok {
		c.width = max(c.width, cx)
		c.height = max(c.height, cy)
	}
	return entry, nil
}

// partName allocates the document name of a fragment part. Binary parts whose
// bytes are already stored reuse the existing name.
func (c *Composer) partName(src *opc.Package, name string) string {
	part, _ := src.Part(name)
	if part.IsXML() {
		return c.names.allocate(name)
	}
	sum := sha256.Sum256(part.Data)
	if existing, ok := c.media[sum]; ok {
		return existing
	}
	newName := c.names.allocate(name)
	c.media[sum] = newName
	return newName
}

// absorb moves the parts, content types and relationships of a renamed clone
// into the document.
func (c *Composer) absorb(clone *opc.Package) error {
	for _, name := range clone.PartNames() {
		part, _ := clone.Part(name)
		if existing, ok := c.doc.Part(name); ok {
			if !part.IsXML() && !existing.IsXML() && bytes.Equal(part.Data, existing.Data) {
				continue
			}
			return fmt.Errorf("%w: part %s already exists", ErrCompositionInvariantViolation, name)
		}
		if _, ok := c.doc.ContentTypes().Override(name); ok {
			return fmt.Errorf("%w: content type override for %s already exists", ErrCompositionInvariantViolation, name)
		}
		ct := clone.ContentTypes().TypeOf(name)
		if ct == "" {
			return fmt.Errorf("%w: part %s has no content type", ErrCompositionInvariantViolation, name)
		}
		if err := c.doc.AddPart(part, ct); err != nil {
			return err
		}
		c.names.reserve(name)
	}

	for _, source := range clone.RelationshipSources() {
		rels := clone.Relationships(source)
		if source == "" || rels.Len() == 0 {
			continue
		}
		if c.doc.HasRelationships(source) {
			return fmt.Errorf("%w: relationships of %s already exist", ErrCompositionInvariantViolation, source)
		}
		dst := c.doc.Relationships(source)
		for _, rel := range rels.Relationship {
			if err := dst.Put(rel); err != nil {
				return err
			}
		}
	}
	return nil
}

// registerMaster gives a cloned master and its layouts fresh ids and links
// it from the presentation.
func (c *Composer) registerMaster(name string) error {
	root, err := c.doc.XML(name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCompositionInvariantViolation, err)
	}
	id := c.ids.allocate()
	for _, layout := range pmlChildren(pmlChild(root, "sldLayoutIdLst"), "sldLayoutId") {
		layout.CreateAttr("id", strconv.FormatUint(uint64(c.ids.allocate()), 10))
	}
	rID := c.pres.rels().Add(opc.RelTypeSlideMaster, opc.RelativeTarget(c.pres.name, name))
	c.masters = append(c.masters, masterRef{id: id, rID: rID, part: name})
	return nil
}

// mergeFonts unions the fragment's embedded fonts into the document by typeface
func (c *Composer) mergeFonts(src *opc.Package, srcPres *presentation) error {
	for _, font := range pmlChildren(pmlChild(srcPres.root, "embeddedFontLst"), "embeddedFont") {
		face := pmlChild(font, "font")
		if face == nil {
			continue
		}
		typeface := face.SelectAttrValue("typeface", "")
		if typeface == "" || c.fonts[typeface] {
			continue
		}

		entry := font.Copy()
		idMap := make(map[string]string)
		for _, attr := range opc.RelationshipRefs(entry) {
			if _, done := idMap[attr.Value]; done {
				continue
			}
			target, ok := src.Target(srcPres.name, attr.Value)
			part, found := src.Part(target)
			if !ok || !found {
				return fmt.Errorf("%w: embedded font %s: %s does not resolve", ErrArchiveCorrupt, typeface, attr.Value)
			}
			name := c.partName(src, target)
			if !c.doc.HasPart(name) {
				if err := c.doc.AddPart(part.Clone(name), src.ContentTypes().TypeOf(target)); err != nil {
					return err
				}
			}
			idMap[attr.Value] = c.pres.rels().Add(opc.RelTypeFont, opc.RelativeTarget(c.pres.name, name))
		}
		opc.RewriteRelationshipRefs(entry, idMap)
		c.pres.list("embeddedFontLst", true).AddChild(entry)
		c.fonts[typeface] = true
	}
	return nil
}

func (c *Composer) insert(entry *composedFragment) {
	i := sort.Search(len(c.fragments), func(i int) bool {
		return c.fragments[i].priority > entry.priority
	})
	c.fragments = slices.Insert(c.fragments, i, entry)
}

// Document finalizes and returns the composed package. It runs the
// structural self-check; later calls return the same result.
func (c *Composer) Document() (*opc.Package, error) {
	if c.doc == nil {
		return nil, fmt.Errorf("%w: no fragments appended", ErrCompositionInvariantViolation)
	}
	if !c.finalized {
		c.finalized = true
		c.err = c.finalize()
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.doc, nil
}

func (c *Composer) finalize() error {
	c.writeSlideList()
	c.writeMasterList()
	if err := c.linkTheme(); err != nil {
		return err
	}
	if c.harmonize && c.width > 0 && c.height > 0 {
		c.pres.setSlideSize(c.width, c.height)
	}
	if c.sections {
		c.writeSections()
	}
	if err := updateAppProperties(c.doc, c.pages); err != nil {
		return err
	}
	return c.selfCheck()
}

func (c *Composer) writeSlideList() {
	list := c.pres.list("sldIdLst", true)
	clearChildren(list)
	prefix := relPrefix(c.pres.root)
	id := firstSlideID
	for _, frag := range c.fragments {
		frag.slideIDs = frag.slideIDs[:0]
		for _, rID := range frag.slideRels {
			el := list.CreateElement(qualified(c.pres.root.Space, "sldId"))
			el.CreateAttr("id", strconv.Itoa(id))
			el.CreateAttr(prefix+":id", rID)
			frag.slideIDs = append(frag.slideIDs, id)
			id++
		}
	}
}

func (c *Composer) writeMasterList() {
	list := c.pres.list("sldMasterIdLst", true)
	clearChildren(list)
	prefix := relPrefix(c.pres.root)
	for _, master := range c.masters {
		el := list.CreateElement(qualified(c.pres.root.Space, "sldMasterId"))
		el.CreateAttr("id", strconv.FormatUint(uint64(master.id), 10))
		el.CreateAttr(prefix+":id", master.rID)
	}
}

// linkTheme points the presentation theme relationship at the first master's theme
func (c *Composer) linkTheme() error {
	rels := c.pres.rels()
	rels.RemoveIf(func(rel opc.Relationship) bool { return rel.Type == opc.RelTypeTheme })
	if len(c.masters) == 0 {
		return nil
	}
	first := c.masters[0].part
	themes := c.doc.Relationships(first).ByType(opc.RelTypeTheme)
	if len(themes) == 0 {
		return fmt.Errorf("%w: master %s has no theme", ErrCompositionInvariantViolation, first)
	}
	theme := opc.ResolveTarget(first, themes[0].Target)
	rels.Add(opc.RelTypeTheme, opc.RelativeTarget(c.pres.name, theme))
	return nil
}

// selfCheck validates the package and the slide accounting
func (c *Composer) selfCheck() error {
	var violations []string
	if err := c.doc.Validate(); err != nil {
		var invariant *opc.InvariantError
		if !errors.As(err, &invariant) {
			return err
		}
		violations = append(violations, invariant.Violations...)
	}

	listed := len(pmlChildren(c.pres.list("sldIdLst", false), "sldId"))
	if listed != c.pages {
		violations = append(violations, fmt.Sprintf("ordering list holds %d slides, %d were appended", listed, c.pages))
	}
	if parts := len(c.doc.PartsOfType(opc.ContentTypeSlide)); parts != c.pages {
		violations = append(violations, fmt.Sprintf("document holds %d slide parts, %d were appended", parts, c.pages))
	}

	if len(violations) > 0 {
		return &opc.InvariantError{Violations: violations}
	}
	return nil
}

func clearChildren(el *etree.Element) {
	if el == nil {
		return
	}
	for len(el.Child) > 0 {
		el.RemoveChildAt(0)
	}
}

// Compose appends every fragment in order and writes the result to dest
func Compose(fragments []*Fragment, dest string, opts ...ComposerOption) error {
	c := NewComposer(opts...)
	for _, f := range fragments {
		if err := c.Append(f); err != nil {
			return err
		}
	}
	return c.WriteFile(dest)
}
