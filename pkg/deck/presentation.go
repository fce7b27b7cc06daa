package deck

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/benjaminschreck/go-deck/pkg/deck/opc"
)

// Identifier spaces of presentation.xml
const (
	firstSlideID  = 256
	firstMasterID = 2147483648
)

// sectionListURI identifies the PowerPoint 2010 section list extension
const sectionListURI = "{521415D9-36F7-43E2-AB2F-B90AF26B5E84}"

// presentationOrder is the schema order of the p:presentation children that
// may have to be created.
var presentationOrder = []string{
	"sldMasterIdLst",
	"notesMasterIdLst",
	"handoutMasterIdLst",
	"sldIdLst",
	"sldSz",
	"notesSz",
	"smartTags",
	"embeddedFontLst",
	"custShowLst",
	"photoAlbum",
	"custDataLst",
	"kinsoku",
	"defaultTextStyle",
	"modifyVerifier",
	"extLst",
}

// isPML reports whether el is the PresentationML element with the given local name
func isPML(el *etree.Element, tag string) bool {
	if el == nil || el.Tag != tag {
		return false
	}
	if uri := el.NamespaceURI(); uri != "" {
		return uri == opc.NamespacePresentation
	}
	return el.Space == "p"
}

func pmlChild(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, child := range el.ChildElements() {
		if isPML(child, tag) {
			return child
		}
	}
	return nil
}

func pmlChildren(el *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	if el == nil {
		return out
	}
	for _, child := range el.ChildElements() {
		if isPML(child, tag) {
			out = append(out, child)
		}
	}
	return out
}

// findAll returns every descendant of root matching match, in document order
func findAll(root *etree.Element, match func(*etree.Element) bool) []*etree.Element {
	var out []*etree.Element
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		for _, child := range el.ChildElements() {
			if match(child) {
				out = append(out, child)
			}
			walk(child)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

// relAttr returns the r:<key> attribute of el
func relAttr(el *etree.Element, key string) *etree.Attr {
	for i := range el.Attr {
		attr := &el.Attr[i]
		if attr.Key == key && opc.IsRelationshipAttr(attr) {
			return attr
		}
	}
	return nil
}

// relPrefix returns the prefix bound to the office relationships namespace on
// root, declaring "r" when none is bound.
func relPrefix(root *etree.Element) string {
	for _, attr := range root.Attr {
		if attr.Space == "xmlns" && attr.Value == opc.NamespaceOfficeRels {
			return attr.Key
		}
	}
	root.CreateAttr("xmlns:r", opc.NamespaceOfficeRels)
	return "r"
}

func qualified(space, tag string) string {
	if space == "" {
		return tag
	}
	return space + ":" + tag
}

// presentation wraps the main document part of a PresentationML package
type presentation struct {
	pkg  *opc.Package
	name string
	root *etree.Element
}

func openPresentation(pkg *opc.Package) (*presentation, error) {
	name, err := pkg.MainDocument()
	if err != nil {
		return nil, err
	}
	root, err := pkg.XML(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", opc.ErrCorrupt, err)
	}
	if !isPML(root, "presentation") {
		return nil, fmt.Errorf("%w: %s is not a presentation", opc.ErrCorrupt, name)
	}
	return &presentation{pkg: pkg, name: name, root: root}, nil
}

func (p *presentation) rels() *opc.Relationships {
	return p.pkg.Relationships(p.name)
}

// list returns the named child list, creating it in schema order when create is set
func (p *presentation) list(tag string, create bool) *etree.Element {
	if el := pmlChild(p.root, tag); el != nil || !create {
		return el
	}
	el := etree.NewElement(qualified(p.root.Space, tag))
	rank := indexOf(presentationOrder, tag)
	for _, child := range p.root.ChildElements() {
		if r := indexOf(presentationOrder, child.Tag); r > rank && isPML(child, child.Tag) {
			p.root.InsertChildAt(child.Index(), el)
			return el
		}
	}
	p.root.AddChild(el)
	return el
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

// listTargets resolves the r:id of every entry of a presentation list
func (p *presentation) listTargets(listTag, entryTag string) ([]string, error) {
	var parts []string
	for _, entry := range pmlChildren(p.list(listTag, false), entryTag) {
		attr := relAttr(entry, "id")
		if attr == nil {
			return nil, fmt.Errorf("%w: %s entry without r:id in %s", opc.ErrCorrupt, entryTag, p.name)
		}
		target, ok := p.pkg.Target(p.name, attr.Value)
		if !ok || !p.pkg.HasPart(target) {
			return nil, fmt.Errorf("%w: %s %s does not resolve in %s", opc.ErrCorrupt, entryTag, attr.Value, p.name)
		}
		parts = append(parts, target)
	}
	return parts, nil
}

// slides returns the slide part names in ordering-list order
func (p *presentation) slides() ([]string, error) {
	return p.listTargets("sldIdLst", "sldId")
}

// masters returns the slide master part names in list order
func (p *presentation) masters() ([]string, error) {
	return p.listTargets("sldMasterIdLst", "sldMasterId")
}

// slideSize returns the p:sldSz extent in EMU
func (p *presentation) slideSize() (cx, cy int64, ok bool) {
	sz := pmlChild(p.root, "sldSz")
	if sz == nil {
		return 0, 0, false
	}
	cx, errX := strconv.ParseInt(sz.SelectAttrValue("cx", ""), 10, 64)
	cy, errY := strconv.ParseInt(sz.SelectAttrValue("cy", ""), 10, 64)
	if errX != nil || errY != nil {
		return 0, 0, false
	}
	return cx, cy, true
}

func (p *presentation) setSlideSize(cx, cy int64) {
	sz := p.list("sldSz", true)
	sz.CreateAttr("cx", strconv.FormatInt(cx, 10))
	sz.CreateAttr("cy", strconv.FormatInt(cy, 10))
}

// slideRoots returns the root elements of the slides in order
func slideRoots(pkg *opc.Package, slides []string) ([]*etree.Element, error) {
	roots := make([]*etree.Element, 0, len(slides))
	for _, name := range slides {
		root, err := pkg.XML(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", opc.ErrCorrupt, err)
		}
		roots = append(roots, root)
	}
	return roots, nil
}

// SlideParts returns the slide part names of a presentation package in
// ordering-list order.
func SlideParts(pkg *opc.Package) ([]string, error) {
	pres, err := openPresentation(pkg)
	if err != nil {
		return nil, err
	}
	return pres.slides()
}
